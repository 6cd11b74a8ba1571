package discovery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeHalfTXT creates the TXT records for an advertised half.
func EncodeHalfTXT(info HalfInfo) TXTRecordMap {
	return TXTRecordMap{
		TXTKeyID:   info.ID,
		TXTKeyRole: strings.ToLower(info.Role.String()),
		TXTKeyRows: strconv.FormatUint(uint64(info.Rows), 10),
		TXTKeyCols: strconv.FormatUint(uint64(info.Cols), 10),
	}
}

// DecodeHalfTXT parses the TXT records of a discovered half.
func DecodeHalfTXT(txt TXTRecordMap) (HalfInfo, error) {
	var info HalfInfo

	var ok bool
	info.ID, ok = txt[TXTKeyID]
	if !ok || info.ID == "" {
		return info, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyID)
	}

	roleStr, ok := txt[TXTKeyRole]
	if !ok {
		return info, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyRole)
	}
	switch roleStr {
	case "central":
		info.Role = keymatrix.RoleCentral
	case "peripheral":
		info.Role = keymatrix.RolePeripheral
	default:
		return info, fmt.Errorf("%w: role %q", ErrInvalidTXTRecord, roleStr)
	}

	rows, err := parseDim(txt, TXTKeyRows)
	if err != nil {
		return info, err
	}
	cols, err := parseDim(txt, TXTKeyCols)
	if err != nil {
		return info, err
	}
	info.Rows, info.Cols = rows, cols

	return info, nil
}

func parseDim(txt TXTRecordMap, key string) (uint8, error) {
	s, ok := txt[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingRequired, key)
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, key, s)
	}
	return uint8(v), nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings,
// the form mDNS libraries expect.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			txt[parts[0]] = ""
		}
	}
	return txt
}
