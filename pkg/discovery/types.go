package discovery

import (
	"errors"
	"time"

	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
)

const (
	// ServiceTypeHalf is the mDNS service type advertised by a half.
	ServiceTypeHalf = "_splitlink._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default TCP port a half listens on.
	DefaultPort = 5888

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63

	// BrowseTimeout is the default timeout for FindPeer.
	BrowseTimeout = 10 * time.Second
)

// Discovery errors.
var (
	// ErrMissingRequired indicates a required TXT record is absent.
	ErrMissingRequired = errors.New("missing required TXT record")

	// ErrInvalidTXTRecord indicates a malformed TXT record value.
	ErrInvalidTXTRecord = errors.New("invalid TXT record")

	// ErrNotAdvertising indicates Stop/Update without an active service.
	ErrNotAdvertising = errors.New("not advertising")

	// ErrPeerNotFound indicates FindPeer gave up before the peer
	// appeared.
	ErrPeerNotFound = errors.New("peer not found")
)

// TXT record keys.
const (
	TXTKeyID   = "id"
	TXTKeyRole = "role"
	TXTKeyRows = "rows"
	TXTKeyCols = "cols"
)

// HalfInfo describes one advertised keyboard half.
type HalfInfo struct {
	// ID is the stable peer identifier from the matrix configuration.
	ID string

	// Role is the half's fixed role.
	Role keymatrix.Role

	// Rows and Cols are the half's local matrix dimensions.
	Rows uint8
	Cols uint8

	// Port is the TCP port the half listens on. Zero means DefaultPort.
	Port uint16
}

// HalfService is a half discovered on the network.
type HalfService struct {
	HalfInfo

	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the advertised hostname.
	Host string

	// Addresses are the resolved IP addresses, as strings.
	Addresses []string
}
