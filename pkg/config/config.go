// Package config loads matrix configuration files.
//
// Files are YAML and map one-to-one onto keymatrix.Config; the result
// is always validated, so a successfully loaded configuration is safe
// to hand to the service layer. The core packages never parse raw
// configuration text themselves.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
)

// duration parses YAML durations in time.ParseDuration form ("1ms").
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = duration(v)
	return nil
}

type localFile struct {
	Rows      uint8 `yaml:"rows"`
	Cols      uint8 `yaml:"cols"`
	RowOffset uint8 `yaml:"row_offset"`
	ColOffset uint8 `yaml:"col_offset"`
}

type peerFile struct {
	ID             string `yaml:"id"`
	Rows           uint8  `yaml:"rows"`
	Cols           uint8  `yaml:"cols"`
	RowOffset      uint8  `yaml:"row_offset"`
	ColOffset      uint8  `yaml:"col_offset"`
	ReconnectLimit int    `yaml:"reconnect_limit"`
}

type file struct {
	Role             string     `yaml:"role"`
	Rows             uint8      `yaml:"rows"`
	Cols             uint8      `yaml:"cols"`
	Local            *localFile `yaml:"local"`
	OutputPins       []string   `yaml:"output_pins"`
	InputPins        []string   `yaml:"input_pins"`
	ScanMode         string     `yaml:"scan_mode"`
	ScanInterval     duration   `yaml:"scan_interval"`
	DebounceTicks    int        `yaml:"debounce_ticks"`
	DebounceInterval duration   `yaml:"debounce_interval"`
	PeerTimeout      duration   `yaml:"peer_timeout"`
	Peers            []peerFile `yaml:"peers"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (keymatrix.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return keymatrix.Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads and validates a YAML configuration. Unknown fields are
// rejected.
func Parse(r io.Reader) (keymatrix.Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var in file
	if err := dec.Decode(&in); err != nil {
		return keymatrix.Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg := keymatrix.Config{
		Rows:             in.Rows,
		Cols:             in.Cols,
		OutputPins:       in.OutputPins,
		InputPins:        in.InputPins,
		ScanInterval:     time.Duration(in.ScanInterval),
		DebounceTicks:    in.DebounceTicks,
		DebounceInterval: time.Duration(in.DebounceInterval),
		PeerTimeout:      time.Duration(in.PeerTimeout),
	}

	switch in.Role {
	case "central":
		cfg.Role = keymatrix.RoleCentral
	case "peripheral":
		cfg.Role = keymatrix.RolePeripheral
	default:
		return keymatrix.Config{}, fmt.Errorf("%w: unknown role %q", keymatrix.ErrInvalidConfig, in.Role)
	}

	switch in.ScanMode {
	case "", "interval":
		cfg.ScanMode = keymatrix.ScanModeInterval
	case "event-triggered":
		cfg.ScanMode = keymatrix.ScanModeEventTriggered
	default:
		return keymatrix.Config{}, fmt.Errorf("%w: unknown scan mode %q", keymatrix.ErrInvalidConfig, in.ScanMode)
	}

	if in.Local != nil {
		cfg.LocalRows = in.Local.Rows
		cfg.LocalCols = in.Local.Cols
		cfg.LocalRowOffset = in.Local.RowOffset
		cfg.LocalColOffset = in.Local.ColOffset
	} else if cfg.Role == keymatrix.RolePeripheral {
		// A peripheral's whole matrix is local.
		cfg.LocalRows = in.Rows
		cfg.LocalCols = in.Cols
	}

	for _, p := range in.Peers {
		cfg.Peers = append(cfg.Peers, keymatrix.PeerConfig{
			ID:             p.ID,
			Rows:           p.Rows,
			Cols:           p.Cols,
			RowOffset:      p.RowOffset,
			ColOffset:      p.ColOffset,
			ReconnectLimit: p.ReconnectLimit,
		})
	}

	return cfg.Validate()
}
