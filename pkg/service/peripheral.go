package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/splitlink-protocol/splitlink-go/pkg/gpio"
	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
	"github.com/splitlink-protocol/splitlink-go/pkg/log"
	"github.com/splitlink-protocol/splitlink-go/pkg/peerlink"
	"github.com/splitlink-protocol/splitlink-go/pkg/scanner"
	"github.com/splitlink-protocol/splitlink-go/pkg/transport"
	"github.com/splitlink-protocol/splitlink-go/pkg/wire"
)

// PeripheralOptions configures a PeripheralService.
type PeripheralOptions struct {
	// Logger receives structured protocol events. Nil disables logging.
	Logger log.Logger

	// Backoff overrides the uplink reconnect backoff.
	Backoff peerlink.BackoffConfig

	// OnState receives peripheral-state pushes from the central (LED
	// state, connection state). Called from the scan goroutine.
	OnState StateHandler
}

// PeripheralService runs a peripheral half: it scans and debounces its
// own matrix in local coordinates and forwards every validated
// transition to the central over one uplink. It holds no global state
// and never merges.
type PeripheralService struct {
	cfg     keymatrix.Config
	scanner *scanner.Scanner
	deb     *scanner.Debouncer
	uplink  *peerlink.Uplink
	logger  log.Logger
	onState StateHandler

	raw     keymatrix.Grid
	running atomic.Bool

	// snapshot is the last settled grid, cloned for the uplink's resync
	// callback which runs on the uplink goroutine.
	snapshot atomic.Pointer[keymatrix.Grid]
}

// NewPeripheralService builds a peripheral service from a validated
// peripheral configuration and the transport of its upstream link.
func NewPeripheralService(cfg keymatrix.Config, bank gpio.Bank, tr transport.Transport, opts PeripheralOptions) (*PeripheralService, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if cfg.Role != keymatrix.RolePeripheral {
		return nil, fmt.Errorf("%w: role %s", ErrRoleMismatch, cfg.Role)
	}
	if len(cfg.OutputPins) != int(cfg.Rows) || len(cfg.InputPins) != int(cfg.Cols) {
		return nil, fmt.Errorf("%w: %d output and %d input pins for %dx%d matrix",
			keymatrix.ErrInvalidConfig, len(cfg.OutputPins), len(cfg.InputPins), cfg.Rows, cfg.Cols)
	}

	s := &PeripheralService{
		cfg:     cfg,
		logger:  log.OrNoop(opts.Logger),
		onState: opts.OnState,
		raw:     keymatrix.NewGrid(cfg.Rows, cfg.Cols),
	}
	s.scanner, err = scanner.New(bank, cfg.OutputPins, cfg.InputPins)
	if err != nil {
		return nil, err
	}
	s.deb = scanner.NewDebouncer(cfg.Rows, cfg.Cols, cfg.DebounceTicks, cfg.DebounceInterval)
	s.uplink = peerlink.NewUplink(tr, peerlink.UplinkOptions{
		Logger:  opts.Logger,
		Backoff: opts.Backoff,
		Resync:  s.resyncMessages,
	})
	return s, nil
}

// Run drives the service until the context is cancelled. It starts the
// uplink task and runs the scan loop itself.
func (s *PeripheralService) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.uplink.Run(ctx)
	}()

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if err := s.cycle(ctx, time.Now()); err != nil {
				return err
			}

		case state := <-s.uplink.States():
			if s.onState != nil {
				s.onState(state)
			}
		}
	}
}

// cycle runs one scan pass and forwards any settled transitions. The
// returned error is non-nil only on context cancellation.
func (s *PeripheralService) cycle(ctx context.Context, now time.Time) error {
	if err := s.scanner.Scan(s.raw); err != nil {
		// Non-fatal: skip this cycle, retry on the next tick.
		s.logScanError(err)
		return nil
	}

	events := s.deb.Feed(s.raw, now)
	if len(events) == 0 {
		return nil
	}

	snap := s.deb.Settled().Clone()
	s.snapshot.Store(&snap)

	for _, e := range events {
		msg := wire.Key{Row: e.Row, Col: e.Col, Pressed: e.Pressed}
		if err := s.uplink.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// resyncMessages rebuilds the full pressed state for replay after a
// reconnect. Runs on the uplink goroutine.
func (s *PeripheralService) resyncMessages() []wire.Message {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil
	}
	var msgs []wire.Message
	g := *snap
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			if g.Get(uint8(r), uint8(c)) {
				msgs = append(msgs, wire.Key{Row: uint8(r), Col: uint8(c), Pressed: true})
			}
		}
	}
	return msgs
}

func (s *PeripheralService) logScanError(err error) {
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerScan,
		Category:  log.CategoryError,
		LocalRole: log.RolePeripheral,
		Error: &log.ErrorEventData{
			Layer:   log.LayerScan,
			Message: err.Error(),
			Context: "scanning local matrix",
		},
	})
}
