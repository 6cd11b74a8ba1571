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
	"github.com/splitlink-protocol/splitlink-go/pkg/merge"
	"github.com/splitlink-protocol/splitlink-go/pkg/peerlink"
	"github.com/splitlink-protocol/splitlink-go/pkg/scanner"
	"github.com/splitlink-protocol/splitlink-go/pkg/transport"
	"github.com/splitlink-protocol/splitlink-go/pkg/wire"
)

// CentralOptions configures a CentralService.
type CentralOptions struct {
	// Logger receives structured protocol events. Nil disables logging.
	Logger log.Logger

	// Backoff overrides the reconnect backoff for all peer links.
	Backoff peerlink.BackoffConfig

	// OnKeyEvents receives the global key-event diff of every cycle
	// that changed the unified matrix.
	OnKeyEvents EventHandler
}

// CentralService runs the central half: local scan, peer link
// supervision, cache maintenance, and the merge into the unified
// global matrix.
type CentralService struct {
	cfg     keymatrix.Config
	scanner *scanner.Scanner
	deb     *scanner.Debouncer
	merger  *merge.Merger
	handler EventHandler
	logger  log.Logger

	links  map[string]*peerlink.Link
	caches []*peerlink.Cache
	byID   map[string]*peerlink.Cache

	// updates fans in every link's update channel for the orchestrator.
	updates chan peerlink.Update

	// stateReqs carries externally requested peripheral-state pushes
	// into the orchestrator, which owns lastStates.
	stateReqs  chan wire.PeripheralState
	lastStates map[uint8][]byte

	raw     keymatrix.Grid
	noLocal keymatrix.Grid
	running atomic.Bool
}

// NewCentralService builds a central service from a validated central
// configuration. transports maps each configured peer id to the
// transport its link will own; every peer must have one. bank supplies
// the local matrix pins and may be nil when the configuration has no
// local keys (dongle).
func NewCentralService(cfg keymatrix.Config, bank gpio.Bank, transports map[string]transport.Transport, opts CentralOptions) (*CentralService, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if cfg.Role != keymatrix.RoleCentral {
		return nil, fmt.Errorf("%w: role %s", ErrRoleMismatch, cfg.Role)
	}

	s := &CentralService{
		cfg:        cfg,
		merger:     merge.NewMerger(cfg),
		handler:    opts.OnKeyEvents,
		logger:     log.OrNoop(opts.Logger),
		links:      make(map[string]*peerlink.Link, len(cfg.Peers)),
		byID:       make(map[string]*peerlink.Cache, len(cfg.Peers)),
		updates:    make(chan peerlink.Update, peerlink.DefaultUpdateDepth),
		stateReqs:  make(chan wire.PeripheralState, 4),
		lastStates: make(map[uint8][]byte),
		noLocal:    keymatrix.NewGrid(0, 0),
	}

	if cfg.LocalRows > 0 && cfg.LocalCols > 0 {
		if len(cfg.OutputPins) != int(cfg.LocalRows) || len(cfg.InputPins) != int(cfg.LocalCols) {
			return nil, fmt.Errorf("%w: %d output and %d input pins for %dx%d local matrix",
				keymatrix.ErrInvalidConfig, len(cfg.OutputPins), len(cfg.InputPins), cfg.LocalRows, cfg.LocalCols)
		}
		s.scanner, err = scanner.New(bank, cfg.OutputPins, cfg.InputPins)
		if err != nil {
			return nil, err
		}
		s.deb = scanner.NewDebouncer(cfg.LocalRows, cfg.LocalCols, cfg.DebounceTicks, cfg.DebounceInterval)
		s.raw = keymatrix.NewGrid(cfg.LocalRows, cfg.LocalCols)
	}

	for _, peer := range cfg.Peers {
		tr, ok := transports[peer.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingTransport, peer.ID)
		}
		s.links[peer.ID] = peerlink.NewLink(peer, tr, peerlink.LinkOptions{
			Logger:  opts.Logger,
			Backoff: opts.Backoff,
		})
		cache := peerlink.NewCache(peer)
		s.caches = append(s.caches, cache)
		s.byID[peer.ID] = cache
	}

	return s, nil
}

// Run drives the service until the context is cancelled. It starts one
// goroutine per peer link and runs the scan/merge loop itself.
func (s *CentralService) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	for _, l := range s.links {
		wg.Add(2)
		go func(l *peerlink.Link) {
			defer wg.Done()
			l.Run(ctx)
		}(l)
		go func(l *peerlink.Link) {
			defer wg.Done()
			s.fanIn(ctx, l)
		}(l)
	}

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			s.cycle(ctx, time.Now())

		case u := <-s.updates:
			s.applyUpdate(ctx, u)
			s.drainUpdates(ctx)
			if s.cfg.ScanMode == keymatrix.ScanModeEventTriggered {
				// Peer activity: rescan immediately instead of waiting
				// out the tick.
				s.cycle(ctx, time.Now())
			}

		case state := <-s.stateReqs:
			s.lastStates[state.Kind] = state.Payload
			for _, l := range s.links {
				l.Send(ctx, state)
			}
		}
	}
}

// BroadcastState pushes a peripheral-state message to every peer. The
// last pushed payload per kind is replayed to a peer when its link
// reconnects.
func (s *CentralService) BroadcastState(ctx context.Context, state wire.PeripheralState) error {
	select {
	case s.stateReqs <- state:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetLedState pushes the host LED state to every peripheral.
func (s *CentralService) SetLedState(ctx context.Context, on bool) error {
	return s.BroadcastState(ctx, wire.PeripheralState{
		Kind:    wire.StateKindLed,
		Payload: []byte{boolByte(on)},
	})
}

// SetConnectionState pushes the central's downstream connection state
// to every peripheral.
func (s *CentralService) SetConnectionState(ctx context.Context, connected bool) error {
	return s.BroadcastState(ctx, wire.PeripheralState{
		Kind:    wire.StateKindConnection,
		Payload: []byte{boolByte(connected)},
	})
}

// fanIn forwards one link's updates into the shared orchestrator
// channel.
func (s *CentralService) fanIn(ctx context.Context, l *peerlink.Link) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-l.Updates():
			select {
			case s.updates <- u:
			case <-ctx.Done():
				return
			}
		}
	}
}

// applyUpdate folds one peer update into its cache.
func (s *CentralService) applyUpdate(ctx context.Context, u peerlink.Update) {
	cache, ok := s.byID[u.PeerID]
	if !ok {
		return
	}
	if err := cache.Apply(u); err != nil {
		s.logError(log.LayerMerge, err, "applying peer update")
		return
	}
	if u.Health != nil && u.Health.State == peerlink.LinkConnected {
		// Fresh session: replay the last pushed states so the peer's
		// LEDs match reality again.
		if l, ok := s.links[u.PeerID]; ok {
			for kind, payload := range s.lastStates {
				l.Send(ctx, wire.PeripheralState{Kind: kind, Payload: payload})
			}
		}
	}
}

// drainUpdates folds all immediately available updates without
// blocking, so one merge covers a burst.
func (s *CentralService) drainUpdates(ctx context.Context) {
	for {
		select {
		case u := <-s.updates:
			s.applyUpdate(ctx, u)
		default:
			return
		}
	}
}

// cycle runs one scan+merge pass and emits the resulting diff.
func (s *CentralService) cycle(ctx context.Context, now time.Time) {
	local := s.noLocal
	if s.scanner != nil {
		if err := s.scanner.Scan(s.raw); err != nil {
			// Non-fatal: skip this cycle, retry on the next tick.
			s.logError(log.LayerScan, err, "scanning local matrix")
			return
		}
		s.deb.Feed(s.raw, now)
		local = s.deb.Settled()
	}

	_, events := s.merger.Merge(local, s.caches, now)
	if len(events) == 0 {
		return
	}

	for _, e := range events {
		s.logger.Log(log.Event{
			Timestamp: e.Time,
			Layer:     log.LayerMerge,
			Category:  log.CategoryKey,
			LocalRole: log.RoleCentral,
			Key:       &log.KeyEventData{Row: e.Row, Col: e.Col, Pressed: e.Pressed},
		})
	}
	if s.handler != nil {
		s.handler(events)
	}
}

func (s *CentralService) logError(layer log.Layer, err error, context string) {
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     layer,
		Category:  log.CategoryError,
		LocalRole: log.RoleCentral,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}
