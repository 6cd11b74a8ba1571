package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitlink-protocol/splitlink-go/pkg/gpio"
	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
	"github.com/splitlink-protocol/splitlink-go/pkg/peerlink"
	"github.com/splitlink-protocol/splitlink-go/pkg/transport"
	"github.com/splitlink-protocol/splitlink-go/pkg/wire"
)

var testBackoff = peerlink.BackoffConfig{
	Initial:    time.Millisecond,
	Max:        5 * time.Millisecond,
	Multiplier: 2.0,
	Jitter:     0,
}

func pinNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return names
}

// centralTestConfig is the 4x7 split from the merge tests: central's
// own 4x4 block plus one 4x3 peripheral at column offset 4.
func centralTestConfig() keymatrix.Config {
	return keymatrix.Config{
		Role:          keymatrix.RoleCentral,
		Rows:          4,
		Cols:          7,
		LocalRows:     4,
		LocalCols:     4,
		OutputPins:    pinNames("row", 4),
		InputPins:     pinNames("col", 4),
		ScanInterval:  time.Millisecond,
		DebounceTicks: 1,
		Peers: []keymatrix.PeerConfig{
			{ID: "right", Rows: 4, Cols: 3, RowOffset: 0, ColOffset: 4},
		},
	}
}

func peripheralTestConfig() keymatrix.Config {
	return keymatrix.Config{
		Role:          keymatrix.RolePeripheral,
		Rows:          4,
		Cols:          3,
		OutputPins:    pinNames("row", 4),
		InputPins:     pinNames("col", 3),
		ScanInterval:  time.Millisecond,
		DebounceTicks: 1,
	}
}

func waitEvent(t *testing.T, ch <-chan keymatrix.KeyEvent) keymatrix.KeyEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for key event")
		return keymatrix.KeyEvent{}
	}
}

func TestCentralPeripheralEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	centralEnd, peripheralEnd := transport.Pair()
	centralBank := gpio.NewMemoryMatrix(4, 4)
	peripheralBank := gpio.NewMemoryMatrix(4, 3)

	events := make(chan keymatrix.KeyEvent, 64)
	central, err := NewCentralService(centralTestConfig(), centralBank,
		map[string]transport.Transport{"right": centralEnd},
		CentralOptions{
			Backoff: testBackoff,
			OnKeyEvents: func(evs []keymatrix.KeyEvent) {
				for _, e := range evs {
					events <- e
				}
			},
		})
	require.NoError(t, err)

	states := make(chan wire.PeripheralState, 4)
	peripheral, err := NewPeripheralService(peripheralTestConfig(), peripheralBank, peripheralEnd,
		PeripheralOptions{
			Backoff: testBackoff,
			OnState: func(st wire.PeripheralState) { states <- st },
		})
	require.NoError(t, err)

	go central.Run(ctx)
	go peripheral.Run(ctx)

	// Peripheral-local (1,2) surfaces as global (1,6).
	peripheralBank.Press(1, 2)
	e := waitEvent(t, events)
	assert.Equal(t, keymatrix.Coordinate{Row: 1, Col: 6}, e.Coordinate)
	assert.True(t, e.Pressed)

	peripheralBank.Release(1, 2)
	e = waitEvent(t, events)
	assert.Equal(t, keymatrix.Coordinate{Row: 1, Col: 6}, e.Coordinate)
	assert.False(t, e.Pressed)

	// The central's own keys pass through untranslated.
	centralBank.Press(2, 3)
	e = waitEvent(t, events)
	assert.Equal(t, keymatrix.Coordinate{Row: 2, Col: 3}, e.Coordinate)
	assert.True(t, e.Pressed)

	// LED state pushed downstream reaches the peripheral.
	require.NoError(t, central.SetLedState(ctx, true))
	select {
	case st := <-states:
		assert.EqualValues(t, wire.StateKindLed, st.Kind)
		require.Len(t, st.Payload, 1)
		assert.EqualValues(t, 1, st.Payload[0])
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for state push")
	}
}

func TestStuckKeyReleasedAfterPeerLoss(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	peripheralCtx, stopPeripheral := context.WithCancel(ctx)

	centralEnd, peripheralEnd := transport.Pair()
	centralBank := gpio.NewMemoryMatrix(4, 4)
	peripheralBank := gpio.NewMemoryMatrix(4, 3)

	events := make(chan keymatrix.KeyEvent, 64)
	central, err := NewCentralService(centralTestConfig(), centralBank,
		map[string]transport.Transport{"right": centralEnd},
		CentralOptions{
			Backoff: testBackoff,
			OnKeyEvents: func(evs []keymatrix.KeyEvent) {
				for _, e := range evs {
					events <- e
				}
			},
		})
	require.NoError(t, err)

	peripheral, err := NewPeripheralService(peripheralTestConfig(), peripheralBank, peripheralEnd,
		PeripheralOptions{Backoff: testBackoff})
	require.NoError(t, err)

	go central.Run(ctx)
	go peripheral.Run(peripheralCtx)

	peripheralBank.Press(0, 0)
	e := waitEvent(t, events)
	require.Equal(t, keymatrix.Coordinate{Row: 0, Col: 4}, e.Coordinate)
	require.True(t, e.Pressed)

	// The peripheral dies with the key held down. The central must
	// force-release it, exactly once.
	stopPeripheral()
	e = waitEvent(t, events)
	assert.Equal(t, keymatrix.Coordinate{Row: 0, Col: 4}, e.Coordinate)
	assert.False(t, e.Pressed)

	select {
	case e := <-events:
		t.Fatalf("unexpected event after forced release: %v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewCentralServiceValidation(t *testing.T) {
	bank := gpio.NewMemoryMatrix(4, 4)

	t.Run("MissingTransport", func(t *testing.T) {
		_, err := NewCentralService(centralTestConfig(), bank, nil, CentralOptions{})
		require.ErrorIs(t, err, ErrMissingTransport)
	})

	t.Run("RoleMismatch", func(t *testing.T) {
		_, err := NewCentralService(peripheralTestConfig(), bank, nil, CentralOptions{})
		require.ErrorIs(t, err, ErrRoleMismatch)
	})

	t.Run("PinCountMismatch", func(t *testing.T) {
		cfg := centralTestConfig()
		cfg.OutputPins = pinNames("row", 2)
		end, _ := transport.Pair()
		_, err := NewCentralService(cfg, bank, map[string]transport.Transport{"right": end}, CentralOptions{})
		require.ErrorIs(t, err, keymatrix.ErrInvalidConfig)
	})
}

func TestNewPeripheralServiceValidation(t *testing.T) {
	bank := gpio.NewMemoryMatrix(4, 3)
	end, _ := transport.Pair()

	t.Run("RoleMismatch", func(t *testing.T) {
		_, err := NewPeripheralService(centralTestConfig(), bank, end, PeripheralOptions{})
		require.ErrorIs(t, err, ErrRoleMismatch)
	})

	t.Run("PinCountMismatch", func(t *testing.T) {
		cfg := peripheralTestConfig()
		cfg.InputPins = pinNames("col", 5)
		_, err := NewPeripheralService(cfg, bank, end, PeripheralOptions{})
		require.ErrorIs(t, err, keymatrix.ErrInvalidConfig)
	})
}

func TestRunGuard(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	centralEnd, _ := transport.Pair()
	central, err := NewCentralService(centralTestConfig(), gpio.NewMemoryMatrix(4, 4),
		map[string]transport.Transport{"right": centralEnd},
		CentralOptions{Backoff: testBackoff})
	require.NoError(t, err)

	running := make(chan struct{})
	go func() {
		close(running)
		central.Run(ctx)
	}()
	<-running
	time.Sleep(20 * time.Millisecond)

	require.ErrorIs(t, central.Run(ctx), ErrAlreadyRunning)
}
