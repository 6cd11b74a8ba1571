// Command splitlink-sim runs one half of a simulated split keyboard.
//
// The simulator replaces the physical key matrix with an in-memory pin
// bank driven from an interactive console, and the wireless link with
// TCP (or an in-process pipe in loopback mode). Everything above the
// pins — scanning, debouncing, the wire protocol, reconnect handling,
// and the merge into the unified matrix — is the real sync core.
//
// Usage:
//
//	splitlink-sim -config <file> [flags]
//
// Flags:
//
//	-config string    Matrix configuration file (YAML, required)
//	-loopback string  Peripheral configuration file: run central and
//	                  peripheral in one process over an in-memory pipe
//	-peer id=addr     Peer address (central, repeatable)
//	-discover         Locate peers without -peer addresses via mDNS
//	-listen string    Listen address (peripheral, default :5888)
//	-id string        Peer id to advertise (peripheral)
//	-advertise        Advertise this half via mDNS (peripheral)
//	-capture string   Write protocol events to a CBOR capture file
//	-verbose          Log protocol events to stderr
//
// Examples:
//
//	# Right half, listening and advertising itself
//	splitlink-sim -config right.yaml -id right -advertise
//
//	# Central half, locating the right half via mDNS
//	splitlink-sim -config central.yaml -discover
//
//	# Both halves in one process
//	splitlink-sim -config central.yaml -loopback right.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/splitlink-protocol/splitlink-go/cmd/splitlink-sim/interactive"
	"github.com/splitlink-protocol/splitlink-go/pkg/config"
	"github.com/splitlink-protocol/splitlink-go/pkg/discovery"
	"github.com/splitlink-protocol/splitlink-go/pkg/gpio"
	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
	"github.com/splitlink-protocol/splitlink-go/pkg/log"
	"github.com/splitlink-protocol/splitlink-go/pkg/service"
	"github.com/splitlink-protocol/splitlink-go/pkg/transport"
	"github.com/splitlink-protocol/splitlink-go/pkg/wire"
)

// peerAddrs collects repeated -peer id=host:port flags.
type peerAddrs map[string]string

func (p peerAddrs) String() string {
	parts := make([]string, 0, len(p))
	for id, addr := range p {
		parts = append(parts, fmt.Sprintf("%s=%s", id, addr))
	}
	return strings.Join(parts, ",")
}

func (p peerAddrs) Set(s string) error {
	id, addr, ok := strings.Cut(s, "=")
	if !ok || id == "" || addr == "" {
		return fmt.Errorf("expected id=host:port, got %q", s)
	}
	p[id] = addr
	return nil
}

func main() {
	var (
		configPath  = flag.String("config", "", "Matrix configuration file (YAML)")
		loopbackCfg = flag.String("loopback", "", "Peripheral configuration file for in-process loopback mode")
		listen      = flag.String("listen", fmt.Sprintf(":%d", discovery.DefaultPort), "Listen address (peripheral)")
		peerID      = flag.String("id", "peripheral", "Peer id to advertise (peripheral)")
		advertise   = flag.Bool("advertise", false, "Advertise this half via mDNS (peripheral)")
		discover    = flag.Bool("discover", false, "Locate peers without -peer addresses via mDNS (central)")
		capture     = flag.String("capture", "", "Write protocol events to a CBOR capture file")
		verbose     = flag.Bool("verbose", false, "Log protocol events to stderr")
	)
	peers := peerAddrs{}
	flag.Var(peers, "peer", "Peer address as id=host:port (central, repeatable)")
	flag.Parse()

	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	if *configPath == "" {
		stdlog.Fatal("-config is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("Loading configuration: %v", err)
	}

	logger, closeLogs := buildLogger(*capture, *verbose)
	defer closeLogs()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	switch {
	case *loopbackCfg != "":
		runLoopback(ctx, cancel, cfg, *loopbackCfg, logger)
	case cfg.Role == keymatrix.RoleCentral:
		runCentral(ctx, cancel, cfg, peers, *discover, logger)
	default:
		runPeripheral(ctx, cancel, cfg, *listen, *peerID, *advertise, logger)
	}
}

func runCentral(ctx context.Context, cancel context.CancelFunc, cfg keymatrix.Config, peers peerAddrs, discover bool, logger log.Logger) {
	transports := make(map[string]transport.Transport, len(cfg.Peers))
	for _, peer := range cfg.Peers {
		addr, ok := peers[peer.ID]
		if !ok {
			if !discover {
				stdlog.Fatalf("No address for peer %q (use -peer %s=host:port or -discover)", peer.ID, peer.ID)
			}
			addr = discoverPeer(ctx, peer.ID)
		}
		stdlog.Printf("Peer %s at %s", peer.ID, addr)
		transports[peer.ID] = transport.NewTCPDialer(addr)
	}

	var (
		bank   *gpio.MemoryMatrix
		halves []*interactive.Half
	)
	if cfg.LocalRows > 0 && cfg.LocalCols > 0 {
		bank = gpio.NewMemoryMatrix(cfg.LocalRows, cfg.LocalCols)
		halves = append(halves, &interactive.Half{
			Name: "local", Bank: bank, Rows: cfg.LocalRows, Cols: cfg.LocalCols,
		})
	}

	var console *interactive.Console
	central, err := service.NewCentralService(cfg, bank, transports, service.CentralOptions{
		Logger: logger,
		OnKeyEvents: func(events []keymatrix.KeyEvent) {
			console.HandleKeyEvents(events)
		},
	})
	if err != nil {
		stdlog.Fatalf("Creating central service: %v", err)
	}

	console, err = interactive.New(halves, central, cfg.Rows, cfg.Cols)
	if err != nil {
		stdlog.Fatalf("Creating console: %v", err)
	}

	go central.Run(ctx)

	stdlog.Printf("Central running: %dx%d unified matrix, %d peer(s)", cfg.Rows, cfg.Cols, len(cfg.Peers))
	console.Run(ctx, cancel)
}

func runPeripheral(ctx context.Context, cancel context.CancelFunc, cfg keymatrix.Config, listen, id string, advertise bool, logger log.Logger) {
	acceptor, err := transport.NewTCPAcceptor(listen)
	if err != nil {
		stdlog.Fatalf("Listening: %v", err)
	}
	defer acceptor.Close()
	stdlog.Printf("Listening on %s", acceptor.Addr())

	if advertise {
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{})
		info := discovery.HalfInfo{
			ID:   id,
			Role: cfg.Role,
			Rows: cfg.Rows,
			Cols: cfg.Cols,
			Port: listenPort(acceptor.Addr()),
		}
		if err := adv.Advertise(info); err != nil {
			stdlog.Fatalf("Advertising: %v", err)
		}
		defer adv.Stop()
		stdlog.Printf("Advertising as %q", id)
	}

	bank := gpio.NewMemoryMatrix(cfg.Rows, cfg.Cols)
	halves := []*interactive.Half{
		{Name: id, Bank: bank, Rows: cfg.Rows, Cols: cfg.Cols},
	}

	var console *interactive.Console
	peripheral, err := service.NewPeripheralService(cfg, bank, acceptor, service.PeripheralOptions{
		Logger: logger,
		OnState: func(state wire.PeripheralState) {
			fmt.Fprintf(console.Stdout(), "[STATE] kind=%d payload=%v\n", state.Kind, state.Payload)
		},
	})
	if err != nil {
		stdlog.Fatalf("Creating peripheral service: %v", err)
	}

	console, err = interactive.New(halves, nil, 0, 0)
	if err != nil {
		stdlog.Fatalf("Creating console: %v", err)
	}

	go peripheral.Run(ctx)

	stdlog.Printf("Peripheral running: %dx%d local matrix", cfg.Rows, cfg.Cols)
	console.Run(ctx, cancel)
}

func runLoopback(ctx context.Context, cancel context.CancelFunc, cfg keymatrix.Config, peripheralPath string, logger log.Logger) {
	if cfg.Role != keymatrix.RoleCentral {
		stdlog.Fatal("-loopback requires a central configuration")
	}
	if len(cfg.Peers) != 1 {
		stdlog.Fatalf("-loopback requires exactly one configured peer, got %d", len(cfg.Peers))
	}
	peer := cfg.Peers[0]

	peripheralCfg, err := config.Load(peripheralPath)
	if err != nil {
		stdlog.Fatalf("Loading peripheral configuration: %v", err)
	}

	centralEnd, peripheralEnd := transport.Pair()

	var (
		centralBank *gpio.MemoryMatrix
		halves      []*interactive.Half
	)
	if cfg.LocalRows > 0 && cfg.LocalCols > 0 {
		centralBank = gpio.NewMemoryMatrix(cfg.LocalRows, cfg.LocalCols)
		halves = append(halves, &interactive.Half{
			Name: "local", Bank: centralBank, Rows: cfg.LocalRows, Cols: cfg.LocalCols,
		})
	}
	peripheralBank := gpio.NewMemoryMatrix(peripheralCfg.Rows, peripheralCfg.Cols)
	halves = append(halves, &interactive.Half{
		Name: peer.ID, Bank: peripheralBank, Rows: peripheralCfg.Rows, Cols: peripheralCfg.Cols,
	})

	var console *interactive.Console
	central, err := service.NewCentralService(cfg, centralBank,
		map[string]transport.Transport{peer.ID: centralEnd},
		service.CentralOptions{
			Logger: logger,
			OnKeyEvents: func(events []keymatrix.KeyEvent) {
				console.HandleKeyEvents(events)
			},
		})
	if err != nil {
		stdlog.Fatalf("Creating central service: %v", err)
	}

	peripheral, err := service.NewPeripheralService(peripheralCfg, peripheralBank, peripheralEnd,
		service.PeripheralOptions{
			Logger: logger,
			OnState: func(state wire.PeripheralState) {
				fmt.Fprintf(console.Stdout(), "[STATE] kind=%d payload=%v\n", state.Kind, state.Payload)
			},
		})
	if err != nil {
		stdlog.Fatalf("Creating peripheral service: %v", err)
	}

	console, err = interactive.New(halves, central, cfg.Rows, cfg.Cols)
	if err != nil {
		stdlog.Fatalf("Creating console: %v", err)
	}

	go central.Run(ctx)
	go peripheral.Run(ctx)

	stdlog.Printf("Loopback running: %dx%d unified matrix", cfg.Rows, cfg.Cols)
	console.Run(ctx, cancel)
}

// discoverPeer blocks until the peer appears on the network and
// returns its dialable address.
func discoverPeer(ctx context.Context, id string) string {
	stdlog.Printf("Browsing for peer %q...", id)
	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	svc, err := browser.FindPeer(ctx, id)
	if err != nil {
		stdlog.Fatalf("Discovering peer %q: %v", id, err)
	}
	if len(svc.Addresses) == 0 {
		stdlog.Fatalf("Peer %q advertised no addresses", id)
	}
	return net.JoinHostPort(svc.Addresses[0], strconv.Itoa(int(svc.Port)))
}

// listenPort extracts the bound TCP port.
func listenPort(addr net.Addr) uint16 {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return uint16(tcp.Port)
	}
	return discovery.DefaultPort
}

// buildLogger assembles the protocol logger from the -capture and
// -verbose flags. The returned func closes any capture file.
func buildLogger(capture string, verbose bool) (log.Logger, func()) {
	var (
		loggers []log.Logger
		closers []io.Closer
	)

	if capture != "" {
		fl, err := log.NewFileLogger(capture)
		if err != nil {
			stdlog.Fatalf("Opening capture file: %v", err)
		}
		loggers = append(loggers, fl)
		closers = append(closers, fl)
	}
	if verbose {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, log.NewSlogAdapter(slog.New(handler)))
	}

	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	switch len(loggers) {
	case 0:
		return nil, closeAll
	case 1:
		return loggers[0], closeAll
	default:
		return log.NewMultiLogger(loggers...), closeAll
	}
}
