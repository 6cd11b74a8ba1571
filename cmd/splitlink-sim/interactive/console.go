// Package interactive provides the interactive key console for the
// splitlink simulator.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/splitlink-protocol/splitlink-go/pkg/gpio"
	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
	"github.com/splitlink-protocol/splitlink-go/pkg/service"
)

// Half is one simulated physical half the console can press keys on.
type Half struct {
	// Name selects the half in console commands.
	Name string

	// Bank is the simulated pin matrix.
	Bank *gpio.MemoryMatrix

	// Rows and Cols bound the valid key coordinates.
	Rows uint8
	Cols uint8
}

// TapHold is how long a tapped key stays pressed: long enough for the
// debouncer to validate the press at default scan settings.
const TapHold = 50 * time.Millisecond

// Console is the interactive command loop of the simulator.
type Console struct {
	rl      *readline.Instance
	halves  map[string]*Half
	order   []string
	central *service.CentralService

	mu      sync.Mutex
	unified keymatrix.Grid
}

// New creates a console over the given halves. central may be nil when
// this process runs a peripheral only; rows/cols size the unified
// matrix display and are ignored without a central.
func New(halves []*Half, central *service.CentralService, rows, cols uint8) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "splitlink> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("creating readline: %w", err)
	}

	c := &Console{
		rl:      rl,
		halves:  make(map[string]*Half, len(halves)),
		central: central,
	}
	for _, h := range halves {
		c.halves[h.Name] = h
		c.order = append(c.order, h.Name)
	}
	if central != nil {
		c.unified = keymatrix.NewGrid(rows, cols)
	}
	return c, nil
}

// Stdout returns a writer that coordinates with the prompt. Use it for
// all asynchronous output.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// HandleKeyEvents is the central's event handler: it prints every
// validated transition and keeps the unified matrix display current.
func (c *Console) HandleKeyEvents(events []keymatrix.KeyEvent) {
	c.mu.Lock()
	for _, e := range events {
		c.unified.Set(e.Row, e.Col, e.Pressed)
	}
	c.mu.Unlock()

	for _, e := range events {
		fmt.Fprintf(c.rl.Stdout(), "[KEY] %s\n", e)
	}
}

// Run starts the command loop. It returns when the user quits or the
// context is cancelled; quitting cancels the context.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "press", "p":
			c.cmdKey(args, true, false)

		case "release", "r":
			c.cmdKey(args, false, false)

		case "tap", "t":
			c.cmdKey(args, true, true)

		case "matrix", "m":
			c.cmdMatrix()

		case "led":
			c.cmdLed(ctx, args)

		case "halves":
			for _, name := range c.order {
				h := c.halves[name]
				fmt.Fprintf(c.rl.Stdout(), "  %s: %dx%d\n", name, h.Rows, h.Cols)
			}

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

// cmdKey parses "[half] <row> <col>" and applies a press or release.
// tap releases again after TapHold.
func (c *Console) cmdKey(args []string, pressed, tap bool) {
	half := c.halves[c.order[0]]
	if len(args) == 3 {
		h, ok := c.halves[args[0]]
		if !ok {
			fmt.Fprintf(c.rl.Stdout(), "Unknown half: %s\n", args[0])
			return
		}
		half = h
		args = args[1:]
	}
	if len(args) != 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: press|release|tap [half] <row> <col>")
		return
	}

	row, err1 := strconv.ParseUint(args[0], 10, 8)
	col, err2 := strconv.ParseUint(args[1], 10, 8)
	if err1 != nil || err2 != nil || uint8(row) >= half.Rows || uint8(col) >= half.Cols {
		fmt.Fprintf(c.rl.Stdout(), "Key out of range: %s is %dx%d\n", half.Name, half.Rows, half.Cols)
		return
	}

	if pressed {
		half.Bank.Press(uint8(row), uint8(col))
	} else {
		half.Bank.Release(uint8(row), uint8(col))
	}
	if tap {
		bank := half.Bank
		time.AfterFunc(TapHold, func() {
			bank.Release(uint8(row), uint8(col))
		})
	}
}

// cmdMatrix renders the unified matrix as seen by the central.
func (c *Console) cmdMatrix() {
	if c.central == nil {
		fmt.Fprintln(c.rl.Stdout(), "No central in this process")
		return
	}

	c.mu.Lock()
	grid := c.unified.Clone()
	c.mu.Unlock()

	var b strings.Builder
	for r := 0; r < grid.Rows(); r++ {
		for col := 0; col < grid.Cols(); col++ {
			if grid.Get(uint8(r), uint8(col)) {
				b.WriteString(" #")
			} else {
				b.WriteString(" .")
			}
		}
		b.WriteByte('\n')
	}
	fmt.Fprint(c.rl.Stdout(), b.String())
}

func (c *Console) cmdLed(ctx context.Context, args []string) {
	if c.central == nil {
		fmt.Fprintln(c.rl.Stdout(), "No central in this process")
		return
	}
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(c.rl.Stdout(), "Usage: led on|off")
		return
	}
	if err := c.central.SetLedState(ctx, args[0] == "on"); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "led: %v\n", err)
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Splitlink Simulator Commands:
  Keys:
    press [half] <row> <col>   - Hold a key down
    release [half] <row> <col> - Release a key
    tap [half] <row> <col>     - Press and release a key
    halves                     - List the halves in this process

  State:
    matrix                     - Render the unified matrix (central)
    led on|off                 - Push LED state to peripherals (central)

  quit                         - Exit`)
}
