package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"unicode"

	"golang.org/x/term"

	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/services"
)

// recoverer is the part of the recovery monitor the console drives
type recoverer interface {
	Recover(ctx context.Context) (*services.RecoverySummary, error)
	Status() services.RecoveryStatus
}

// console maps single keypresses to server actions
type console struct {
	log      logger.Logger
	recovery recoverer
	out      io.Writer

	mu sync.Mutex
	wg sync.WaitGroup
}

// printf writes with CRLF line endings so output stays aligned in raw mode
func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	c.out.Write(bytes.ReplaceAll([]byte(msg), []byte("\n"), []byte("\r\n")))
}

// listen puts the terminal in raw mode and handles keys until ctx ends or
// the user quits. Non-terminal stdin disables the shortcuts.
func (c *console) listen(ctx context.Context, in *os.File, quit func()) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return
	}
	defer term.Restore(fd, oldState)

	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := in.Read(buf)
			if err != nil {
				close(keys)
				return
			}
			if n == 1 {
				keys <- buf[0]
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-keys:
			if !ok {
				return
			}
			if c.handleKey(ctx, key) {
				quit()
				return
			}
		}
	}
}

// handleKey performs the action bound to key and reports whether to quit
func (c *console) handleKey(ctx context.Context, key byte) bool {
	switch unicode.ToLower(rune(key)) {
	case 'r':
		c.printf("%sRecovering locally saved registrations...%s\n", cyan, reset)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.recover(ctx)
		}()
	case 's':
		st := c.recovery.Status()
		state := green + "online" + reset
		if !st.Online {
			state = red + "offline" + reset
		}
		c.printf("Record store %s, %s%d%s pending, %d malformed\n", state, yellow, st.Pending, reset, st.Malformed)
	case 'h':
		if c.log.IsHTTPLoggingEnabled() {
			c.log.DisableHTTPLogging()
			c.printf("%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			c.log.EnableHTTPLogging()
			c.printf("%sHTTP logging enabled%s\n", green, reset)
		}
	case 'l':
		c.printf("%sLog level: %s%s%s\n", green, yellow, cycleLogLevel(c.log), reset)
	case 'q', '\x03':
		c.printf("%sShutting down server...%s\n", yellow, reset)
		return true
	case '?':
		printKeyboardHelpTo(c.printf)
	}
	return false
}

func (c *console) recover(ctx context.Context) {
	sum, err := c.recovery.Recover(ctx)
	switch {
	case errors.Is(err, services.ErrRecoveryInProgress):
		c.printf("%sRecovery already running%s\n", yellow, reset)
	case err != nil:
		c.printf("%sRecovery failed: %v%s\n", red, err, reset)
	default:
		c.printf("%sRecovered %d%s, %d still failing\n", green, sum.Recovered, reset, sum.Failed)
	}
}

// cycleLogLevel moves debug -> info -> warn -> error -> debug and returns
// the new level name
func cycleLogLevel(l logger.Logger) string {
	var next string
	switch l.GetLevel().String() {
	case "DEBUG":
		next = "info"
	case "INFO":
		next = "warn"
	case "WARN":
		next = "error"
	default:
		next = "debug"
	}
	l.SetLevel(logger.ParseLevel(next))
	return next
}

func printKeyboardHelp() {
	printKeyboardHelpTo(func(format string, args ...any) { fmt.Printf(format, args...) })
}

func printKeyboardHelpTo(printf func(format string, args ...any)) {
	printf("\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	printf("    %sr%s      - Recover locally saved registrations now\n", cyan, reset)
	printf("    %ss%s      - Show backup status\n", cyan, reset)
	printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	printf("    %sq%s      - Quit server\n", cyan, reset)
	printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

// crlfWriter translates newlines for log output written while the
// terminal is in raw mode
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
