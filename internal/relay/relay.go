// Package relay feeds chunks to a third-party web tool by hand: it opens the
// tool once, copies one chunk at a time to the clipboard and waits a fixed
// countdown between chunks so the user can paste and submit.
//
// The controller is a tick-driven state machine with no timers of its own.
// Runner (or a UI event loop) supplies the one-second ticks.
package relay

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	DefaultCountdown = 20
	DefaultURL       = "https://app.readomni.com"
)

var (
	ErrNoChunks    = errors.New("nothing to relay")
	ErrOpenFailed  = errors.New("could not open destination")
	ErrClipboard   = errors.New("clipboard write failed")
	ErrNotStalled  = errors.New("relay is not stalled")
	ErrNotComplete = errors.New("relay is not complete")
	ErrRunning     = errors.New("relay already started")
)

// Phase is the controller's state.
type Phase int

const (
	Idle Phase = iota
	Relaying
	Counting
	Complete
	Stalled
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Relaying:
		return "relaying"
	case Counting:
		return "counting"
	case Complete:
		return "complete"
	case Stalled:
		return "stalled"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is a snapshot of the controller. Index is the zero-based chunk
// being relayed; SecondsLeft is only meaningful while Counting; Err is set
// while Stalled.
type State struct {
	Phase       Phase
	Index       int
	SecondsLeft int
	Err         error
}

func (s State) String() string {
	switch s.Phase {
	case Relaying, Stalled:
		return fmt.Sprintf("%s(%d)", s.Phase, s.Index)
	case Counting:
		return fmt.Sprintf("%s(%d,%d)", s.Phase, s.Index, s.SecondsLeft)
	}
	return s.Phase.String()
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteText(text string) error
}

// Opener opens a URL in an external window.
type Opener interface {
	Open(url string) error
}

type ClipboardFunc func(string) error

func (f ClipboardFunc) WriteText(text string) error { return f(text) }

type OpenerFunc func(string) error

func (f OpenerFunc) Open(url string) error { return f(url) }

type Option func(*Controller)

// WithURL sets the destination opened on Start and Navigate.
func WithURL(url string) Option {
	return func(c *Controller) { c.url = url }
}

// WithCountdown sets the seconds waited between chunks.
func WithCountdown(seconds int) Option {
	return func(c *Controller) {
		if seconds > 0 {
			c.countdown = seconds
		}
	}
}

// WithObserver registers fn to receive every state the controller enters,
// in order. fn runs with the controller locked and must not call back into
// it.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) { c.observer = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller is safe for concurrent use.
type Controller struct {
	mu        sync.Mutex
	chunks    []string
	clip      Clipboard
	opener    Opener
	url       string
	countdown int
	observer  func(State)
	log       *zap.Logger
	state     State
}

func New(chunks []string, clip Clipboard, opener Opener, opts ...Option) *Controller {
	c := &Controller{
		chunks:    chunks,
		clip:      clip,
		opener:    opener,
		url:       DefaultURL,
		countdown: DefaultCountdown,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Len returns the number of chunks.
func (c *Controller) Len() int {
	return len(c.chunks)
}

// Countdown returns the configured seconds between chunks.
func (c *Controller) Countdown() int {
	return c.countdown
}

// Start opens the destination and copies the first chunk. If the
// destination cannot be opened the controller stays Idle and the error
// wraps ErrOpenFailed. A clipboard failure leaves the controller Stalled
// and is returned wrapped in ErrClipboard.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.chunks) == 0 {
		return ErrNoChunks
	}
	if c.state.Phase != Idle {
		return ErrRunning
	}
	if err := c.opener.Open(c.url); err != nil {
		c.enter(State{Phase: Idle})
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	c.log.Info("destination opened", zap.String("url", c.url))
	return c.relay(0)
}

// Tick advances the countdown by one second. Outside Counting it does
// nothing. It returns the resulting state.
func (c *Controller) Tick() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != Counting {
		return c.state
	}
	left := c.state.SecondsLeft - 1
	if left > 0 {
		c.enter(State{Phase: Counting, Index: c.state.Index, SecondsLeft: left})
		return c.state
	}
	// A clipboard failure is recorded in c.state as Stalled.
	c.relay(c.state.Index + 1)
	return c.state
}

// Retry re-attempts the clipboard write for a Stalled chunk.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != Stalled {
		return ErrNotStalled
	}
	return c.relay(c.state.Index)
}

// Close stops the relay from any state and resets it to Idle. No clipboard
// write happens after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != Idle {
		c.log.Info("relay closed", zap.Int("chunk", c.state.Index+1))
	}
	c.enter(State{Phase: Idle})
}

// Navigate re-opens the destination after the last chunk and returns to
// Idle. On failure the controller stays Complete.
func (c *Controller) Navigate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != Complete {
		return ErrNotComplete
	}
	if err := c.opener.Open(c.url); err != nil {
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	c.enter(State{Phase: Idle})
	return nil
}

// relay copies chunk i and moves on to Counting or Complete. Callers hold
// c.mu.
func (c *Controller) relay(i int) error {
	c.enter(State{Phase: Relaying, Index: i})

	if err := c.clip.WriteText(c.chunks[i]); err != nil {
		err = fmt.Errorf("%w: %w", ErrClipboard, err)
		c.log.Warn("relay stalled", zap.Int("chunk", i+1), zap.Error(err))
		c.enter(State{Phase: Stalled, Index: i, Err: err})
		return err
	}
	c.log.Debug("chunk copied", zap.Int("chunk", i+1), zap.Int("of", len(c.chunks)))

	if i < len(c.chunks)-1 {
		c.enter(State{Phase: Counting, Index: i, SecondsLeft: c.countdown})
	} else {
		c.enter(State{Phase: Complete, Index: i})
	}
	return nil
}

func (c *Controller) enter(s State) {
	c.state = s
	if c.observer != nil {
		c.observer(s)
	}
}
