// Package core runs the per-tick update cycle shared by every game: it keeps
// the server connection's bookkeeping current, gates the game-specific live
// phase and holds the sticky fatal error.
package core

import (
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"soulslink.ai/internal/buildinfo"
	"soulslink.ai/internal/config"
	"soulslink.ai/internal/protocol"
)

const (
	// LogLimit bounds the overlay log; the oldest entry is evicted first.
	LogLimit = 200

	// LoadGrace is how long after a save loads before the live phase runs.
	LoadGrace = 10 * time.Second
)

// ErrReported replaces a fatal error once it has been taken for display.
var ErrReported = errors.New("a fatal error was already reported")

// LiveUpdater is a game's live phase. It runs only while connected, after the
// load grace period, and while no fatal error is set; any error it returns
// becomes the session's fatal error.
type LiveUpdater[S any] interface {
	UpdateLive(live *Live[S]) error
}

// CommandHandler is implemented by games that add console commands.
type CommandHandler[S any] interface {
	HandleCommand(live *Live[S], name, arg string) bool
}

// Dialer opens a new connection for cfg. It must not block.
type Dialer[S any] func(cfg *config.Config) protocol.Connection[S]

type Options[S any] struct {
	Config *config.Config
	Dial   Dialer[S]
	Game   LiveUpdater[S]
	Logger *log.Logger

	// Now defaults to time.Now.
	Now func() time.Time
	// Version defaults to buildinfo.Version.
	Version string
}

// Session is the state of one client process. All methods are safe for
// concurrent use; Update is expected to be called once per host tick.
type Session[S any] struct {
	mu sync.Mutex

	cfg  *config.Config
	dial Dialer[S]
	conn protocol.Connection[S]
	game LiveUpdater[S]

	// connState is the connection state seen at the end of the last tick.
	connState protocol.State

	logs   []protocol.Print
	events []protocol.Event

	// loadTime is zero while the host reports the main menu.
	loadTime time.Time

	// err is sticky: once set the live phase never runs again.
	err error

	// generation counts completed handshakes.
	generation uint64

	log     *log.Logger
	now     func() time.Time
	version string
	live    Live[S]
}

func NewSession[S any](opts Options[S]) *Session[S] {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Version == "" {
		opts.Version = buildinfo.Version
	}
	if opts.Config == nil {
		opts.Config = &config.Config{}
	}
	s := &Session[S]{
		cfg:     opts.Config,
		dial:    opts.Dial,
		game:    opts.Game,
		log:     opts.Logger,
		now:     opts.Now,
		version: opts.Version,
	}
	s.live.s = s
	s.conn = s.dial(s.cfg)
	s.connState = s.conn.State()
	return s
}

// TakeError returns the fatal error, if any. After the first take the slot
// holds ErrReported, so the live phase stays disabled.
func (s *Session[S]) TakeError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return nil
	}
	err := s.err
	s.err = ErrReported
	return err
}

// Failed reports whether a fatal error has disabled the live phase.
func (s *Session[S]) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}

// Logs returns a copy of the overlay log, oldest first.
func (s *Session[S]) Logs() []protocol.Print {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Print(nil), s.logs...)
}

func (s *Session[S]) ConnectionState() protocol.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.State()
}

func (s *Session[S]) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Reconnect replaces the connection with a fresh one using the same config.
func (s *Session[S]) Reconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnectLocked()
}

// UpdateURL stores a new server URL in the config file and reconnects.
func (s *Session[S]) UpdateURL(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateURLLocked(url)
}

func (s *Session[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *Session[S]) reconnectLocked() {
	if s.conn.State() == protocol.StateDisconnected {
		s.appendLog(protocol.Text("Reconnecting..."))
	}
	s.replaceConn()
}

func (s *Session[S]) updateURLLocked(url string) error {
	if s.conn.State() == protocol.StateDisconnected {
		s.appendLog(protocol.Text("Reconnecting..."))
	}
	if err := s.cfg.SetURL(url); err != nil {
		return err
	}
	s.replaceConn()
	return nil
}

func (s *Session[S]) replaceConn() {
	old := s.conn
	s.conn = s.dial(s.cfg)
	s.connState = s.conn.State()
	// Anything buffered belongs to the old link.
	s.events = nil
	go func() { _ = old.Close() }()
}

// appendLog writes to the overlay log and mirrors it to the process log.
func (s *Session[S]) appendLog(p protocol.Print) {
	s.log.Printf("[APC] %s", p)
	s.pushLog(p)
}

func (s *Session[S]) pushLog(p protocol.Print) {
	if len(s.logs) >= LogLimit {
		s.logs = append(s.logs[:0], s.logs[len(s.logs)-LogLimit+1:]...)
	}
	s.logs = append(s.logs, p)
}

// Live is the session as seen from inside the live phase. Its methods assume
// the session lock is already held and must not be retained past the call.
type Live[S any] struct {
	s *Session[S]
}

// Client returns the connected client, or nil.
func (l *Live[S]) Client() protocol.Client[S] { return l.s.conn.Client() }

// TakeEvents drains the deferred domain events.
func (l *Live[S]) TakeEvents() []protocol.Event {
	evs := l.s.events
	l.s.events = nil
	return evs
}

// Log appends to the overlay log.
func (l *Live[S]) Log(p protocol.Print) { l.s.appendLog(p) }

// Seed is the seed the config expects; empty if none is configured.
func (l *Live[S]) Seed() string { return l.s.cfg.Seed }

func (l *Live[S]) Config() *config.Config { return l.s.cfg }
func (l *Live[S]) Now() time.Time         { return l.s.now() }
func (l *Live[S]) Logger() *log.Logger    { return l.s.log }

// Generation changes whenever a new handshake completes.
func (l *Live[S]) Generation() uint64 { return l.s.generation }
