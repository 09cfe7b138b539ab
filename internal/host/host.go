// Package host drives a session from the game's frame loop: it ticks the
// session, surfaces the first fatal error and blocks game input while that
// error is on screen.
package host

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"soulslink.ai/internal/apperr"
)

// InputFlags selects input devices.
type InputFlags uint8

const (
	InputGamePad InputFlags = 1 << iota
	InputKeyboard
	InputMouse

	InputNone InputFlags = 0
	InputAll             = InputGamePad | InputKeyboard | InputMouse
)

// InputBlocker blocks exactly the selected inputs from reaching the game and
// unblocks the rest.
type InputBlocker interface {
	BlockOnly(inputs InputFlags)
}

// NoOpInputBlocker is for games whose input layer is not hooked.
type NoOpInputBlocker struct{}

func (NoOpInputBlocker) BlockOnly(InputFlags) {}

// MainMenuDetector reports whether the game is on its main menu.
type MainMenuDetector interface {
	IsMainMenu() bool
}

// Session is the part of core.Session the runner drives.
type Session interface {
	Update(isMainMenu bool)
	TakeError() error
}

type Options struct {
	Session Session
	Menu    MainMenuDetector
	Blocker InputBlocker
	TickHz  int
	Logger  *log.Logger
}

// Runner ticks a session. The first fatal error it sees is kept for display
// and never replaced.
type Runner struct {
	sess    Session
	menu    MainMenuDetector
	blocker InputBlocker
	hz      int
	log     *log.Logger

	mu      sync.Mutex
	err     error
	blocked InputFlags
}

func NewRunner(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Blocker == nil {
		opts.Blocker = NoOpInputBlocker{}
	}
	if opts.TickHz <= 0 {
		opts.TickHz = 30
	}
	return &Runner{
		sess:    opts.Session,
		menu:    opts.Menu,
		blocker: opts.Blocker,
		hz:      opts.TickHz,
		log:     opts.Logger,
	}
}

// Run ticks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(r.hz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick runs one frame.
func (r *Runner) Tick() {
	r.sess.Update(r.menu.IsMainMenu())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		if err := r.sess.TakeError(); err != nil {
			r.err = err
			r.log.Printf("fatal error: %s", ErrorText(err, true))
		}
	}
	want := InputNone
	if r.err != nil {
		want = InputAll
	}
	if want != r.blocked {
		r.blocker.BlockOnly(want)
		r.blocked = want
	}
}

// Err is the fatal error on display, if any.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ErrorText renders err for the error dialog. The full form adds the error
// code and its metadata.
func ErrorText(err error, full bool) string {
	if err == nil {
		return ""
	}
	if !full {
		return err.Error()
	}
	var b strings.Builder
	b.WriteString(err.Error())
	if code := apperr.CodeOf(err); code != "" {
		fmt.Fprintf(&b, "\n\ncode: %s", code)
	}
	if md := apperr.MetadataOf(err); len(md) > 0 {
		keys := make([]string, 0, len(md))
		for k := range md {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n%s: %s", k, md[k])
		}
	}
	return b.String()
}
