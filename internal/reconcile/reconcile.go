// Package reconcile holds the per-tick trackers that bring the game in line
// with the server: item delivery, location checks, hints, death link, goal
// and seed identity. Trackers keep only session-transient state; everything
// that must survive a restart lives in save.Data.
package reconcile

import (
	"io"
	"log"

	"soulslink.ai/internal/persistence/journal"
	"soulslink.ai/internal/protocol"
)

// Requests the trackers make of a connected client. protocol.Client
// satisfies all of them.
type (
	Checker     interface{ MarkChecked(locations []int64) error }
	Hinter      interface{ CreateHints(locations []int64) error }
	DeathLinker interface {
		DeathLink(data protocol.DeathLinkData) error
	}
	GoalSetter interface{ SetGoal() error }
)

// Env is shared by every tracker of one game session.
type Env struct {
	Log     *log.Logger
	Journal journal.Recorder
	// Print writes to the overlay log; nil drops the message.
	Print func(protocol.Print)
}

func (e *Env) logf(format string, args ...any) {
	if e == nil || e.Log == nil {
		return
	}
	e.Log.Printf(format, args...)
}

func (e *Env) record(entry journal.Entry) {
	if e == nil || e.Journal == nil {
		return
	}
	if err := e.Journal.Record(entry); err != nil {
		e.logf("journal: %v", err)
	}
}

func (e *Env) print(p protocol.Print) {
	if e == nil || e.Print == nil {
		return
	}
	e.Print(p)
}

// Discard is an Env that drops everything.
var Discard = &Env{Log: log.New(io.Discard, "", 0)}
