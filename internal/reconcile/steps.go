package reconcile

import (
	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/protocol"
)

// Steps classifies the errors of a live phase's steps. Unavailable errors are
// dropped and transport errors are logged without stopping the phase; any
// other error stops it. A transport failure is logged once and again only
// after a tick completes without one or the message changes.
type Steps struct {
	Env *Env

	last   string
	failed bool
}

// Begin starts a tick.
func (s *Steps) Begin() { s.failed = false }

// End closes a tick. A clean tick re-arms the transport log line.
func (s *Steps) End() {
	if !s.failed {
		s.last = ""
	}
}

// Check returns err if it must stop the phase, nil otherwise.
func (s *Steps) Check(err error) error {
	switch {
	case err == nil, apperr.IsUnavailable(err):
		return nil
	case apperr.IsTransport(err):
		s.failed = true
		if msg := err.Error(); msg != s.last {
			s.last = msg
			s.Env.print(protocol.Text(msg))
		}
		return nil
	default:
		return err
	}
}
