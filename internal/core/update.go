package core

import (
	"errors"
	"fmt"
	"time"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/protocol"
)

// Update runs one tick. isMainMenu is true while no save is loaded.
func (s *Session[S]) Update(isMainMenu bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateAlways()

	if s.conn.Client() == nil || s.err != nil {
		return
	}

	now := s.now()
	if isMainMenu {
		s.loadTime = time.Time{}
	} else if s.loadTime.IsZero() {
		s.loadTime = now
	}
	if !s.loadTime.IsZero() && now.Sub(s.loadTime) < LoadGrace {
		return
	}

	if err := s.checkVersion(); err != nil {
		s.fail(err)
		return
	}
	if s.game == nil {
		return
	}
	err := s.game.UpdateLive(&s.live)
	switch {
	case err == nil, apperr.IsUnavailable(err):
	case apperr.IsTransport(err):
		s.appendLog(protocol.Text(err.Error()))
	default:
		s.fail(err)
	}
}

// updateAlways drains the connection. Connection bookkeeping is handled now;
// domain events are queued for the live phase, but only while connected.
func (s *Session[S]) updateAlways() {
	prev := s.connState
	events := s.conn.Poll()

	deferred := make([]protocol.Event, 0, len(events))
	for _, ev := range events {
		if !protocol.IsImmediate(ev) {
			deferred = append(deferred, ev)
			continue
		}
		switch e := ev.(type) {
		case protocol.Connected:
			prev = protocol.StateConnected
			s.generation++
		case protocol.ConnectionError:
			if !e.Fatal {
				s.appendLog(protocol.Text(e.Error()))
				continue
			}
			s.appendLog(connectionErrorPrint(e, prev))
			s.events = nil
			deferred = deferred[:0]
			prev = protocol.StateDisconnected
		case protocol.Print:
			s.log.Printf("[APS] %s", e)
			s.pushLog(e)
		}
	}

	state := s.conn.State()
	s.connState = state
	if state == protocol.StateConnected {
		s.events = append(s.events, deferred...)
		return
	}
	if len(s.events) > 0 {
		s.log.Printf("core: %d events queued while %s; dropping", len(s.events), state)
		s.events = nil
	}
}

func connectionErrorPrint(e protocol.ConnectionError, state protocol.State) protocol.Print {
	switch {
	case errors.Is(e.Err, protocol.ErrUnreachable):
		return protocol.Join(
			protocol.Colored("Connection refused. ", protocol.ColorRed),
			protocol.Text("Make sure the server session is running and the URL is up-to-date."),
		)
	case state == protocol.StateConnected:
		return protocol.Join(protocol.Colored("Connection failed: ", protocol.ColorRed), protocol.Text(e.Error()))
	default:
		return protocol.Join(protocol.Colored("Disconnected: ", protocol.ColorRed), protocol.Text(e.Error()))
	}
}

func (s *Session[S]) checkVersion() error {
	want := s.cfg.ClientVersion
	if want == "" || want == s.version {
		return nil
	}
	return apperr.WithMetadata(apperr.CodeVersionConflict,
		fmt.Sprintf("Your config was generated using static randomizer v%s, but this client is v%s. "+
			"Re-run the static randomizer with the current version.", want, s.version),
		map[string]string{"config": want, "client": s.version},
	)
}

func (s *Session[S]) fail(err error) {
	s.err = err
	s.log.Printf("core: fatal: %v", err)
}
