package protocol

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnreachable wraps dial failures where nothing answered at the server
// address (refused or timed out), as opposed to a session that dropped.
var ErrUnreachable = errors.New("server unreachable")

// Event is an inbound event produced by a Connection. The set of variants is
// closed; switch on the concrete type.
type Event interface {
	isEvent()
}

// Connected is emitted once the handshake with the server completes.
type Connected struct{}

// ConnectionError reports a transport failure. Fatal errors mean the link
// dropped and every buffered domain event is stale.
type ConnectionError struct {
	Err   error
	Fatal bool
}

// ItemReceived is one entry of the slot's received-item list.
type ItemReceived struct {
	Item ReceivedItem
}

// DeathLink is a death notification bounced from another participant.
type DeathLink struct {
	Source string
	Time   time.Time
	Cause  string
}

func (Connected) isEvent()       {}
func (ConnectionError) isEvent() {}
func (Print) isEvent()           {}
func (ItemReceived) isEvent()    {}
func (DeathLink) isEvent()       {}

func (e ConnectionError) Error() string {
	if e.Err == nil {
		return "connection error"
	}
	return e.Err.Error()
}

// IsImmediate reports whether ev is connection bookkeeping that must be
// handled on every tick, as opposed to a domain event deferred to the live
// phase.
func IsImmediate(ev Event) bool {
	switch ev.(type) {
	case Connected, ConnectionError, Print:
		return true
	default:
		return false
	}
}

// ReceivedItem is an item sent to this slot, tagged with its position in the
// slot's received list.
type ReceivedItem struct {
	Index    uint64
	Item     int64
	Location int64
	Player   int
	Flags    int
}

func (r ReceivedItem) String() string {
	return fmt.Sprintf("#%d item=%d location=%d player=%d", r.Index, r.Item, r.Location, r.Player)
}

// DeathLinkTime converts the wire timestamp to a time.Time.
func DeathLinkTime(secs float64) time.Time {
	whole := int64(secs)
	frac := secs - float64(whole)
	return time.Unix(whole, int64(frac*float64(time.Second)))
}

// DeathLinkSeconds converts t to the wire timestamp.
func DeathLinkSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
