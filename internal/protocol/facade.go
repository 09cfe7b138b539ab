package protocol

// State is the coarse state of a Connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Connection is the client's view of the coordination server. Implementations
// do their own I/O and retries on a separate goroutine; every method here
// returns without blocking on the network.
type Connection[S any] interface {
	// Poll drains the events that have arrived since the last call.
	Poll() []Event
	State() State
	// Client returns the live session, or nil unless State() is connected.
	Client() Client[S]
	Close() error
}

// Client is a connected session with decoded slot data of type S.
type Client[S any] interface {
	SeedName() string
	PlayerName() string
	SlotData() *S
	// ReceivedItems is the slot's received list ordered by index.
	ReceivedItems() []ReceivedItem

	MarkChecked(locations []int64) error
	CreateHints(locations []int64) error
	DeathLink(data DeathLinkData) error
	SetGoal() error
}
