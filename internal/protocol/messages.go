package protocol

import "encoding/json"

// ItemsHandling flags sent in Connect.
const (
	ItemsRemote        = 0b001
	ItemsOwnWorld      = 0b010
	ItemsStartingItems = 0b100
)

// ClientStatusGoal is the StatusUpdate value for a finished slot.
const ClientStatusGoal = 30

// CreateAsHintNew asks the server to create hints and announce only new ones.
const CreateAsHintNew = 2

// Connect (client -> server)
type ConnectMsg struct {
	Cmd           string         `json:"cmd"`
	Password      string         `json:"password"`
	Game          string         `json:"game"`
	Name          string         `json:"name"`
	UUID          string         `json:"uuid"`
	Version       NetworkVersion `json:"version"`
	ItemsHandling int            `json:"items_handling"`
	Tags          []string       `json:"tags"`
	SlotData      bool           `json:"slot_data"`
}

type NetworkVersion struct {
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	Build int    `json:"build"`
	Class string `json:"class"`
}

// Sync (client -> server) requests a full ReceivedItems resend.
type SyncMsg struct {
	Cmd string `json:"cmd"`
}

type LocationChecksMsg struct {
	Cmd       string  `json:"cmd"`
	Locations []int64 `json:"locations"`
}

type LocationScoutsMsg struct {
	Cmd          string  `json:"cmd"`
	Locations    []int64 `json:"locations"`
	CreateAsHint int     `json:"create_as_hint"`
}

type StatusUpdateMsg struct {
	Cmd    string `json:"cmd"`
	Status int    `json:"status"`
}

type BounceMsg struct {
	Cmd  string          `json:"cmd"`
	Tags []string        `json:"tags,omitempty"`
	Data json.RawMessage `json:"data"`
}

// DeathLinkData is the payload of a DeathLink-tagged bounce. Time is unix
// seconds with a fractional part.
type DeathLinkData struct {
	Time   float64 `json:"time"`
	Source string  `json:"source"`
	Cause  string  `json:"cause,omitempty"`
}

// RoomInfo (server -> client)
type RoomInfoMsg struct {
	Cmd      string         `json:"cmd"`
	Version  NetworkVersion `json:"version"`
	SeedName string         `json:"seed_name"`
	Tags     []string       `json:"tags,omitempty"`
	Password bool           `json:"password"`
}

// Connected (server -> client)
type ConnectedMsg struct {
	Cmd              string          `json:"cmd"`
	Team             int             `json:"team"`
	Slot             int             `json:"slot"`
	Players          []NetworkPlayer `json:"players"`
	MissingLocations []int64         `json:"missing_locations,omitempty"`
	CheckedLocations []int64         `json:"checked_locations,omitempty"`
	SlotData         json.RawMessage `json:"slot_data,omitempty"`
}

type NetworkPlayer struct {
	Team  int    `json:"team"`
	Slot  int    `json:"slot"`
	Alias string `json:"alias"`
	Name  string `json:"name"`
}

type ConnectionRefusedMsg struct {
	Cmd    string   `json:"cmd"`
	Errors []string `json:"errors,omitempty"`
}

// ReceivedItems (server -> client). Index is the position of Items[0] in the
// slot's full received list; 0 means the list is being resent from scratch.
type ReceivedItemsMsg struct {
	Cmd   string        `json:"cmd"`
	Index uint64        `json:"index"`
	Items []NetworkItem `json:"items"`
}

type NetworkItem struct {
	Item     int64 `json:"item"`
	Location int64 `json:"location"`
	Player   int   `json:"player"`
	Flags    int   `json:"flags"`
}

type PrintJSONMsg struct {
	Cmd  string            `json:"cmd"`
	Type string            `json:"type,omitempty"`
	Data []JSONMessagePart `json:"data"`
}

type JSONMessagePart struct {
	Type  string `json:"type,omitempty"`
	Text  string `json:"text,omitempty"`
	Color string `json:"color,omitempty"`
}

type BouncedMsg struct {
	Cmd  string          `json:"cmd"`
	Tags []string        `json:"tags,omitempty"`
	Data json.RawMessage `json:"data"`
}
