package protocol

import (
	"encoding/json"
	"fmt"
)

// Client -> server commands.
const (
	CmdConnect        = "Connect"
	CmdSync           = "Sync"
	CmdLocationChecks = "LocationChecks"
	CmdLocationScouts = "LocationScouts"
	CmdStatusUpdate   = "StatusUpdate"
	CmdBounce         = "Bounce"
)

// Server -> client commands.
const (
	CmdRoomInfo          = "RoomInfo"
	CmdConnected         = "Connected"
	CmdConnectionRefused = "ConnectionRefused"
	CmdReceivedItems     = "ReceivedItems"
	CmdPrintJSON         = "PrintJSON"
	CmdBounced           = "Bounced"
)

// TagDeathLink marks Bounce packets carrying a death link.
const TagDeathLink = "DeathLink"

// BasePacket lets us route packets by cmd before full decoding.
type BasePacket struct {
	Cmd string `json:"cmd"`
}

// DecodeBatch splits one websocket frame into its packets. The server always
// sends a JSON array, even for a single packet.
func DecodeBatch(b []byte) ([]json.RawMessage, error) {
	var batch []json.RawMessage
	if err := json.Unmarshal(b, &batch); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return batch, nil
}

func DecodeBase(b []byte) (BasePacket, error) {
	var p BasePacket
	err := json.Unmarshal(b, &p)
	return p, err
}

// EncodeBatch frames packets as a JSON array.
func EncodeBatch(packets ...any) ([]byte, error) {
	if packets == nil {
		packets = []any{}
	}
	return json.Marshal(packets)
}
