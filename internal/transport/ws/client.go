package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/protocol"
)

// client is the connected half of a Conn. It is replaced on every reconnect,
// so a stale client can never write to a newer socket.
type client[S any] struct {
	owner *Conn[S]
	conn  *websocket.Conn

	seedName string
	player   string
	slotData S

	mu       sync.Mutex
	received []protocol.ReceivedItem
}

func (c *client[S]) SeedName() string   { return c.seedName }
func (c *client[S]) PlayerName() string { return c.player }
func (c *client[S]) SlotData() *S       { return &c.slotData }

func (c *client[S]) ReceivedItems() []protocol.ReceivedItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.ReceivedItem(nil), c.received...)
}

// applyReceived merges a ReceivedItems packet. It reports false when the
// packet does not continue the list we have, in which case nothing changes.
func (c *client[S]) applyReceived(m protocol.ReceivedItemsMsg) ([]protocol.ReceivedItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var added []protocol.ReceivedItem
	if m.Index == 0 {
		// Full resend: only entries past what we already had are new.
		old := len(c.received)
		c.received = c.received[:0]
		for i, it := range m.Items {
			c.received = append(c.received, toReceived(uint64(i), it))
		}
		if len(c.received) > old {
			added = append(added, c.received[old:]...)
		}
		return added, true
	}
	if m.Index != uint64(len(c.received)) {
		return nil, false
	}
	for i, it := range m.Items {
		r := toReceived(m.Index+uint64(i), it)
		c.received = append(c.received, r)
		added = append(added, r)
	}
	return added, true
}

func toReceived(index uint64, it protocol.NetworkItem) protocol.ReceivedItem {
	return protocol.ReceivedItem{
		Index:    index,
		Item:     it.Item,
		Location: it.Location,
		Player:   it.Player,
		Flags:    it.Flags,
	}
}

func (c *client[S]) send(packets ...any) error {
	if err := c.owner.write(c.conn, packets...); err != nil {
		return apperr.Wrap(apperr.CodeTransport, "send", err)
	}
	return nil
}

func (c *client[S]) MarkChecked(locations []int64) error {
	if len(locations) == 0 {
		return nil
	}
	return c.send(protocol.LocationChecksMsg{Cmd: protocol.CmdLocationChecks, Locations: locations})
}

func (c *client[S]) CreateHints(locations []int64) error {
	if len(locations) == 0 {
		return nil
	}
	return c.send(protocol.LocationScoutsMsg{
		Cmd:          protocol.CmdLocationScouts,
		Locations:    locations,
		CreateAsHint: protocol.CreateAsHintNew,
	})
}

func (c *client[S]) DeathLink(data protocol.DeathLinkData) error {
	if data.Time == 0 {
		data.Time = protocol.DeathLinkSeconds(time.Now())
	}
	if data.Source == "" {
		data.Source = c.player
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.send(protocol.BounceMsg{Cmd: protocol.CmdBounce, Tags: []string{protocol.TagDeathLink}, Data: b})
}

func (c *client[S]) SetGoal() error {
	return c.send(protocol.StatusUpdateMsg{Cmd: protocol.CmdStatusUpdate, Status: protocol.ClientStatusGoal})
}
