// Package prototest provides in-memory Connection and Client fakes.
package prototest

import (
	"sync"

	"soulslink.ai/internal/protocol"
)

// Client records every request made through it.
type Client[S any] struct {
	mu sync.Mutex

	Seed   string
	Player string
	Slot   S
	Items  []protocol.ReceivedItem

	// Err, when set, is returned by every request method.
	Err error

	checked    [][]int64
	hints      [][]int64
	deathLinks []protocol.DeathLinkData
	goals      int
}

func (c *Client[S]) SeedName() string   { return c.Seed }
func (c *Client[S]) PlayerName() string { return c.Player }
func (c *Client[S]) SlotData() *S       { return &c.Slot }

func (c *Client[S]) ReceivedItems() []protocol.ReceivedItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.ReceivedItem(nil), c.Items...)
}

// Receive appends items to the received list with consecutive indexes.
func (c *Client[S]) Receive(items ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.Items = append(c.Items, protocol.ReceivedItem{Index: uint64(len(c.Items)), Item: it})
	}
}

func (c *Client[S]) MarkChecked(locations []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.checked = append(c.checked, append([]int64(nil), locations...))
	return nil
}

func (c *Client[S]) CreateHints(locations []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.hints = append(c.hints, append([]int64(nil), locations...))
	return nil
}

func (c *Client[S]) DeathLink(data protocol.DeathLinkData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.deathLinks = append(c.deathLinks, data)
	return nil
}

func (c *Client[S]) SetGoal() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.goals++
	return nil
}

func (c *Client[S]) Checked() [][]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]int64(nil), c.checked...)
}

func (c *Client[S]) Hints() [][]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]int64(nil), c.hints...)
}

func (c *Client[S]) DeathLinks() []protocol.DeathLinkData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.DeathLinkData(nil), c.deathLinks...)
}

func (c *Client[S]) Goals() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goals
}

// Conn is a scripted Connection. Tests push events and flip the state.
type Conn[S any] struct {
	mu     sync.Mutex
	state  protocol.State
	queue  []protocol.Event
	client *Client[S]
	closed bool
}

// NewConn returns a connected Conn serving c.
func NewConn[S any](c *Client[S]) *Conn[S] {
	return &Conn[S]{state: protocol.StateConnected, client: c}
}

func (c *Conn[S]) Push(evs ...protocol.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, evs...)
}

func (c *Conn[S]) SetState(s protocol.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Conn[S]) Poll() []protocol.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	return out
}

func (c *Conn[S]) State() protocol.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn[S]) Client() protocol.Client[S] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != protocol.StateConnected || c.client == nil {
		return nil
	}
	return c.client
}

func (c *Conn[S]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.state = protocol.StateDisconnected
	return nil
}

func (c *Conn[S]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var _ protocol.Connection[struct{}] = (*Conn[struct{}])(nil)
