package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/buildinfo"
	"soulslink.ai/internal/protocol"
)

type Options[S any] struct {
	URL      string
	Game     string
	Slot     string
	Password string
	Tags     []string
	// ItemsHandling defaults to remote items plus starting inventory.
	ItemsHandling int

	// DecodeSlotData turns the Connected packet's slot_data into S. A failure
	// refuses the session.
	DecodeSlotData func(json.RawMessage) (S, error)

	// UUID identifies this client process; generated when empty.
	UUID   string
	Logger *log.Logger

	HandshakeTimeout time.Duration
}

// errNoRetry marks failures that a retry cannot fix (refused credentials,
// slot data this client cannot use).
type errNoRetry struct{ err error }

func (e errNoRetry) Error() string { return e.err.Error() }
func (e errNoRetry) Unwrap() error { return e.err }

// Conn is a protocol.Connection over a websocket. It dials and re-dials on its
// own goroutine; every exported method returns immediately.
type Conn[S any] struct {
	opts Options[S]
	log  *log.Logger

	mu       sync.Mutex
	state    protocol.State
	events   []protocol.Event
	client   *client[S]
	conn     *websocket.Conn
	reported bool

	writeMu sync.Mutex

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// Dial starts connecting in the background and returns at once.
func Dial[S any](opts Options[S]) *Conn[S] {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.UUID == "" {
		opts.UUID = uuid.NewString()
	}
	if opts.ItemsHandling == 0 {
		opts.ItemsHandling = protocol.ItemsRemote | protocol.ItemsStartingItems
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	c := &Conn[S]{
		opts:  opts,
		log:   opts.Logger,
		state: protocol.StateConnecting,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Conn[S]) Poll() []protocol.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
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
	if c.client == nil || c.state != protocol.StateConnected {
		return nil
	}
	return c.client
}

func (c *Conn[S]) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.disconnect()
		<-c.done
	})
	return nil
}

func (c *Conn[S]) disconnect() {
	c.mu.Lock()
	ws := c.conn
	c.conn = nil
	c.client = nil
	c.state = protocol.StateDisconnected
	c.mu.Unlock()
	if ws != nil {
		_ = ws.Close()
	}
}

func (c *Conn[S]) push(evs ...protocol.Event) {
	c.mu.Lock()
	c.events = append(c.events, evs...)
	c.mu.Unlock()
}

func (c *Conn[S]) run() {
	defer close(c.done)

	backoff := 200 * time.Millisecond
	for {
		select {
		case <-c.stop:
			c.disconnect()
			return
		default:
		}

		err := c.connectAndReadLoop()
		if err == nil {
			// Clean exit.
			return
		}
		c.fail(err)

		var nr errNoRetry
		if errors.As(err, &nr) {
			c.log.Printf("ws: giving up: %v", err)
			<-c.stop
			return
		}
		select {
		case <-c.stop:
			return
		case <-time.After(backoff):
		}
		if backoff < 5*time.Second {
			backoff *= 2
			if backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
		}
		c.mu.Lock()
		c.state = protocol.StateConnecting
		c.mu.Unlock()
	}
}

// fail drops the session and reports err. Repeated dial failures while still
// disconnected are reported once.
func (c *Conn[S]) fail(err error) {
	c.mu.Lock()
	ws := c.conn
	c.conn = nil
	c.client = nil
	c.state = protocol.StateDisconnected
	report := !c.reported
	c.reported = true
	if report {
		c.events = append(c.events, protocol.ConnectionError{Err: err, Fatal: true})
	}
	c.mu.Unlock()
	if ws != nil {
		_ = ws.Close()
	}
	c.log.Printf("ws: %v", err)
}

func (c *Conn[S]) connectAndReadLoop() error {
	d := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	conn, resp, err := d.Dial(c.opts.URL, http.Header{})
	if err != nil {
		return dialError(err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	var seedName string
	for {
		select {
		case <-c.stop:
			_ = conn.Close()
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stop:
				return nil
			default:
			}
			return apperr.Wrap(apperr.CodeTransport, "read", err)
		}
		packets, err := protocol.DecodeBatch(msg)
		if err != nil {
			c.push(protocol.ConnectionError{Err: apperr.Wrap(apperr.CodeTransport, "malformed frame", err)})
			continue
		}
		for _, raw := range packets {
			base, err := protocol.DecodeBase(raw)
			if err != nil {
				c.push(protocol.ConnectionError{Err: apperr.Wrap(apperr.CodeTransport, "malformed packet", err)})
				continue
			}
			switch base.Cmd {
			case protocol.CmdRoomInfo:
				var ri protocol.RoomInfoMsg
				if err := json.Unmarshal(raw, &ri); err != nil {
					return apperr.Wrap(apperr.CodeTransport, "decode RoomInfo", err)
				}
				seedName = ri.SeedName
				if err := c.write(conn, c.connectMsg()); err != nil {
					return apperr.Wrap(apperr.CodeTransport, "send Connect", err)
				}

			case protocol.CmdConnected:
				var m protocol.ConnectedMsg
				if err := json.Unmarshal(raw, &m); err != nil {
					return apperr.Wrap(apperr.CodeTransport, "decode Connected", err)
				}
				if err := c.onConnected(conn, seedName, m); err != nil {
					return err
				}

			case protocol.CmdConnectionRefused:
				var m protocol.ConnectionRefusedMsg
				_ = json.Unmarshal(raw, &m)
				reason := "connection refused by server"
				if len(m.Errors) > 0 {
					reason += ": " + strings.Join(m.Errors, ", ")
				}
				return errNoRetry{apperr.New(apperr.CodeTransport, reason)}

			case protocol.CmdReceivedItems:
				var m protocol.ReceivedItemsMsg
				if err := json.Unmarshal(raw, &m); err != nil {
					c.push(protocol.ConnectionError{Err: apperr.Wrap(apperr.CodeTransport, "decode ReceivedItems", err)})
					continue
				}
				c.onReceivedItems(conn, m)

			case protocol.CmdPrintJSON:
				var m protocol.PrintJSONMsg
				if err := json.Unmarshal(raw, &m); err != nil {
					continue
				}
				c.push(protocol.PrintFromJSON(m))

			case protocol.CmdBounced:
				var m protocol.BouncedMsg
				if err := json.Unmarshal(raw, &m); err != nil || !hasTag(m.Tags, protocol.TagDeathLink) {
					continue
				}
				var dl protocol.DeathLinkData
				if err := json.Unmarshal(m.Data, &dl); err != nil {
					c.push(protocol.ConnectionError{Err: apperr.Wrap(apperr.CodeTransport, "decode DeathLink", err)})
					continue
				}
				c.push(protocol.DeathLink{Source: dl.Source, Time: protocol.DeathLinkTime(dl.Time), Cause: dl.Cause})
			}
		}
	}
}

func (c *Conn[S]) connectMsg() protocol.ConnectMsg {
	v := buildinfo.ProtocolVersion
	tags := c.opts.Tags
	if tags == nil {
		tags = []string{}
	}
	return protocol.ConnectMsg{
		Cmd:           protocol.CmdConnect,
		Password:      c.opts.Password,
		Game:          c.opts.Game,
		Name:          c.opts.Slot,
		UUID:          c.opts.UUID,
		Version:       protocol.NetworkVersion{Major: v[0], Minor: v[1], Build: v[2], Class: "Version"},
		ItemsHandling: c.opts.ItemsHandling,
		Tags:          tags,
		SlotData:      true,
	}
}

func (c *Conn[S]) onConnected(conn *websocket.Conn, seedName string, m protocol.ConnectedMsg) error {
	var slot S
	if c.opts.DecodeSlotData != nil {
		var err error
		slot, err = c.opts.DecodeSlotData(m.SlotData)
		if err != nil {
			return errNoRetry{err}
		}
	}
	name := c.opts.Slot
	for _, p := range m.Players {
		if p.Team == m.Team && p.Slot == m.Slot && p.Name != "" {
			name = p.Name
			break
		}
	}
	cl := &client[S]{
		owner:    c,
		conn:     conn,
		seedName: seedName,
		player:   name,
		slotData: slot,
	}
	c.mu.Lock()
	c.client = cl
	c.state = protocol.StateConnected
	c.reported = false
	c.events = append(c.events, protocol.Connected{})
	c.mu.Unlock()
	c.log.Printf("ws: connected as %s (slot %d, seed %s)", name, m.Slot, seedName)
	return nil
}

func (c *Conn[S]) onReceivedItems(conn *websocket.Conn, m protocol.ReceivedItemsMsg) {
	c.mu.Lock()
	cl := c.client
	c.mu.Unlock()
	if cl == nil {
		return
	}
	added, ok := cl.applyReceived(m)
	if !ok {
		// We missed a packet; ask for the whole list again.
		if err := c.write(conn, protocol.SyncMsg{Cmd: protocol.CmdSync}); err != nil {
			c.log.Printf("ws: sync: %v", err)
		}
		return
	}
	evs := make([]protocol.Event, 0, len(added))
	for _, it := range added {
		evs = append(evs, protocol.ItemReceived{Item: it})
	}
	c.push(evs...)
}

func (c *Conn[S]) write(conn *websocket.Conn, packets ...any) error {
	b, err := protocol.EncodeBatch(packets...)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func dialError(err error) error {
	var ne net.Error
	if errors.Is(err, syscall.ECONNREFUSED) || (errors.As(err, &ne) && ne.Timeout()) {
		return apperr.Wrap(apperr.CodeTransport, "dial", fmt.Errorf("%w: %v", protocol.ErrUnreachable, err))
	}
	return apperr.Wrap(apperr.CodeTransport, "dial", err)
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

var _ protocol.Connection[struct{}] = (*Conn[struct{}])(nil)
