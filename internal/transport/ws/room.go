package ws

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"soulslink.ai/internal/protocol"
)

// Room is a single-slot coordination server. It speaks enough of the
// protocol for local play and for exercising Conn end to end.
type Room struct {
	SeedName string
	Password string
	SlotData json.RawMessage

	log      *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	items   []protocol.NetworkItem
	checked map[int64]struct{}
	hints   []int64
	goal    bool
	bounces []protocol.DeathLinkData
	peers   map[*peer]struct{}
}

type peer struct {
	name string
	tags []string
	out  chan []byte
}

func NewRoom(seedName string, slotData json.RawMessage, logger *log.Logger) *Room {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Room{
		SeedName: seedName,
		SlotData: slotData,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		checked: map[int64]struct{}{},
		peers:   map[*peer]struct{}{},
	}
}

func (r *Room) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		conn, err := r.upgrader.Upgrade(rw, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		p := r.handshake(conn)
		if p == nil {
			return
		}
		defer r.leave(p)

		done := make(chan struct{})
		defer close(done)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-done:
					return
				case b := <-p.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			packets, err := protocol.DecodeBatch(msg)
			if err != nil {
				continue
			}
			for _, raw := range packets {
				r.handle(p, raw)
			}
		}
	}
}

func (r *Room) handshake(conn *websocket.Conn) *peer {
	if err := writeBatch(conn, protocol.RoomInfoMsg{
		Cmd:      protocol.CmdRoomInfo,
		SeedName: r.SeedName,
		Password: r.Password != "",
		Tags:     []string{},
	}); err != nil {
		return nil
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}
	packets, err := protocol.DecodeBatch(msg)
	if err != nil || len(packets) == 0 {
		return nil
	}
	var cm protocol.ConnectMsg
	if err := json.Unmarshal(packets[0], &cm); err != nil || cm.Cmd != protocol.CmdConnect {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected Connect"), time.Now().Add(time.Second))
		return nil
	}
	if r.Password != "" && cm.Password != r.Password {
		_ = writeBatch(conn, protocol.ConnectionRefusedMsg{Cmd: protocol.CmdConnectionRefused, Errors: []string{"InvalidPassword"}})
		return nil
	}

	r.mu.Lock()
	items := append([]protocol.NetworkItem{}, r.items...)
	checked := sortedKeys(r.checked)
	p := &peer{name: cm.Name, tags: cm.Tags, out: make(chan []byte, 64)}
	r.peers[p] = struct{}{}
	r.mu.Unlock()

	if err := writeBatch(conn,
		protocol.ConnectedMsg{
			Cmd:              protocol.CmdConnected,
			Team:             0,
			Slot:             1,
			Players:          []protocol.NetworkPlayer{{Team: 0, Slot: 1, Alias: cm.Name, Name: cm.Name}},
			CheckedLocations: checked,
			SlotData:         r.SlotData,
		},
		protocol.ReceivedItemsMsg{Cmd: protocol.CmdReceivedItems, Index: 0, Items: items},
	); err != nil {
		r.leave(p)
		return nil
	}
	r.log.Printf("room: %s connected (tags=%v)", cm.Name, cm.Tags)
	return p
}

func (r *Room) leave(p *peer) {
	r.mu.Lock()
	delete(r.peers, p)
	r.mu.Unlock()
}

func (r *Room) handle(p *peer, raw json.RawMessage) {
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return
	}
	switch base.Cmd {
	case protocol.CmdLocationChecks:
		var m protocol.LocationChecksMsg
		if json.Unmarshal(raw, &m) != nil {
			return
		}
		r.mu.Lock()
		for _, id := range m.Locations {
			r.checked[id] = struct{}{}
		}
		r.mu.Unlock()

	case protocol.CmdLocationScouts:
		var m protocol.LocationScoutsMsg
		if json.Unmarshal(raw, &m) != nil {
			return
		}
		r.mu.Lock()
		r.hints = append(r.hints, m.Locations...)
		r.mu.Unlock()

	case protocol.CmdStatusUpdate:
		var m protocol.StatusUpdateMsg
		if json.Unmarshal(raw, &m) != nil {
			return
		}
		if m.Status == protocol.ClientStatusGoal {
			r.mu.Lock()
			r.goal = true
			r.mu.Unlock()
			r.Say(p.name + " has completed their goal.")
		}

	case protocol.CmdBounce:
		var m protocol.BounceMsg
		if json.Unmarshal(raw, &m) != nil {
			return
		}
		if hasTag(m.Tags, protocol.TagDeathLink) {
			var dl protocol.DeathLinkData
			if json.Unmarshal(m.Data, &dl) == nil {
				r.mu.Lock()
				r.bounces = append(r.bounces, dl)
				r.mu.Unlock()
			}
		}
		r.broadcast(m.Tags, protocol.BouncedMsg{Cmd: protocol.CmdBounced, Tags: m.Tags, Data: m.Data})

	case protocol.CmdSync:
		r.mu.Lock()
		items := append([]protocol.NetworkItem{}, r.items...)
		r.mu.Unlock()
		r.sendTo(p, protocol.ReceivedItemsMsg{Cmd: protocol.CmdReceivedItems, Index: 0, Items: items})
	}
}

// SendItem appends an item to the slot's received list and pushes it to every
// connected client.
func (r *Room) SendItem(it protocol.NetworkItem) {
	r.mu.Lock()
	idx := uint64(len(r.items))
	r.items = append(r.items, it)
	r.mu.Unlock()
	r.broadcast(nil, protocol.ReceivedItemsMsg{Cmd: protocol.CmdReceivedItems, Index: idx, Items: []protocol.NetworkItem{it}})
}

// DeathLink bounces a death from another participant to clients tagged
// DeathLink.
func (r *Room) DeathLink(source string, at time.Time) {
	data, _ := json.Marshal(protocol.DeathLinkData{Time: protocol.DeathLinkSeconds(at), Source: source})
	r.broadcast([]string{protocol.TagDeathLink}, protocol.BouncedMsg{
		Cmd:  protocol.CmdBounced,
		Tags: []string{protocol.TagDeathLink},
		Data: data,
	})
}

// Say sends a plain chat line to every client.
func (r *Room) Say(text string) {
	r.broadcast(nil, protocol.PrintJSONMsg{
		Cmd:  protocol.CmdPrintJSON,
		Type: "Chat",
		Data: []protocol.JSONMessagePart{{Text: text}},
	})
}

func (r *Room) Checked() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.checked)
}

func (r *Room) Hints() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.hints...)
}

func (r *Room) GoalReached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.goal
}

func (r *Room) Bounces() []protocol.DeathLinkData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.DeathLinkData(nil), r.bounces...)
}

func (r *Room) Peers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// broadcast sends to every peer; with tags set, only to peers sharing one.
func (r *Room) broadcast(tags []string, packet any) {
	b, err := protocol.EncodeBatch(packet)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for p := range r.peers {
		if len(tags) > 0 && !sharesTag(p.tags, tags) {
			continue
		}
		select {
		case p.out <- b:
		default:
			r.log.Printf("room: dropping packet for slow peer %s", p.name)
		}
	}
}

func (r *Room) sendTo(p *peer, packet any) {
	b, err := protocol.EncodeBatch(packet)
	if err != nil {
		return
	}
	select {
	case p.out <- b:
	default:
	}
}

func writeBatch(conn *websocket.Conn, packets ...any) error {
	b, err := protocol.EncodeBatch(packets...)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func sharesTag(have, want []string) bool {
	for _, w := range want {
		if hasTag(have, w) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
