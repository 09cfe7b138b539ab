package ds3

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/config"
	"soulslink.ai/internal/core"
	"soulslink.ai/internal/game"
	"soulslink.ai/internal/game/memgame"
	"soulslink.ai/internal/protocol"
	"soulslink.ai/internal/protocol/prototest"
	"soulslink.ai/internal/save"
	"soulslink.ai/internal/slotdata"
)

var (
	estus       = game.NewItemID(game.CategoryGoods, 200)
	longsword   = game.NewItemID(game.CategoryWeapon, 2010000)
	placeholder = game.NewItemID(game.CategoryGoods, 3_780_010)
	shopItem    = game.NewItemID(game.CategoryGoods, 3_780_011)
	dragonItem  = game.NewItemID(game.CategoryGoods, 3_780_012)
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type rig struct {
	clock *clock
	game  *memgame.Game
	saves *save.Memory
	cl    *prototest.Client[SlotData]
	conn  *prototest.Conn[SlotData]
	sess  *core.Session[SlotData]
}

func testParams() *game.ParamTable {
	p := game.NewParamTable()
	p.Put(placeholder, game.GoodsRow{RowBase: game.RowBase{Location: 7001, RewardID: longsword}})
	p.Put(shopItem, game.GoodsRow{RowBase: game.RowBase{Location: 7002, Price: 1000}})
	p.Put(dragonItem, game.GoodsRow{RowBase: game.RowBase{Location: 7003}, IconID: pathOfTheDragonIcon})
	return p
}

func testSlot() SlotData {
	return SlotData{
		ItemTable: slotdata.ItemTable{
			IDs:    map[int64]game.ItemID{100: estus, 101: longsword, 102: pathOfTheDragon},
			Counts: map[int64]uint32{100: 2},
		},
		Options: slotdata.Options{DeathLink: slotdata.DeathLinkAnyDeath, DeathLinkAmnesty: 1},
		Goal:    []uint32{14100800},
	}
}

func newRig(t *testing.T, cfg *config.Config) *rig {
	t.Helper()
	r := &rig{
		clock: &clock{t: time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)},
		game:  memgame.New(testParams()),
		saves: save.NewMemory(),
		cl:    &prototest.Client[SlotData]{Seed: "SEED", Player: "Ashen", Slot: testSlot()},
	}
	if cfg == nil {
		cfg = &config.Config{Seed: "SEED"}
	}
	u := NewUpdater(Options{Game: r.game, Saves: r.saves, Now: r.clock.now})
	r.sess = core.NewSession(core.Options[SlotData]{
		Config: cfg,
		Dial: func(*config.Config) protocol.Connection[SlotData] {
			r.conn = prototest.NewConn(r.cl)
			return r.conn
		},
		Game: u,
		Now:  r.clock.now,
	})
	return r
}

func (r *rig) tick() { r.sess.Update(r.game.IsMainMenu()) }

// load enters a save and runs until the live phase is active.
func (r *rig) load(saveID string) {
	r.game.Load()
	r.saves.Activate(saveID)
	r.tick()
	r.clock.advance(core.LoadGrace)
	r.tick()
}

func (r *rig) logs() []string {
	var out []string
	for _, p := range r.sess.Logs() {
		out = append(out, p.String())
	}
	return out
}

func (r *rig) current(t *testing.T) *save.Data {
	t.Helper()
	sd, err := r.saves.Current()
	if err != nil || sd == nil {
		t.Fatalf("no current save: %v", err)
	}
	return sd
}

func TestDecodeSlotData(t *testing.T) {
	raw := json.RawMessage(`{
	  "apIdsToItemIds": {"100": 1073742024},
	  "itemCounts": {"100": 3},
	  "options": {"death_link": 1, "enable_dlc": true},
	  "goal": [14100800, 14100801]
	}`)
	sd, err := DecodeSlotData(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, qty, ok := sd.Lookup(100)
	if !ok || id != estus || qty != 3 {
		t.Fatalf("lookup = %v %d %v", id, qty, ok)
	}
	if !sd.Options.EnableDLC || sd.Options.DeathLinkAmnesty != slotdata.DefaultDeathLinkAmnesty || len(sd.Goal) != 2 {
		t.Fatalf("unexpected options %+v goal %v", sd.Options, sd.Goal)
	}

	if _, err := DecodeSlotData(json.RawMessage(`{"apIdsToItemIds": {}, "itemCounts": {}, "options": {"death_link": 1}}`)); apperr.CodeOf(err) != apperr.CodeDataIntegrity {
		t.Fatalf("missing goal should be rejected, got %v", err)
	}
}

func TestUpdater_FullSession(t *testing.T) {
	r := newRig(t, nil)
	r.cl.Receive(100, 101)
	r.load("save-1")

	sd := r.current(t)
	if sd.Seed != "SEED" {
		t.Fatalf("save did not adopt the seed: %q", sd.Seed)
	}
	if sd.ItemsGranted != 1 || r.game.Count(estus) != 2 {
		t.Fatalf("first item not granted: cursor=%d estus=%d", sd.ItemsGranted, r.game.Count(estus))
	}
	r.clock.advance(time.Second)
	r.tick()
	if sd.ItemsGranted != 2 || r.game.Count(longsword) != 1 {
		t.Fatalf("second item not granted")
	}

	r.game.PickUp(placeholder, 1)
	r.tick()
	if r.game.Count(placeholder) != 0 || r.game.Count(longsword) != 2 {
		t.Fatalf("placeholder not converted")
	}
	if checked := r.cl.Checked(); len(checked) != 1 || checked[0][0] != 7001 {
		t.Fatalf("location not reported: %v", checked)
	}

	r.game.OpenShop(shopItem, estus)
	r.tick()
	r.tick()
	if hints := r.cl.Hints(); len(hints) != 1 || len(hints[0]) != 1 || hints[0][0] != 7002 {
		t.Fatalf("unexpected hints %v", hints)
	}

	_ = r.game.SetEventFlag(14100800, true)
	r.tick()
	r.tick()
	if r.cl.Goals() != 1 {
		t.Fatalf("goal sent %d times", r.cl.Goals())
	}
	if r.sess.Failed() {
		t.Fatalf("unexpected fatal error %v", r.sess.TakeError())
	}
}

func TestUpdater_CursorSurvivesReload(t *testing.T) {
	r := newRig(t, nil)
	r.cl.Receive(100, 101)
	r.load("save-1")
	r.game.QuitToMenu()
	r.saves.Deactivate()
	r.tick()

	r.clock.advance(time.Hour)
	r.load("save-1")
	r.clock.advance(time.Second)
	r.tick()
	r.clock.advance(time.Second)
	r.tick()
	if r.current(t).ItemsGranted != 2 {
		t.Fatalf("cursor = %d, want 2", r.current(t).ItemsGranted)
	}
	if n := len(r.game.Grants()); n != 2 {
		t.Fatalf("items granted %d times, want 2", n)
	}

	// A second save starts from zero.
	r.game.QuitToMenu()
	r.saves.Deactivate()
	r.tick()
	r.load("save-2")
	if n := len(r.game.Grants()); n != 3 {
		t.Fatalf("new save should start over, grants=%d", n)
	}
}

func TestUpdater_SeedConflictIsFatal(t *testing.T) {
	r := newRig(t, &config.Config{Seed: "OTHER"})
	r.load("save-1")
	err := r.sess.TakeError()
	if apperr.CodeOf(err) != apperr.CodeIdentityConflict {
		t.Fatalf("expected identity conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "Connected room seed: SEED") {
		t.Fatalf("message should name the room seed: %v", err)
	}
}

func TestUpdater_SaveSeedConflict(t *testing.T) {
	r := newRig(t, &config.Config{})
	r.saves.Activate("save-1")
	r.current(t).Seed = "OLD"
	r.load("save-1")
	if err := r.sess.TakeError(); apperr.CodeOf(err) != apperr.CodeIdentityConflict {
		t.Fatalf("expected identity conflict, got %v", err)
	}
}

func TestUpdater_MissingDLC(t *testing.T) {
	cases := []struct {
		dlc  game.DLCState
		want string
	}{
		{game.DLCState{DLC1: true}, "the Ringed City DLC"},
		{game.DLCState{DLC2: true}, "the Ashes of Ariandel DLC"},
		{game.DLCState{}, "both DLCs"},
	}
	for _, c := range cases {
		r := newRig(t, nil)
		r.cl.Slot.Options.EnableDLC = true
		r.game.SetDLC(c.dlc)
		r.load("save-1")
		err := r.sess.TakeError()
		if err == nil || !strings.Contains(err.Error(), "missing "+c.want+".") {
			t.Fatalf("dlc %+v: got %v", c.dlc, err)
		}
	}

	r := newRig(t, nil)
	r.cl.Slot.Options.EnableDLC = true
	r.game.SetDLC(game.DLCState{})
	r.sess.Update(true) // main menu: DLC state not trusted yet
	if r.sess.Failed() {
		t.Fatalf("DLC must not be checked on the main menu")
	}
}

func TestUpdater_DeathLink(t *testing.T) {
	r := newRig(t, nil)
	r.load("save-1")
	r.clock.advance(time.Minute)

	r.conn.Push(protocol.DeathLink{Source: "Sif", Time: r.clock.t})
	r.tick()
	if r.game.Deaths() != 1 {
		t.Fatalf("received death link did not kill the player")
	}
	if len(r.cl.DeathLinks()) != 0 {
		t.Fatalf("received death was echoed")
	}

	r.game.Respawn()
	r.clock.advance(time.Minute)
	r.game.Die()
	r.tick()
	if links := r.cl.DeathLinks(); len(links) != 1 || links[0].Source != "Ashen" {
		t.Fatalf("own death not sent: %+v", links)
	}
	logs := r.logs()
	if logs[len(logs)-1] != "You have sent a death link to your teammates." {
		t.Fatalf("unexpected log %q", logs[len(logs)-1])
	}
}

func TestUpdater_PathOfTheDragon(t *testing.T) {
	r := newRig(t, nil)
	r.cl.Receive(102)
	r.load("save-1")
	if !r.game.HasGesture(pathOfTheDragonGesture) || r.game.Count(pathOfTheDragon) != 0 {
		t.Fatalf("remote Path of the Dragon should grant the gesture only")
	}

	r2 := newRig(t, nil)
	r2.load("save-1")
	r2.game.PickUp(dragonItem, 1)
	r2.tick()
	if !r2.game.HasGesture(pathOfTheDragonGesture) || !r2.current(t).HasLocation(7003) {
		t.Fatalf("placeholder with the dragon icon should set the gesture")
	}
	if len(r2.game.Grants()) != 0 {
		t.Fatalf("no item should be granted for the dragon placeholder")
	}
}

func TestUpdater_ReportFailureIsNotFatal(t *testing.T) {
	r := newRig(t, nil)
	r.load("save-1")
	r.cl.Err = apperr.New(apperr.CodeTransport, "not connected")
	r.game.PickUp(placeholder, 1)
	r.tick()
	if r.sess.Failed() {
		t.Fatalf("request failures must not be fatal")
	}
	r.cl.Err = nil
	r.tick()
	if len(r.cl.Checked()) != 1 {
		t.Fatalf("report should be retried")
	}
}

func TestUpdater_TransportFailureKeepsGoing(t *testing.T) {
	r := newRig(t, nil)
	r.load("save-1")
	r.clock.advance(time.Minute)

	r.cl.Err = apperr.New(apperr.CodeTransport, "not connected")
	r.cl.Receive(101)
	r.game.PickUp(placeholder, 1)
	r.game.Die()
	r.tick()

	if r.sess.Failed() {
		t.Fatalf("transport errors must not be fatal: %v", r.sess.TakeError())
	}
	if grants := r.game.Grants(); len(grants) != 1 || grants[0].Item != longsword {
		t.Fatalf("failed death link must not hold back items: %+v", grants)
	}
	if r.game.Count(placeholder) != 0 || !r.current(t).HasLocation(7001) {
		t.Fatalf("failed death link must not hold back the location scan")
	}

	for i := 0; i < 5; i++ {
		r.clock.advance(time.Second)
		r.tick()
	}
	n := 0
	for _, line := range r.logs() {
		if strings.Contains(line, "not connected") {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("repeated transport failure logged %d times, want 1: %v", n, r.logs())
	}

	r.cl.Err = nil
	r.tick()
	if len(r.cl.Checked()) != 1 {
		t.Fatalf("report should go through once the link recovers")
	}
}
