package sekiro

import (
	"encoding/json"
	"testing"
	"time"

	"soulslink.ai/internal/config"
	"soulslink.ai/internal/core"
	"soulslink.ai/internal/game"
	"soulslink.ai/internal/game/memgame"
	"soulslink.ai/internal/protocol"
	"soulslink.ai/internal/protocol/prototest"
	"soulslink.ai/internal/save"
)

var (
	gourd       = game.NewItemID(game.CategoryGoods, 1000)
	placeholder = game.NewItemID(game.CategoryGoods, 3_800_000)
)

func TestUpdater_ItemsAndLocations(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	clk := func() time.Time { return now }

	slot, err := DecodeSlotData(json.RawMessage(`{
	  "apIdsToItemIds": {"7": 1073742824},
	  "itemCounts": {},
	  "options": {"death_link": 0}
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	params := game.NewParamTable()
	params.Put(placeholder, game.GoodsRow{RowBase: game.RowBase{Location: 900}})
	g := memgame.New(params)
	saves := save.NewMemory()
	cl := &prototest.Client[SlotData]{Seed: "S", Player: "Wolf", Slot: slot}
	cl.Receive(7, 7)

	sess := core.NewSession(core.Options[SlotData]{
		Dial: func(*config.Config) protocol.Connection[SlotData] { return prototest.NewConn(cl) },
		Game: NewUpdater(Options{Game: g, Saves: saves, Now: clk}),
		Now:  clk,
	})

	g.Load()
	saves.Activate("wolf")
	g.PickUp(placeholder, 1)
	sess.Update(false)
	now = now.Add(core.LoadGrace)
	sess.Update(false)
	now = now.Add(time.Second)
	sess.Update(false)

	sd, _ := saves.Current()
	if sd.ItemsGranted != 2 || g.Count(gourd) != 2 {
		t.Fatalf("cursor=%d gourds=%d", sd.ItemsGranted, g.Count(gourd))
	}
	if g.Count(placeholder) != 0 {
		t.Fatalf("placeholder left in inventory")
	}
	if checked := cl.Checked(); len(checked) != 1 || checked[0][0] != 900 {
		t.Fatalf("unexpected checks %v", checked)
	}
	if sess.Failed() {
		t.Fatalf("unexpected fatal error %v", sess.TakeError())
	}
}
