package reconcile

import (
	"errors"
	"testing"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/game"
	"soulslink.ai/internal/game/memgame"
	"soulslink.ai/internal/protocol/prototest"
	"soulslink.ai/internal/save"
)

var (
	phA    = game.NewItemID(game.CategoryGoods, 3_780_001)
	phB    = game.NewItemID(game.CategoryGoods, 3_780_002)
	phC    = game.NewItemID(game.CategoryGoods, 3_780_003)
	phNone = game.NewItemID(game.CategoryGoods, 3_780_004)
)

func placeholderParams() *game.ParamTable {
	p := game.NewParamTable()
	p.Put(phA, game.GoodsRow{RowBase: game.RowBase{Location: 5001, RewardID: dagger}})
	p.Put(phB, game.GoodsRow{RowBase: game.RowBase{Location: 5002, RewardID: estus, RewardQty: 2}})
	p.Put(phC, game.GoodsRow{RowBase: game.RowBase{Location: 5003}, IconID: 7039})
	return p
}

func TestLocationChecks_ScanAndReport(t *testing.T) {
	params := placeholderParams()
	g := memgame.New(params)
	g.Load()
	g.PickUp(phA, 1)
	g.PickUp(phB, 1)
	g.PickUp(estus, 4)
	sd := save.NewData("s1")
	cl := &prototest.Client[struct{}]{}
	lc := &LocationChecks{Env: Discard}

	if err := lc.Scan(g, params, sd); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if g.Count(phA) != 0 || g.Count(phB) != 0 {
		t.Fatalf("placeholders must be removed")
	}
	if g.Count(dagger) != 1 || g.Count(estus) != 6 {
		t.Fatalf("rewards not granted: dagger=%d estus=%d", g.Count(dagger), g.Count(estus))
	}
	if err := lc.Report(t0, cl, sd); err != nil {
		t.Fatalf("report: %v", err)
	}
	checked := cl.Checked()
	if len(checked) != 1 || len(checked[0]) != 2 || checked[0][0] != 5001 || checked[0][1] != 5002 {
		t.Fatalf("unexpected report %v", checked)
	}

	// Nothing new: no second report.
	if err := lc.Report(t0, cl, sd); err != nil || len(cl.Checked()) != 1 {
		t.Fatalf("report without growth: %v %d", err, len(cl.Checked()))
	}
}

func TestLocationChecks_ReportIsSuperset(t *testing.T) {
	params := placeholderParams()
	g := memgame.New(params)
	g.Load()
	sd := save.NewData("s1")
	cl := &prototest.Client[struct{}]{}
	lc := &LocationChecks{Env: Discard}

	g.PickUp(phA, 1)
	_ = lc.Scan(g, params, sd)
	_ = lc.Report(t0, cl, sd)
	g.PickUp(phB, 1)
	_ = lc.Scan(g, params, sd)
	_ = lc.Report(t0, cl, sd)

	checked := cl.Checked()
	if len(checked) != 2 {
		t.Fatalf("expected two reports, got %v", checked)
	}
	for _, want := range checked[0] {
		found := false
		for _, got := range checked[1] {
			found = found || got == want
		}
		if !found {
			t.Fatalf("later report %v dropped %d", checked[1], want)
		}
	}
}

func TestLocationChecks_FailedReportRetries(t *testing.T) {
	params := placeholderParams()
	g := memgame.New(params)
	g.Load()
	g.PickUp(phA, 1)
	sd := save.NewData("s1")
	cl := &prototest.Client[struct{}]{Err: apperr.Wrap(apperr.CodeTransport, "send", errors.New("closed"))}
	lc := &LocationChecks{Env: Discard}

	_ = lc.Scan(g, params, sd)
	if err := lc.Report(t0, cl, sd); !apperr.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if lc.reported != 0 {
		t.Fatalf("failed report must not advance")
	}
	cl.Err = nil
	if err := lc.Report(t0, cl, sd); err != nil || len(cl.Checked()) != 1 {
		t.Fatalf("retry: %v %v", err, cl.Checked())
	}
}

func TestLocationChecks_HookAndMissingReward(t *testing.T) {
	params := placeholderParams()
	g := memgame.New(params)
	g.Load()
	g.PickUp(phC, 1)
	sd := save.NewData("s1")
	lc := &LocationChecks{
		Env: Discard,
		Hook: func(inv game.Inventory, id game.ItemID, row game.EquipParam) (bool, error) {
			goods, ok := row.(game.GoodsRow)
			if !ok || goods.IconID != 7039 {
				return false, nil
			}
			return true, inv.SetGestureAcquired(29)
		},
	}
	if err := lc.Scan(g, params, sd); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !g.HasGesture(29) || !sd.HasLocation(5003) || g.Count(phC) != 0 {
		t.Fatalf("hook not applied")
	}
}

func TestLocationChecks_MissingRowIsDataIntegrity(t *testing.T) {
	params := placeholderParams()
	g := memgame.New(params)
	g.Load()
	g.PickUp(phNone, 1)
	lc := &LocationChecks{Env: Discard}
	if err := lc.Scan(g, params, save.NewData("s1")); apperr.CodeOf(err) != apperr.CodeDataIntegrity {
		t.Fatalf("expected data integrity error, got %v", err)
	}
}

func TestLocationChecks_SwitchingSavesResendsFromZero(t *testing.T) {
	cl := &prototest.Client[struct{}]{}
	lc := &LocationChecks{Env: Discard}

	a := save.NewData("a")
	for id := int64(1); id <= 5; id++ {
		a.AddLocation(id)
	}
	if err := lc.Report(t0, cl, a); err != nil {
		t.Fatalf("report a: %v", err)
	}

	b := save.NewData("b")
	b.AddLocation(100)
	b.AddLocation(101)
	if err := lc.Report(t0, cl, b); err != nil {
		t.Fatalf("report b: %v", err)
	}
	checked := cl.Checked()
	if len(checked) != 2 || len(checked[1]) != 2 || checked[1][0] != 100 || checked[1][1] != 101 {
		t.Fatalf("second save's locations were not reported: %v", checked)
	}
	if lc.reported != b.LocationCount() {
		t.Fatalf("report cursor = %d, want %d", lc.reported, b.LocationCount())
	}
}
