package reconcile

import (
	"fmt"
	"time"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/game"
	"soulslink.ai/internal/persistence/journal"
	"soulslink.ai/internal/save"
)

// PlaceholderHook lets a game consume a placeholder row itself instead of
// the default reward handling. It reports whether it did.
type PlaceholderHook func(inv game.Inventory, id game.ItemID, row game.EquipParam) (bool, error)

// LocationChecks turns placeholder items picked up in the world into checked
// locations and reports them to the server.
type LocationChecks struct {
	Env  *Env
	Hook PlaceholderHook

	// reported is how many of saveID's locations the server has
	// acknowledged this session.
	saveID   string
	reported int
}

// Scan removes every placeholder from the inventory, recording its location
// in the save and handing out the row's real reward.
func (t *LocationChecks) Scan(inv game.Inventory, params game.Params, sd *save.Data) error {
	if sd == nil {
		return nil
	}
	entries, err := inv.InventoryItems()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Item.IsPlaceholder() {
			continue
		}
		row, ok := params.EquipParam(e.Item)
		if !ok {
			return apperr.WithMetadata(apperr.CodeDataIntegrity,
				fmt.Sprintf("Placeholder item %s has no parameter row.", e.Item),
				map[string]string{"item": e.Item.String()},
			)
		}
		sd.AddLocation(row.LocationID())

		handled := false
		if t.Hook != nil {
			if handled, err = t.Hook(inv, e.Item, row); err != nil {
				return err
			}
		}
		if !handled {
			if id, qty, ok := row.Reward(); ok {
				if err := inv.GiveItemDirectly(id, qty); err != nil {
					return err
				}
			} else {
				t.Env.logf("placeholder %s (location %d) has no reward: price=%d sell=%d",
					e.Item, row.LocationID(), row.BasicPrice(), row.SellValue())
			}
		}
		if err := inv.RemoveItem(e.Item, 1); err != nil {
			return err
		}
	}
	return nil
}

// Report sends the full location set when it has grown since the last
// successful report. On failure the report is retried next tick.
func (t *LocationChecks) Report(now time.Time, c Checker, sd *save.Data) error {
	if sd == nil {
		return nil
	}
	if sd.SaveID != t.saveID {
		t.saveID = sd.SaveID
		t.reported = 0
	}
	if sd.LocationCount() <= t.reported {
		return nil
	}
	locs := sd.Locations()
	if err := c.MarkChecked(locs); err != nil {
		return err
	}
	t.Env.record(journal.Entry{At: now, Kind: journal.KindCheck, SaveID: sd.SaveID, Locations: locs})
	t.reported = len(locs)
	return nil
}
