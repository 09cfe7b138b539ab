package reconcile

import (
	"fmt"
	"time"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/game"
	"soulslink.ai/internal/persistence/journal"
)

// Hints scouts shop placeholders as they become visible. Each item is hinted
// at most once per connection.
type Hints struct {
	Env *Env

	generation uint64
	hinted     map[game.ItemID]struct{}
}

// Send hints every visible, not yet hinted placeholder. generation is the
// connection's handshake count; a new value clears the hinted set.
func (h *Hints) Send(now time.Time, generation uint64, shop game.Shop, params game.Params, c Hinter) error {
	if h.hinted == nil || generation != h.generation {
		h.hinted = map[game.ItemID]struct{}{}
		h.generation = generation
	}
	items, err := shop.OpenShopItems()
	if err != nil {
		return err
	}

	var locs []int64
	for _, id := range items {
		if !id.IsPlaceholder() {
			continue
		}
		if _, done := h.hinted[id]; done {
			continue
		}
		h.hinted[id] = struct{}{}
		row, ok := params.EquipParam(id)
		if !ok {
			return apperr.WithMetadata(apperr.CodeDataIntegrity,
				fmt.Sprintf("Shop item %s has no parameter row.", id),
				map[string]string{"item": id.String()},
			)
		}
		locs = append(locs, row.LocationID())
	}
	if len(locs) == 0 {
		return nil
	}
	if err := c.CreateHints(locs); err != nil {
		return err
	}
	h.Env.record(journal.Entry{At: now, Kind: journal.KindHint, Locations: locs})
	return nil
}
