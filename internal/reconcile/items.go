package reconcile

import (
	"fmt"
	"strconv"
	"time"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/game"
	"soulslink.ai/internal/persistence/journal"
	"soulslink.ai/internal/protocol"
	"soulslink.ai/internal/save"
)

// ItemInterval is the minimum time between two grants.
const ItemInterval = time.Second

// ItemMapper resolves server item ids. slotdata.ItemTable implements it.
type ItemMapper interface {
	Lookup(apID int64) (id game.ItemID, quantity uint32, ok bool)
}

// ItemDelivery grants received items one at a time, in index order, using
// the save's ItemsGranted as the cursor.
type ItemDelivery struct {
	Env *Env

	// Gesture, when set, redirects an item to a cosmetic grant.
	Gesture func(id game.ItemID) (gesture int, ok bool)

	last time.Time
}

// NewItemDelivery starts the rate limit at now, so the first grant happens no
// sooner than one interval after startup.
func NewItemDelivery(env *Env, now time.Time) *ItemDelivery {
	return &ItemDelivery{Env: env, last: now}
}

// Deliver grants the received item whose index equals the cursor, if the
// interval has passed. It reports whether an item was granted. A gap in the
// received list waits for the connection to fill it.
func (d *ItemDelivery) Deliver(now time.Time, received []protocol.ReceivedItem, items ItemMapper, g game.Granter, sd *save.Data) (bool, error) {
	if sd == nil || now.Sub(d.last) < ItemInterval {
		return false, nil
	}
	next, ok := nextItem(received, sd.ItemsGranted)
	if !ok || next.Index != sd.ItemsGranted {
		return false, nil
	}

	id, qty, ok := items.Lookup(next.Item)
	if !ok {
		return false, apperr.WithMetadata(apperr.CodeDataIntegrity,
			fmt.Sprintf("Received item %d has no local item in slot data; the client and the seed do not match.", next.Item),
			map[string]string{"item": strconv.FormatInt(next.Item, 10), "index": strconv.FormatUint(next.Index, 10)},
		)
	}

	d.Env.logf("granting %s x%d (server item %d, index %d, location %d)", id, qty, next.Item, next.Index, next.Location)
	var err error
	gesture, cosmetic := 0, false
	if d.Gesture != nil {
		gesture, cosmetic = d.Gesture(id)
	}
	if cosmetic {
		err = g.GrantGesture(gesture, id)
	} else {
		err = g.GrantItem(id, qty)
	}
	if err != nil {
		if apperr.IsUnavailable(err) {
			return false, nil
		}
		return false, fmt.Errorf("grant %s: %w", id, err)
	}

	sd.GrantedOne()
	d.last = now
	d.Env.record(journal.Entry{
		At:       now,
		Kind:     journal.KindGrant,
		SaveID:   sd.SaveID,
		Index:    next.Index,
		Item:     id.String(),
		Quantity: qty,
	})
	return true, nil
}

// nextItem finds the item with the smallest index at or above cursor. The
// list is not assumed to be sorted.
func nextItem(received []protocol.ReceivedItem, cursor uint64) (protocol.ReceivedItem, bool) {
	var best protocol.ReceivedItem
	found := false
	for _, it := range received {
		if it.Index < cursor {
			continue
		}
		if !found || it.Index < best.Index {
			best = it
			found = true
		}
	}
	return best, found
}
