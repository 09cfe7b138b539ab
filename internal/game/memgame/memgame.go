// Package memgame is an in-memory game.State used by the headless host and by
// tests. It models just enough of a running game for the reconciliation core:
// an inventory, a player with hit points and a bloodstain, event flags, an
// optional open shop and installed DLC.
package memgame

import (
	"sort"
	"sync"

	"soulslink.ai/internal/game"
)

// Grant records one GrantItem/GrantGesture/GiveItemDirectly call.
type Grant struct {
	Item     game.ItemID
	Quantity uint32
	Gesture  int
	Direct   bool
}

type Game struct {
	mu sync.Mutex

	params game.Params

	loaded     bool
	inventory  map[game.ItemID]uint32
	hp         int
	maxHP      int
	bloodstain bool
	deaths     int
	flags      map[uint32]bool
	shop       []game.ItemID
	dlc        game.DLCState
	gestures   map[int]bool
	grants     []Grant
}

func New(params game.Params) *Game {
	if params == nil {
		params = game.NewParamTable()
	}
	return &Game{
		params:    params,
		inventory: map[game.ItemID]uint32{},
		flags:     map[uint32]bool{},
		gestures:  map[int]bool{},
		hp:        100,
		maxHP:     100,
		dlc:       game.DLCState{DLC1: true, DLC2: true},
	}
}

// Load enters a save: gameplay subsystems become available.
func (g *Game) Load() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loaded = true
	g.hp = g.maxHP
}

// QuitToMenu leaves the save.
func (g *Game) QuitToMenu() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loaded = false
	g.shop = nil
}

func (g *Game) IsMainMenu() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.loaded
}

func (g *Game) InventoryItems() ([]game.InventoryEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return nil, game.ErrUnavailable
	}
	ids := make([]game.ItemID, 0, len(g.inventory))
	for id := range g.inventory {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]game.InventoryEntry, 0, len(ids))
	for i, id := range ids {
		out = append(out, game.InventoryEntry{Slot: i, Item: id, Quantity: g.inventory[id]})
	}
	return out, nil
}

func (g *Game) GiveItemDirectly(id game.ItemID, quantity uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return game.ErrUnavailable
	}
	g.inventory[id] += quantity
	g.grants = append(g.grants, Grant{Item: id, Quantity: quantity, Direct: true})
	return nil
}

func (g *Game) RemoveItem(id game.ItemID, quantity uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return game.ErrUnavailable
	}
	have := g.inventory[id]
	if quantity >= have {
		delete(g.inventory, id)
		return nil
	}
	g.inventory[id] = have - quantity
	return nil
}

func (g *Game) SetGestureAcquired(gesture int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return game.ErrUnavailable
	}
	g.gestures[gesture] = true
	return nil
}

func (g *Game) GrantItem(id game.ItemID, quantity uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return game.ErrUnavailable
	}
	g.inventory[id] += quantity
	g.grants = append(g.grants, Grant{Item: id, Quantity: quantity})
	return nil
}

func (g *Game) GrantGesture(gesture int, id game.ItemID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return game.ErrUnavailable
	}
	g.gestures[gesture] = true
	g.grants = append(g.grants, Grant{Item: id, Gesture: gesture})
	return nil
}

func (g *Game) PlayerHP() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return 0, game.ErrUnavailable
	}
	return g.hp, nil
}

func (g *Game) KillPlayer() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return game.ErrUnavailable
	}
	g.dieLocked()
	return nil
}

func (g *Game) BloodstainExists() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return false, game.ErrUnavailable
	}
	return g.bloodstain, nil
}

func (g *Game) EventFlag(flag uint32) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return false, game.ErrUnavailable
	}
	return g.flags[flag], nil
}

func (g *Game) SetEventFlag(flag uint32, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return game.ErrUnavailable
	}
	g.flags[flag] = value
	return nil
}

func (g *Game) OpenShopItems() ([]game.ItemID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return nil, game.ErrUnavailable
	}
	return append([]game.ItemID(nil), g.shop...), nil
}

func (g *Game) DLCInstalled() (game.DLCState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dlc, nil
}

func (g *Game) EquipParam(id game.ItemID) (game.EquipParam, bool) {
	return g.params.EquipParam(id)
}

// Simulation controls.

// Die drops the player to zero hit points. An unrecovered bloodstain from an
// earlier death still exists until Respawn replaces it.
func (g *Game) Die() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dieLocked()
}

func (g *Game) dieLocked() {
	g.hp = 0
	g.deaths++
}

// Respawn restores hit points and places the bloodstain of the last death.
func (g *Game) Respawn() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hp = g.maxHP
	g.bloodstain = true
}

// RecoverBloodstain picks up the player's bloodstain.
func (g *Game) RecoverBloodstain() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bloodstain = false
}

// PickUp adds a world pickup to the inventory without recording a grant.
func (g *Game) PickUp(id game.ItemID, quantity uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inventory[id] += quantity
}

func (g *Game) OpenShop(items ...game.ItemID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shop = append([]game.ItemID(nil), items...)
}

func (g *Game) CloseShop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shop = nil
}

func (g *Game) SetDLC(s game.DLCState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dlc = s
}

func (g *Game) Deaths() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deaths
}

func (g *Game) Count(id game.ItemID) uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inventory[id]
}

func (g *Game) HasGesture(gesture int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gestures[gesture]
}

func (g *Game) Grants() []Grant {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Grant(nil), g.grants...)
}

var _ game.State = (*Game)(nil)
