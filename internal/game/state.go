package game

import "soulslink.ai/internal/apperr"

// ErrUnavailable is returned while the subsystem backing a call has not been
// initialized yet (main menu, loading screen). Callers treat it as "try again
// next tick".
var ErrUnavailable = apperr.New(apperr.CodeUnavailable, "game subsystem not loaded")

// InventoryEntry is one occupied inventory slot.
type InventoryEntry struct {
	Slot     int
	Item     ItemID
	Quantity uint32
}

// Inventory reads and edits the player's inventory without item pop-ups.
type Inventory interface {
	InventoryItems() ([]InventoryEntry, error)
	GiveItemDirectly(id ItemID, quantity uint32) error
	RemoveItem(id ItemID, quantity uint32) error
	SetGestureAcquired(gesture int) error
}

// Granter awards items the way world pickups do, with the pickup pop-up.
type Granter interface {
	GrantItem(id ItemID, quantity uint32) error
	GrantGesture(gesture int, id ItemID) error
}

type Player interface {
	PlayerHP() (int, error)
	KillPlayer() error
	// BloodstainExists reports whether the player's recoverable death marker
	// is still in the world.
	BloodstainExists() (bool, error)
}

type EventFlags interface {
	EventFlag(flag uint32) (bool, error)
	SetEventFlag(flag uint32, value bool) error
}

// Shop lists the items of the currently open shop menu. A closed shop yields
// an empty list.
type Shop interface {
	OpenShopItems() ([]ItemID, error)
}

type DLCState struct {
	DLC1 bool
	DLC2 bool
}

type DLC interface {
	DLCInstalled() (DLCState, error)
}

type Params interface {
	EquipParam(id ItemID) (EquipParam, bool)
}

// State is the full capability set a game exposes to the client.
type State interface {
	Inventory
	Granter
	Player
	EventFlags
	Shop
	DLC
	Params

	// IsMainMenu reports whether no save is loaded.
	IsMainMenu() bool
}
