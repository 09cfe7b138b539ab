// Package ds3 reconciles a Dark Souls III game with its multiworld slot.
package ds3

import (
	"io"
	"log"
	"time"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/core"
	"soulslink.ai/internal/game"
	"soulslink.ai/internal/persistence/journal"
	"soulslink.ai/internal/protocol"
	"soulslink.ai/internal/reconcile"
	"soulslink.ai/internal/save"
)

// GameName is what the server knows this game as.
const GameName = "Dark Souls III"

const (
	// pathOfTheDragonGesture is granted in place of the Path of the Dragon
	// item, which only exists to carry the gesture.
	pathOfTheDragonGesture = 29
	pathOfTheDragonIcon    = 7039
)

var pathOfTheDragon = game.NewItemID(game.CategoryGoods, 9030)

type Options struct {
	Game    game.State
	Saves   save.Provider
	Journal journal.Recorder
	Logger  *log.Logger
	// Now defaults to time.Now. It only seeds the item and death-link
	// timers; ticks use the session clock.
	Now func() time.Time
}

// Updater is the live phase for DS3.
type Updater struct {
	game  game.State
	saves save.Provider
	env   *reconcile.Env

	items     *reconcile.ItemDelivery
	locations reconcile.LocationChecks
	hints     reconcile.Hints
	deathLink *reconcile.DeathLink
	goal      reconcile.Goal
	steps     reconcile.Steps
}

func NewUpdater(opts Options) *Updater {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	now := opts.Now()
	env := &reconcile.Env{Log: opts.Logger, Journal: opts.Journal}
	u := &Updater{
		game:      opts.Game,
		saves:     opts.Saves,
		env:       env,
		items:     reconcile.NewItemDelivery(env, now),
		deathLink: reconcile.NewDeathLink(env, now),
	}
	u.items.Gesture = func(id game.ItemID) (int, bool) {
		return pathOfTheDragonGesture, id == pathOfTheDragon
	}
	u.locations = reconcile.LocationChecks{Env: env, Hook: pathOfTheDragonHook}
	u.hints = reconcile.Hints{Env: env}
	u.goal = reconcile.Goal{Env: env}
	u.steps = reconcile.Steps{Env: env}
	return u
}

func pathOfTheDragonHook(inv game.Inventory, id game.ItemID, row game.EquipParam) (bool, error) {
	goods, ok := row.(game.GoodsRow)
	if !ok || goods.IconID != pathOfTheDragonIcon {
		return false, nil
	}
	return true, inv.SetGestureAcquired(pathOfTheDragonGesture)
}

func (u *Updater) UpdateLive(live *core.Live[SlotData]) error {
	client := live.Client()
	if client == nil {
		return nil
	}
	slot := client.SlotData()
	now := live.Now()
	u.env.Print = live.Log

	sd, err := u.saves.Current()
	if err != nil {
		return apperr.Wrap(apperr.CodeDataIntegrity, "read save data", err)
	}
	defer func() {
		if cerr := u.saves.Commit(sd); cerr != nil {
			u.env.Log.Printf("ds3: commit save: %v", cerr)
		}
	}()

	savedSeed := ""
	if sd != nil {
		savedSeed = sd.Seed
	}
	if err := reconcile.CheckSeeds(client.SeedName(), live.Seed(), savedSeed); err != nil {
		return err
	}
	reconcile.AdoptSeed(sd, live.Seed(), client.SeedName())

	if err := u.checkDLC(slot); err != nil {
		return err
	}

	u.steps.Begin()
	defer u.steps.End()

	for _, ev := range live.TakeEvents() {
		dl, ok := ev.(protocol.DeathLink)
		if !ok {
			continue
		}
		if _, err := u.deathLink.Receive(now, dl, slot.Options.DeathLink, client.PlayerName(), u.game); u.steps.Check(err) != nil {
			return err
		}
	}

	if _, err := u.deathLink.Send(now, slot.Options, client.PlayerName(), u.game, sd, client); u.steps.Check(err) != nil {
		return err
	}
	if _, err := u.items.Deliver(now, client.ReceivedItems(), slot.ItemTable, u.game, sd); u.steps.Check(err) != nil {
		return err
	}
	if err := u.locations.Scan(u.game, u.game, sd); u.steps.Check(err) != nil {
		return err
	}
	if err := u.locations.Report(now, client, sd); u.steps.Check(err) != nil {
		return err
	}
	if err := u.hints.Send(now, live.Generation(), u.game, u.game, client); u.steps.Check(err) != nil {
		return err
	}
	if _, err := u.goal.Check(now, u.game, slot.Goal, client); u.steps.Check(err) != nil {
		return err
	}
	return nil
}

// checkDLC fails when the seed needs DLC the game does not have. DLC state
// is only trusted once a save is loaded.
func (u *Updater) checkDLC(slot *SlotData) error {
	if !slot.Options.EnableDLC || u.game.IsMainMenu() {
		return nil
	}
	dlc, err := u.game.DLCInstalled()
	if err != nil || (dlc.DLC1 && dlc.DLC2) {
		return skip(err)
	}
	missing := "both DLCs"
	switch {
	case dlc.DLC1:
		missing = "the Ringed City DLC"
	case dlc.DLC2:
		missing = "the Ashes of Ariandel DLC"
	}
	return apperr.WithMetadata(apperr.CodeDataIntegrity,
		"DLC is enabled for this seed but your game is missing "+missing+".",
		map[string]string{"missing": missing},
	)
}

// skip drops errors that only mean a game subsystem is not loaded yet.
func skip(err error) error {
	if apperr.IsUnavailable(err) {
		return nil
	}
	return err
}

var _ core.LiveUpdater[SlotData] = (*Updater)(nil)
