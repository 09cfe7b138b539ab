// Package sekiro reconciles Sekiro: Shadows Die Twice with its multiworld
// slot. Only items and locations are synchronized.
package sekiro

import (
	_ "embed"
	"encoding/json"
	"io"
	"log"
	"time"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/core"
	"soulslink.ai/internal/game"
	"soulslink.ai/internal/persistence/journal"
	"soulslink.ai/internal/reconcile"
	"soulslink.ai/internal/save"
	"soulslink.ai/internal/slotdata"
)

const GameName = "Sekiro: Shadows Die Twice"

//go:embed slotdata.schema.json
var slotSchema string

type SlotData struct {
	slotdata.ItemTable
	Options slotdata.Options `json:"options"`
}

var decoder = slotdata.MustDecoder("sekiro-slot-data.schema.json", slotSchema, func() SlotData {
	return SlotData{Options: slotdata.DefaultOptions()}
})

func DecodeSlotData(raw json.RawMessage) (SlotData, error) {
	return decoder.Decode(raw)
}

type Options struct {
	Game    game.State
	Saves   save.Provider
	Journal journal.Recorder
	Logger  *log.Logger
	Now     func() time.Time
}

type Updater struct {
	game  game.State
	saves save.Provider
	log   *log.Logger

	items     *reconcile.ItemDelivery
	locations reconcile.LocationChecks
	steps     reconcile.Steps
}

func NewUpdater(opts Options) *Updater {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	env := &reconcile.Env{Log: opts.Logger, Journal: opts.Journal}
	return &Updater{
		game:      opts.Game,
		saves:     opts.Saves,
		log:       opts.Logger,
		items:     reconcile.NewItemDelivery(env, opts.Now()),
		locations: reconcile.LocationChecks{Env: env},
		steps:     reconcile.Steps{Env: env},
	}
}

func (u *Updater) UpdateLive(live *core.Live[SlotData]) error {
	client := live.Client()
	if client == nil {
		return nil
	}
	// Nothing here reacts to death links or prints.
	live.TakeEvents()

	sd, err := u.saves.Current()
	if err != nil {
		return apperr.Wrap(apperr.CodeDataIntegrity, "read save data", err)
	}
	defer func() {
		if err := u.saves.Commit(sd); err != nil {
			u.log.Printf("sekiro: commit save: %v", err)
		}
	}()

	u.steps.Env.Print = live.Log
	u.steps.Begin()
	defer u.steps.End()

	now := live.Now()
	if _, err := u.items.Deliver(now, client.ReceivedItems(), client.SlotData().ItemTable, u.game, sd); u.steps.Check(err) != nil {
		return err
	}
	if err := u.locations.Scan(u.game, u.game, sd); u.steps.Check(err) != nil {
		return err
	}
	if err := u.locations.Report(now, client, sd); u.steps.Check(err) != nil {
		return err
	}
	return nil
}

var _ core.LiveUpdater[SlotData] = (*Updater)(nil)
