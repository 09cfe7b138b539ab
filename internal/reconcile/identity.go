package reconcile

import (
	"fmt"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/save"
)

// CheckSeeds compares the seeds reported by the connected room, the config
// and the loaded save. Empty means unknown and never conflicts.
func CheckSeeds(room, config, saved string) error {
	switch {
	case room != "" && config != "" && room != config:
		return seedConflict(
			"You've connected to a different multiworld than the one your config was generated for!",
			"room", room, "config", config,
		)
	case room != "" && saved != "" && room != saved:
		return seedConflict(
			"You've connected to a different multiworld than the one this save file was created with!",
			"room", room, "save", saved,
		)
	case config != "" && saved != "" && config != saved:
		return seedConflict(
			"Your config was generated for a different multiworld than the one this save file was created with!",
			"config", config, "save", saved,
		)
	}
	return nil
}

var seedLabels = map[string]string{
	"room":   "Connected room seed",
	"config": "Config file seed",
	"save":   "Save file seed",
}

func seedConflict(msg, a, aSeed, b, bSeed string) error {
	return apperr.WithMetadata(apperr.CodeIdentityConflict,
		fmt.Sprintf("%s\n\n%s: %s\n%s: %s", msg, seedLabels[a], aSeed, seedLabels[b], bSeed),
		map[string]string{a: aSeed, b: bSeed},
	)
}

// AdoptSeed binds a fresh save to the config's seed, falling back to the
// room's when the config names none. It reports whether the save changed.
func AdoptSeed(sd *save.Data, config, room string) bool {
	if sd == nil {
		return false
	}
	if config == "" {
		config = room
	}
	return sd.AdoptSeed(config)
}
