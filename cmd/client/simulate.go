package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"soulslink.ai/internal/game"
)

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out <- line
		}
	}
}

const simulateUsage = "commands: load SAVE | menu | die | respawn | recover | pickup CATEGORY:PARAM [QTY] | shop [ITEM...] | flag ID BOOL | dlc BOOL BOOL | inv"

// simulate applies one stdin line to the in-memory game.
func simulate(ctx context.Context, env hostEnv, line string) error {
	fields := strings.Fields(line)
	g := env.game
	switch fields[0] {
	case "load":
		if len(fields) != 2 {
			return fmt.Errorf("usage: load SAVE")
		}
		if err := env.store.Activate(ctx, fields[1]); err != nil {
			return err
		}
		g.Load()
		env.logger.Printf("loaded save %s", fields[1])
	case "menu":
		g.QuitToMenu()
		env.store.Deactivate()
	case "die":
		g.Die()
	case "respawn":
		g.Respawn()
	case "recover":
		g.RecoverBloodstain()
	case "pickup":
		if len(fields) < 2 || len(fields) > 3 {
			return fmt.Errorf("usage: pickup CATEGORY:PARAM [QTY]")
		}
		id, err := game.ParseItemID(fields[1])
		if err != nil {
			return err
		}
		qty := uint64(1)
		if len(fields) == 3 {
			if qty, err = strconv.ParseUint(fields[2], 10, 32); err != nil {
				return err
			}
		}
		g.PickUp(id, uint32(qty))
	case "shop":
		if len(fields) == 1 {
			g.CloseShop()
			return nil
		}
		ids := make([]game.ItemID, 0, len(fields)-1)
		for _, f := range fields[1:] {
			id, err := game.ParseItemID(f)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		g.OpenShop(ids...)
	case "flag":
		if len(fields) != 3 {
			return fmt.Errorf("usage: flag ID BOOL")
		}
		id, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return err
		}
		v, err := strconv.ParseBool(fields[2])
		if err != nil {
			return err
		}
		return g.SetEventFlag(uint32(id), v)
	case "dlc":
		if len(fields) != 3 {
			return fmt.Errorf("usage: dlc BOOL BOOL")
		}
		d1, err1 := strconv.ParseBool(fields[1])
		d2, err2 := strconv.ParseBool(fields[2])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("usage: dlc BOOL BOOL")
		}
		g.SetDLC(game.DLCState{DLC1: d1, DLC2: d2})
	case "inv":
		items, err := g.InventoryItems()
		if err != nil {
			return err
		}
		for _, it := range items {
			env.logger.Printf("  %s x%d", it.Item, it.Quantity)
		}
	default:
		return fmt.Errorf("%s", simulateUsage)
	}
	return nil
}
