// Command journal prints a client journal directory, oldest entry first.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"soulslink.ai/internal/persistence/journal"
)

func main() {
	var (
		dir    = flag.String("dir", "./data/journal", "journal directory")
		prefix = flag.String("prefix", "ds3", "journal file prefix (the game id)")
		kind   = flag.String("kind", "", "only print entries of this kind (grant, check, hint, death_sent, death_recv, goal)")
		save   = flag.String("save", "", "only print entries for this save id")
		asJSON = flag.Bool("json", false, "print raw JSON lines")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[journal] ", 0)
	enc := json.NewEncoder(os.Stdout)
	n := 0
	err := journal.ReadDir(*dir, *prefix, func(e journal.Entry) error {
		if *kind != "" && string(e.Kind) != *kind {
			return nil
		}
		if *save != "" && e.SaveID != *save {
			return nil
		}
		n++
		if *asJSON {
			return enc.Encode(e)
		}
		_, err := fmt.Fprintln(os.Stdout, format(e))
		return err
	})
	if err != nil {
		logger.Fatalf("read %s: %v", *dir, err)
	}
	logger.Printf("%d entries", n)
}

func format(e journal.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-10s", e.At.Local().Format(time.DateTime), e.Kind)
	if e.SaveID != "" {
		fmt.Fprintf(&b, " save=%s", e.SaveID)
	}
	switch e.Kind {
	case journal.KindGrant:
		fmt.Fprintf(&b, " #%d %s x%d", e.Index, e.Item, e.Quantity)
	case journal.KindCheck, journal.KindHint:
		fmt.Fprintf(&b, " locations=%v", e.Locations)
	case journal.KindDeathSent, journal.KindDeathRecv:
		fmt.Fprintf(&b, " source=%s", e.Source)
	}
	return b.String()
}
