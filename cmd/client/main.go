// Command client runs the reconciliation engine headless against the
// in-memory game, with saves in SQLite and side effects journaled to disk.
// Lines read from stdin drive the simulated game; lines starting with "!" are
// console commands and "status" prints the connection state.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"soulslink.ai/internal/buildinfo"
	"soulslink.ai/internal/config"
	"soulslink.ai/internal/core"
	"soulslink.ai/internal/game"
	"soulslink.ai/internal/game/memgame"
	"soulslink.ai/internal/games/ds3"
	"soulslink.ai/internal/games/sekiro"
	"soulslink.ai/internal/host"
	"soulslink.ai/internal/persistence/journal"
	"soulslink.ai/internal/persistence/savedb"
	"soulslink.ai/internal/protocol"
	"soulslink.ai/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/client.yaml", "client config path")
		paramsPath = flag.String("params", "./configs/params.yaml", "equip param table for the simulated game")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[client] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}
	params, err := game.LoadParams(*paramsPath)
	if err != nil {
		logger.Fatalf("load params: %v", err)
	}
	logger.Printf("soulslink %s game=%s url=%s slot=%s params=%d", buildinfo.Version, cfg.Game, cfg.URL, cfg.Slot, params.Len())

	store, err := savedb.OpenSQLite(cfg.SaveDB, logger)
	if err != nil {
		logger.Fatalf("open save db: %v", err)
	}
	defer store.Close()

	jw := journal.NewWriter(cfg.JournalDir, cfg.Game)
	defer jw.Close()

	ctx, cancel := signalContext()
	defer cancel()

	env := hostEnv{
		cfg:     cfg,
		game:    memgame.New(params),
		store:   store,
		journal: jw,
		logger:  logger,
	}
	switch cfg.Game {
	case "ds3":
		run(ctx, env, ds3.GameName, []string{protocol.TagDeathLink}, ds3.DecodeSlotData,
			ds3.NewUpdater(ds3.Options{Game: env.game, Saves: store, Journal: jw, Logger: logger}))
	case "sekiro":
		run(ctx, env, sekiro.GameName, nil, sekiro.DecodeSlotData,
			sekiro.NewUpdater(sekiro.Options{Game: env.game, Saves: store, Journal: jw, Logger: logger}))
	}
}

type hostEnv struct {
	cfg     *config.Config
	game    *memgame.Game
	store   *savedb.Store
	journal *journal.Writer
	logger  *log.Logger
}

func run[S any](ctx context.Context, env hostEnv, gameName string, tags []string, decode func(json.RawMessage) (S, error), updater core.LiveUpdater[S]) {
	sess := core.NewSession(core.Options[S]{
		Config: env.cfg,
		Dial: func(cfg *config.Config) protocol.Connection[S] {
			return ws.Dial(ws.Options[S]{
				URL:            cfg.URL,
				Game:           gameName,
				Slot:           cfg.Slot,
				Password:       cfg.Password,
				Tags:           tags,
				DecodeSlotData: decode,
				Logger:         env.logger,
			})
		},
		Game:   updater,
		Logger: env.logger,
	})
	defer sess.Close()

	runner := host.NewRunner(host.Options{
		Session: sess,
		Menu:    env.game,
		TickHz:  env.cfg.TickHz,
		Logger:  env.logger,
	})

	lines := make(chan string)
	go readLines(os.Stdin, lines)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				if strings.TrimSpace(line) == "status" {
					env.logger.Printf("connection %s, fatal=%v, last save error=%q",
						sess.ConnectionState(), sess.Failed(), env.store.LastError())
					continue
				}
				if name, arg := core.ParseCommand(line); len(name) > 0 && name[0] == '!' {
					if !sess.HandleCommand(name, arg) {
						env.logger.Printf("unknown command %s", name)
					}
					continue
				}
				if err := simulate(ctx, env, line); err != nil {
					env.logger.Printf("%v", err)
				}
			}
		}
	}()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		env.logger.Printf("runner: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
