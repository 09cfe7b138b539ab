// Command room serves a single-slot coordination room for local play.
// Stdin accepts: item ITEM_ID [LOCATION], deathlink SOURCE, say TEXT, status.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"soulslink.ai/internal/protocol"
	"soulslink.ai/internal/transport/ws"
)

func main() {
	var (
		addr     = flag.String("addr", ":38281", "http listen address")
		seed     = flag.String("seed", "local", "room seed name")
		slotPath = flag.String("slot_data", "", "path to the slot data JSON sent on connect")
		password = flag.String("password", "", "room password (empty for none)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[room] ", log.LstdFlags|log.Lmicroseconds)

	slotData := json.RawMessage(`{}`)
	if *slotPath != "" {
		raw, err := os.ReadFile(*slotPath)
		if err != nil {
			logger.Fatalf("read slot data: %v", err)
		}
		if !json.Valid(raw) {
			logger.Fatalf("slot data %s is not valid JSON", *slotPath)
		}
		slotData = raw
	}

	room := ws.NewRoom(*seed, slotData, logger)
	room.Password = *password

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/", room.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()
	go console(room, logger)

	logger.Printf("listening on %s seed=%s", *addr, *seed)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http: %v", err)
	}
}

func console(room *ws.Room, logger *log.Logger) {
	sc := bufio.NewScanner(os.Stdin)
	var location int64 = 1
	for sc.Scan() {
		cmd, rest, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		switch cmd {
		case "item":
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				logger.Printf("usage: item ITEM_ID [LOCATION]")
				continue
			}
			item, err := strconv.ParseInt(fields[0], 10, 64)
			if err != nil {
				logger.Printf("item: %v", err)
				continue
			}
			loc := location
			if len(fields) > 1 {
				if loc, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
					logger.Printf("location: %v", err)
					continue
				}
			}
			location++
			room.SendItem(protocol.NetworkItem{Item: item, Location: loc, Player: 0})
		case "deathlink":
			room.DeathLink(strings.TrimSpace(rest), time.Now())
		case "say":
			room.Say(rest)
		case "status":
			logger.Printf("peers=%d checked=%v hints=%v goal=%v deaths=%d",
				room.Peers(), room.Checked(), room.Hints(), room.GoalReached(), len(room.Bounces()))
		case "":
		default:
			logger.Printf("unknown command %q", cmd)
		}
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
