package savedb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"soulslink.ai/internal/save"
)

// retryInterval is how often snapshots left over from a failed write are
// retried when no new commit arrives.
const retryInterval = time.Second

// Store is a save.Provider backed by SQLite. Reads happen when a save is
// activated; commits are handed to a writer goroutine so the tick never waits
// on disk.
type Store struct {
	db  *sql.DB
	log *log.Logger

	mu     sync.Mutex
	active *save.Data

	pendingMu sync.Mutex
	pending   map[string]*save.Data
	notify    chan struct{}

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	lastErr atomic.Value // string
}

func OpenSQLite(path string, logger *log.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:      db,
		log:     logger,
		pending: map[string]*save.Data{},
		notify:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			save_id TEXT PRIMARY KEY,
			seed TEXT NOT NULL DEFAULT '',
			items_granted INTEGER NOT NULL DEFAULT 0,
			deaths INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS save_locations (
			save_id TEXT NOT NULL REFERENCES saves(save_id) ON DELETE CASCADE,
			location_id INTEGER NOT NULL,
			PRIMARY KEY (save_id, location_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Activate loads saveID (creating an empty record in memory if it has never
// been committed) and makes it the current save.
func (s *Store) Activate(ctx context.Context, saveID string) error {
	if saveID == "" {
		return fmt.Errorf("empty save id")
	}
	// A commit for this save may still be queued; read through it.
	s.pendingMu.Lock()
	queued := s.pending[saveID]
	s.pendingMu.Unlock()

	var d *save.Data
	if queued != nil {
		d = queued.Clone()
	} else {
		loaded, err := s.load(ctx, saveID)
		if err != nil {
			return err
		}
		d = loaded
	}
	s.mu.Lock()
	s.active = d
	s.mu.Unlock()
	return nil
}

func (s *Store) Deactivate() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}

func (s *Store) Current() (*save.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, nil
}

func (s *Store) Commit(d *save.Data) error {
	if d == nil || !d.Dirty() {
		return nil
	}
	if s.closed.Load() {
		return fmt.Errorf("save store closed")
	}
	snap := d.Clone()
	d.MarkClean()

	s.pendingMu.Lock()
	s.pending[snap.SaveID] = snap
	s.pendingMu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// LastError returns the most recent background write failure, if any.
func (s *Store) LastError() string {
	v, _ := s.lastErr.Load().(string)
	return v
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.stop)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Store) load(ctx context.Context, saveID string) (*save.Data, error) {
	d := save.NewData(saveID)
	var deaths int64
	var granted int64
	err := s.db.QueryRowContext(ctx,
		`SELECT seed, items_granted, deaths FROM saves WHERE save_id = ?`, saveID,
	).Scan(&d.Seed, &granted, &deaths)
	if err == sql.ErrNoRows {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load save %s: %w", saveID, err)
	}
	d.ItemsGranted = uint64(granted)
	d.Deaths = uint8(deaths)

	rows, err := s.db.QueryContext(ctx, `SELECT location_id FROM save_locations WHERE save_id = ?`, saveID)
	if err != nil {
		return nil, fmt.Errorf("load locations %s: %w", saveID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		d.AddLocation(id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	d.MarkClean()
	return d, nil
}

func (s *Store) loop() {
	retry := time.NewTicker(retryInterval)
	defer retry.Stop()
	for {
		select {
		case <-s.stop:
			s.flush()
			return
		case <-s.notify:
			s.flush()
		case <-retry.C:
			if s.hasPending() {
				s.flush()
			}
		}
	}
}

func (s *Store) hasPending() bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending) > 0
}

// flush writes every queued snapshot. A snapshot that fails to write goes
// back on the queue unless a newer one for the same save arrived meanwhile.
func (s *Store) flush() {
	s.pendingMu.Lock()
	batch := s.pending
	s.pending = map[string]*save.Data{}
	s.pendingMu.Unlock()

	for id, d := range batch {
		if err := s.write(d); err != nil {
			s.pendingMu.Lock()
			if _, newer := s.pending[id]; !newer {
				s.pending[id] = d
			}
			s.pendingMu.Unlock()
			s.lastErr.Store(err.Error())
			s.log.Printf("savedb: write %s: %v", id, err)
		}
	}
}

func (s *Store) write(d *save.Data) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	// items_granted never decreases, even if commits race.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO saves(save_id, seed, items_granted, deaths, updated_at) VALUES(?,?,?,?,?)
		ON CONFLICT(save_id) DO UPDATE SET
			seed = CASE WHEN saves.seed = '' THEN excluded.seed ELSE saves.seed END,
			items_granted = MAX(saves.items_granted, excluded.items_granted),
			deaths = excluded.deaths,
			updated_at = excluded.updated_at`,
		d.SaveID, d.Seed, int64(d.ItemsGranted), int64(d.Deaths), now,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO save_locations(save_id, location_id) VALUES(?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, id := range d.Locations() {
		if _, err := stmt.ExecContext(ctx, d.SaveID, id); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

var _ save.Provider = (*Store)(nil)
