package persist

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"hublocal/internal/model"
	"hublocal/internal/state"
)

// ErrNotReady is returned by operations that require the startup
// sequence (init, seed, load) to have completed.
var ErrNotReady = errors.New("persistence gateway not ready")

// Gateway bridges the in-memory store to the physical database:
// seeding, loading, debounced saving, and restore-from-backup.
type Gateway struct {
	store *state.Store

	mu     sync.Mutex
	db     *DB
	ready  bool
	writes sync.WaitGroup

	saver     *debouncer
	indicator func(saving bool)

	// Warnf reports recovered conditions (failed autosave, empty load).
	// Defaults to the std logger.
	Warnf func(format string, args ...any)
}

// NewGateway wires a gateway to the store. Start must be called before
// any persistence happens.
func NewGateway(st *state.Store) *Gateway {
	return &Gateway{
		store: st,
		saver: newDebouncer(SaveQuietPeriod),
		Warnf: log.Printf,
	}
}

// SetIndicator registers the transient saving indicator shown around
// each autosave write for at least SavingIndicatorMin.
func (g *Gateway) SetIndicator(fn func(saving bool)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.indicator = fn
}

// Start runs the startup sequence in strict order: open the database
// (failure is fatal to the caller), seed the entities that do not exist
// yet, load everything back with the store as source of truth, and only
// then mark the gateway ready and begin observing store changes.
func (g *Gateway) Start(dbPath string, seedData map[string]model.Department, seedWeights map[string]model.WeightConfig, seedConfig model.AppConfig) error {
	db, err := Open(dbPath)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}

	if err := db.SeedData(seedData, seedWeights, seedConfig); err != nil {
		db.Close()
		return fmt.Errorf("seed persistence: %w", err)
	}

	data, err := db.GetAllData()
	if err != nil {
		db.Close()
		return fmt.Errorf("load data: %w", err)
	}
	weights, err := db.GetAllWeights()
	if err != nil {
		db.Close()
		return fmt.Errorf("load weights: %w", err)
	}
	cfg, err := db.GetAppConfig()
	if err != nil {
		db.Close()
		return fmt.Errorf("load config: %w", err)
	}
	snaps, err := db.GetSnapshots()
	if err != nil {
		db.Close()
		return fmt.Errorf("load snapshots: %w", err)
	}

	// Empty weights/config fall back to the in-memory defaults; an
	// empty data read is suspicious right after seeding and is warned
	// about rather than silently replacing the defaults.
	if len(data) == 0 {
		g.Warnf("persistent store returned no departments after seed; keeping defaults")
		data = nil
	}
	if len(weights) == 0 {
		weights = nil
	}
	g.store.Hydrate(data, weights, cfg, snaps)

	g.mu.Lock()
	g.db = db
	g.ready = true
	g.mu.Unlock()

	g.store.SetOnChange(g.scheduleSave)
	g.store.SetOnSnapshot(g.persistSnapshot)
	return nil
}

// Ready reports whether the load phase has completed.
func (g *Gateway) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// scheduleSave arms the debounced autosave. Writes are gated behind
// readiness and an authenticated session so an empty in-memory state
// can never overwrite good persisted data during the load race.
func (g *Gateway) scheduleSave() {
	if !g.Ready() || g.store.CurrentUser() == nil {
		return
	}
	g.saver.Schedule(g.autosave)
}

// autosave is the fire-and-forget debounced write. Failures are logged
// and implicitly retried on the next qualifying change, since the write
// is derived from current state rather than a queued diff.
func (g *Gateway) autosave() {
	ind := g.currentIndicator()
	if ind != nil {
		ind(true)
	}
	// ErrNotReady here means the gateway closed between the timer firing
	// and the write; the change was either flushed or deliberately dropped.
	if err := g.flush(); err != nil && !errors.Is(err, ErrNotReady) {
		g.Warnf("autosave failed: %v", err)
	}
	if ind != nil {
		time.AfterFunc(SavingIndicatorMin, func() { ind(false) })
	}
}

// Flush cancels any pending autosave and writes the current state
// synchronously.
func (g *Gateway) Flush() error {
	g.saver.Cancel()
	if !g.Ready() {
		return ErrNotReady
	}
	return g.flush()
}

func (g *Gateway) flush() error {
	g.mu.Lock()
	db := g.db
	if db == nil {
		g.mu.Unlock()
		return ErrNotReady
	}
	// Registered under the lock so Close either sees this write and
	// drains it, or has already detached the database.
	g.writes.Add(1)
	g.mu.Unlock()
	defer g.writes.Done()

	if data := g.store.Data(); len(data) > 0 {
		if err := db.SaveData(data); err != nil {
			return fmt.Errorf("save data: %w", err)
		}
	}
	if err := db.SaveWeights(g.store.Weights()); err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	if err := db.SaveAppConfig(g.store.Config()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (g *Gateway) persistSnapshot(snap model.WeeklySnapshot) {
	g.mu.Lock()
	db := g.db
	if db == nil {
		g.mu.Unlock()
		return
	}
	g.writes.Add(1)
	g.mu.Unlock()
	defer g.writes.Done()
	if err := db.SaveSnapshot(snap); err != nil {
		g.Warnf("save snapshot %s: %v", snap.ID, err)
	}
}

func (g *Gateway) currentIndicator() func(bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.indicator
}

// Close cancels any pending autosave unconditionally, waits for a write
// already executing to finish, and closes the database. Pending changes
// are dropped, not flushed; callers that need them persisted call Flush
// first.
func (g *Gateway) Close() error {
	g.saver.Stop()
	g.mu.Lock()
	db := g.db
	g.db = nil
	g.ready = false
	g.mu.Unlock()
	// Stop does not wait for a timer callback already running; drain it
	// before the database goes away underneath it.
	g.writes.Wait()
	if db != nil {
		return db.Close()
	}
	return nil
}
