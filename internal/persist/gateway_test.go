package persist

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hublocal/internal/model"
	"hublocal/internal/state"
)

type nopSink struct{}

func (nopSink) LogAction(model.User, string, string, model.Severity) error { return nil }

func adminUser() model.User {
	return model.User{ID: "u1", Name: "Ana", Role: "Administrador", AssignedDepartments: []string{"ALL"}}
}

func startGateway(t *testing.T, dbPath string) (*state.Store, *Gateway) {
	t.Helper()
	st := state.New(nopSink{})
	g := NewGateway(st)
	g.Warnf = t.Logf
	if err := g.Start(dbPath, model.InitialData(), model.DefaultWeights(), model.InitialConfig()); err != nil {
		t.Fatalf("start gateway: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return st, g
}

func TestStartSeedsAndLoads(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hublocal.sqlite")
	st, g := startGateway(t, dbPath)

	if !g.Ready() {
		t.Fatal("gateway not ready after Start")
	}
	data := st.Data()
	if len(data) != 8 {
		t.Fatalf("departments = %d, want 8", len(data))
	}
	if len(data["OPS"].KPIs) != 5 {
		t.Fatalf("OPS KPIs = %d, want 5", len(data["OPS"].KPIs))
	}
}

func TestMutationsPersistAcrossRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hublocal.sqlite")

	st, g := startGateway(t, dbPath)
	st.Login(adminUser())
	if err := st.AddKPI("FIN", model.KPI{ID: "kpi-fin-1", Name: "Margem", Value: 10, Target: 30, Unit: model.UnitPercent, Trend: model.TrendUp}); err != nil {
		t.Fatalf("add kpi: %v", err)
	}
	if err := g.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st2, _ := startGateway(t, dbPath)
	fin := st2.Data()["FIN"]
	if len(fin.KPIs) != 1 || fin.KPIs[0].ID != "kpi-fin-1" {
		t.Fatalf("mutation lost across restart: %+v", fin.KPIs)
	}
}

func TestAutosaveGatedOnSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hublocal.sqlite")
	st, g := startGateway(t, dbPath)
	g.saver = newDebouncer(10 * time.Millisecond)

	// No session user: changes schedule nothing.
	g.scheduleSave()
	if g.saver.Cancel() {
		t.Fatal("autosave scheduled without a session")
	}

	st.Login(adminUser())
	if err := st.AddKPI("MKT", model.KPI{ID: "kpi-mkt-1", Name: "Leads"}); err != nil {
		t.Fatalf("add kpi: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db.Close()
	data, err := db.GetAllData()
	if err != nil {
		t.Fatalf("get data: %v", err)
	}
	if len(data["MKT"].KPIs) != 1 {
		t.Fatalf("autosave did not persist: %+v", data["MKT"].KPIs)
	}
}

func TestDebounceCoalescesBurst(t *testing.T) {
	var writes atomic.Int64
	d := newDebouncer(30 * time.Millisecond)

	for i := 0; i < 10; i++ {
		d.Schedule(func() { writes.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := writes.Load(); got != 1 {
		t.Fatalf("writes = %d, want exactly 1", got)
	}

	// A change after the window fires again.
	d.Schedule(func() { writes.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if got := writes.Load(); got != 2 {
		t.Fatalf("writes = %d, want 2", got)
	}
}

func TestDebounceStopCancelsPending(t *testing.T) {
	var writes atomic.Int64
	d := newDebouncer(20 * time.Millisecond)

	d.Schedule(func() { writes.Add(1) })
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	if got := writes.Load(); got != 0 {
		t.Fatalf("write fired after Stop: %d", got)
	}

	// Stopped debouncers reject new work.
	d.Schedule(func() { writes.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if got := writes.Load(); got != 0 {
		t.Fatalf("write scheduled after Stop: %d", got)
	}
}

func TestCloseDrainsInFlightAutosave(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hublocal.sqlite")
	st, g := startGateway(t, dbPath)
	st.Login(adminUser())

	var mu sync.Mutex
	var warns []string
	g.Warnf = func(format string, args ...any) {
		mu.Lock()
		warns = append(warns, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	// Race autosaves against Close: a write that started before Close
	// must finish against the open database, and one that loses the race
	// must skip silently instead of hitting a closed handle.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			g.autosave()
		}
	}()
	time.Sleep(time.Millisecond)
	if err := g.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(warns) != 0 {
		t.Fatalf("autosaves failed around Close: %v", warns)
	}
}

func TestSavingIndicatorMinimumDuration(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hublocal.sqlite")
	st, g := startGateway(t, dbPath)
	st.Login(adminUser())

	var mu sync.Mutex
	var events []bool
	var ts []time.Time
	g.SetIndicator(func(saving bool) {
		mu.Lock()
		events = append(events, saving)
		ts = append(ts, time.Now())
		mu.Unlock()
	})

	g.autosave()
	time.Sleep(SavingIndicatorMin + 200*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || !events[0] || events[1] {
		t.Fatalf("indicator events = %v, want [true false]", events)
	}
	if held := ts[1].Sub(ts[0]); held < SavingIndicatorMin {
		t.Fatalf("indicator held %v, want at least %v", held, SavingIndicatorMin)
	}
}

func TestFlushBeforeReady(t *testing.T) {
	g := NewGateway(state.New(nopSink{}))
	if err := g.Flush(); err != ErrNotReady {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
}
