package persist

import (
	"path/filepath"
	"reflect"
	"testing"

	"hublocal/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state", "hublocal.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedDataIdempotent(t *testing.T) {
	db := openTestDB(t)

	seedData := model.InitialData()
	seedWeights := model.DefaultWeights()
	seedConfig := model.InitialConfig()

	if err := db.SeedData(seedData, seedWeights, seedConfig); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Mutate a department, then seed again: the stored mutation must
	// survive.
	ops := seedData["OPS"]
	ops.Name = "Renamed"
	if err := db.SaveData(map[string]model.Department{"OPS": ops}); err != nil {
		t.Fatalf("save data: %v", err)
	}
	if err := db.SeedData(model.InitialData(), model.DefaultWeights(), model.InitialConfig()); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	stored, err := db.GetAllData()
	if err != nil {
		t.Fatalf("get data: %v", err)
	}
	if stored["OPS"].Name != "Renamed" {
		t.Fatalf("seed overwrote existing data: %q", stored["OPS"].Name)
	}
}

func TestDataRoundTrip(t *testing.T) {
	db := openTestDB(t)

	data := model.InitialData()
	if err := db.SaveData(data); err != nil {
		t.Fatalf("save data: %v", err)
	}
	got, err := db.GetAllData()
	if err != nil {
		t.Fatalf("get data: %v", err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Fatalf("data round trip mismatch:\n got %+v\nwant %+v", got["OPS"], data["OPS"])
	}
}

func TestSaveDataDropsRemovedDepartments(t *testing.T) {
	db := openTestDB(t)

	data := model.InitialData()
	if err := db.SaveData(data); err != nil {
		t.Fatalf("save data: %v", err)
	}
	delete(data, "RH")
	if err := db.SaveData(data); err != nil {
		t.Fatalf("save data: %v", err)
	}

	got, err := db.GetAllData()
	if err != nil {
		t.Fatalf("get data: %v", err)
	}
	if _, ok := got["RH"]; ok {
		t.Fatal("removed department still stored")
	}

	// An empty map must never wipe the stored set.
	if err := db.SaveData(map[string]model.Department{}); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	got, err = db.GetAllData()
	if err != nil {
		t.Fatalf("get data: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("empty save wiped the store")
	}
}

func TestWeightsAndConfigRoundTrip(t *testing.T) {
	db := openTestDB(t)

	weights := model.DefaultWeights()
	w := weights["OPS"]
	w.KPIWeight = 70
	w.GoalWeight = 30
	w.KPIs["kpi-ops-churn"] = 40
	weights["OPS"] = w
	if err := db.SaveWeights(weights); err != nil {
		t.Fatalf("save weights: %v", err)
	}
	gotW, err := db.GetAllWeights()
	if err != nil {
		t.Fatalf("get weights: %v", err)
	}
	if !reflect.DeepEqual(gotW, weights) {
		t.Fatalf("weights mismatch: %+v", gotW["OPS"])
	}

	cfg := model.InitialConfig()
	cfg.RolePermissions["Auditor"] = []string{"logs_view"}
	if err := db.SaveAppConfig(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	gotC, err := db.GetAppConfig()
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if gotC == nil || !reflect.DeepEqual(*gotC, cfg) {
		t.Fatalf("config mismatch")
	}
}

func TestGetAppConfigEmpty(t *testing.T) {
	db := openTestDB(t)
	cfg, err := db.GetAppConfig()
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config on empty store, got %+v", cfg)
	}
}

func TestSaveSnapshotUpsertAndOrder(t *testing.T) {
	db := openTestDB(t)

	snaps := []model.WeeklySnapshot{
		{ID: "w2", Timestamp: 200, WeekLabel: "Semana 2", OverallScore: 20, DepartmentScores: map[string]float64{"OPS": 20}, CategoryScores: map[string]float64{}},
		{ID: "w1", Timestamp: 100, WeekLabel: "Semana 1", OverallScore: 10, DepartmentScores: map[string]float64{"OPS": 10}, CategoryScores: map[string]float64{}},
	}
	for _, s := range snaps {
		if err := db.SaveSnapshot(s); err != nil {
			t.Fatalf("save snapshot: %v", err)
		}
	}

	got, err := db.GetSnapshots()
	if err != nil {
		t.Fatalf("get snapshots: %v", err)
	}
	if len(got) != 2 || got[0].ID != "w1" || got[1].ID != "w2" {
		t.Fatalf("snapshots not ascending by timestamp: %+v", got)
	}

	// Upsert replaces by id.
	if err := db.SaveSnapshot(model.WeeklySnapshot{ID: "w1", Timestamp: 100, OverallScore: 55, DepartmentScores: map[string]float64{}, CategoryScores: map[string]float64{}}); err != nil {
		t.Fatalf("upsert snapshot: %v", err)
	}
	got, err = db.GetSnapshots()
	if err != nil {
		t.Fatalf("get snapshots: %v", err)
	}
	if len(got) != 2 || got[0].OverallScore != 55 {
		t.Fatalf("upsert did not replace: %+v", got)
	}
}
