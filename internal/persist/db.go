package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"hublocal/internal/model"
)

// DB is the physical persistent store: an opaque object store over
// SQLite keyed by entity id, holding JSON documents.
type DB struct {
	Path string
	db   *sql.DB
}

// Open opens or creates the state database and ensures its schema.
func Open(path string) (*DB, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve state db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	store := &DB{Path: absPath, db: db}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *DB) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS departments (
	id TEXT PRIMARY KEY,
	doc_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS weights (
	dept_id TEXT PRIMARY KEY,
	doc_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS app_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	doc_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	ts INTEGER NOT NULL,
	doc_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts);
`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("create state schema: %w", err)
	}
	return nil
}

// SeedData writes only the entities that do not already exist; it never
// overwrites stored data and is safe to call on every startup.
func (d *DB) SeedData(data map[string]model.Department, weights map[string]model.WeightConfig, cfg model.AppConfig) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for id, dept := range data {
		doc, err := json.Marshal(dept)
		if err != nil {
			return fmt.Errorf("marshal department %s: %w", id, err)
		}
		if _, err := tx.Exec("INSERT OR IGNORE INTO departments (id, doc_json) VALUES (?, ?)", id, string(doc)); err != nil {
			return fmt.Errorf("seed department %s: %w", id, err)
		}
	}
	for id, w := range weights {
		doc, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("marshal weights %s: %w", id, err)
		}
		if _, err := tx.Exec("INSERT OR IGNORE INTO weights (dept_id, doc_json) VALUES (?, ?)", id, string(doc)); err != nil {
			return fmt.Errorf("seed weights %s: %w", id, err)
		}
	}
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal app config: %w", err)
	}
	if _, err := tx.Exec("INSERT OR IGNORE INTO app_config (id, doc_json) VALUES (1, ?)", string(doc)); err != nil {
		return fmt.Errorf("seed app config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// GetAllData reads every stored department. An empty store yields an
// empty map, not an error.
func (d *DB) GetAllData() (map[string]model.Department, error) {
	rows, err := d.db.Query("SELECT id, doc_json FROM departments")
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Department)
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		var dept model.Department
		if err := json.Unmarshal([]byte(doc), &dept); err != nil {
			return nil, fmt.Errorf("decode department %s: %w", id, err)
		}
		out[id] = dept
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}
	return out, nil
}

// GetAllWeights reads every stored weight configuration.
func (d *DB) GetAllWeights() (map[string]model.WeightConfig, error) {
	rows, err := d.db.Query("SELECT dept_id, doc_json FROM weights")
	if err != nil {
		return nil, fmt.Errorf("query weights: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.WeightConfig)
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan weights: %w", err)
		}
		var w model.WeightConfig
		if err := json.Unmarshal([]byte(doc), &w); err != nil {
			return nil, fmt.Errorf("decode weights %s: %w", id, err)
		}
		out[id] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weights: %w", err)
	}
	return out, nil
}

// GetAppConfig reads the stored config, nil when absent.
func (d *DB) GetAppConfig() (*model.AppConfig, error) {
	var doc string
	err := d.db.QueryRow("SELECT doc_json FROM app_config WHERE id = 1").Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query app config: %w", err)
	}
	var cfg model.AppConfig
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return nil, fmt.Errorf("decode app config: %w", err)
	}
	return &cfg, nil
}

// GetSnapshots reads all snapshots ascending by timestamp.
func (d *DB) GetSnapshots() ([]model.WeeklySnapshot, error) {
	rows, err := d.db.Query("SELECT doc_json FROM snapshots ORDER BY ts ASC")
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.WeeklySnapshot
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap model.WeeklySnapshot
		if err := json.Unmarshal([]byte(doc), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// SaveData replaces the stored department set with the provided map:
// rows are upserted and rows absent from the map are dropped, all in
// one transaction.
func (d *DB) SaveData(data map[string]model.Department) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save data: %w", err)
	}
	defer tx.Rollback()

	for id, dept := range data {
		doc, err := json.Marshal(dept)
		if err != nil {
			return fmt.Errorf("marshal department %s: %w", id, err)
		}
		if _, err := tx.Exec("INSERT OR REPLACE INTO departments (id, doc_json) VALUES (?, ?)", id, string(doc)); err != nil {
			return fmt.Errorf("save department %s: %w", id, err)
		}
	}
	if err := deleteStale(tx, "departments", "id", keysOfData(data)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save data: %w", err)
	}
	return nil
}

// SaveWeights replaces the stored weight set, same semantics as
// SaveData.
func (d *DB) SaveWeights(weights map[string]model.WeightConfig) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save weights: %w", err)
	}
	defer tx.Rollback()

	for id, w := range weights {
		doc, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("marshal weights %s: %w", id, err)
		}
		if _, err := tx.Exec("INSERT OR REPLACE INTO weights (dept_id, doc_json) VALUES (?, ?)", id, string(doc)); err != nil {
			return fmt.Errorf("save weights %s: %w", id, err)
		}
	}
	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	if err := deleteStale(tx, "weights", "dept_id", ids); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save weights: %w", err)
	}
	return nil
}

// SaveAppConfig upserts the singleton config row.
func (d *DB) SaveAppConfig(cfg model.AppConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal app config: %w", err)
	}
	if _, err := d.db.Exec("INSERT OR REPLACE INTO app_config (id, doc_json) VALUES (1, ?)", string(doc)); err != nil {
		return fmt.Errorf("save app config: %w", err)
	}
	return nil
}

// SaveSnapshot upserts one snapshot by id.
func (d *DB) SaveSnapshot(snap model.WeeklySnapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.ID, err)
	}
	if _, err := d.db.Exec("INSERT OR REPLACE INTO snapshots (id, ts, doc_json) VALUES (?, ?, ?)", snap.ID, snap.Timestamp, string(doc)); err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func keysOfData(data map[string]model.Department) []string {
	out := make([]string, 0, len(data))
	for id := range data {
		out = append(out, id)
	}
	return out
}

// deleteStale removes rows whose key is not in keep. With an empty keep
// list it removes nothing: an empty in-memory map must never wipe the
// persisted set.
func deleteStale(tx *sql.Tx, table, keyCol string, keep []string) error {
	if len(keep) == 0 {
		return nil
	}
	kept := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		kept[k] = struct{}{}
	}

	rows, err := tx.Query("SELECT " + keyCol + " FROM " + table)
	if err != nil {
		return fmt.Errorf("query %s keys: %w", table, err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan %s key: %w", table, err)
		}
		if _, ok := kept[id]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate %s keys: %w", table, err)
	}
	rows.Close()

	for _, id := range stale {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE "+keyCol+" = ?", id); err != nil {
			return fmt.Errorf("delete stale %s row %s: %w", table, id, err)
		}
	}
	return nil
}
