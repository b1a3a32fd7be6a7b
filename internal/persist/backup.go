package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"hublocal/internal/model"
)

// ErrInvalidBackup rejects payloads that are not a non-empty JSON
// object. Nothing beyond that top-level shape is validated; a
// structurally present but semantically wrong payload is applied as-is.
// Deep validation is a known extension point, deliberately not done
// here.
var ErrInvalidBackup = errors.New("invalid backup payload")

// Backup is the export/restore file format. Any subset of the keys may
// be present; absent keys leave existing state untouched on restore.
type Backup struct {
	Data      map[string]model.Department   `json:"data,omitempty"`
	Weights   map[string]model.WeightConfig `json:"weights,omitempty"`
	Config    *model.AppConfig              `json:"config,omitempty"`
	Snapshots []model.WeeklySnapshot        `json:"snapshots,omitempty"`
}

// ParseBackup validates the top-level shape and decodes the payload.
func ParseBackup(raw []byte) (*Backup, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: empty object", ErrInvalidBackup)
	}
	var b Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return &b, nil
}

// Export captures the full current state.
func (g *Gateway) Export() Backup {
	cfg := g.store.Config()
	return Backup{
		Data:      g.store.Data(),
		Weights:   g.store.Weights(),
		Config:    &cfg,
		Snapshots: g.store.Snapshots(),
	}
}

// ExportJSON renders the current state as an indented backup document.
func (g *Gateway) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(g.Export(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	return append(data, '\n'), nil
}

// Restore applies each provided top-level field independently to the
// in-memory state and then persists each provided field. Snapshots are
// restored by individual upsert rather than bulk replace.
func (g *Gateway) Restore(b *Backup) error {
	if b == nil {
		return ErrInvalidBackup
	}
	g.mu.Lock()
	db := g.db
	ready := g.ready
	g.mu.Unlock()
	if !ready || db == nil {
		return ErrNotReady
	}

	g.store.ApplyRestore(b.Data, b.Weights, b.Config, b.Snapshots)

	if b.Data != nil {
		if err := db.SaveData(b.Data); err != nil {
			return fmt.Errorf("persist restored data: %w", err)
		}
	}
	if b.Weights != nil {
		if err := db.SaveWeights(b.Weights); err != nil {
			return fmt.Errorf("persist restored weights: %w", err)
		}
	}
	if b.Config != nil {
		if err := db.SaveAppConfig(*b.Config); err != nil {
			return fmt.Errorf("persist restored config: %w", err)
		}
	}
	for _, snap := range b.Snapshots {
		if err := db.SaveSnapshot(snap); err != nil {
			return fmt.Errorf("persist restored snapshot %s: %w", snap.ID, err)
		}
	}
	return nil
}

// RestoreDiff renders a unified diff between the current state and the
// state that restoring the payload would produce, without touching
// anything.
func (g *Gateway) RestoreDiff(b *Backup) (string, error) {
	if b == nil {
		return "", ErrInvalidBackup
	}
	current := g.Export()

	merged := current
	if b.Data != nil {
		merged.Data = b.Data
	}
	if b.Weights != nil {
		merged.Weights = b.Weights
	}
	if b.Config != nil {
		merged.Config = b.Config
	}
	if b.Snapshots != nil {
		merged.Snapshots = mergeSnapshots(current.Snapshots, b.Snapshots)
	}

	oldBytes, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal current state: %w", err)
	}
	newBytes, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal restored state: %w", err)
	}

	diff := difflib.UnifiedDiff{
		A:        strings.Split(string(oldBytes), "\n"),
		B:        strings.Split(string(newBytes), "\n"),
		FromFile: "current",
		ToFile:   "restore",
		Context:  3,
	}
	diffText, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff restore payload: %w", err)
	}
	return diffText, nil
}

// mergeSnapshots mirrors restore's per-snapshot upsert semantics.
func mergeSnapshots(existing, restored []model.WeeklySnapshot) []model.WeeklySnapshot {
	out := model.CloneSnapshots(existing)
	for _, snap := range restored {
		replaced := false
		for i := range out {
			if out[i].ID == snap.ID {
				out[i] = snap
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, snap)
		}
	}
	return out
}
