package audit

import (
	"path/filepath"
	"testing"

	"hublocal/internal/model"
)

func TestLogActionAndListRecent(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "audit.sqlite"))
	user := model.User{ID: "u1", Name: "Ana", Role: "Administrador"}

	if err := logger.LogAction(user, "Created KPI", `Added "Churn" to OPS`, model.SeveritySuccess); err != nil {
		t.Fatalf("log action: %v", err)
	}
	if err := logger.LogAction(user, "Deleted KPI", `Removed "Churn" from OPS`, model.SeverityWarning); err != nil {
		t.Fatalf("log action: %v", err)
	}

	entries, err := logger.ListRecent(10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.ID == "" || e.Date == "" || e.Time == "" || e.Timestamp == 0 {
			t.Fatalf("incomplete entry: %+v", e)
		}
		if e.UserID != "u1" || e.UserName != "Ana" {
			t.Fatalf("wrong actor: %+v", e)
		}
	}
	// Newest first.
	if entries[0].Timestamp < entries[1].Timestamp {
		t.Fatalf("entries not ordered newest first: %v then %v", entries[0].Timestamp, entries[1].Timestamp)
	}
}

func TestListRecentLimit(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "audit.sqlite"))
	user := model.User{ID: "u1", Name: "Ana"}
	for i := 0; i < 5; i++ {
		if err := logger.LogAction(user, "Login", "", model.SeverityInfo); err != nil {
			t.Fatalf("log action: %v", err)
		}
	}
	entries, err := logger.ListRecent(3)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
}

func TestLoggerRequiresPath(t *testing.T) {
	logger := &Logger{}
	if err := logger.LogAction(model.User{}, "x", "", model.SeverityInfo); err == nil {
		t.Fatal("expected error for missing db path")
	}
}
