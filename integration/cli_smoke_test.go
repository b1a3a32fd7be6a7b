package integration_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hublocal/integration/harness"
)

func TestCLISmoke(t *testing.T) {
	binPath := harness.BuildBinary(t)
	workspace := t.TempDir()
	runDir := t.TempDir()

	fixture := filepath.Join(harness.RepoRoot(t), "integration", "fixtures", "workspace-min")
	harness.CopyDir(t, fixture, workspace)

	stdout, stderr, code := harness.Run(t, binPath, runDir, []string{"--help"})
	if code != 0 {
		t.Fatalf("hublocal --help exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout+stderr, "organizational KPI and goal tracking") {
		t.Fatalf("expected help output to include header\nstdout:\n%s\nstderr:\n%s", stdout, stderr)
	}

	if _, _, code = harness.Run(t, binPath, runDir, []string{"init", "--workspace", workspace}); code != 0 {
		t.Fatalf("hublocal init exit code %d", code)
	}

	// The fixture config narrows the departments to OPS and JUR.
	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{"config", "show", "--workspace", workspace})
	if code != 0 {
		t.Fatalf("hublocal config show exit code %d\nstderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, `"JUR"`) {
		t.Fatalf("expected fixture department JUR in config\nstdout:\n%s", stdout)
	}
	if strings.Contains(stdout, `"FIN"`) {
		t.Fatalf("fixture config should replace the default departments\nstdout:\n%s", stdout)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{
		"kpi", "add",
		"--workspace", workspace,
		"--dept", "JUR",
		"--user-id", "u-1",
		"--user-name", "Ana",
		"--name", "Contracts reviewed",
		"--value", "8",
		"--target", "10",
	})
	if code != 0 {
		t.Fatalf("hublocal kpi add exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{"score", "--workspace", workspace})
	if code != 0 {
		t.Fatalf("hublocal score exit code %d\nstderr:\n%s", code, stderr)
	}
	var report struct {
		Overall     float64 `json:"overall"`
		Departments map[string]struct {
			Score float64 `json:"score"`
		} `json:"departments"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("parse score report: %v\nstdout:\n%s", err, stdout)
	}
	if got := report.Departments["JUR"].Score; got != 80 {
		t.Fatalf("JUR score = %v, want 80", got)
	}

	auditPath := filepath.Join(workspace, "data", "audit.sqlite")
	requireAuditActions(t, auditPath, []string{"Created KPI"})

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{"logs", "--workspace", workspace})
	if code != 0 {
		t.Fatalf("hublocal logs exit code %d\nstderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "Created KPI") || !strings.Contains(stdout, "Ana") {
		t.Fatalf("expected log entry for Ana's KPI\nstdout:\n%s", stdout)
	}
}

func TestSessionScopedByAssignmentsAndViews(t *testing.T) {
	binPath := harness.BuildBinary(t)
	workspace := filepath.Join(t.TempDir(), "workspace-scope")
	runDir := t.TempDir()

	// Two departments plus a read-only Analista role that can see the
	// global dashboard but not every department or the access log.
	cfg := `departments:
  - id: OPS
    name: Operações
    icon: CogIcon
  - id: VD
    name: Venda Direta
    icon: PhoneIcon
rolePermissions:
  Administrador:
    - ALL
  Gestor:
    - view_global_dashboard
    - view_all_departments
    - kpi_create
    - kpi_edit
    - kpi_delete
    - logs_view
  Analista:
    - view_global_dashboard
`
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workspace, "hublocal.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, code := harness.Run(t, binPath, runDir, []string{"init", "--workspace", workspace}); code != 0 {
		t.Fatalf("hublocal init exit code %d", code)
	}
	if _, stderr, code := harness.Run(t, binPath, runDir, []string{
		"kpi", "add",
		"--workspace", workspace,
		"--dept", "OPS",
		"--name", "Uptime",
		"--value", "8",
		"--target", "10",
	}); code != 0 {
		t.Fatalf("hublocal kpi add exit code %d\nstderr:\n%s", code, stderr)
	}

	// A Gestor assigned only to VD cannot mutate OPS.
	stdout, stderr, code := harness.Run(t, binPath, runDir, []string{
		"kpi", "add",
		"--workspace", workspace,
		"--dept", "OPS",
		"--role", "Gestor",
		"--depts", "VD",
		"--name", "Escalations",
	})
	if code == 0 {
		t.Fatalf("expected kpi add outside assignment to fail\nstdout:\n%s", stdout)
	}
	if !strings.Contains(stderr, "not assigned") {
		t.Fatalf("expected assignment error\nstderr:\n%s", stderr)
	}

	// The Analista sees the global rollups, but the per-department
	// breakdown is limited to their assignment.
	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{
		"score", "--workspace", workspace, "--role", "Analista", "--depts", "VD",
	})
	if code != 0 {
		t.Fatalf("hublocal score exit code %d\nstderr:\n%s", code, stderr)
	}
	var report struct {
		Overall     float64                    `json:"overall"`
		Departments map[string]json.RawMessage `json:"departments"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("parse score report: %v\nstdout:\n%s", err, stdout)
	}
	if _, ok := report.Departments["VD"]; !ok {
		t.Fatalf("assigned department missing from report\nstdout:\n%s", stdout)
	}
	if _, ok := report.Departments["OPS"]; ok {
		t.Fatalf("unassigned department leaked into report\nstdout:\n%s", stdout)
	}

	// The access log is gated on logs_view.
	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{
		"logs", "--workspace", workspace, "--role", "Analista",
	})
	if code == 0 {
		t.Fatalf("expected logs to fail for Analista\nstdout:\n%s", stdout)
	}
	if !strings.Contains(stderr, "permission denied") {
		t.Fatalf("expected permission denied error\nstderr:\n%s", stderr)
	}
	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{
		"logs", "--workspace", workspace, "--role", "Gestor",
	})
	if code != 0 {
		t.Fatalf("hublocal logs exit code %d\nstderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "Created KPI") {
		t.Fatalf("expected log entry for the OPS KPI\nstdout:\n%s", stdout)
	}
}

func TestOperationalRoleCannotDelete(t *testing.T) {
	binPath := harness.BuildBinary(t)
	workspace := filepath.Join(t.TempDir(), "workspace-perm")
	runDir := t.TempDir()

	if _, _, code := harness.Run(t, binPath, runDir, []string{"init", "--workspace", workspace}); code != 0 {
		t.Fatalf("hublocal init exit code %d", code)
	}

	stdout, stderr, code := harness.Run(t, binPath, runDir, []string{
		"kpi", "add",
		"--workspace", workspace,
		"--dept", "OPS",
		"--id", "kpi-guard",
		"--name", "Tickets",
		"--value", "10",
		"--target", "20",
	})
	if code != 0 {
		t.Fatalf("hublocal kpi add exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{
		"kpi", "delete",
		"--workspace", workspace,
		"--dept", "OPS",
		"--id", "kpi-guard",
		"--role", "Operacional",
	})
	if code == 0 {
		t.Fatalf("expected delete to fail for Operacional role\nstdout:\n%s", stdout)
	}
	if !strings.Contains(stderr, "permission denied") {
		t.Fatalf("expected permission denied error\nstderr:\n%s", stderr)
	}
}
