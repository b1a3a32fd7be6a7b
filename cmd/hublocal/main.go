package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"hublocal/internal/audit"
	"hublocal/internal/config"
	"hublocal/internal/model"
	"hublocal/internal/notify"
	"hublocal/internal/perm"
	"hublocal/internal/persist"
	"hublocal/internal/score"
	"hublocal/internal/state"
	"hublocal/internal/workspace"
)

const appName = "hublocal"

func main() {
	flag.String("workspace", "", "Path to workspace root")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: organizational KPI and goal tracking\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [command] [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  init        Initialize a new workspace")
		fmt.Fprintln(os.Stderr, "  kpi         Manage KPIs (add, set, delete)")
		fmt.Fprintln(os.Stderr, "  goal        Manage goals (add, set, delete)")
		fmt.Fprintln(os.Stderr, "  checkpoint  Manage timeline checkpoints (set)")
		fmt.Fprintln(os.Stderr, "  weights     Manage score weights (set)")
		fmt.Fprintln(os.Stderr, "  score       Compute and print the score report")
		fmt.Fprintln(os.Stderr, "  snapshot    Manage weekly snapshots (save, list)")
		fmt.Fprintln(os.Stderr, "  backup      Export or restore a full backup")
		fmt.Fprintln(os.Stderr, "  logs        Show recent access log entries")
		fmt.Fprintln(os.Stderr, "  config      Show the active configuration")
		fmt.Fprintln(os.Stderr, "  help        Show this help")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	workspacePath, remaining, err := extractWorkspaceFlag(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	args := remaining
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		flag.Usage()
		return
	}

	switch args[0] {
	case "init":
		err = runInit(args[1:], workspacePath)
	case "kpi":
		err = runKPI(args[1:], workspacePath)
	case "goal":
		err = runGoal(args[1:], workspacePath)
	case "checkpoint":
		err = runCheckpoint(args[1:], workspacePath)
	case "weights":
		err = runWeights(args[1:], workspacePath)
	case "score":
		err = runScore(args[1:], workspacePath)
	case "snapshot":
		err = runSnapshot(args[1:], workspacePath)
	case "backup":
		err = runBackup(args[1:], workspacePath)
	case "logs":
		err = runLogs(args[1:], workspacePath)
	case "config":
		err = runConfig(args[1:], workspacePath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func extractWorkspaceFlag(args []string) (string, []string, error) {
	var workspacePath string
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--workspace" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--workspace requires a value")
			}
			workspacePath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--workspace=") {
			workspacePath = strings.TrimPrefix(arg, "--workspace=")
			continue
		}
		remaining = append(remaining, arg)
	}
	return workspacePath, remaining, nil
}

// session identifies the actor for permission checks and access logs.
type session struct {
	userID   string
	userName string
	role     string
	depts    string
}

func (s *session) register(fs *flag.FlagSet) {
	fs.StringVar(&s.userID, "user-id", "cli", "Acting user id")
	fs.StringVar(&s.userName, "user-name", "CLI", "Acting user display name")
	fs.StringVar(&s.role, "role", "Administrador", "Acting user role")
	fs.StringVar(&s.depts, "depts", model.AllDepartments, "Comma-separated department assignments")
}

func (s *session) user() model.User {
	var assigned []string
	for _, part := range strings.Split(s.depts, ",") {
		if part = strings.TrimSpace(part); part != "" {
			assigned = append(assigned, part)
		}
	}
	return model.User{
		ID:                  s.userID,
		Name:                s.userName,
		Role:                s.role,
		AssignedDepartments: assigned,
	}
}

// app bundles the opened workspace with a hydrated store and its
// persistence gateway. Callers must invoke close when done.
type app struct {
	ws      *workspace.Workspace
	store   *state.Store
	gateway *persist.Gateway
	closed  bool
}

// openApp resolves the workspace, loads the configuration, seeds and
// hydrates state from the database, and signs in the session user.
func openApp(workspacePath string, sess *session) (*app, error) {
	root := strings.TrimSpace(workspacePath)
	if root == "" {
		return nil, fmt.Errorf("--workspace is required")
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return nil, err
	}
	if err := ws.EnsureDirs(); err != nil {
		return nil, err
	}

	configPath := ""
	if _, err := os.Stat(ws.ConfigPath); err == nil {
		configPath = ws.ConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	st := state.New(logger)
	gw := persist.NewGateway(st)
	notifier := &notify.Notifier{Enabled: os.Getenv("HUBLOCAL_NOTIFY") == "1"}
	gw.Warnf = func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
		title, message := notify.FormatSaveFailed(ws.Root, fmt.Errorf(format, args...))
		_ = notifier.Send(title, message)
	}
	if err := gw.Start(ws.StateDBPath, config.SeedDataFor(cfg), config.SeedWeightsFor(cfg), cfg); err != nil {
		return nil, err
	}
	st.Login(sess.user())
	return &app{ws: ws, store: st, gateway: gw}, nil
}

// close flushes any pending save before releasing the database. It is
// safe to call more than once so commands can both defer it and check
// its error on the success path.
func (a *app) close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	flushErr := a.gateway.Flush()
	closeErr := a.gateway.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func runInit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}

	root, err := workspace.ResolveRoot(workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}

	sess := &session{userID: "cli", userName: "CLI", role: "Administrador", depts: model.AllDepartments}
	a, err := openApp(root, sess)
	if err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Initialized workspace: %s\n", a.ws.Root)
	fmt.Fprintln(os.Stdout, "Next steps:")
	fmt.Fprintf(os.Stdout, "  %s score --workspace %s\n", appName, a.ws.Root)
	fmt.Fprintf(os.Stdout, "  %s kpi add --workspace %s --dept OPS --name \"Uptime\" --value 99 --target 99.9\n", appName, a.ws.Root)
	fmt.Fprintf(os.Stdout, "  %s snapshot save --workspace %s\n", appName, a.ws.Root)
	return nil
}

func runKPI(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s kpi: missing subcommand (add, set, delete)", appName)
	}

	switch args[0] {
	case "add":
		return runKPIAdd(args[1:], workspacePath)
	case "set":
		return runKPISet(args[1:], workspacePath)
	case "delete":
		return runKPIDelete(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s kpi: unknown subcommand %q", appName, args[0])
	}
}

func runKPIAdd(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("kpi add", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	deptID := fs.String("dept", "", "Department id")
	id := fs.String("id", "", "KPI id (default: generated)")
	name := fs.String("name", "", "KPI name")
	value := fs.Float64("value", 0, "Current value")
	target := fs.Float64("target", 0, "Target value")
	unit := fs.String("unit", string(model.UnitNumber), "Unit (currency, percent, number, rating)")
	trend := fs.String("trend", string(model.TrendUp), "Favorable direction (up, down)")
	icon := fs.String("icon", "", "Optional icon name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deptID == "" {
		return fmt.Errorf("--dept is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if *id == "" {
		*id = uuid.NewString()
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	kpi := model.KPI{
		ID:     *id,
		Name:   *name,
		Value:  *value,
		Target: *target,
		Unit:   model.Unit(*unit),
		Trend:  model.Trend(*trend),
		Icon:   *icon,
	}
	if err := a.store.AddKPI(*deptID, kpi); err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Added KPI %s to %s\n", kpi.ID, *deptID)
	return nil
}

func runKPISet(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("kpi set", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	deptID := fs.String("dept", "", "Department id")
	id := fs.String("id", "", "KPI id")
	name := fs.String("name", "", "KPI name")
	value := fs.Float64("value", 0, "Current value")
	target := fs.Float64("target", 0, "Target value")
	unit := fs.String("unit", "", "Unit (currency, percent, number, rating)")
	trend := fs.String("trend", "", "Favorable direction (up, down)")
	icon := fs.String("icon", "", "Icon name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deptID == "" || *id == "" {
		return fmt.Errorf("--dept and --id are required")
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	dept, ok := a.store.Department(*deptID)
	if !ok {
		return fmt.Errorf("unknown department: %s", *deptID)
	}
	var kpi *model.KPI
	for i := range dept.KPIs {
		if dept.KPIs[i].ID == *id {
			kpi = &dept.KPIs[i]
			break
		}
	}
	if kpi == nil {
		return fmt.Errorf("unknown KPI: %s", *id)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["name"] {
		kpi.Name = *name
	}
	if set["value"] {
		kpi.Value = *value
	}
	if set["target"] {
		kpi.Target = *target
	}
	if set["unit"] {
		kpi.Unit = model.Unit(*unit)
	}
	if set["trend"] {
		kpi.Trend = model.Trend(*trend)
	}
	if set["icon"] {
		kpi.Icon = *icon
	}

	if err := a.store.UpdateKPI(*deptID, *kpi); err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Updated KPI %s in %s\n", *id, *deptID)
	return nil
}

func runKPIDelete(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("kpi delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	deptID := fs.String("dept", "", "Department id")
	id := fs.String("id", "", "KPI id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deptID == "" || *id == "" {
		return fmt.Errorf("--dept and --id are required")
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.DeleteKPI(*deptID, *id); err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted KPI %s from %s\n", *id, *deptID)
	return nil
}

func runGoal(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s goal: missing subcommand (add, set, delete)", appName)
	}

	switch args[0] {
	case "add":
		return runGoalAdd(args[1:], workspacePath)
	case "set":
		return runGoalSet(args[1:], workspacePath)
	case "delete":
		return runGoalDelete(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s goal: unknown subcommand %q", appName, args[0])
	}
}

func loadGoalFile(path string) (model.Goal, error) {
	var goal model.Goal
	raw, err := os.ReadFile(path)
	if err != nil {
		return goal, fmt.Errorf("read goal file: %w", err)
	}
	if err := json.Unmarshal(raw, &goal); err != nil {
		return goal, fmt.Errorf("parse goal file: %w", err)
	}
	return goal, nil
}

// defaultGoalStatus picks the status a fresh goal starts in: Planejado
// when configured, otherwise the lexically first configured status id.
func defaultGoalStatus(cfg model.AppConfig) string {
	if _, ok := cfg.Statuses["Planejado"]; ok {
		return "Planejado"
	}
	ids := make([]string, 0, len(cfg.Statuses))
	for id := range cfg.Statuses {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)
	return ids[0]
}

func runGoalAdd(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("goal add", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	deptID := fs.String("dept", "", "Department id")
	fromFile := fs.String("from-file", "", "Read the full goal as JSON from a file")
	id := fs.String("id", "", "Goal id (default: generated)")
	title := fs.String("title", "", "Goal title")
	category := fs.String("category", "", "Goal category id")
	status := fs.String("status", "", "Goal status id (default: first configured status)")
	progress := fs.Float64("progress", 0, "Progress (manual strategy)")
	calc := fs.String("calc", string(model.CalcManual), "Calculation strategy (manual, quantitative, milestone)")
	current := fs.Float64("current", 0, "Current value (quantitative strategy)")
	target := fs.Float64("target", 0, "Target value (quantitative strategy)")
	metricUnit := fs.String("metric-unit", "", "Metric unit label (quantitative strategy)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deptID == "" {
		return fmt.Errorf("--dept is required")
	}

	var goal model.Goal
	if *fromFile != "" {
		loaded, err := loadGoalFile(*fromFile)
		if err != nil {
			return err
		}
		goal = loaded
	} else {
		if *title == "" {
			return fmt.Errorf("--title is required")
		}
		goal = model.Goal{
			ID:              *id,
			Title:           *title,
			Category:        *category,
			Status:          *status,
			Progress:        *progress,
			CalculationType: model.CalculationType(*calc),
			CurrentValue:    *current,
			TargetValue:     *target,
			MetricUnit:      *metricUnit,
		}
	}
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	if goal.Status == "" {
		goal.Status = defaultGoalStatus(a.store.Config())
	}
	if err := a.store.AddGoal(*deptID, goal); err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Added goal %s to %s\n", goal.ID, *deptID)
	return nil
}

func runGoalSet(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("goal set", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	deptID := fs.String("dept", "", "Department id")
	fromFile := fs.String("from-file", "", "Read the full goal as JSON from a file")
	id := fs.String("id", "", "Goal id")
	title := fs.String("title", "", "Goal title")
	category := fs.String("category", "", "Goal category id")
	status := fs.String("status", "", "Goal status id")
	progress := fs.Float64("progress", 0, "Progress (manual strategy)")
	calc := fs.String("calc", "", "Calculation strategy (manual, quantitative, milestone)")
	current := fs.Float64("current", 0, "Current value (quantitative strategy)")
	target := fs.Float64("target", 0, "Target value (quantitative strategy)")
	metricUnit := fs.String("metric-unit", "", "Metric unit label (quantitative strategy)")
	notes := fs.String("notes", "", "Free-form notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deptID == "" {
		return fmt.Errorf("--dept is required")
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	if *fromFile != "" {
		goal, err := loadGoalFile(*fromFile)
		if err != nil {
			return err
		}
		if goal.ID == "" {
			return fmt.Errorf("goal file must carry an id")
		}
		if err := a.store.UpdateGoal(*deptID, goal); err != nil {
			return err
		}
		if err := a.close(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Updated goal %s in %s\n", goal.ID, *deptID)
		return nil
	}

	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	dept, ok := a.store.Department(*deptID)
	if !ok {
		return fmt.Errorf("unknown department: %s", *deptID)
	}
	var goal *model.Goal
	for i := range dept.Goals {
		if dept.Goals[i].ID == *id {
			goal = &dept.Goals[i]
			break
		}
	}
	if goal == nil {
		return fmt.Errorf("unknown goal: %s", *id)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["title"] {
		goal.Title = *title
	}
	if set["category"] {
		goal.Category = *category
	}
	if set["status"] {
		goal.Status = *status
	}
	if set["progress"] {
		goal.Progress = *progress
	}
	if set["calc"] {
		goal.CalculationType = model.CalculationType(*calc)
	}
	if set["current"] {
		goal.CurrentValue = *current
	}
	if set["target"] {
		goal.TargetValue = *target
	}
	if set["metric-unit"] {
		goal.MetricUnit = *metricUnit
	}
	if set["notes"] {
		goal.Notes = *notes
	}

	if err := a.store.UpdateGoal(*deptID, *goal); err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Updated goal %s in %s\n", *id, *deptID)
	return nil
}

func runGoalDelete(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("goal delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	deptID := fs.String("dept", "", "Department id")
	id := fs.String("id", "", "Goal id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deptID == "" || *id == "" {
		return fmt.Errorf("--dept and --id are required")
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.DeleteGoal(*deptID, *id); err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted goal %s from %s\n", *id, *deptID)
	return nil
}

func runCheckpoint(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s checkpoint: missing subcommand (set)", appName)
	}
	switch args[0] {
	case "set":
		return runCheckpointSet(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s checkpoint: unknown subcommand %q", appName, args[0])
	}
}

func runCheckpointSet(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("checkpoint set", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	deptID := fs.String("dept", "", "Department id")
	id := fs.String("id", "", "Checkpoint id (default: generated)")
	date := fs.String("date", "", "Checkpoint date (YYYY-MM-DD, default: today)")
	completed := fs.Bool("completed", false, "Mark the checkpoint completed")
	notes := fs.String("notes", "", "Free-form notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deptID == "" {
		return fmt.Errorf("--dept is required")
	}
	if *id == "" {
		*id = uuid.NewString()
	}
	if *date == "" {
		*date = time.Now().Format("2006-01-02")
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	cp := model.Checkpoint{ID: *id, Date: *date, Completed: *completed, Notes: *notes}
	if err := a.store.UpdateCheckpoint(*deptID, cp); err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Set checkpoint %s in %s\n", *id, *deptID)
	return nil
}

func runWeights(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s weights: missing subcommand (set)", appName)
	}
	switch args[0] {
	case "set":
		return runWeightsSet(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s weights: unknown subcommand %q", appName, args[0])
	}
}

func runWeightsSet(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("weights set", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	deptID := fs.String("dept", "", "Department id")
	fromFile := fs.String("from-file", "", "Read the full weight config as JSON from a file")
	kpiWeight := fs.Float64("kpi-weight", 0, "KPI block weight (percent)")
	goalWeight := fs.Float64("goal-weight", 0, "Goal block weight (percent)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deptID == "" {
		return fmt.Errorf("--dept is required")
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	weights := a.store.DepartmentWeights(*deptID)
	if *fromFile != "" {
		raw, err := os.ReadFile(*fromFile)
		if err != nil {
			return fmt.Errorf("read weights file: %w", err)
		}
		if err := json.Unmarshal(raw, &weights); err != nil {
			return fmt.Errorf("parse weights file: %w", err)
		}
	} else {
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if set["kpi-weight"] {
			weights.KPIWeight = *kpiWeight
		}
		if set["goal-weight"] {
			weights.GoalWeight = *goalWeight
		}
	}

	if err := a.store.UpdateWeights(*deptID, weights); err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Updated weights for %s (KPIs %s%%, goals %s%%)\n",
		*deptID, trimFloat(weights.KPIWeight), trimFloat(weights.GoalWeight))
	return nil
}

// scoreReport is the JSON shape emitted by the score command.
type scoreReport struct {
	GeneratedAt string                     `json:"generatedAt"`
	Overall     float64                    `json:"overall"`
	Departments map[string]score.DeptScore `json:"departments"`
	Categories  map[string]float64         `json:"categories"`
}

func runScore(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	achievementCap := fs.Float64("cap", score.DefaultAchievementCap, "Maximum KPI achievement percentage")
	output := fs.String("output", "", "Write the report to a file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.store.Has(perm.ViewGlobalDashboard) {
		return fmt.Errorf("score report: %w", state.ErrPermissionDenied)
	}

	pol := score.Policy{AchievementCap: *achievementCap}
	cfg := a.store.Config()
	data := a.store.Data()
	weights := a.store.Weights()

	report := scoreReport{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Overall:     score.OverallScore(cfg, data, weights, pol),
		Departments: make(map[string]score.DeptScore, len(data)),
		Categories:  score.CategoryScores(data, weights),
	}
	// The per-department breakdown is scoped to what the session user
	// may see; the rollups above are the global dashboard.
	user := a.store.CurrentUser()
	seeAll := a.store.Has(perm.ViewAllDepartments)
	for id, dept := range data {
		if !seeAll && (user == nil || !user.AssignedTo(id)) {
			continue
		}
		report.Departments[id] = score.DepartmentScore(dept, weights[id], pol)
	}

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal score report: %w", err)
	}
	raw = append(raw, '\n')

	if *output == "" {
		_, err = os.Stdout.Write(raw)
		return err
	}
	outPath, err := a.ws.ResolvePath(*output)
	if err != nil {
		return fmt.Errorf("resolve --output: %w", err)
	}
	if err := os.WriteFile(outPath, raw, 0o644); err != nil {
		return fmt.Errorf("write score report: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Wrote score report: %s\n", outPath)
	return nil
}

func runSnapshot(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s snapshot: missing subcommand (save, list)", appName)
	}
	switch args[0] {
	case "save":
		return runSnapshotSave(args[1:], workspacePath)
	case "list":
		return runSnapshotList(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s snapshot: unknown subcommand %q", appName, args[0])
	}
}

func runSnapshotSave(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("snapshot save", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	id := fs.String("id", "", "Snapshot id (default: generated; reusing an id replaces it)")
	week := fs.String("week", "", "Week label (default: Week <ISO week>)")
	achievementCap := fs.Float64("cap", score.DefaultAchievementCap, "Maximum KPI achievement percentage")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	now := time.Now()
	if *id == "" {
		*id = uuid.NewString()
	}
	if *week == "" {
		_, isoWeek := now.ISOWeek()
		*week = fmt.Sprintf("Week %d", isoWeek)
	}

	pol := score.Policy{AchievementCap: *achievementCap}
	snap := score.BuildSnapshot(*id, now.Format("2006-01-02"), *week, now.UnixMilli(),
		a.store.Config(), a.store.Data(), a.store.Weights(), pol)
	if err := a.store.SaveSnapshot(snap); err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Saved snapshot %s (%s, overall %s)\n", snap.ID, snap.WeekLabel, trimFloat(snap.OverallScore))
	return nil
}

func runSnapshotList(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("snapshot list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	asJSON := fs.Bool("json", false, "Emit snapshots as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	snaps := a.store.Snapshots()
	if *asJSON {
		raw, err := json.MarshalIndent(snaps, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal snapshots: %w", err)
		}
		raw = append(raw, '\n')
		_, err = os.Stdout.Write(raw)
		return err
	}

	fmt.Fprintf(os.Stdout, "Snapshots: %d\n", len(snaps))
	for _, snap := range snaps {
		fmt.Fprintf(os.Stdout, "  %s %s [%s] overall=%s\n", snap.Date, snap.WeekLabel, snap.ID, trimFloat(snap.OverallScore))
	}
	return nil
}

func runBackup(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s backup: missing subcommand (export, restore)", appName)
	}
	switch args[0] {
	case "export":
		return runBackupExport(args[1:], workspacePath)
	case "restore":
		return runBackupRestore(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s backup: unknown subcommand %q", appName, args[0])
	}
}

func runBackupExport(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("backup export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	output := fs.String("output", "", "Output path (default: <workspace>/backups/backup_<date>.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	raw, err := a.gateway.ExportJSON()
	if err != nil {
		return err
	}
	outPath := *output
	if outPath == "" {
		outPath = fmt.Sprintf("backups/backup_%s.json", time.Now().Format("2006-01-02"))
	}
	outPath, err = a.ws.ResolvePath(outPath)
	if err != nil {
		return fmt.Errorf("resolve --output: %w", err)
	}
	if err := os.WriteFile(outPath, raw, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Wrote backup: %s\n", outPath)
	return nil
}

func runBackupRestore(args []string, workspacePath string) error {
	backupArg := ""
	remaining := args
	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		backupArg = remaining[0]
		remaining = remaining[1:]
	}

	fs := flag.NewFlagSet("backup restore", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	diff := fs.Bool("diff", false, "Preview the restore as a unified diff without applying")
	if err := fs.Parse(remaining); err != nil {
		return err
	}
	if backupArg == "" {
		rest := fs.Args()
		if len(rest) == 0 {
			return fmt.Errorf("backup path is required")
		}
		backupArg = rest[0]
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	backupPath, err := a.ws.ResolvePath(backupArg)
	if err != nil {
		return fmt.Errorf("resolve backup path: %w", err)
	}
	raw, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	backup, err := persist.ParseBackup(raw)
	if err != nil {
		return err
	}

	if *diff {
		text, err := a.gateway.RestoreDiff(backup)
		if err != nil {
			return err
		}
		if text == "" {
			fmt.Fprintln(os.Stdout, "No changes.")
			return nil
		}
		fmt.Fprint(os.Stdout, text)
		return nil
	}

	if err := a.gateway.Restore(backup); err != nil {
		return err
	}
	if err := a.close(); err != nil {
		return err
	}

	sections := 0
	if backup.Data != nil {
		sections++
	}
	if backup.Weights != nil {
		sections++
	}
	if backup.Config != nil {
		sections++
	}
	if backup.Snapshots != nil {
		sections++
	}
	notifier := &notify.Notifier{Enabled: os.Getenv("HUBLOCAL_NOTIFY") == "1"}
	title, message := notify.FormatRestoreComplete(a.ws.Root, sections)
	_ = notifier.Send(title, message)

	fmt.Fprintf(os.Stdout, "Restored backup: %s\n", backupPath)
	return nil
}

func runLogs(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	limit := fs.Int("limit", 20, "Maximum entries to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.store.Has(perm.LogsView) {
		return fmt.Errorf("access log: %w", state.ErrPermissionDenied)
	}

	logger := audit.NewLogger(a.ws.AuditDBPath)
	entries, err := logger.ListRecent(*limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Access log entries: %d\n", len(entries))
	for _, e := range entries {
		details := e.Details
		if details != "" {
			details = " " + details
		}
		fmt.Fprintf(os.Stdout, "  %s %s [%s] %s (%s):%s\n", e.Date, e.Time, e.Type, e.Action, e.UserName, details)
	}
	return nil
}

func runConfig(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s config: missing subcommand (show)", appName)
	}
	switch args[0] {
	case "show":
		return runConfigShow(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s config: unknown subcommand %q", appName, args[0])
	}
}

func runConfigShow(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sess := &session{}
	sess.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(workspacePath, sess)
	if err != nil {
		return err
	}
	defer a.close()

	raw, err := json.MarshalIndent(a.store.Config(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	raw = append(raw, '\n')
	_, err = os.Stdout.Write(raw)
	return err
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
