package state

import (
	"errors"
	"fmt"
	"sync"

	"hublocal/internal/model"
	"hublocal/internal/perm"
)

// ErrPermissionDenied is returned by delete operations when the session
// user lacks the required permission. Create and update operations
// silently no-op on denial instead; the asymmetry is deliberate and
// matches the product's behavior.
var ErrPermissionDenied = errors.New("permission denied")

// ErrUnknownDepartment is returned when a mutation targets a department
// id with no data entry.
var ErrUnknownDepartment = errors.New("unknown department")

// ErrNotAssigned is returned when a mutation targets a department
// outside the session user's assignments. Unlike a missing permission,
// the target was named explicitly, so the denial is always reported.
var ErrNotAssigned = errors.New("department not assigned")

// AuditSink receives one entry per successful mutation.
type AuditSink interface {
	LogAction(user model.User, action, details string, severity model.Severity) error
}

// Store owns the live in-memory representation: department data,
// weight configurations, the organizational config, the snapshot
// history, and the session user. All mutations flow through the
// permission gate and the user's department assignments, produce
// structural copies (never in-place edits), emit an audit entry, and
// return synchronously; persistence is decoupled through the change
// hooks.
type Store struct {
	mu sync.Mutex

	data      map[string]model.Department
	weights   map[string]model.WeightConfig
	config    model.AppConfig
	snapshots []model.WeeklySnapshot

	user     *model.User
	resolver *perm.Resolver

	audit      AuditSink
	onChange   func()
	onSnapshot func(model.WeeklySnapshot)
}

// New returns a store pre-populated with the built-in defaults, the
// same values the persistence gateway seeds an empty store with.
func New(audit AuditSink) *Store {
	cfg := model.InitialConfig()
	return &Store{
		data:     model.InitialData(),
		weights:  model.DefaultWeights(),
		config:   cfg,
		audit:    audit,
		resolver: perm.NewResolver(cfg.RolePermissions),
	}
}

// SetOnChange registers the hook invoked after every mutation of data,
// weights, or config.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetOnSnapshot registers the hook invoked when a snapshot is saved.
func (s *Store) SetOnSnapshot(fn func(model.WeeklySnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSnapshot = fn
}

// Hydrate replaces in-memory state with values loaded from the
// persistent store. Nil arguments leave the corresponding defaults in
// place.
func (s *Store) Hydrate(data map[string]model.Department, weights map[string]model.WeightConfig, config *model.AppConfig, snapshots []model.WeeklySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data != nil {
		s.data = data
	}
	if weights != nil {
		s.weights = weights
	}
	if config != nil {
		s.config = *config
		s.resolver = perm.NewResolver(config.RolePermissions)
	}
	if snapshots != nil {
		s.snapshots = snapshots
	}
}

// Login installs the session user.
func (s *Store) Login(user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.user = &u
}

// Logout drops the session user and records the departure.
func (s *Store) Logout() {
	s.mu.Lock()
	user := s.user
	s.user = nil
	s.mu.Unlock()
	if user != nil {
		s.logAction(*user, "Logout", "Signed out", model.SeverityInfo)
	}
}

// CurrentUser returns the session user, nil when logged out.
func (s *Store) CurrentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Has reports whether the session user holds the permission.
func (s *Store) Has(p perm.Permission) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Has(s.user, p)
}

// Data returns a copy of the department map.
func (s *Store) Data() map[string]model.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneData(s.data)
}

// Weights returns a copy of the weight map.
func (s *Store) Weights() map[string]model.WeightConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneWeights(s.weights)
}

// Config returns a copy of the organizational config.
func (s *Store) Config() model.AppConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Clone()
}

// Snapshots returns a copy of the snapshot history, ascending by
// timestamp.
func (s *Store) Snapshots() []model.WeeklySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneSnapshots(s.snapshots)
}

// Department returns one department's data by id.
func (s *Store) Department(deptID string) (model.Department, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dept, ok := s.data[deptID]
	if !ok {
		return model.Department{}, false
	}
	return dept.Clone(), true
}

// DepartmentWeights returns the weight configuration for a department,
// falling back to the 50/50 default when none is stored.
func (s *Store) DepartmentWeights(deptID string) model.WeightConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weights[deptID]
	if !ok {
		return model.DefaultWeightConfig()
	}
	return w.Clone()
}

// AddKPI appends a KPI to the department. Denied sessions no-op.
func (s *Store) AddKPI(deptID string, kpi model.KPI) error {
	s.mu.Lock()
	if !s.resolver.Has(s.user, perm.KPICreate) {
		s.mu.Unlock()
		return nil
	}
	if !s.user.AssignedTo(deptID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAssigned, deptID)
	}
	dept, ok := s.data[deptID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDepartment, deptID)
	}
	next := dept.Clone()
	next.KPIs = append(next.KPIs, kpi)
	s.replaceDept(deptID, next)
	user := *s.user
	s.mu.Unlock()

	s.logAction(user, "Created KPI", fmt.Sprintf("Added %q to %s", kpi.Name, deptID), model.SeveritySuccess)
	s.notifyChange()
	return nil
}

// UpdateKPI replaces the KPI with the same id. Denied sessions no-op;
// an id with no match leaves the department untouched.
func (s *Store) UpdateKPI(deptID string, kpi model.KPI) error {
	s.mu.Lock()
	if !s.resolver.Has(s.user, perm.KPIEdit) {
		s.mu.Unlock()
		return nil
	}
	if !s.user.AssignedTo(deptID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAssigned, deptID)
	}
	dept, ok := s.data[deptID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDepartment, deptID)
	}
	next := dept.Clone()
	for i := range next.KPIs {
		if next.KPIs[i].ID == kpi.ID {
			next.KPIs[i] = kpi
		}
	}
	s.replaceDept(deptID, next)
	user := *s.user
	s.mu.Unlock()

	s.logAction(user, "Updated KPI", fmt.Sprintf("Edited %q in %s", kpi.Name, deptID), model.SeverityInfo)
	s.notifyChange()
	return nil
}

// DeleteKPI removes a KPI. On denial it returns ErrPermissionDenied so
// the surface can tell the user, and writes no audit entry.
func (s *Store) DeleteKPI(deptID, kpiID string) error {
	s.mu.Lock()
	if !s.resolver.Has(s.user, perm.KPIDelete) {
		s.mu.Unlock()
		return ErrPermissionDenied
	}
	if !s.user.AssignedTo(deptID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAssigned, deptID)
	}
	dept, ok := s.data[deptID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDepartment, deptID)
	}
	// Resolve the display name before removal so the audit entry stays
	// readable after the entity is gone.
	name := "KPI"
	for _, k := range dept.KPIs {
		if k.ID == kpiID {
			name = k.Name
		}
	}
	next := dept.Clone()
	kept := next.KPIs[:0]
	for _, k := range next.KPIs {
		if k.ID != kpiID {
			kept = append(kept, k)
		}
	}
	next.KPIs = kept
	s.replaceDept(deptID, next)
	user := *s.user
	s.mu.Unlock()

	s.logAction(user, "Deleted KPI", fmt.Sprintf("Removed %q from %s", name, deptID), model.SeverityWarning)
	s.notifyChange()
	return nil
}

// AddGoal appends a goal to the department. Denied sessions no-op.
func (s *Store) AddGoal(deptID string, goal model.Goal) error {
	s.mu.Lock()
	if !s.resolver.Has(s.user, perm.GoalCreate) {
		s.mu.Unlock()
		return nil
	}
	if !s.user.AssignedTo(deptID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAssigned, deptID)
	}
	dept, ok := s.data[deptID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDepartment, deptID)
	}
	next := dept.Clone()
	next.Goals = append(next.Goals, goal.Clone())
	s.replaceDept(deptID, next)
	user := *s.user
	s.mu.Unlock()

	s.logAction(user, "Created goal", fmt.Sprintf("Added %q to %s", goal.Title, deptID), model.SeveritySuccess)
	s.notifyChange()
	return nil
}

// UpdateGoal replaces the goal with the same id. Denied sessions no-op.
func (s *Store) UpdateGoal(deptID string, goal model.Goal) error {
	s.mu.Lock()
	if !s.resolver.Has(s.user, perm.GoalEdit) {
		s.mu.Unlock()
		return nil
	}
	if !s.user.AssignedTo(deptID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAssigned, deptID)
	}
	dept, ok := s.data[deptID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDepartment, deptID)
	}
	next := dept.Clone()
	for i := range next.Goals {
		if next.Goals[i].ID == goal.ID {
			next.Goals[i] = goal.Clone()
		}
	}
	s.replaceDept(deptID, next)
	user := *s.user
	s.mu.Unlock()

	s.logAction(user, "Updated goal", fmt.Sprintf("Edited %q in %s", goal.Title, deptID), model.SeverityInfo)
	s.notifyChange()
	return nil
}

// DeleteGoal removes a goal. On denial it returns ErrPermissionDenied
// and writes no audit entry.
func (s *Store) DeleteGoal(deptID, goalID string) error {
	s.mu.Lock()
	if !s.resolver.Has(s.user, perm.GoalDelete) {
		s.mu.Unlock()
		return ErrPermissionDenied
	}
	if !s.user.AssignedTo(deptID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAssigned, deptID)
	}
	dept, ok := s.data[deptID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDepartment, deptID)
	}
	title := "Goal"
	for _, g := range dept.Goals {
		if g.ID == goalID {
			title = g.Title
		}
	}
	next := dept.Clone()
	kept := next.Goals[:0]
	for _, g := range next.Goals {
		if g.ID != goalID {
			kept = append(kept, g)
		}
	}
	next.Goals = kept
	s.replaceDept(deptID, next)
	user := *s.user
	s.mu.Unlock()

	s.logAction(user, "Deleted goal", fmt.Sprintf("Removed %q from %s", title, deptID), model.SeverityWarning)
	s.notifyChange()
	return nil
}

// UpdateCheckpoint replaces the checkpoint with the same id. Denied
// sessions no-op.
func (s *Store) UpdateCheckpoint(deptID string, cp model.Checkpoint) error {
	s.mu.Lock()
	if !s.resolver.Has(s.user, perm.CheckpointEdit) {
		s.mu.Unlock()
		return nil
	}
	if !s.user.AssignedTo(deptID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAssigned, deptID)
	}
	dept, ok := s.data[deptID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDepartment, deptID)
	}
	next := dept.Clone()
	found := false
	for i := range next.Checkpoints {
		if next.Checkpoints[i].ID == cp.ID {
			next.Checkpoints[i] = cp
			found = true
		}
	}
	if !found {
		next.Checkpoints = append(next.Checkpoints, cp)
	}
	s.replaceDept(deptID, next)
	user := *s.user
	s.mu.Unlock()

	s.logAction(user, "Timeline", fmt.Sprintf("Updated checkpoint in %s", deptID), model.SeverityInfo)
	s.notifyChange()
	return nil
}

// UpdateWeights replaces a department's weight configuration. Denied
// sessions no-op.
func (s *Store) UpdateWeights(deptID string, weights model.WeightConfig) error {
	s.mu.Lock()
	if !s.resolver.Has(s.user, perm.WeightsManage) {
		s.mu.Unlock()
		return nil
	}
	if !s.user.AssignedTo(deptID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAssigned, deptID)
	}
	if _, ok := s.data[deptID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDepartment, deptID)
	}
	s.weights[deptID] = weights.Clone()
	user := *s.user
	s.mu.Unlock()

	s.logAction(user, "Weights", fmt.Sprintf("Reconfigured weights in %s", deptID), model.SeverityWarning)
	s.notifyChange()
	return nil
}

// UpdateConfig replaces the organizational config. Departments newly
// present in the config gain an empty data entry and default weights;
// renamed departments are relabeled in place. Denied sessions no-op.
func (s *Store) UpdateConfig(newConfig model.AppConfig) error {
	s.mu.Lock()
	if !s.resolver.Has(s.user, perm.SettingsManage) {
		s.mu.Unlock()
		return nil
	}
	cfg := newConfig.Clone()
	for _, meta := range cfg.Departments {
		dept, ok := s.data[meta.ID]
		if !ok {
			s.data[meta.ID] = model.Department{
				ID:          meta.ID,
				Name:        meta.Name,
				Label:       meta.Name,
				KPIs:        []model.KPI{},
				Goals:       []model.Goal{},
				Checkpoints: []model.Checkpoint{},
			}
			s.weights[meta.ID] = model.DefaultWeightConfig()
			continue
		}
		if dept.Name != meta.Name {
			next := dept.Clone()
			next.Name = meta.Name
			next.Label = meta.Name
			s.replaceDept(meta.ID, next)
		}
	}
	s.config = cfg
	s.resolver = perm.NewResolver(cfg.RolePermissions)
	user := *s.user
	s.mu.Unlock()

	s.logAction(user, "Global settings", "Updated organizational structure", model.SeverityWarning)
	s.notifyChange()
	return nil
}

// ApplyRestore replaces the provided top-level state fields. Nil fields
// leave existing state untouched. The caller (the persistence gateway)
// is responsible for persisting the applied fields.
func (s *Store) ApplyRestore(data map[string]model.Department, weights map[string]model.WeightConfig, config *model.AppConfig, snapshots []model.WeeklySnapshot) {
	s.mu.Lock()
	if data != nil {
		s.data = data
	}
	if weights != nil {
		s.weights = weights
	}
	if config != nil {
		s.config = *config
		s.resolver = perm.NewResolver(config.RolePermissions)
	}
	if snapshots != nil {
		s.snapshots = snapshots
	}
	user := s.user
	s.mu.Unlock()

	if user != nil {
		s.logAction(*user, "Backup restore", "Restored system data from file", model.SeverityWarning)
	}
	s.notifyChange()
}

// replaceDept swaps only the affected entry; all other departments stay
// referentially unchanged. Callers hold the lock.
func (s *Store) replaceDept(deptID string, dept model.Department) {
	s.data[deptID] = dept
}

func (s *Store) logAction(user model.User, action, details string, severity model.Severity) {
	if s.audit == nil {
		return
	}
	// Audit failures never veto the mutation that triggered them.
	_ = s.audit.LogAction(user, action, details, severity)
}

func (s *Store) notifyChange() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
