package perm

import (
	"sort"
	"strings"

	"hublocal/internal/model"
)

// Permission is one entry of the closed permission set consumed by the
// view layer.
type Permission string

const (
	KPICreate           Permission = "kpi_create"
	KPIEdit             Permission = "kpi_edit"
	KPIDelete           Permission = "kpi_delete"
	GoalCreate          Permission = "goal_create"
	GoalEdit            Permission = "goal_edit"
	GoalDelete          Permission = "goal_delete"
	CheckpointEdit      Permission = "checkpoint_edit"
	WeightsManage       Permission = "weights_manage"
	SettingsManage      Permission = "settings_manage"
	UsersManage         Permission = "users_manage"
	SnapshotCreate      Permission = "snapshot_create"
	ViewAllDepartments  Permission = "view_all_departments"
	ViewGlobalDashboard Permission = "view_global_dashboard"
	LogsView            Permission = "logs_view"
)

// AllSentinel is the config-level value granting every permission.
const AllSentinel = "ALL"

var known = map[Permission]struct{}{
	KPICreate:           {},
	KPIEdit:             {},
	KPIDelete:           {},
	GoalCreate:          {},
	GoalEdit:            {},
	GoalDelete:          {},
	CheckpointEdit:      {},
	WeightsManage:       {},
	SettingsManage:      {},
	UsersManage:         {},
	SnapshotCreate:      {},
	ViewAllDepartments:  {},
	ViewGlobalDashboard: {},
	LogsView:            {},
}

// All returns every permission id in stable order.
func All() []Permission {
	out := make([]Permission, 0, len(known))
	for p := range known {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Known reports whether id is a member of the permission set.
func Known(id Permission) bool {
	_, ok := known[id]
	return ok
}

// Grants is the typed form of one role's permission list. The config
// "ALL" sentinel becomes the All flag so membership checks never depend
// on a magic string.
type Grants struct {
	All   bool
	Perms map[Permission]struct{}
}

// Allows reports whether the grants cover the permission.
func (g Grants) Allows(p Permission) bool {
	if g.All {
		return true
	}
	_, ok := g.Perms[p]
	return ok
}

// List returns the granted permissions in stable order. Returns every
// permission when the grant-all flag is set.
func (g Grants) List() []Permission {
	if g.All {
		return All()
	}
	out := make([]Permission, 0, len(g.Perms))
	for p := range g.Perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseRolePermissions converts raw config grants into the typed
// representation. Unknown permission strings are dropped.
func ParseRolePermissions(raw map[string][]string) map[string]Grants {
	out := make(map[string]Grants, len(raw))
	for role, ids := range raw {
		g := Grants{Perms: make(map[Permission]struct{})}
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == AllSentinel {
				g.All = true
				continue
			}
			if p := Permission(id); Known(p) {
				g.Perms[p] = struct{}{}
			}
		}
		out[role] = g
	}
	return out
}

// Resolver maps a session user's role to its capability set. It is a
// pure lookup: no side effects, fails closed on a missing user or an
// unknown role.
type Resolver struct {
	roles map[string]Grants
}

// NewResolver builds a resolver from the config rolePermissions map.
func NewResolver(rolePermissions map[string][]string) *Resolver {
	return &Resolver{roles: ParseRolePermissions(rolePermissions)}
}

// Has reports whether the user's role grants the permission.
func (r *Resolver) Has(user *model.User, p Permission) bool {
	if r == nil || user == nil {
		return false
	}
	grants, ok := r.roles[user.Role]
	if !ok {
		return false
	}
	return grants.Allows(p)
}

// Grants returns the typed grants for a role, empty if unknown.
func (r *Resolver) Grants(role string) Grants {
	if r == nil {
		return Grants{}
	}
	return r.roles[role]
}
