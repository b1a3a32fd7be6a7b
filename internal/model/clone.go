package model

// The store never mutates a department or weight record in place; every
// mutation produces a structural copy so before/after values stay
// distinguishable for downstream change detection.

// Clone returns a structural copy of the goal, including milestones.
func (g Goal) Clone() Goal {
	out := g
	if g.Milestones != nil {
		out.Milestones = make([]Milestone, len(g.Milestones))
		copy(out.Milestones, g.Milestones)
	}
	return out
}

// Clone returns a structural copy of the department and everything in it.
func (d Department) Clone() Department {
	out := d
	if d.KPIs != nil {
		out.KPIs = make([]KPI, len(d.KPIs))
		copy(out.KPIs, d.KPIs)
	}
	if d.Goals != nil {
		out.Goals = make([]Goal, 0, len(d.Goals))
		for _, g := range d.Goals {
			out.Goals = append(out.Goals, g.Clone())
		}
	}
	if d.Checkpoints != nil {
		out.Checkpoints = make([]Checkpoint, len(d.Checkpoints))
		copy(out.Checkpoints, d.Checkpoints)
	}
	return out
}

// Clone returns a structural copy of the weight configuration.
func (w WeightConfig) Clone() WeightConfig {
	out := w
	out.KPIs = cloneFloatMap(w.KPIs)
	out.Goals = cloneFloatMap(w.Goals)
	return out
}

// Clone returns a structural copy of the config.
func (c AppConfig) Clone() AppConfig {
	out := c
	if c.Departments != nil {
		out.Departments = make([]DepartmentMeta, len(c.Departments))
		copy(out.Departments, c.Departments)
	}
	if c.Categories != nil {
		out.Categories = make(map[string]CategoryMeta, len(c.Categories))
		for k, v := range c.Categories {
			out.Categories[k] = v
		}
	}
	if c.Statuses != nil {
		out.Statuses = make(map[string]StatusMeta, len(c.Statuses))
		for k, v := range c.Statuses {
			out.Statuses[k] = v
		}
	}
	if c.RolePermissions != nil {
		out.RolePermissions = make(map[string][]string, len(c.RolePermissions))
		for role, perms := range c.RolePermissions {
			cp := make([]string, len(perms))
			copy(cp, perms)
			out.RolePermissions[role] = cp
		}
	}
	return out
}

// Clone returns a structural copy of the snapshot.
func (s WeeklySnapshot) Clone() WeeklySnapshot {
	out := s
	out.DepartmentScores = cloneFloatMap(s.DepartmentScores)
	out.CategoryScores = cloneFloatMap(s.CategoryScores)
	return out
}

// CloneData copies a department map. Entries are copied shallowly: the
// mutation pipeline replaces whole entries, so sharing unreplaced
// entries between copies is safe.
func CloneData(data map[string]Department) map[string]Department {
	if data == nil {
		return nil
	}
	out := make(map[string]Department, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// CloneWeights copies a weight map, entries shared as in CloneData.
func CloneWeights(weights map[string]WeightConfig) map[string]WeightConfig {
	if weights == nil {
		return nil
	}
	out := make(map[string]WeightConfig, len(weights))
	for k, v := range weights {
		out[k] = v
	}
	return out
}

// CloneSnapshots copies a snapshot list.
func CloneSnapshots(snaps []WeeklySnapshot) []WeeklySnapshot {
	if snaps == nil {
		return nil
	}
	out := make([]WeeklySnapshot, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.Clone())
	}
	return out
}

func cloneFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
