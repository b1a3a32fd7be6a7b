package score

import (
	"math"

	"hublocal/internal/model"
)

// DefaultAchievementCap caps KPI over-achievement at 100%. Policy may
// raise it (e.g. 150) to reward beating a target.
const DefaultAchievementCap = 100.0

// Policy carries the tunable scoring knobs. The zero value uses the
// defaults.
type Policy struct {
	// AchievementCap is the upper bound for a KPI achievement ratio,
	// expressed as a percentage.
	AchievementCap float64
}

func (p Policy) cap() float64 {
	if p.AchievementCap <= 0 {
		return DefaultAchievementCap
	}
	return p.AchievementCap
}

// GoalProgress computes a goal's canonical 0-100 progress from its
// calculation strategy. An unset or unrecognized strategy behaves as
// manual: the stored progress passes through unchanged.
func GoalProgress(g model.Goal) float64 {
	switch g.CalculationType {
	case model.CalcQuantitative:
		if g.TargetValue == 0 {
			return 0
		}
		return clamp(safeRatio(g.CurrentValue, g.TargetValue)*100, 0, 100)
	case model.CalcMilestone:
		var total float64
		for _, m := range g.Milestones {
			if m.Completed {
				total += m.Weight
			}
		}
		// Guards against milestone weights summing past 100.
		return clamp(total, 0, 100)
	default:
		return g.Progress
	}
}

// KPIAchievement computes a direction-aware achievement percentage.
// Division-by-zero conditions resolve to defined outcomes, never an
// error: a zero target on an up-trend KPI and a zero value on a
// down-trend KPI both count as fully achieved.
func KPIAchievement(k model.KPI, pol Policy) float64 {
	limit := pol.cap()
	if k.Trend == model.TrendDown {
		if k.Value == 0 {
			return 100
		}
		return clamp(safeRatio(k.Target, k.Value)*100, 0, limit)
	}
	if k.Target == 0 {
		return 100
	}
	return clamp(safeRatio(k.Value, k.Target)*100, 0, limit)
}

// DeptScore is the result of scoring one department.
type DeptScore struct {
	Score   float64 `json:"score"`
	KPIAvg  float64 `json:"kpiAvg"`
	GoalAvg float64 `json:"goalAvg"`
	// Empty flags a department with neither KPIs nor goals; its score
	// is 0 but that is a data condition, not an error.
	Empty bool `json:"empty,omitempty"`
}

// DepartmentScore combines the weighted KPI average and the weighted
// goal average under the department's weight configuration. When one
// group is absent the other carries full weight.
func DepartmentScore(dept model.Department, weights model.WeightConfig, pol Policy) DeptScore {
	var out DeptScore

	hasKPIs := len(dept.KPIs) > 0
	hasGoals := len(dept.Goals) > 0

	if hasKPIs {
		out.KPIAvg = weightedAverage(len(dept.KPIs),
			func(i int) float64 { return KPIAchievement(dept.KPIs[i], pol) },
			func(i int) (float64, bool) { w, ok := weights.KPIs[dept.KPIs[i].ID]; return w, ok },
		)
	}
	if hasGoals {
		out.GoalAvg = weightedAverage(len(dept.Goals),
			func(i int) float64 { return GoalProgress(dept.Goals[i]) },
			func(i int) (float64, bool) { w, ok := weights.Goals[dept.Goals[i].ID]; return w, ok },
		)
	}

	switch {
	case hasKPIs && hasGoals:
		out.Score = (out.KPIAvg*weights.KPIWeight + out.GoalAvg*weights.GoalWeight) / 100
	case hasGoals:
		out.Score = out.GoalAvg
	case hasKPIs:
		out.Score = out.KPIAvg
	default:
		out.Empty = true
	}
	return out
}

// CategoryScores averages goal progress per category across every
// department, honoring per-goal weight overrides from the owning
// department's configuration.
func CategoryScores(data map[string]model.Department, weights map[string]model.WeightConfig) map[string]float64 {
	type bucket struct {
		num float64
		den float64
	}
	counts := make(map[string]int)
	for _, dept := range data {
		for _, g := range dept.Goals {
			if g.Category != "" {
				counts[g.Category]++
			}
		}
	}

	buckets := make(map[string]*bucket)
	for deptID, dept := range data {
		overrides := weights[deptID].Goals
		for _, g := range dept.Goals {
			if g.Category == "" {
				continue
			}
			w, ok := overrides[g.ID]
			if !ok {
				w = 100 / float64(counts[g.Category])
			}
			b := buckets[g.Category]
			if b == nil {
				b = &bucket{}
				buckets[g.Category] = b
			}
			b.num += GoalProgress(g) * w
			b.den += w
		}
	}

	out := make(map[string]float64, len(buckets))
	for cat, b := range buckets {
		if b.den == 0 {
			out[cat] = 0
			continue
		}
		out[cat] = b.num / b.den
	}
	return out
}

// OverallScore is the equal-weighted mean of department scores across
// the configured departments that have data.
func OverallScore(cfg model.AppConfig, data map[string]model.Department, weights map[string]model.WeightConfig, pol Policy) float64 {
	var sum float64
	var n int
	for _, meta := range cfg.Departments {
		dept, ok := data[meta.ID]
		if !ok {
			continue
		}
		sum += DepartmentScore(dept, weights[meta.ID], pol).Score
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// BuildSnapshot assembles a point-in-time snapshot of every rollup.
func BuildSnapshot(id, date, weekLabel string, timestamp int64, cfg model.AppConfig, data map[string]model.Department, weights map[string]model.WeightConfig, pol Policy) model.WeeklySnapshot {
	deptScores := make(map[string]float64)
	for _, meta := range cfg.Departments {
		dept, ok := data[meta.ID]
		if !ok {
			continue
		}
		deptScores[meta.ID] = DepartmentScore(dept, weights[meta.ID], pol).Score
	}
	return model.WeeklySnapshot{
		ID:               id,
		Date:             date,
		Timestamp:        timestamp,
		WeekLabel:        weekLabel,
		OverallScore:     OverallScore(cfg, data, weights, pol),
		DepartmentScores: deptScores,
		CategoryScores:   CategoryScores(data, weights),
	}
}

// weightedAverage averages n values where each item either carries an
// explicit override weight or an equal share of 100.
func weightedAverage(n int, value func(int) float64, override func(int) (float64, bool)) float64 {
	if n == 0 {
		return 0
	}
	equal := 100 / float64(n)
	var num, den float64
	for i := 0; i < n; i++ {
		w, ok := override(i)
		if !ok {
			w = equal
		}
		num += value(i) * w
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func safeRatio(a, b float64) float64 {
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
