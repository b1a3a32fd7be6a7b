package model

// Unit classifies how a KPI value is displayed.
type Unit string

const (
	UnitCurrency Unit = "currency"
	UnitPercent  Unit = "percent"
	UnitNumber   Unit = "number"
	UnitRating   Unit = "rating"
)

// Trend determines whether a higher or lower KPI value is favorable.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// KPI is a recurring quantitative indicator compared against a target.
type KPI struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Target float64 `json:"target"`
	Unit   Unit    `json:"unit"`
	Trend  Trend   `json:"trend"`
	Icon   string  `json:"icon,omitempty"`
}

// CalculationType selects the strategy that turns a goal's raw fields
// into its canonical 0-100 progress value.
type CalculationType string

const (
	CalcManual       CalculationType = "manual"
	CalcQuantitative CalculationType = "quantitative"
	CalcMilestone    CalculationType = "milestone"
)

// Milestone is a named, weighted sub-task of a milestone-type goal.
// Weight is expressed in percentage points.
type Milestone struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Weight    float64 `json:"weight"`
	Completed bool    `json:"completed"`
}

// Goal is a discrete initiative tracked to a 0-100 progress value.
// CurrentValue/TargetValue/MetricUnit belong to the quantitative
// strategy, Milestones to the milestone strategy; the manual strategy
// uses Progress directly.
type Goal struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	Description string  `json:"description,omitempty"`
	Notes       string  `json:"notes,omitempty"`

	CalculationType CalculationType `json:"calculationType,omitempty"`

	CurrentValue float64 `json:"currentValue,omitempty"`
	TargetValue  float64 `json:"targetValue,omitempty"`
	MetricUnit   string  `json:"metricUnit,omitempty"`

	Milestones []Milestone `json:"milestones,omitempty"`
}

// Checkpoint is a dated timeline entry for a department.
type Checkpoint struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
	Notes     string `json:"notes,omitempty"`
}

// Department holds the live KPI/goal/checkpoint data for one area.
// ID is unique across the system and must match a configured department.
type Department struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Label       string       `json:"label"`
	KPIs        []KPI        `json:"kpis"`
	Goals       []Goal       `json:"goals"`
	Checkpoints []Checkpoint `json:"checkpoints"`
}

// WeightConfig controls how KPI and goal contributions combine into a
// department score. KPIWeight and GoalWeight are percentages; per-item
// overrides take precedence over equal-share weighting.
type WeightConfig struct {
	KPIWeight  float64            `json:"kpiWeight"`
	GoalWeight float64            `json:"goalWeight"`
	KPIs       map[string]float64 `json:"kpis"`
	Goals      map[string]float64 `json:"goals"`
}

// DepartmentMeta describes a configured department.
type DepartmentMeta struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// CategoryMeta describes a goal category.
type CategoryMeta struct {
	ID         string `json:"id" yaml:"id"`
	Label      string `json:"label" yaml:"label"`
	ColorTheme string `json:"colorTheme,omitempty" yaml:"colorTheme,omitempty"`
	Icon       string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// StatusMeta describes a goal status.
type StatusMeta struct {
	ID         string `json:"id" yaml:"id"`
	Label      string `json:"label" yaml:"label"`
	ColorTheme string `json:"colorTheme,omitempty" yaml:"colorTheme,omitempty"`
	Icon       string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// AppConfig is the organizational structure: departments, goal
// categories, goal statuses, and the role-to-permission grants.
// RolePermissions values may contain the sentinel "ALL".
type AppConfig struct {
	Departments     []DepartmentMeta        `json:"departments" yaml:"departments"`
	Categories      map[string]CategoryMeta `json:"categories" yaml:"categories"`
	Statuses        map[string]StatusMeta   `json:"statuses" yaml:"statuses"`
	RolePermissions map[string][]string     `json:"rolePermissions" yaml:"rolePermissions"`
}

// WeeklySnapshot is a point-in-time record of computed scores.
// Immutable once stored except for upsert-by-id replacement.
type WeeklySnapshot struct {
	ID               string             `json:"id"`
	Date             string             `json:"date"`
	Timestamp        int64              `json:"timestamp"`
	WeekLabel        string             `json:"weekLabel"`
	OverallScore     float64            `json:"overallScore"`
	DepartmentScores map[string]float64 `json:"departmentScores"`
	CategoryScores   map[string]float64 `json:"categoryScores"`
}

// AllDepartments is the sentinel assignment granting access to every
// department.
const AllDepartments = "ALL"

// User is a resolved session identity supplied by the authentication
// collaborator. It is held in session memory only, never persisted.
type User struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Role                string   `json:"role"`
	Status              string   `json:"status,omitempty"`
	AssignedDepartments []string `json:"assignedDepartments"`
}

// AssignedTo reports whether the user is assigned to the department,
// either explicitly or via the ALL sentinel.
func (u User) AssignedTo(deptID string) bool {
	for _, id := range u.AssignedDepartments {
		if id == AllDepartments || id == deptID {
			return true
		}
	}
	return false
}

// Severity classifies an access-log entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// AccessLog is an append-only record of a user action.
type AccessLog struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	UserName  string   `json:"userName"`
	Action    string   `json:"action"`
	Details   string   `json:"details,omitempty"`
	Type      Severity `json:"type"`
	Timestamp int64    `json:"timestamp"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
}
