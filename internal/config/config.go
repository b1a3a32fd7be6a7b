// Package config loads the organizational configuration used to seed a
// new workspace. A YAML file may override any top-level section of the
// built-in defaults; sections it leaves out keep their default values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hublocal/internal/model"
)

// Load reads the seed configuration. An empty path returns the
// built-in defaults.
func Load(path string) (model.AppConfig, error) {
	cfg := model.InitialConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.AppConfig{}, fmt.Errorf("read config file: %w", err)
	}

	var override model.AppConfig
	if err := yaml.Unmarshal(data, &override); err != nil {
		return model.AppConfig{}, fmt.Errorf("parse config file: %w", err)
	}

	if len(override.Departments) > 0 {
		cfg.Departments = override.Departments
	}
	if len(override.Categories) > 0 {
		cfg.Categories = override.Categories
	}
	if len(override.Statuses) > 0 {
		cfg.Statuses = override.Statuses
	}
	if len(override.RolePermissions) > 0 {
		cfg.RolePermissions = override.RolePermissions
	}
	return cfg, nil
}

// SeedDataFor builds empty department data entries for every
// configured department, reusing the built-in baseline data where the
// ids match the defaults.
func SeedDataFor(cfg model.AppConfig) map[string]model.Department {
	defaults := model.InitialData()
	out := make(map[string]model.Department, len(cfg.Departments))
	for _, meta := range cfg.Departments {
		if dept, ok := defaults[meta.ID]; ok {
			out[meta.ID] = dept
			continue
		}
		out[meta.ID] = model.Department{
			ID:          meta.ID,
			Name:        meta.Name,
			Label:       meta.Name,
			KPIs:        []model.KPI{},
			Goals:       []model.Goal{},
			Checkpoints: []model.Checkpoint{},
		}
	}
	return out
}

// SeedWeightsFor builds the default 50/50 weight map for every
// configured department.
func SeedWeightsFor(cfg model.AppConfig) map[string]model.WeightConfig {
	out := make(map[string]model.WeightConfig, len(cfg.Departments))
	for _, meta := range cfg.Departments {
		out[meta.ID] = model.DefaultWeightConfig()
	}
	return out
}
