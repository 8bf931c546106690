package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSettings are run-wide fallbacks applied when a facility omits a
// field. duration_ids is deliberately absent from the merge: it is always
// facility-specific and a facility without one cannot be queried.
type DefaultSettings struct {
	Duration    int      `yaml:"duration" json:"duration"`
	DurationIDs []string `yaml:"duration_ids" json:"duration_ids"`
	FeeType     int      `yaml:"fee_type" json:"fee_type"`
}

type FacilityConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Address     string   `yaml:"address" json:"address"`
	Contact     string   `yaml:"contact" json:"contact"`
	Hours       string   `yaml:"hours" json:"hours"`
	Features    []string `yaml:"features" json:"features"`
	FacilityID  string   `yaml:"facility_id" json:"facility_id"`
	WidgetID    string   `yaml:"widget_id" json:"widget_id"`
	CalendarID  string   `yaml:"calendar_id" json:"calendar_id"`
	ServiceID   string   `yaml:"service_id" json:"service_id"`
	DurationIDs []string `yaml:"duration_ids" json:"duration_ids"`

	// Optional overrides of default_settings. Pointers so an explicit 0
	// is distinguishable from an omitted field.
	Duration *int `yaml:"duration" json:"duration,omitempty"`
	FeeType  *int `yaml:"fee_type" json:"fee_type,omitempty"`
}

type CityConfig struct {
	Name             string           `yaml:"name" json:"name"`
	BaseURL          string           `yaml:"base_url" json:"base_url"`
	APIPath          string           `yaml:"api_path" json:"api_path"`
	FacilityPagePath string           `yaml:"facility_page_path" json:"facility_page_path"`
	Facilities       []FacilityConfig `yaml:"facilities" json:"facilities"`
}

type StateConfig struct {
	State  string       `yaml:"state" json:"state"`
	Cities []CityConfig `yaml:"cities" json:"cities"`
}

type Config struct {
	DefaultSettings DefaultSettings `yaml:"default_settings" json:"default_settings"`
	States          []StateConfig   `yaml:"states" json:"states"`
}

// Load reads and validates a facilities file. yaml.v3 parses both YAML and
// JSON, so the original JSON config format keeps working unchanged.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.States) == 0 {
		return &ConfigError{msg: "config has no states"}
	}
	for _, st := range c.States {
		if st.State == "" {
			return &ConfigError{msg: "state entry missing state code"}
		}
		for _, city := range st.Cities {
			if city.Name == "" {
				return &ConfigError{msg: fmt.Sprintf("state %q has a city without a name", st.State)}
			}
			if city.BaseURL == "" || city.APIPath == "" || city.FacilityPagePath == "" {
				return &ConfigError{msg: fmt.Sprintf("city %q missing base_url, api_path or facility_page_path", city.Name)}
			}
			for _, f := range city.Facilities {
				if f.Name == "" {
					return &ConfigError{msg: fmt.Sprintf("city %q has a facility without a name", city.Name)}
				}
			}
		}
	}
	return nil
}

// Effective are a facility's settings after defaults are applied.
type Effective struct {
	Duration int
	FeeType  int
}

// Merge resolves a facility's duration and fee type against the defaults.
// Both inputs are taken by value and never written to; each call produces a
// fresh Effective.
func Merge(defaults DefaultSettings, f FacilityConfig) Effective {
	eff := Effective{
		Duration: defaults.Duration,
		FeeType:  defaults.FeeType,
	}
	if f.Duration != nil {
		eff.Duration = *f.Duration
	}
	if f.FeeType != nil {
		eff.FeeType = *f.FeeType
	}
	return eff
}
