package config

import (
	"fmt"
	"strings"
)

// ConfigError means a selection matched nothing or the config itself is
// structurally unusable. It is fatal to a run and always raised before any
// network activity.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

type Level string

const (
	LevelState    Level = "state"
	LevelCity     Level = "city"
	LevelFacility Level = "facility"
)

// Selection names the slice of the config tree a run should cover. Filter is
// a state code, city name or facility name depending on Level; at state
// level an empty filter means every facility everywhere.
type Selection struct {
	Level  Level
	Filter string
}

func (s Selection) String() string {
	if s.Filter == "" {
		return string(s.Level)
	}
	return fmt.Sprintf("%s=%s", s.Level, s.Filter)
}

// Resolved pairs one facility with the city (and state) that owns it, giving
// downstream callers everything needed to build a request.
type Resolved struct {
	State    string
	City     CityConfig
	Facility FacilityConfig
}

// Resolve walks the tree and returns the facilities matching the selection,
// in config order. Matching is case-insensitive exact. Duplicate city or
// facility names across the tree are all included. An empty result is a
// ConfigError.
func Resolve(cfg *Config, sel Selection) ([]Resolved, error) {
	var out []Resolved
	filter := strings.ToLower(strings.TrimSpace(sel.Filter))

	switch sel.Level {
	case LevelState:
		for _, st := range cfg.States {
			if filter != "" && strings.ToLower(st.State) != filter {
				continue
			}
			out = append(out, stateFacilities(st)...)
		}
		if len(out) == 0 {
			if filter == "" {
				return nil, &ConfigError{msg: "config contains no facilities"}
			}
			return nil, &ConfigError{msg: fmt.Sprintf("no state %q in config", sel.Filter)}
		}
	case LevelCity:
		if filter == "" {
			return nil, &ConfigError{msg: "city selection requires a city name"}
		}
		for _, st := range cfg.States {
			for _, city := range st.Cities {
				if strings.ToLower(city.Name) != filter {
					continue
				}
				for _, f := range city.Facilities {
					out = append(out, Resolved{State: st.State, City: city, Facility: f})
				}
			}
		}
		if len(out) == 0 {
			return nil, &ConfigError{msg: fmt.Sprintf("no city %q in config", sel.Filter)}
		}
	case LevelFacility:
		if filter == "" {
			return nil, &ConfigError{msg: "facility selection requires a facility name"}
		}
		for _, st := range cfg.States {
			for _, city := range st.Cities {
				for _, f := range city.Facilities {
					if strings.ToLower(f.Name) != filter {
						continue
					}
					out = append(out, Resolved{State: st.State, City: city, Facility: f})
				}
			}
		}
		if len(out) == 0 {
			return nil, &ConfigError{msg: fmt.Sprintf("no facility %q in config", sel.Filter)}
		}
	default:
		return nil, &ConfigError{msg: fmt.Sprintf("invalid level %q (want state, city or facility)", sel.Level)}
	}
	return out, nil
}

func stateFacilities(st StateConfig) []Resolved {
	var out []Resolved
	for _, city := range st.Cities {
		for _, f := range city.Facilities {
			out = append(out, Resolved{State: st.State, City: city, Facility: f})
		}
	}
	return out
}

// Tree renders the full state/city/facility listing for display. No network.
func Tree(cfg *Config) string {
	var b strings.Builder
	b.WriteString("States:\n")
	for _, st := range cfg.States {
		fmt.Fprintf(&b, "  %s\n", st.State)
	}
	b.WriteString("Cities:\n")
	for _, st := range cfg.States {
		for _, city := range st.Cities {
			fmt.Fprintf(&b, "  %s (%s)\n", city.Name, st.State)
		}
	}
	b.WriteString("Facilities:\n")
	for _, st := range cfg.States {
		for _, city := range st.Cities {
			for _, f := range city.Facilities {
				fmt.Fprintf(&b, "  %s - %s, %s\n", f.Name, city.Name, st.State)
			}
		}
	}
	return b.String()
}
