package config

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func menloFacility(name, id string) FacilityConfig {
	return FacilityConfig{
		Name:        name,
		Address:     "Menlo Park, CA",
		FacilityID:  id,
		WidgetID:    "widget-1",
		CalendarID:  "calendar-1",
		ServiceID:   "service-1",
		DurationIDs: []string{"dur-1", "dur-2"},
	}
}

func testConfig() *Config {
	return &Config{
		DefaultSettings: DefaultSettings{
			Duration:    60,
			DurationIDs: []string{"default-dur"},
			FeeType:     0,
		},
		States: []StateConfig{
			{
				State: "CA",
				Cities: []CityConfig{
					{
						Name:             "Menlo Park",
						BaseURL:          "https://cityofmenlopark.example.com",
						APIPath:          "/26116/Clients/BookMe4LandingPages/FacilityAvailability",
						FacilityPagePath: "/26116/Clients/BookMe4LandingPages/Facility",
						Facilities: []FacilityConfig{
							menloFacility("Burgess Park - Tennis Court #1", "fac-burgess-1"),
							menloFacility("Kelly Park - Tennis Court #1", "fac-kelly-1"),
							menloFacility("Nealon Park - Tennis Court #1", "fac-nealon-1"),
							menloFacility("Nealon Park - Tennis Court #2", "fac-nealon-2"),
							menloFacility("Willow Oaks Park - Tennis Court #3", "fac-willow-3"),
							menloFacility("Willow Oaks Park - Tennis Court #4", "fac-willow-4"),
						},
					},
					{
						Name:             "Palo Alto",
						BaseURL:          "https://paloalto.example.com",
						APIPath:          "/api/FacilityAvailability",
						FacilityPagePath: "/Facility",
						Facilities: []FacilityConfig{
							menloFacility("Rinconada Park - Tennis Court #1", "fac-rinconada-1"),
						},
					},
				},
			},
			{
				State: "WA",
				Cities: []CityConfig{
					{
						Name:             "Seattle",
						BaseURL:          "https://seattle.example.com",
						APIPath:          "/api/FacilityAvailability",
						FacilityPagePath: "/Facility",
						Facilities: []FacilityConfig{
							menloFacility("Green Lake Park - Tennis Court #1", "fac-greenlake-1"),
						},
					},
				},
			},
		},
	}
}

func facilityIDs(rs []Resolved) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Facility.FacilityID)
	}
	return out
}

func TestResolveCityLevel(t *testing.T) {
	cfg := testConfig()
	got, err := Resolve(cfg, Selection{Level: LevelCity, Filter: "Menlo Park"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{
		"fac-burgess-1", "fac-kelly-1", "fac-nealon-1",
		"fac-nealon-2", "fac-willow-3", "fac-willow-4",
	}
	if !reflect.DeepEqual(facilityIDs(got), want) {
		t.Errorf("got %v, want %v", facilityIDs(got), want)
	}
	for _, r := range got {
		if r.City.Name != "Menlo Park" || r.State != "CA" {
			t.Errorf("facility %s resolved to %s, %s", r.Facility.Name, r.City.Name, r.State)
		}
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	cfg := testConfig()

	byCity, err := Resolve(cfg, Selection{Level: LevelCity, Filter: "menlo park"})
	if err != nil {
		t.Fatalf("city resolve: %v", err)
	}
	if len(byCity) != 6 {
		t.Errorf("city resolve returned %d facilities, want 6", len(byCity))
	}

	byState, err := Resolve(cfg, Selection{Level: LevelState, Filter: "ca"})
	if err != nil {
		t.Fatalf("state resolve: %v", err)
	}
	if len(byState) != 7 {
		t.Errorf("state resolve returned %d facilities, want 7", len(byState))
	}

	byFacility, err := Resolve(cfg, Selection{Level: LevelFacility, Filter: "willow oaks park - tennis court #4"})
	if err != nil {
		t.Fatalf("facility resolve: %v", err)
	}
	if len(byFacility) != 1 || byFacility[0].Facility.FacilityID != "fac-willow-4" {
		t.Errorf("facility resolve got %v", facilityIDs(byFacility))
	}
}

func TestResolveStateLevelNoFilter(t *testing.T) {
	got, err := Resolve(testConfig(), Selection{Level: LevelState})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 8 {
		t.Errorf("got %d facilities, want all 8", len(got))
	}
	// Config order: CA cities first, then WA.
	if got[0].Facility.FacilityID != "fac-burgess-1" || got[7].Facility.FacilityID != "fac-greenlake-1" {
		t.Errorf("unexpected order: %v", facilityIDs(got))
	}
}

func TestResolveNoMatchIsConfigError(t *testing.T) {
	cases := []Selection{
		{Level: LevelState, Filter: "TX"},
		{Level: LevelCity, Filter: "Springfield"},
		{Level: LevelFacility, Filter: "No Such Court"},
		{Level: Level("county"), Filter: "x"},
	}
	for _, sel := range cases {
		_, err := Resolve(testConfig(), sel)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("Resolve(%v) error = %v, want ConfigError", sel, err)
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	cfg := testConfig()
	sel := Selection{Level: LevelCity, Filter: "Menlo Park"}
	first, err := Resolve(cfg, sel)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := Resolve(cfg, sel)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !reflect.DeepEqual(facilityIDs(first), facilityIDs(second)) {
		t.Errorf("resolution not idempotent: %v vs %v", facilityIDs(first), facilityIDs(second))
	}
}

func TestMergeDoesNotMutateDefaults(t *testing.T) {
	defaults := DefaultSettings{Duration: 60, DurationIDs: []string{"default-dur"}, FeeType: 0}

	ninety := 90
	fee := 2
	override := FacilityConfig{Name: "A", Duration: &ninety, FeeType: &fee}
	plain := FacilityConfig{Name: "B"}

	got := Merge(defaults, override)
	if got.Duration != 90 || got.FeeType != 2 {
		t.Errorf("override merge = %+v", got)
	}

	// A second merge with a facility that omits everything must see the
	// pristine defaults.
	got = Merge(defaults, plain)
	if got.Duration != 60 || got.FeeType != 0 {
		t.Errorf("plain merge = %+v, defaults were mutated", got)
	}
	if defaults.Duration != 60 || defaults.FeeType != 0 {
		t.Errorf("defaults mutated: %+v", defaults)
	}
}

func TestTreeListsEverything(t *testing.T) {
	out := Tree(testConfig())
	for _, want := range []string{
		"CA", "WA",
		"Menlo Park (CA)", "Seattle (WA)",
		"Willow Oaks Park - Tennis Court #4 - Menlo Park, CA",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("tree output missing %q:\n%s", want, out)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := testConfig()
	bad.States[0].Cities[0].BaseURL = ""
	var ce *ConfigError
	if err := bad.Validate(); !errors.As(err, &ce) {
		t.Errorf("missing base_url: error = %v, want ConfigError", err)
	}

	empty := &Config{}
	if err := empty.Validate(); !errors.As(err, &ce) {
		t.Errorf("empty config: error = %v, want ConfigError", err)
	}
}
