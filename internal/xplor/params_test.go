package xplor

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/courtsched/internal/config"
)

func testCity() config.CityConfig {
	return config.CityConfig{
		Name:             "Menlo Park",
		BaseURL:          "https://cityofmenlopark.example.com",
		APIPath:          "/26116/Clients/BookMe4LandingPages/FacilityAvailability",
		FacilityPagePath: "/26116/Clients/BookMe4LandingPages/Facility",
	}
}

func testFacility() config.FacilityConfig {
	return config.FacilityConfig{
		Name:        "Willow Oaks Park - Tennis Court #4",
		FacilityID:  "fac-willow-4",
		WidgetID:    "wid-1",
		CalendarID:  "cal-1",
		ServiceID:   "svc-1",
		DurationIDs: []string{"dur-1", "dur-2"},
	}
}

var testDefaults = config.DefaultSettings{Duration: 60, DurationIDs: []string{"d"}, FeeType: 0}

func TestBuildParamsDeterministic(t *testing.T) {
	date := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	first, err := BuildParams(testCity(), testFacility(), testDefaults, date, 1)
	if err != nil {
		t.Fatalf("BuildParams: %v", err)
	}
	second, err := BuildParams(testCity(), testFacility(), testDefaults, date, 1)
	if err != nil {
		t.Fatalf("BuildParams: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("not deterministic:\n%+v\n%+v", first, second)
	}
	if first.Duration != 60 || first.FeeType != 0 {
		t.Errorf("defaults not applied: %+v", first)
	}
}

func TestBuildParamsMissingFieldNamesIt(t *testing.T) {
	date := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		field  string
		mutate func(*config.CityConfig, *config.FacilityConfig)
	}{
		{"base_url", func(c *config.CityConfig, f *config.FacilityConfig) { c.BaseURL = "" }},
		{"api_path", func(c *config.CityConfig, f *config.FacilityConfig) { c.APIPath = "" }},
		{"facility_page_path", func(c *config.CityConfig, f *config.FacilityConfig) { c.FacilityPagePath = "" }},
		{"facility_id", func(c *config.CityConfig, f *config.FacilityConfig) { f.FacilityID = "" }},
		{"widget_id", func(c *config.CityConfig, f *config.FacilityConfig) { f.WidgetID = "" }},
		{"calendar_id", func(c *config.CityConfig, f *config.FacilityConfig) { f.CalendarID = "" }},
		{"service_id", func(c *config.CityConfig, f *config.FacilityConfig) { f.ServiceID = "" }},
		{"duration_ids", func(c *config.CityConfig, f *config.FacilityConfig) { f.DurationIDs = nil }},
	}
	for _, tc := range cases {
		city, facility := testCity(), testFacility()
		tc.mutate(&city, &facility)
		_, err := BuildParams(city, facility, testDefaults, date, 1)
		var pe *ParameterError
		if !errors.As(err, &pe) {
			t.Errorf("%s: error = %v, want ParameterError", tc.field, err)
			continue
		}
		if pe.Field != tc.field {
			t.Errorf("error names %q, want %q", pe.Field, tc.field)
		}
	}
}

func TestValidateDateAndDays(t *testing.T) {
	date := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)

	_, err := BuildParams(testCity(), testFacility(), testDefaults, time.Time{}, 1)
	var pe *ParameterError
	if !errors.As(err, &pe) || pe.Field != "date" {
		t.Errorf("zero date: error = %v", err)
	}

	_, err = BuildParams(testCity(), testFacility(), testDefaults, date, 0)
	if !errors.As(err, &pe) || pe.Field != "days" {
		t.Errorf("zero days: error = %v", err)
	}
}

func TestDateRange(t *testing.T) {
	date := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	p, err := BuildParams(testCity(), testFacility(), testDefaults, date, 3)
	if err != nil {
		t.Fatalf("BuildParams: %v", err)
	}
	got := p.DateRange()
	if len(got) != 3 {
		t.Fatalf("range length = %d", len(got))
	}
	for i, d := range got {
		if want := date.AddDate(0, 0, i); !d.Equal(want) {
			t.Errorf("range[%d] = %v, want %v", i, d, want)
		}
	}
}

func TestURLComposition(t *testing.T) {
	date := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	p, err := BuildParams(testCity(), testFacility(), testDefaults, date, 1)
	if err != nil {
		t.Fatalf("BuildParams: %v", err)
	}

	wantAPI := "https://cityofmenlopark.example.com/26116/Clients/BookMe4LandingPages/FacilityAvailability"
	if p.APIURL() != wantAPI {
		t.Errorf("APIURL = %s", p.APIURL())
	}
	wantPage := "https://cityofmenlopark.example.com/26116/Clients/BookMe4LandingPages/Facility" +
		"?facilityId=fac-willow-4&widgetId=wid-1&calendarId=cal-1"
	if p.FacilityPageURL() != wantPage {
		t.Errorf("FacilityPageURL = %s", p.FacilityPageURL())
	}
	if p.wireDate() != "2025-10-13T00:00:00Z" {
		t.Errorf("wireDate = %s", p.wireDate())
	}
}
