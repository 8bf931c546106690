package xplor

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/courtsched/internal/config"
)

// Params is the fully resolved bundle for one availability request. Every
// field must be present before a request may be issued; Validate enforces
// that and nothing here ever silently defaults.
type Params struct {
	BaseURL          string
	APIPath          string
	FacilityPagePath string
	FacilityID       string
	WidgetID         string
	CalendarID       string
	ServiceID        string
	DurationIDs      []string
	Date             time.Time
	Days             int
	Duration         int
	FeeType          int
}

// BuildParams resolves one facility's request parameters from the config
// tree, applying default_settings for duration and fee type. Pure: no
// network, no token access, inputs are never mutated. On a validation error
// the partially built Params is still returned so callers can report it.
func BuildParams(city config.CityConfig, facility config.FacilityConfig, defaults config.DefaultSettings, date time.Time, days int) (Params, error) {
	eff := config.Merge(defaults, facility)
	p := Params{
		BaseURL:          strings.TrimRight(city.BaseURL, "/"),
		APIPath:          city.APIPath,
		FacilityPagePath: city.FacilityPagePath,
		FacilityID:       facility.FacilityID,
		WidgetID:         facility.WidgetID,
		CalendarID:       facility.CalendarID,
		ServiceID:        facility.ServiceID,
		DurationIDs:      append([]string(nil), facility.DurationIDs...),
		Date:             date,
		Days:             days,
		Duration:         eff.Duration,
		FeeType:          eff.FeeType,
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate reports the first missing or invalid required field.
func (p Params) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"base_url", p.BaseURL},
		{"api_path", p.APIPath},
		{"facility_page_path", p.FacilityPagePath},
		{"facility_id", p.FacilityID},
		{"widget_id", p.WidgetID},
		{"calendar_id", p.CalendarID},
		{"service_id", p.ServiceID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ParameterError{Field: r.field}
		}
	}
	if len(p.DurationIDs) == 0 {
		return &ParameterError{Field: "duration_ids"}
	}
	for _, id := range p.DurationIDs {
		if strings.TrimSpace(id) == "" {
			return &ParameterError{Field: "duration_ids", Reason: "contains an empty id"}
		}
	}
	if p.Date.IsZero() {
		return &ParameterError{Field: "date"}
	}
	if p.Days < 1 {
		return &ParameterError{Field: "days", Reason: "must be a positive integer"}
	}
	if p.Duration <= 0 {
		return &ParameterError{Field: "duration", Reason: "must be a positive integer"}
	}
	if p.FeeType < 0 {
		return &ParameterError{Field: "fee_type", Reason: "must not be negative"}
	}
	return nil
}

// DateRange returns the Days consecutive calendar dates starting at Date.
func (p Params) DateRange() []time.Time {
	out := make([]time.Time, 0, p.Days)
	for i := 0; i < p.Days; i++ {
		out = append(out, p.Date.AddDate(0, 0, i))
	}
	return out
}

// APIURL is the availability endpoint.
func (p Params) APIURL() string {
	return p.BaseURL + p.APIPath
}

// FacilityPageURL is the facility landing page carrying the query string the
// platform expects; it doubles as the Referer on availability requests.
func (p Params) FacilityPageURL() string {
	return fmt.Sprintf("%s%s?facilityId=%s&widgetId=%s&calendarId=%s",
		p.BaseURL, p.FacilityPagePath, p.FacilityID, p.WidgetID, p.CalendarID)
}

// wireDate is the API's date format: the start date at midnight, ISO format
// with the timezone stripped.
func (p Params) wireDate() string {
	d := p.Date
	return fmt.Sprintf("%04d-%02d-%02dT00:00:00Z", d.Year(), d.Month(), d.Day())
}
