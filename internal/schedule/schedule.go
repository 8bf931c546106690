package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DateToken is the platform's wire encoding of a timestamp: a millisecond
// epoch value wrapped in "/Date(...)/". Tokens are carried through to the
// output verbatim; Time decodes them for grouping and ordering.
type DateToken string

var dateTokenRe = regexp.MustCompile(`^/Date\((-?\d+)\)/$`)

func NewDateToken(t time.Time) DateToken {
	return DateToken(fmt.Sprintf("/Date(%d)/", t.UnixMilli()))
}

func (d DateToken) Time() (time.Time, error) {
	m := dateTokenRe.FindStringSubmatch(string(d))
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid date token %q", string(d))
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date token %q: %w", string(d), err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// TimeOfDay mirrors the platform's structured clock value.
type TimeOfDay struct {
	Hours   int `json:"Hours"`
	Minutes int `json:"Minutes"`
	Seconds int `json:"Seconds"`
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds)
}

// AvailableSpot is one bookable slot. Time and Duration are authoritative;
// Ticks is the platform's integer encoding of the same start time, kept
// verbatim for traceability.
type AvailableSpot struct {
	Ticks      int64     `json:"Ticks"`
	Time       TimeOfDay `json:"Time"`
	Duration   TimeOfDay `json:"Duration"`
	IsDisabled bool      `json:"IsDisabled"`
	Title      string    `json:"Title"`
}

// BookingGroup is a named cluster of spots within a day ("Morning", ...).
type BookingGroup struct {
	Name           string          `json:"Name"`
	Order          int             `json:"Order"`
	AvailableSpots []AvailableSpot `json:"AvailableSpots"`
}

// Availability is one platform availability entry for a single date.
type Availability struct {
	Date          DateToken      `json:"Date"`
	BookingGroups []BookingGroup `json:"BookingGroups"`
}

// ScheduleDay groups the availability entries that fall on one calendar date.
type ScheduleDay struct {
	Date           DateToken      `json:"date"`
	Availabilities []Availability `json:"availabilities"`

	// Day is the decoded calendar date, UTC midnight. Not serialized; the
	// raw token above is what the output schema carries.
	Day time.Time `json:"-"`
}

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// FacilityScheduleResult is the per-facility output document. Status and
// FailureReason are only populated on config-driven multi-facility runs.
type FacilityScheduleResult struct {
	FacilityID      string        `json:"facility_id"`
	FacilityPageURL string        `json:"facility_page_url"`
	ScheduleData    []ScheduleDay `json:"schedule_data"`
	FetchedAt       time.Time     `json:"fetched_at"`
	Status          Status        `json:"status,omitempty"`
	FailureReason   string        `json:"failure_reason,omitempty"`

	// Notes records entries the parser skipped without failing the fetch.
	Notes []string `json:"notes,omitempty"`
}

// AggregateResult wraps the ordered per-facility results of one run.
type AggregateResult struct {
	RunID      string                   `json:"run_id"`
	Selection  string                   `json:"selection"`
	Date       string                   `json:"date"`
	Days       int                      `json:"days"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Total      int                      `json:"total"`
	Succeeded  int                      `json:"succeeded"`
	Failed     int                      `json:"failed"`
	Results    []FacilityScheduleResult `json:"results"`
}
