package xplor

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/example/courtsched/internal/schedule"
)

// ParseAvailability normalizes a raw FacilityAvailability body into schedule
// days. A body without the expected envelope fails the whole parse; a
// malformed individual entry is skipped and recorded as a note so the rest
// of the response still lands.
func ParseAvailability(body []byte) ([]schedule.ScheduleDay, []string, error) {
	var env struct {
		Availabilities *[]json.RawMessage `json:"availabilities"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, &ParseError{Reason: "response is not the availability envelope", Err: err}
	}
	if env.Availabilities == nil {
		return nil, nil, &ParseError{Reason: "response has no availabilities field"}
	}

	var notes []string
	byDay := make(map[time.Time]*schedule.ScheduleDay)
	var order []time.Time

	for i, raw := range *env.Availabilities {
		var entry schedule.Availability
		if err := json.Unmarshal(raw, &entry); err != nil {
			notes = append(notes, fmt.Sprintf("availability %d: malformed entry: %v", i, err))
			continue
		}
		ts, err := entry.Date.Time()
		if err != nil {
			notes = append(notes, fmt.Sprintf("availability %d: %v", i, err))
			continue
		}
		day := ts.Truncate(24 * time.Hour)

		// Platform declares a display order per group; honor it with a
		// stable sort so ties keep their wire order.
		sort.SliceStable(entry.BookingGroups, func(a, b int) bool {
			return entry.BookingGroups[a].Order < entry.BookingGroups[b].Order
		})

		if d, ok := byDay[day]; ok {
			d.Availabilities = append(d.Availabilities, entry)
			continue
		}
		byDay[day] = &schedule.ScheduleDay{
			Date:           entry.Date,
			Availabilities: []schedule.Availability{entry},
			Day:            day,
		}
		order = append(order, day)
	}

	sort.Slice(order, func(a, b int) bool { return order[a].Before(order[b]) })

	out := make([]schedule.ScheduleDay, 0, len(order))
	for _, day := range order {
		out = append(out, *byDay[day])
	}
	return out, notes, nil
}
