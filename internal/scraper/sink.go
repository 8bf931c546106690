package scraper

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/courtsched/internal/schedule"
)

// Sink receives the documents a run produces. WriteFacility gets each
// per-facility result (with the facility's display name for naming);
// WriteAggregate gets the run wrapper once all facilities are terminal.
type Sink interface {
	WriteFacility(name string, res schedule.FacilityScheduleResult) error
	WriteAggregate(agg schedule.AggregateResult) error
}

// WriteResults pushes an aggregate through a sink in resolution order.
// Facility names must parallel agg.Results.
func WriteResults(sink Sink, names []string, agg schedule.AggregateResult) error {
	for i, res := range agg.Results {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if err := sink.WriteFacility(name, res); err != nil {
			return fmt.Errorf("write facility %q: %w", name, err)
		}
	}
	if err := sink.WriteAggregate(agg); err != nil {
		return fmt.Errorf("write aggregate: %w", err)
	}
	return nil
}

// DirSink writes one JSON document per facility plus a run summary into a
// directory, using the <Safe_Name>_<YYYYMMDD>.json convention.
type DirSink struct {
	Dir  string
	Date time.Time
}

func (s DirSink) WriteFacility(name string, res schedule.FacilityScheduleResult) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	filename := fmt.Sprintf("%s_%s.json", SafeName(name), s.Date.Format("20060102"))
	return writeJSON(filepath.Join(s.Dir, filename), res)
}

func (s DirSink) WriteAggregate(agg schedule.AggregateResult) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	filename := fmt.Sprintf("run_%s.json", s.Date.Format("20060102"))
	return writeJSON(filepath.Join(s.Dir, filename), agg)
}

// FileSink writes only the aggregate document to a single path.
type FileSink struct {
	Path string
}

func (s FileSink) WriteFacility(string, schedule.FacilityScheduleResult) error { return nil }

func (s FileSink) WriteAggregate(agg schedule.AggregateResult) error {
	return writeJSON(s.Path, agg)
}

// StdoutSink prints the aggregate document to a writer.
type StdoutSink struct {
	W io.Writer
}

func (s StdoutSink) WriteFacility(string, schedule.FacilityScheduleResult) error { return nil }

func (s StdoutSink) WriteAggregate(agg schedule.AggregateResult) error {
	enc := json.NewEncoder(s.W)
	enc.SetIndent("", "  ")
	return enc.Encode(agg)
}

// SafeName converts a facility display name into a filename stem: spaces to
// underscores, '#' dropped, '-' to underscores.
func SafeName(name string) string {
	r := strings.NewReplacer(" ", "_", "#", "", "-", "_")
	return r.Replace(name)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
