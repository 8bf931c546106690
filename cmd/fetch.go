package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/example/courtsched/internal/schedule"
	"github.com/example/courtsched/internal/scraper"
	"github.com/example/courtsched/internal/xplor"
)

func newFetchCmd() *cobra.Command {
	var (
		baseURL          string
		apiPath          string
		facilityPagePath string
		facilityID       string
		widgetID         string
		calendarID       string
		serviceID        string
		durationIDs      string
		dateStr          string
		days             int
		duration         int
		feeType          int
		output           string
	)

	c := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch one facility's availability with explicit parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
			}

			p := xplor.Params{
				BaseURL:          baseURL,
				APIPath:          apiPath,
				FacilityPagePath: facilityPagePath,
				FacilityID:       facilityID,
				WidgetID:         widgetID,
				CalendarID:       calendarID,
				ServiceID:        serviceID,
				DurationIDs:      splitCSV(durationIDs),
				Date:             date,
				Days:             days,
				Duration:         duration,
				FeeType:          feeType,
			}
			// Parameter problems are fatal here: nothing has gone out on
			// the wire yet and there are no sibling facilities to protect.
			if err := p.Validate(); err != nil {
				return err
			}

			client := xplor.NewClient(xplor.ClientOptions{
				Limiter: rate.NewLimiter(rate.Limit(2), 1),
			})

			res := schedule.FacilityScheduleResult{
				FacilityID:      p.FacilityID,
				FacilityPageURL: p.FacilityPageURL(),
			}
			daysOut, notes, err := client.FetchDays(cmd.Context(), p)
			res.ScheduleData = daysOut
			res.Notes = notes
			res.FetchedAt = time.Now().UTC()
			if err != nil {
				res.Status = schedule.StatusFailed
				res.FailureReason = scraper.FailureReason(err)
				log.Error().Err(err).Str("facility_id", p.FacilityID).Msg("fetch failed")
			}

			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
				return err
			}
			log.Info().Str("path", output).Msg("results saved")
			return nil
		},
	}

	c.Flags().StringVar(&baseURL, "base-url", "", "base URL of the booking site")
	c.Flags().StringVar(&apiPath, "api-path", "", "availability endpoint path")
	c.Flags().StringVar(&facilityPagePath, "facility-page-path", "", "facility landing page path")
	c.Flags().StringVar(&facilityID, "facility-id", "", "facility id")
	c.Flags().StringVar(&widgetID, "widget-id", "", "widget id")
	c.Flags().StringVar(&calendarID, "calendar-id", "", "calendar id")
	c.Flags().StringVar(&serviceID, "service-id", "", "service id")
	c.Flags().StringVar(&durationIDs, "duration-ids", "", "comma-separated duration ids")
	c.Flags().StringVar(&dateStr, "date", "", "start date YYYY-MM-DD")
	c.Flags().IntVar(&days, "days", 1, "number of days to fetch")
	c.Flags().IntVar(&duration, "duration", 60, "booking duration in minutes")
	c.Flags().IntVar(&feeType, "fee-type", 0, "platform fee type")
	c.Flags().StringVar(&output, "output", "", "output JSON file path")

	_ = c.MarkFlagRequired("base-url")
	_ = c.MarkFlagRequired("api-path")
	_ = c.MarkFlagRequired("facility-page-path")
	_ = c.MarkFlagRequired("facility-id")
	_ = c.MarkFlagRequired("widget-id")
	_ = c.MarkFlagRequired("calendar-id")
	_ = c.MarkFlagRequired("service-id")
	_ = c.MarkFlagRequired("duration-ids")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("days")
	_ = c.MarkFlagRequired("output")
	return c
}
