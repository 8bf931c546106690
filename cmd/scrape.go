package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/example/courtsched/internal/config"
	"github.com/example/courtsched/internal/scraper"
	"github.com/example/courtsched/internal/xplor"
)

func newScrapeCmd() *cobra.Command {
	var (
		configPath  string
		list        bool
		level       string
		state       string
		city        string
		facility    string
		dateStr     string
		days        int
		outputDir   string
		output      string
		concurrency int
		timeoutSec  int
	)

	c := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch availability for the facilities a config selection resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if list {
				fmt.Fprint(cmd.OutOrStdout(), config.Tree(cfg))
				return nil
			}

			if level == "" {
				return fmt.Errorf("--level is required (unless using --list)")
			}
			if dateStr == "" {
				return fmt.Errorf("--date is required (unless using --list)")
			}
			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
			}
			if days < 1 {
				return fmt.Errorf("--days must be a positive integer")
			}

			sel := config.Selection{Level: config.Level(level)}
			switch sel.Level {
			case config.LevelState:
				sel.Filter = state
			case config.LevelCity:
				sel.Filter = city
			case config.LevelFacility:
				sel.Filter = facility
			default:
				return fmt.Errorf("invalid --level %q (want state, city or facility)", level)
			}

			// The sink names files after facility display names; resolution
			// is idempotent so this matches the orchestrator's order.
			resolved, err := config.Resolve(cfg, sel)
			if err != nil {
				return err
			}
			names := make([]string, len(resolved))
			for i, r := range resolved {
				names[i] = r.Facility.Name
			}

			orch := scraper.New(scraper.Options{
				Config:      cfg,
				Fetch:       scraper.NewPlatformFetch(rate.NewLimiter(rate.Limit(2), 1), xplor.ClientOptions{}),
				Concurrency: concurrency,
				Timeout:     time.Duration(timeoutSec) * time.Second,
			})

			agg, err := orch.Run(cmd.Context(), sel, date, days)
			if err != nil {
				return err
			}

			var sink scraper.Sink
			switch {
			case outputDir != "":
				sink = scraper.DirSink{Dir: outputDir, Date: date}
			case output != "":
				sink = scraper.FileSink{Path: output}
			default:
				sink = scraper.StdoutSink{W: cmd.OutOrStdout()}
			}
			// Per-facility failures are reported inside the output, not via
			// the exit code.
			return scraper.WriteResults(sink, names, agg)
		},
	}

	c.Flags().StringVar(&configPath, "config", "facilities_config.json", "facilities config file (JSON or YAML)")
	c.Flags().BoolVar(&list, "list", false, "print the state/city/facility tree and exit (no network)")
	c.Flags().StringVar(&level, "level", "", "selection level: state, city or facility")
	c.Flags().StringVar(&state, "state", "", "state code filter (state level; empty means all states)")
	c.Flags().StringVar(&city, "city", "", "city name filter (city level)")
	c.Flags().StringVar(&facility, "facility", "", "facility name filter (facility level)")
	c.Flags().StringVar(&dateStr, "date", "", "start date YYYY-MM-DD")
	c.Flags().IntVar(&days, "days", 1, "number of days to fetch per facility")
	c.Flags().StringVar(&outputDir, "output-dir", "", "directory for per-facility JSON files")
	c.Flags().StringVar(&output, "output", "", "single JSON file for the aggregate result")
	c.Flags().IntVar(&concurrency, "concurrency", 3, "max simultaneous facility fetches")
	c.Flags().IntVar(&timeoutSec, "timeout", 0, "run deadline in seconds (0 = none)")
	return c
}
