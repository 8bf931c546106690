package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

var debug bool

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "courtsched",
		Short: "Fetch tennis-court availability from Xplor/PerfectMind booking sites",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "verbose request/response tracing")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newScrapeCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
