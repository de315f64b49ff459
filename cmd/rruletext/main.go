package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rruletext/internal/config"
	"rruletext/internal/describe"
	"rruletext/internal/ics"
	appLog "rruletext/internal/log"
	"rruletext/internal/recurrence"
	"rruletext/internal/web"
)

const version = "0.1.0"

// rootFlags holds the persistent CLI flags shared by all subcommands.
type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		appLog.Error("rruletext failed", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "rruletext",
		Short:         "Render iCalendar recurrence rules as English text",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if flags.logLevel == "" {
				return nil
			}
			level, err := appLog.ParseLevel(flags.logLevel)
			if err != nil {
				return err
			}
			appLog.SetLevel(level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (defaults are used when empty)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newDescribeCmd(&flags),
		newICSCmd(&flags),
		newServeCmd(&flags),
	)

	return root
}

// loadConfig returns the config at path, or the defaults when path is empty.
// The config's log level applies unless --log-level was given.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", flags.configPath, err)
		}
		cfg = loaded
	}
	if flags.logLevel == "" {
		level, err := appLog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		appLog.SetLevel(level)
	}
	return cfg, nil
}

type describeFlags struct {
	start      string
	tz         string
	dateFormat string
	timeFormat string
	openEnded  bool
	slots      bool
}

func newDescribeCmd(root *rootFlags) *cobra.Command {
	var flags describeFlags

	cmd := &cobra.Command{
		Use:   "describe RULE",
		Short: "Describe a single recurrence rule",
		Example: `  rruletext describe 'FREQ=MONTHLY;BYDAY=3FR;COUNT=10' --start 2011-08-15T00:00:00Z
  rruletext describe $'DTSTART:20111002T210000Z\nRRULE:FREQ=MONTHLY;INTERVAL=2;BYDAY=1SU;UNTIL=20120805T210000Z'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			tz := flags.tz
			if tz == "" {
				tz = cfg.Timezone
			}
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("timezone %q: %w", tz, err)
			}

			var start time.Time
			if flags.start != "" {
				start, err = time.Parse(time.RFC3339, flags.start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				start = start.In(loc)
			}

			spec, err := recurrence.Parse(args[0], start, loc)
			if err != nil {
				return err
			}
			if flags.tz != "" {
				spec = spec.WithTimezone(flags.tz)
			}

			opts := cfg.DescribeOptions()
			if flags.dateFormat != "" {
				opts.DateFormat = flags.dateFormat
			}
			if flags.timeFormat != "" {
				opts.TimeFormat = flags.timeFormat
			}
			if cmd.Flags().Changed("open-ended") {
				opts.OpenEnded = flags.openEnded
			}

			d, err := describe.NewRenderer(nil).Describe(spec, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, d.String())
			if flags.slots {
				fmt.Fprintf(out, "  interval:   %q\n", d.Interval)
				fmt.Fprintf(out, "  occurrence: %q\n", d.Occurrence)
				fmt.Fprintf(out, "  period:     %q\n", d.Period)
				fmt.Fprintf(out, "  begin:      %q\n", d.BeginTime)
				fmt.Fprintf(out, "  terminal:   %q\n", d.Terminal)
				fmt.Fprintf(out, "  timezone:   %q\n", d.Timezone)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.start, "start", "", "RFC 3339 start, required unless the rule carries DTSTART")
	f.StringVar(&flags.tz, "tz", "", "IANA timezone for the start; named in the output")
	f.StringVar(&flags.dateFormat, "date-format", "", "strftime date layout (default from config)")
	f.StringVar(&flags.timeFormat, "time-format", "", "strftime time layout (default from config)")
	f.BoolVar(&flags.openEnded, "open-ended", false, "Allow rules with neither COUNT nor UNTIL")
	f.BoolVar(&flags.slots, "slots", false, "Also print the individual sentence slots")

	return cmd
}

func newICSCmd(root *rootFlags) *cobra.Command {
	var failOnError bool

	cmd := &cobra.Command{
		Use:   "ics FILE|URL...",
		Short: "Describe every recurring event of one or more ICS feeds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			sources := make([]ics.Source, 0, len(args))
			for _, a := range args {
				sources = append(sources, ics.Source{ID: a, URL: a})
			}

			fetcher := ics.NewFetcher(cfg.CacheDir, 0)
			results, fetchErr := fetcher.FetchAll(cmd.Context(), sources)

			var parsed []ics.ParsedEvent
			for _, res := range results {
				events, err := ics.ParseICS(res.Source, res.Body)
				if err != nil {
					fetchErr = errors.Join(fetchErr, fmt.Errorf("%s: %w", res.Source.ID, err))
					continue
				}
				parsed = append(parsed, events...)
			}

			described := ics.DescribeEvents(parsed, ics.DescribeConfig{Options: cfg.DescribeOptions()})

			out := cmd.OutOrStdout()
			for _, ev := range described.Events {
				if ev.Failed() {
					fmt.Fprintf(out, "%s\t%s\terror: %s\n", ev.UID, ev.Summary, ev.Error)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", ev.UID, ev.Summary, ev.Description)
			}

			if fetchErr != nil {
				return fetchErr
			}
			if failOnError && described.Failed > 0 {
				return fmt.Errorf("%d of %d rules could not be described", described.Failed, len(described.Events))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failOnError, "strict", false, "Exit non-zero when any rule cannot be described")
	return cmd
}

func newServeCmd(root *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the describe API and refresh configured feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			// --listen overrides the config file listen address.
			if listen != "" {
				cfg.Listen = listen
			}

			appLog.Info("rruletext starting", "version", version)
			appLog.Info("effective config",
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"refresh", cfg.RefreshCron,
				"open_ended", cfg.OpenEnded,
				"ics_count", len(cfg.ICS),
			)

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			go func() {
				select {
				case sig := <-sigCh:
					appLog.Info("signal received, shutting down", "signal", sig.String())
					cancel()
				case <-ctx.Done():
				}
			}()

			if err := web.StartServer(ctx, cfg); err != nil {
				return err
			}
			appLog.Info("rruletext exiting")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
