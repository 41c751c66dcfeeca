// Command reactorctl inspects reactor host configuration files: it
// validates them, prints build information and previews configured
// schedules.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nomis52/reactor/buildinfo"
	"github.com/nomis52/reactor/config"
	"github.com/nomis52/reactor/cron"
	"github.com/nomis52/reactor/logging"
)

type Args struct {
	ConfigPath    string
	ShowVersion   bool
	ShowSchedules bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()

	// Handle version request
	if args.ShowVersion {
		showVersion()
		return nil
	}

	// Validate required config path
	if args.ConfigPath == "" {
		return fmt.Errorf("config flag (-c or --config) is required")
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// A valid config must also yield a working logger; file outputs are
	// only opened here.
	if _, err := logging.New(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if args.ShowSchedules {
		return showSchedules(cfg)
	}

	// Loading already ran validation, so reaching this point means the
	// file is good.
	fmt.Printf("Configuration validation successful: %s\n", args.ConfigPath)
	return nil
}

func showVersion() {
	props := buildinfo.Get()
	fmt.Printf("reactorctl %s\n", props.Version)
	fmt.Printf("Built: %s\n", props.BuildTime)
	fmt.Printf("Commit: %s\n", props.GitCommit)
}

// showSchedules prints each configured schedule with its next firing
// time.
func showSchedules(cfg config.Config) error {
	if len(cfg.Schedules) == 0 {
		fmt.Println("No schedules configured.")
		return nil
	}

	noop := cron.JobFunc(func(context.Context) error { return nil })
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	fmt.Printf("%-24s %-16s %-16s %s\n", "SCHEDULE", "REACTOR", "CRON", "NEXT RUN")
	for _, s := range cfg.Schedules {
		trigger, err := cron.NewTrigger(s.Cron, noop, quiet)
		if err != nil {
			return fmt.Errorf("schedule %q: %w", s.Name, err)
		}
		fmt.Printf("%-24s %-16s %-16s %s\n", s.Name, s.Reactor, s.Cron, trigger.NextRun().Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}

func parseArgs() Args {
	configPath := flag.String("config", "", "Path to config file")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	showVersion := flag.Bool("version", false, "Show version information")
	versionShort := flag.Bool("v", false, "Show version information (shorthand)")
	showSchedules := flag.Bool("schedules", false, "List configured schedules with next run times")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nReactor configuration tool\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --config /etc/reactor/config.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config config.yaml --schedules\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --version\n", os.Args[0])
	}

	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}

	version := *showVersion || *versionShort

	return Args{
		ConfigPath:    path,
		ShowVersion:   version,
		ShowSchedules: *showSchedules,
	}
}
