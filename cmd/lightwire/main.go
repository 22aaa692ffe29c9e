package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightwire/internal/app"
	"github.com/dokzlo13/lightwire/internal/config"
)

const usage = `Usage: lightwire [-c config.yaml] <command> [flags]

Commands:
  populate   Discover lights and generate PipeWire drop-in files
  sync       Run the bidirectional brightness/volume sync loop
  discover   List lights visible on the configured providers
`

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := loadConfig(configPath)
	setupLogging(cfg.Log.Level, cfg.Log.UseJSON, cfg.Log.Colors)

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "populate":
		err = runPopulate(cfg, args)
	case "sync":
		err = runSync(cfg, args)
	case "discover":
		err = runDiscover(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("Command failed")
	}
}

// loadConfig reads the config file, falling back to built-in defaults
// when the default path does not exist.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) && path == "config.yaml" {
			log.Info().Msg("No config file found, using defaults")
			return config.Default()
		}
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return cfg
}

func runPopulate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	clean := fs.Bool("clean", false, "Remove previously generated drop-ins first")
	setBrightness := fs.Bool("set-brightness", false, "Push current node volumes to the lights after populating")
	dryRun := fs.Bool("dry-run", false, "Log what would be written without writing")
	fs.Parse(args)

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Stop()

	ctx := app.SignalContext()
	return application.Services().Populate(ctx, app.PopulateOptions{
		Clean:         *clean,
		SetBrightness: *setBrightness,
		DryRun:        *dryRun,
	})
}

func runSync(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	once := fs.Bool("once", false, "Push current light state to the audio nodes once and exit")
	dryRun := fs.Bool("dry-run", false, "Log every prospective write without issuing it")
	fs.Parse(args)

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Stop()

	ctx := app.SignalContext()

	if *once {
		engine, _, err := application.Services().BuildEngine(*dryRun)
		if err != nil {
			return err
		}
		engine.SyncToAudioOnce(ctx)
		return nil
	}

	if err := application.Start(ctx, *dryRun); err != nil {
		return err
	}
	application.Wait()
	return nil
}

func runDiscover(cfg *config.Config) error {
	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Stop()

	ctx := app.SignalContext()
	records, err := application.Services().Discover(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No lights found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tID\tLABEL\tNODE\tBRIGHTNESS\tPOWER")
	for _, r := range records {
		power := "off"
		if r.Power {
			power = "on"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			r.Provider, r.ID, r.Label, r.NodeName, int(r.Brightness*100), power)
	}
	return w.Flush()
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
