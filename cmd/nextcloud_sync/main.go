// Package main implements the nextcloud_sync binary, an unattended
// synchronization supervisor around the external nextcloudcmd client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/webdav-tools/nextcloud_sync/internal/health"
	"github.com/webdav-tools/nextcloud_sync/internal/log"
	"github.com/webdav-tools/nextcloud_sync/internal/maintenance"
	"github.com/webdav-tools/nextcloud_sync/internal/nextcloud"
	"github.com/webdav-tools/nextcloud_sync/internal/sync"
)

// Config holds the raw application configuration. Numeric and boolean
// settings stay strings so invalid values can warn-and-default during
// validation instead of failing the flag parse.
type Config struct {
	User           string `short:"u" long:"user" env:"NEXTCLOUD_USER" description:"Nextcloud account to sync as"`
	Password       string `short:"p" long:"password" env:"NEXTCLOUD_PASS" description:"Password for the sync account"`
	URL            string `long:"url" env:"NEXTCLOUD_URL" description:"Nextcloud server host or URL"`
	SyncDir        string `long:"sync-dir" env:"NEXTCLOUD_SYNC_DIR" description:"Local directory to synchronize" default:"/media/nextcloud/data"`
	Retries        string `long:"retries" env:"NEXTCLOUD_SYNC_RETRIES" description:"Retries per sync cycle: 1-10, default 4"`
	Sleep          string `long:"sleep" env:"NEXTCLOUD_SLEEP" description:"Seconds between sync cycles: minimum 30, default 300"`
	RunOnce        string `long:"run-once" env:"NEXTCLOUD_RUN_ONCE" description:"Sync once and exit (true|false)"`
	Debug          string `long:"debug" env:"NEXTCLOUD_DEBUG" description:"Verbose logging and unfiltered client output (true|false)"`
	FastFailAuth   string `long:"fast-fail-auth" env:"NEXTCLOUD_FAST_FAIL_AUTH" description:"Stop a cycle immediately on credential or URL errors (true|false, default true)"`
	PreflightFatal string `long:"preflight-fatal" env:"NEXTCLOUD_PREFLIGHT_FATAL" description:"Treat a failed server preflight as fatal (true|false)"`
	DailyUpdate    string `long:"daily-update" env:"NEXTCLOUD_DAILY_UPDATE" description:"Refresh the package index once per day (true|false)"`
	Version        bool   `short:"v" long:"version" description:"Show version information"`
	Help           bool
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ParseCLI parses command-line arguments and returns the configuration
func ParseCLI(args []string) (cmdOpts *Config, err error) {
	cmdOpts = new(Config)
	parser := flags.NewParser(cmdOpts, flags.HelpFlag)
	nonParsedArgs, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			cmdOpts.Help = true
		}
		if !flags.WroteHelp(err) {
			parser.WriteHelp(os.Stdout)
		}
		return cmdOpts, err
	}
	if len(nonParsedArgs) > 0 { // we don't expect any non-parsed arguments
		return cmdOpts, fmt.Errorf("unknown argument(s): %v", nonParsedArgs)
	}
	return
}

// ShowVersion prints version information and exits
func ShowVersion() {
	fmt.Printf("nextcloud_sync version %s\n", version)
	if commit != "none" && commit != "" {
		fmt.Printf("commit: %s\n", commit)
	}
	if date != "unknown" && date != "" {
		fmt.Printf("built: %s\n", date)
	}
}

// SetupLogging configures the logging system with structured output and
// registers the health hook so every log emission counts as liveness.
func SetupLogging(debug bool, reporter *health.Reporter) {
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.SetFormatter(log.NewFormatter(false))
	logrus.AddHook(log.NewHealthHook(reporter))

	logrus.WithFields(logrus.Fields{
		"version": version,
		"commit":  commit,
		"pid":     os.Getpid(),
	}).Info("nextcloud_sync logging initialized")
}

// SetupCloseHandler creates a 'listener' on a new goroutine which will notify the
// program if it receives an interrupt from the OS. We then handle this by calling
// our clean up procedure and exiting the program.
func SetupCloseHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logrus.Info("Termination signal received, finishing current work and shutting down")
		cancel()
	}()
}

// EnsureSyncDir guarantees the sync target exists and is writable. An
// unwritable target would make every sync attempt fail identically, so
// this is checked once up front.
func EnsureSyncDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create sync directory %s: %w", path, err)
	}
	probe := filepath.Join(path, ".write-check")
	if err := os.WriteFile(probe, nil, 0644); err != nil {
		return fmt.Errorf("sync directory %s is not writable: %w", path, err)
	}
	return os.Remove(probe)
}

func main() {
	// Quick check for version flags before full parsing
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-v" {
			ShowVersion()
			os.Exit(0)
		}
	}

	// Parse CLI arguments
	cmdOpts, err := ParseCLI(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	// Setup logging with the health marker hook
	debug, _ := strconv.ParseBool(cmdOpts.Debug)
	reporter := health.NewReporter(health.DefaultMarkerPath)
	SetupLogging(debug, reporter)

	// Validate configuration
	config, err := sync.NewConfig(sync.RawConfig{
		User:           cmdOpts.User,
		Password:       cmdOpts.Password,
		ServerURL:      cmdOpts.URL,
		SyncDir:        cmdOpts.SyncDir,
		Retries:        cmdOpts.Retries,
		Sleep:          cmdOpts.Sleep,
		RunOnce:        cmdOpts.RunOnce,
		Debug:          cmdOpts.Debug,
		FastFailAuth:   cmdOpts.FastFailAuth,
		PreflightFatal: cmdOpts.PreflightFatal,
		DailyUpdate:    cmdOpts.DailyUpdate,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetupCloseHandler(cancel)

	// Prepare the sync target
	if err := EnsureSyncDir(config.SyncDir); err != nil {
		logrus.WithError(err).Fatal("Sync directory unusable")
	}

	// Best-effort connectivity preflight
	if err := nextcloud.ProbeWithRetry(ctx, config.ServerURL); err != nil {
		if config.FatalOnPreflightFailure {
			logrus.WithError(err).Fatal("Server preflight failed")
		}
		logrus.Warn("Proceeding despite failed preflight, sync attempts will retry on their own")
	}

	client := nextcloud.NewClient(config.SyncDir, config.ServerURL, config.User, config.Password, reporter)
	client.Debug = config.Debug

	var updater sync.MaintenanceRunner
	if config.DailyUpdate {
		tool := maintenance.DetectTool()
		logrus.WithField("tool", tool.String()).Info("Daily package index refresh enabled")
		updater = maintenance.NewUpdater(tool, health.NewDailyMarker(health.DefaultDailyMarkerPath))
	}

	// Create and start the sync supervisor
	service := sync.NewService(config, client, updater)
	if err := service.Start(ctx); err != nil {
		logrus.WithError(err).Error("Synchronization failed")
		os.Exit(1)
	}

	logrus.Info("Graceful shutdown completed")
}
