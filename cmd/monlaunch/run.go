package main

import (
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frudas24/monlaunch/internal/app"
	"github.com/frudas24/monlaunch/internal/config"
	"github.com/frudas24/monlaunch/internal/launch"
	"github.com/frudas24/monlaunch/internal/logging"
	"github.com/frudas24/monlaunch/internal/monitor"
)

// replayPollInterval is used when watching a --monitors-file without an
// explicit --poll-interval.
const replayPollInterval = 2 * time.Second

// runRoot wires the application and runs it once or until interrupted.
func runRoot(cmd *cobra.Command, opts *options, args []string) error {
	settings, logger, err := loadRuntime(cmd, opts)
	if err != nil {
		return err
	}

	rules, rulesPath, err := opts.buildRules(args, settings)
	if err != nil {
		return err
	}
	src, watcher := newSource(opts, settings)
	logStartup(logger, opts, settings, rules, rulesPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appOpts := app.Options{
		Source: src,
		Rules:  rules,
		DryRun: opts.dryRun,
		Out:    cmd.OutOrStdout(),
		Logger: logger,
	}
	if !opts.dryRun {
		runner := launch.NewRunner()
		runner.OnExit = func(spec launch.ProcessSpec, pid int, err error) {
			logger.Info("process exited", "program", spec.Program, "monitor", spec.Monitor, "pid", pid, "err", err)
		}
		appOpts.Spawner = runner
	}
	if opts.daemonize {
		appOpts.Watcher = watcher
		appOpts.RulesPath = rulesPath
		appOpts.Debounce = settings.Debounce
		appOpts.ListenAddr = settings.ListenAddr
	}

	a, err := app.New(appOpts)
	if err != nil {
		return err
	}
	if !opts.daemonize {
		return a.RunOnce(ctx)
	}
	logger.Info("watching for monitor changes")
	return a.Run(ctx)
}

// loadRuntime reads settings, applies flags and builds the logger.
func loadRuntime(cmd *cobra.Command, opts *options) (config.Settings, *slog.Logger, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return config.Settings{}, nil, err
	}
	applyFlags(cmd, opts, &settings)
	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return config.Settings{}, nil, err
	}
	return settings, logging.NewWriter(cmd.ErrOrStderr(), level), nil
}

// newSource picks the display server or a recorded topology.
func newSource(opts *options, s config.Settings) (monitor.Source, monitor.Watcher) {
	if opts.monitorsFile != "" {
		src := monitor.File(opts.monitorsFile)
		interval := s.PollInterval
		if interval <= 0 {
			interval = replayPollInterval
		}
		return src, &monitor.PollWatcher{Source: src, Interval: interval}
	}
	src := monitor.NewSource(s.Display)
	return src, monitor.NewWatcher(src, s.Display, s.PollInterval)
}

// logStartup prints startup checks.
func logStartup(logger *slog.Logger, opts *options, s config.Settings, rules []config.Rule, rulesPath string) {
	logger.Debug("monlaunch starting", "dry_run", opts.dryRun, "daemonize", opts.daemonize)
	if rulesPath != "" {
		logger.Info("rules loaded", "path", rulesPath, "rules", len(rules))
	}
	logEnvStatus(logger, s)
	if opts.monitorsFile != "" {
		logger.Info("monitor source", "file", opts.monitorsFile)
	} else {
		logger.Debug("monitor source", "display", displayName(s.Display))
	}
	for _, r := range rules {
		logProgramStatus(logger, r)
	}
	if opts.daemonize {
		logListenStatus(logger, s.ListenAddr)
	}
}

// logEnvStatus reports whether a .env file was found.
func logEnvStatus(logger *slog.Logger, s config.Settings) {
	if s.ConfigDir == "" {
		return
	}
	envPath := filepath.Join(s.ConfigDir, ".env")
	if fileExists(envPath) {
		logger.Debug("env check: ok", "path", envPath)
	}
}

// logProgramStatus reports whether a rule's program is discoverable.
func logProgramStatus(logger *slog.Logger, r config.Rule) {
	resolved, note, ok := launch.LookPath(r.Cmd)
	if ok {
		logger.Debug("program check: ok", "rule", r.Label(), "path", resolved)
		return
	}
	logger.Warn("program check: missing", "rule", r.Label(), "program", r.Cmd, "note", note)
}

// logListenStatus reports the status server address and a local URL helper.
func logListenStatus(logger *slog.Logger, addr string) {
	if addr == "" {
		return
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	logger.Info("status server", "addr", addr, "url", "http://"+net.JoinHostPort(host, port)+"/api/state")
}

func displayName(display string) string {
	if display != "" {
		return display
	}
	if env := os.Getenv("DISPLAY"); env != "" {
		return env
	}
	return "default"
}
