package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frudas24/monlaunch/internal/affinity"
	"github.com/frudas24/monlaunch/internal/config"
)

// options holds the parsed command line.
type options struct {
	affinities    []string
	args          []string
	allowMultiple bool
	env           string
	placeholder   string
	dryRun        bool
	daemonize     bool
	configFile    string

	display      string
	listen       string
	logLevel     string
	pollInterval time.Duration
	monitorsFile string
}

// ruleFlags describe a single rule and cannot be combined with --config-file.
var ruleFlags = []string{"affinities", "args", "allow-multiple", "env", "placeholder"}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "monlaunch [flags] CMD [ARGS...]",
		Short: "Run commands on the monitors chosen by affinity rules",
		Long: `monlaunch picks monitors by ordered affinities (primary, largest, leftmost, ...)
and runs a command for the winner, passing the monitor name through arguments
(%s is replaced) or an environment variable.

With --daemonize it keeps watching the display server and re-runs rules whose
chosen monitors change.`,
		Example: `  monlaunch -a largest --args --output=%s -- my-bar
  monlaunch -a nonprimary -m -e MONITOR wallpaper
  monlaunch --config-file ~/.config/monlaunch/config.yaml --daemonize`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	// Everything after CMD belongs to it.
	flags.SetInterspersed(false)
	flags.StringArrayVarP(&opts.affinities, "affinities", "a", nil, "monitor affinity, evaluated in order; repeatable or comma separated (e.g. primary,not-largest)")
	flags.StringArrayVar(&opts.args, "args", nil, "argument passed to CMD before any positional ARGS; %s is replaced with the monitor name")
	flags.BoolVarP(&opts.allowMultiple, "allow-multiple", "m", false, "run CMD once per matching monitor instead of only the first")
	flags.StringVarP(&opts.env, "env", "e", "", "environment variable set to the monitor name")
	flags.StringVar(&opts.placeholder, "placeholder", "", "token replaced by the monitor name in arguments (default \"%s\")")
	flags.BoolVar(&opts.daemonize, "daemonize", false, "keep running and re-run rules when the chosen monitors change")
	flags.StringVar(&opts.configFile, "config-file", "", "YAML file with one or more rules")
	flags.StringVar(&opts.listen, "listen", "", "status server address in daemon mode (e.g. 127.0.0.1:7340)")
	flags.DurationVar(&opts.pollInterval, "poll-interval", 0, "poll the display server at this interval instead of waiting for change events")
	for _, name := range ruleFlags {
		cmd.MarkFlagsMutuallyExclusive("config-file", name)
	}

	persistent := cmd.PersistentFlags()
	persistent.BoolVarP(&opts.dryRun, "dry-run", "d", false, "print the commands instead of running them")
	persistent.StringVar(&opts.display, "display", "", "display to query (defaults to $DISPLAY)")
	persistent.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	persistent.StringVar(&opts.monitorsFile, "monitors-file", "", "read monitors from a YAML file instead of the display server")

	cmd.AddCommand(newMonitorsCmd(opts))
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "monlaunch: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags layers explicitly set flags over the loaded settings.
func applyFlags(cmd *cobra.Command, opts *options, s *config.Settings) {
	flags := cmd.Flags()
	if flags.Changed("display") {
		s.Display = opts.display
	}
	if flags.Changed("log-level") {
		s.LogLevel = opts.logLevel
	}
	if flags.Changed("listen") {
		s.ListenAddr = opts.listen
	}
	if flags.Changed("poll-interval") {
		s.PollInterval = opts.pollInterval
	}
}

// buildRules returns the rules to run and, when they came from a file, its
// path so the daemon can watch it.
func (o *options) buildRules(args []string, s config.Settings) ([]config.Rule, string, error) {
	if o.configFile != "" {
		if len(args) > 0 {
			return nil, "", errors.New("--config-file cannot be combined with CMD")
		}
		rules, err := config.LoadFile(o.configFile)
		if err != nil {
			return nil, "", err
		}
		return rules, o.configFile, nil
	}

	if len(args) == 0 {
		if len(o.affinities) > 0 || len(o.args) > 0 {
			return nil, "", errors.New("CMD is required")
		}
		if !fileExists(s.ConfigPath) {
			return nil, "", fmt.Errorf("no CMD given and %s does not exist", s.ConfigPath)
		}
		rules, err := config.LoadFile(s.ConfigPath)
		if err != nil {
			return nil, "", err
		}
		return rules, s.ConfigPath, nil
	}

	spec, err := affinity.ParseSpec(o.affinities)
	if err != nil {
		if errors.Is(err, affinity.ErrEmptySpec) {
			return nil, "", errors.New("at least one --affinities value is required")
		}
		return nil, "", err
	}
	rule := config.Rule{
		Cmd:           args[0],
		Args:          append(append([]string(nil), o.args...), args[1:]...),
		Affinities:    spec,
		AllowMultiple: o.allowMultiple,
		Env:           o.env,
		Placeholder:   o.placeholder,
	}
	if err := rule.Validate(); err != nil {
		return nil, "", err
	}
	return []config.Rule{rule}, "", nil
}

// fileExists reports whether a path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
