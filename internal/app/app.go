// Package app runs launch rules against monitor snapshots, once or as a
// daemon reacting to topology changes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/frudas24/monlaunch/internal/affinity"
	"github.com/frudas24/monlaunch/internal/config"
	"github.com/frudas24/monlaunch/internal/events"
	"github.com/frudas24/monlaunch/internal/launch"
	"github.com/frudas24/monlaunch/internal/logging"
	"github.com/frudas24/monlaunch/internal/metrics"
	"github.com/frudas24/monlaunch/internal/monitor"
	"github.com/frudas24/monlaunch/internal/state"
)

// Spawner starts a process without waiting for it.
type Spawner interface {
	Spawn(spec launch.ProcessSpec) (int, error)
}

// Options configures an App.
type Options struct {
	Source  monitor.Source
	Spawner Spawner
	Rules   []config.Rule
	// DryRun prints each process to Out instead of starting it.
	DryRun bool
	Out    io.Writer
	Logger *slog.Logger
	// Metrics, Events and State are created when nil.
	Metrics *metrics.Metrics
	Events  *events.Hub
	State   *state.State

	// Daemon settings.
	Watcher    monitor.Watcher
	RulesPath  string
	Debounce   time.Duration
	ListenAddr string
}

// App coordinates resolution, materialization and launching.
type App struct {
	mu      sync.Mutex
	source  monitor.Source
	spawner Spawner
	rules   []config.Rule
	dryRun  bool
	out     io.Writer
	log     *slog.Logger
	metrics *metrics.Metrics
	events  *events.Hub
	state   *state.State
	now     func() time.Time

	watcher    monitor.Watcher
	rulesPath  string
	debounce   time.Duration
	listenAddr string
}

// New creates a new application with its dependencies wired.
func New(opts Options) (*App, error) {
	if opts.Source == nil {
		return nil, errors.New("monitor source is required")
	}
	if len(opts.Rules) == 0 {
		return nil, config.ErrNoRules
	}
	if opts.DryRun && opts.Out == nil {
		return nil, errors.New("dry run needs an output writer")
	}
	if !opts.DryRun && opts.Spawner == nil {
		return nil, errors.New("spawner is required")
	}

	a := &App{
		source:     opts.Source,
		spawner:    opts.Spawner,
		dryRun:     opts.DryRun,
		out:        opts.Out,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		events:     opts.Events,
		state:      opts.State,
		now:        time.Now,
		watcher:    opts.Watcher,
		rulesPath:  opts.RulesPath,
		debounce:   opts.Debounce,
		listenAddr: opts.ListenAddr,
	}
	if a.log == nil {
		a.log = logging.NewNop()
	}
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	if a.events == nil {
		a.events = events.NewHub()
	}
	if a.state == nil {
		a.state = state.New()
	}
	a.SetRules(opts.Rules)
	return a, nil
}

// SetRules replaces the rule list and forgets state of removed rules.
func (a *App) SetRules(rules []config.Rule) {
	keys := make([]string, len(rules))
	for i, r := range rules {
		keys[i] = stateKey(i, r)
	}
	a.mu.Lock()
	a.rules = append([]config.Rule(nil), rules...)
	a.mu.Unlock()
	a.state.Retain(keys)
}

// stateKey identifies the rule at position i. Identical rules at different
// positions keep separate state.
func stateKey(i int, r config.Rule) string {
	return fmt.Sprintf("%d\x00%s", i, r.Key())
}

// Rules returns a copy of the current rule list.
func (a *App) Rules() []config.Rule {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]config.Rule(nil), a.rules...)
}

// State returns the runtime state.
func (a *App) State() *state.State {
	return a.state
}

// RunOnce takes one snapshot and runs every rule against it. Spawn
// failures do not stop later specs or rules; they are joined into the
// returned error.
func (a *App) RunOnce(ctx context.Context) error {
	monitors, err := a.source.List(ctx)
	if err != nil {
		return fmt.Errorf("list monitors: %w", err)
	}
	return a.pass(monitors, false)
}

// pass runs the rules over one fixed snapshot. With onlyChanged, processes
// are only started on targets the rule has not been applied to yet.
func (a *App) pass(monitors []monitor.Monitor, onlyChanged bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	gen := a.state.BeginPass(monitors, now)
	a.metrics.Passes.Inc()
	a.metrics.Monitors.Set(float64(len(monitors)))
	a.log.Debug("resolving rules", "generation", gen, "monitors", monitor.Names(monitors))

	var errs []error
	for i, rule := range a.rules {
		label := rule.Label()
		selection := affinity.Resolve(rule.Affinities, monitors)
		names := monitor.Names(selection)
		a.metrics.Selected.WithLabelValues(label).Set(float64(len(selection)))

		key := stateKey(i, rule)
		specs := launch.Materialize(rule.Template(), selection)
		targets := targetNames(specs)
		if onlyChanged {
			specs = onTargets(specs, a.state.Pending(key, targets))
		}

		rec := state.Rule{Label: label, Key: key, Selected: names, Targets: targets}
		if len(targets) == 0 {
			a.log.Info("no monitor matched", "rule", label, "affinities", rule.Affinities.String())
		} else if len(specs) == 0 {
			a.log.Debug("targets unchanged", "rule", label, "targets", targets)
			a.state.Record(rec)
			continue
		}

		rec.Applied = now
		for _, spec := range specs {
			if err := a.launch(label, spec); err != nil {
				rec.Failed++
				errs = append(errs, fmt.Errorf("rule %s on %s: %w", label, spec.Monitor, err))
				continue
			}
			rec.Spawned++
		}
		a.state.Record(rec)
		a.events.Publish(events.Event{Type: events.TypeRun, Rule: label, Monitors: names})
	}
	return errors.Join(errs...)
}

// targetNames returns the monitor of every spec, in order.
func targetNames(specs []launch.ProcessSpec) []string {
	out := make([]string, len(specs))
	for i, spec := range specs {
		out[i] = spec.Monitor
	}
	return out
}

// onTargets keeps the specs whose monitor is in targets.
func onTargets(specs []launch.ProcessSpec, targets []string) []launch.ProcessSpec {
	out := specs[:0:0]
	for _, spec := range specs {
		if slices.Contains(targets, spec.Monitor) {
			out = append(out, spec)
		}
	}
	return out
}

// launch prints or starts one process.
func (a *App) launch(label string, spec launch.ProcessSpec) error {
	if a.dryRun {
		_, err := fmt.Fprintln(a.out, spec.String())
		return err
	}

	pid, err := a.spawner.Spawn(spec)
	if err != nil {
		a.log.Error("spawn failed", "rule", label, "monitor", spec.Monitor, "program", spec.Program, "err", err)
		a.metrics.Spawns.WithLabelValues(label, "error").Inc()
		a.events.Publish(events.Event{
			Type:     events.TypeSpawnError,
			Rule:     label,
			Monitors: []string{spec.Monitor},
			Message:  err.Error(),
		})
		return err
	}
	a.log.Info("launched", "rule", label, "monitor", spec.Monitor, "program", spec.Program, "pid", pid)
	a.metrics.Spawns.WithLabelValues(label, "ok").Inc()
	a.events.Publish(events.Event{
		Type:     events.TypeSpawn,
		Rule:     label,
		Monitors: []string{spec.Monitor},
		Message:  fmt.Sprintf("pid %d", pid),
	})
	return nil
}
