package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/frudas24/monlaunch/internal/config"
	"github.com/frudas24/monlaunch/internal/events"
	"github.com/frudas24/monlaunch/internal/monitor"
)

// healthyWatch is how long a watch must last before its failure no longer
// counts towards the backoff.
const healthyWatch = time.Minute

// Run applies every rule, then re-applies rules whose selection or
// definition changes whenever the topology or the rules file changes. It
// returns when ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.watcher == nil {
		return errors.New("daemon mode needs a topology watcher")
	}

	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.watchTopology(ctx, notify)
		return nil
	})
	if a.rulesPath != "" {
		g.Go(func() error {
			a.watchRules(ctx, notify)
			return nil
		})
	}
	if a.listenAddr != "" {
		g.Go(func() error {
			return a.serve(ctx)
		})
	}
	g.Go(func() error {
		a.evaluateLoop(ctx, trigger)
		return nil
	})
	return g.Wait()
}

// evaluateLoop runs a pass now and after every debounced trigger.
func (a *App) evaluateLoop(ctx context.Context, trigger <-chan struct{}) {
	a.evaluate(ctx)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		var debounceC <-chan time.Time
		if debounceTimer != nil {
			debounceC = debounceTimer.C
		}
		select {
		case <-ctx.Done():
			return
		case <-trigger:
			if a.debounce <= 0 {
				a.evaluate(ctx)
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(a.debounce)
		case <-debounceC:
			debounceTimer = nil
			a.evaluate(ctx)
		}
	}
}

// evaluate takes a fresh snapshot and re-runs changed rules.
func (a *App) evaluate(ctx context.Context) {
	monitors, err := a.source.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.log.Warn("list monitors failed", "err", err)
			a.events.Publish(events.Event{Type: events.TypeWatchError, Message: err.Error()})
		}
		return
	}

	if prev := a.state.Monitors(); prev != nil && !monitor.Equal(prev, monitors) {
		a.log.Info("monitor topology changed", "before", monitor.Names(prev), "after", monitor.Names(monitors))
		a.metrics.TopologyChanges.Inc()
		a.events.Publish(events.Event{Type: events.TypeTopology, Monitors: monitor.Names(monitors)})
	}

	if err := a.pass(monitors, true); err != nil {
		a.log.Warn("pass finished with errors", "err", err)
	}
}

// watchTopology keeps the watcher running. A re-evaluation is requested
// after every reconnect since changes may have been missed.
func (a *App) watchTopology(ctx context.Context, notify func()) {
	a.keepWatching(ctx, "topology", func(ctx context.Context) error {
		return a.watcher.Watch(ctx, notify)
	}, notify)
}

// watchRules reloads the rules file on change. A broken file keeps the
// previous rules.
func (a *App) watchRules(ctx context.Context, notify func()) {
	reload := func() {
		rules, err := config.LoadFile(a.rulesPath)
		if err != nil {
			a.log.Warn("rules reload failed, keeping previous rules", "path", a.rulesPath, "err", err)
			a.events.Publish(events.Event{Type: events.TypeWatchError, Message: err.Error()})
			return
		}
		a.SetRules(rules)
		a.log.Info("rules reloaded", "path", a.rulesPath, "rules", len(rules))
		a.events.Publish(events.Event{Type: events.TypeReload, Message: a.rulesPath})
		notify()
	}
	onError := func(err error) {
		a.log.Warn("rules file watcher error", "path", a.rulesPath, "err", err)
	}
	a.keepWatching(ctx, "rules", func(ctx context.Context) error {
		return config.WatchFile(ctx, a.rulesPath, a.debounce, reload, onError)
	}, reload)
}

// keepWatching runs watch until ctx is done, restarting it with
// exponential backoff whenever it returns. afterRetry runs after each
// restart wait.
func (a *App) keepWatching(ctx context.Context, what string, watch func(context.Context) error, afterRetry func()) {
	expback := backoff.NewExponentialBackOff()
	expback.InitialInterval = time.Second
	expback.MaxInterval = time.Minute

	for {
		start := time.Now()
		err := watch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("watcher stopped")
		}
		if time.Since(start) > healthyWatch {
			expback.Reset()
		}
		wait := expback.NextBackOff()
		a.log.Warn("watcher failed", "watcher", what, "err", err, "retry_in", wait)
		a.events.Publish(events.Event{Type: events.TypeWatchError, Message: what + ": " + err.Error()})

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		afterRetry()
	}
}

// serve runs the status server until ctx is cancelled.
func (a *App) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.listenAddr,
		Handler:           a.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	a.log.Info("status server listening", "addr", a.listenAddr)

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
