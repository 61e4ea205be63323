package app

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frudas24/monlaunch/internal/launch"
	"github.com/frudas24/monlaunch/internal/monitor"
)

type stateResponse struct {
	Generation int          `json:"generation"`
	LastPass   string       `json:"lastPass,omitempty"`
	DryRun     bool         `json:"dryRun"`
	Running    []int        `json:"running,omitempty"`
	Rules      []ruleStatus `json:"rules"`
}

type ruleStatus struct {
	Label      string   `json:"label"`
	Affinities []string `json:"affinities"`
	Selected   []string `json:"selected"`
	Spawned    int      `json:"spawned"`
	Failed     int      `json:"failed"`
}

// Routes returns the status server handler.
func (a *App) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/monitors", a.handleMonitors)
	r.Get("/api/state", a.handleState)
	r.Handle("/ws/events", a.events)
	r.Handle("/metrics", a.metrics.Handler())
	return r
}

// handleMonitors returns the snapshot of the last pass.
func (a *App) handleMonitors(w http.ResponseWriter, _ *http.Request) {
	list := a.state.Monitors()
	if list == nil {
		list = []monitor.Monitor{}
	}
	writeJSON(w, list)
}

// handleState returns the last applied selection of every rule.
func (a *App) handleState(w http.ResponseWriter, _ *http.Request) {
	snap := a.state.Snapshot()
	applied := make(map[string]int, len(snap.Rules))
	for i, r := range snap.Rules {
		applied[r.Key] = i
	}

	resp := stateResponse{
		Generation: snap.Generation,
		DryRun:     a.dryRun,
		Rules:      []ruleStatus{},
	}
	if !snap.LastPass.IsZero() {
		resp.LastPass = snap.LastPass.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if runner, ok := a.spawner.(*launch.Runner); ok {
		resp.Running = runner.Running()
	}
	for i, rule := range a.Rules() {
		status := ruleStatus{
			Label:      rule.Label(),
			Affinities: rule.Affinities.Strings(),
			Selected:   []string{},
		}
		if j, ok := applied[stateKey(i, rule)]; ok {
			r := snap.Rules[j]
			if r.Selected != nil {
				status.Selected = r.Selected
			}
			status.Spawned = r.Spawned
			status.Failed = r.Failed
		}
		resp.Rules = append(resp.Rules, status)
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
