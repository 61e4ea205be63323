package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frudas24/monlaunch/internal/affinity"
	"github.com/frudas24/monlaunch/internal/config"
	"github.com/frudas24/monlaunch/internal/monitor"
)

func newServedApp(t *testing.T) (*App, *httptest.Server) {
	t.Helper()
	a, err := New(Options{
		Source:  monitor.Static{primaryMon, largeMon},
		Spawner: &fakeSpawner{},
		Rules: []config.Rule{
			rule("wall", "wall", false, affinity.Is(affinity.Largest)),
			rule("side", "side", false, affinity.Is(affinity.Portrait)),
		},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(a.Routes())
	t.Cleanup(srv.Close)
	return a, srv
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// TestRoutes_MonitorsBeforeFirstPass verifies an empty list is returned before any pass.
func TestRoutes_MonitorsBeforeFirstPass(t *testing.T) {
	_, srv := newServedApp(t)

	var list []monitor.Monitor
	getJSON(t, srv.URL+"/api/monitors", &list)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

// TestRoutes_StateAfterPass verifies rule selections and the snapshot are reported.
func TestRoutes_StateAfterPass(t *testing.T) {
	a, srv := newServedApp(t)
	require.NoError(t, a.RunOnce(context.Background()))

	var list []monitor.Monitor
	getJSON(t, srv.URL+"/api/monitors", &list)
	assert.Equal(t, []string{"PRIMARY", "LARGE"}, monitor.Names(list))

	var st stateResponse
	getJSON(t, srv.URL+"/api/state", &st)
	assert.Equal(t, 1, st.Generation)
	assert.NotEmpty(t, st.LastPass)
	assert.False(t, st.DryRun)
	require.Len(t, st.Rules, 2)
	assert.Equal(t, ruleStatus{Label: "wall", Affinities: []string{"largest"}, Selected: []string{"LARGE"}, Spawned: 1}, st.Rules[0])
	assert.Equal(t, ruleStatus{Label: "side", Affinities: []string{"portrait"}, Selected: []string{}}, st.Rules[1])
}

// TestRoutes_Metrics verifies the Prometheus endpoint exposes pass counters.
func TestRoutes_Metrics(t *testing.T) {
	a, srv := newServedApp(t)
	require.NoError(t, a.RunOnce(context.Background()))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "monlaunch_passes_total 1")
	assert.Contains(t, string(body), `monlaunch_spawns_total{result="ok",rule="wall"} 1`)
	assert.Contains(t, string(body), "monlaunch_monitors 2")
}
