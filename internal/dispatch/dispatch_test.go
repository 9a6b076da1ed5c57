package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthdesk/hearthd/config"
	herr "github.com/hearthdesk/hearthd/errors"
	"github.com/hearthdesk/hearthd/internal/addon"
	"github.com/hearthdesk/hearthd/internal/registry"
	"github.com/hearthdesk/hearthd/internal/scheduler"
	"github.com/hearthdesk/hearthd/internal/sensor"
	"github.com/hearthdesk/hearthd/internal/server"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// newTestDispatcher wires a full dispatcher against in-memory state.
func newTestDispatcher(t *testing.T) (*Dispatcher, *registry.Store, *config.Store, *scheduler.Tracker) {
	t.Helper()
	logger := testLogger()
	settings := config.Load(filepath.Join(t.TempDir(), "config.yaml"), logger)
	store := registry.NewStore()
	sig := scheduler.NewSignal()
	tracker := scheduler.NewTracker(settings.UIDataExceptionEnabled, sig)
	sched := scheduler.NewScheduler(store, sensor.NewCatalog(), tracker, sig, settings, nil, logger)

	d := NewDispatcher(logger)
	(&RegistryCommands{Store: store, Tracker: tracker, Settings: settings, Scheduler: sched}).Mount(d)
	(&SysdataCommands{Store: store}).Mount(d)
	(&BackendCommands{Settings: settings, Tracker: tracker, Signal: sig}).Mount(d)
	(&AddonCommands{Controller: addon.NewController(store, logger)}).Mount(d)
	return d, store, settings, tracker
}

func handle(d *Dispatcher, ns, cmd string, args map[string]interface{}) server.Response {
	return d.Handle(context.Background(), server.Request{Namespace: ns, Cmd: cmd, Args: args})
}

func TestDispatchTotality(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	tests := []struct {
		ns, cmd string
	}{
		{"nope", "anything"},
		{"registry", "nope"},
		{"sysdata", "get_flux"},
		{"backend", ""},
		{"", ""},
	}
	for _, tt := range tests {
		resp := handle(d, tt.ns, tt.cmd, nil)
		assert.False(t, resp.OK)
		assert.NotEmpty(t, resp.Error, "%s.%s", tt.ns, tt.cmd)
	}
}

func TestErrorEnvelopeSerializesAsString(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	raw, err := json.Marshal(handle(d, "nope", "anything", nil))
	require.NoError(t, err)

	// Clients decode the error field as a plain string.
	var wire struct {
		OK    bool    `json:"ok"`
		Error *string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.False(t, wire.OK)
	require.NotNil(t, wire.Error)
	assert.Contains(t, *wire.Error, string(herr.ErrCodeUnknownNamespace))
}

func TestSetPullPausedEnvelope(t *testing.T) {
	d, _, settings, _ := newTestDispatcher(t)

	resp := handle(d, "backend", "set_pull_paused", map[string]interface{}{"paused": true})

	require.True(t, resp.OK)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["data_pull_paused"])
	assert.True(t, settings.Paused())

	// The exact wire shape clients depend on.
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"data":{"data_pull_paused":true}}`, string(raw))
}

func TestSetPullRatesClampAndDecodeNumbers(t *testing.T) {
	d, _, settings, _ := newTestDispatcher(t)

	// JSON numbers arrive as float64 and must decode into the uint64 arg.
	resp := handle(d, "backend", "set_fast_pull_rate", map[string]interface{}{"rate_ms": float64(100)})
	require.True(t, resp.OK)
	assert.Equal(t, uint64(100), settings.FastPullRateMS())

	resp = handle(d, "backend", "set_slow_pull_rate", map[string]interface{}{"rate_ms": float64(999999)})
	require.True(t, resp.OK)
	assert.Equal(t, uint64(config.MaxSlowRateMS), settings.SlowPullRateMS())
}

func TestBackendMissingArguments(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	tests := []struct {
		cmd string
		arg string
	}{
		{"set_fast_pull_rate", "rate_ms"},
		{"set_slow_pull_rate", "rate_ms"},
		{"set_pull_paused", "paused"},
		{"set_refresh_on_request", "enabled"},
		{"set_ui_data_exception_enabled", "enabled"},
		{"set_tracking_demands", "sections"},
	}
	for _, tt := range tests {
		resp := handle(d, "backend", tt.cmd, nil)
		assert.False(t, resp.OK, tt.cmd)
		assert.Contains(t, resp.Error, string(herr.ErrCodeMissingArgument))
	}
}

func TestSetTrackingDemands(t *testing.T) {
	d, _, _, tracker := newTestDispatcher(t)

	resp := handle(d, "backend", "set_tracking_demands", map[string]interface{}{
		"sections": []interface{}{"CPU", "ram"},
	})

	require.True(t, resp.OK)
	assert.Equal(t, map[string]bool{"cpu": true, "ram": true}, tracker.Tracked())

	// An empty list clears the set, it is not a missing argument.
	resp = handle(d, "backend", "set_tracking_demands", map[string]interface{}{
		"sections": []interface{}{},
	})
	require.True(t, resp.OK)
	assert.Empty(t, tracker.Tracked())
}

func TestUIHeartbeatActivatesDemand(t *testing.T) {
	d, _, _, tracker := newTestDispatcher(t)

	assert.False(t, tracker.Active())
	resp := handle(d, "backend", "ui_heartbeat", nil)
	require.True(t, resp.OK)
	assert.True(t, tracker.Active())
}

func TestGetConfig(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	resp := handle(d, "backend", "get_config", nil)
	require.True(t, resp.OK)

	settings := resp.Data.(config.Settings)
	assert.Equal(t, uint64(config.DefaultFastRateMS), settings.FastPullRateMS)

	// The wire shape uses the settings-file field names and hides the
	// legacy rate field.
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"data":{
		"fast_pull_rate_ms":50,
		"slow_pull_rate_ms":500,
		"data_pull_paused":false,
		"refresh_on_request":true,
		"ui_data_exception_enabled":true}}`, string(raw))
}

func TestRegistryListCommands(t *testing.T) {
	d, store, settings, _ := newTestDispatcher(t)
	settings.SetRefreshOnRequest(false)

	store.Replace(registry.Registry{
		Addons: []registry.Entry{{
			ID: "wx1", Category: "addon",
			Metadata: map[string]interface{}{"name": "Weather", "exe_path": "/x/wx"},
			ExePath:  "/x/wx",
		}},
		Sysdata: []registry.Entry{{
			ID: "cpu-0", Category: "cpu",
			Metadata: map[string]interface{}{"usage": 42.0},
		}},
	}, "test")

	resp := handle(d, "registry", "list_addons", nil)
	require.True(t, resp.OK)
	addons := resp.Data.([]interface{})
	require.Len(t, addons, 1)
	assert.Equal(t, "/x/wx", addons[0].(map[string]interface{})["entry_path"])

	resp = handle(d, "registry", "list_sysdata", nil)
	require.True(t, resp.OK)
	sysdata := resp.Data.(map[string]interface{})
	assert.Equal(t, 42.0, sysdata["cpu"].(map[string]interface{})["usage"])

	resp = handle(d, "registry", "snapshot", nil)
	require.True(t, resp.OK)
	doc := resp.Data.(map[string]interface{})
	assert.Contains(t, doc, "addons")
	assert.Contains(t, doc, "__meta")
}

func TestAppdataReadRefreshesFastSysdata(t *testing.T) {
	d, store, settings, _ := newTestDispatcher(t)
	require.True(t, settings.RefreshOnRequest())

	resp := handle(d, "registry", "list_appdata", nil)
	require.True(t, resp.OK)

	// The read pulled the fast sysdata tier inline, same as list_sysdata
	// and snapshot.
	reg := store.Snapshot()
	assert.NotNil(t, registry.FindByCategory(reg.Sysdata, "time"))
}

func TestSysdataCategoryReads(t *testing.T) {
	d, store, _, _ := newTestDispatcher(t)

	store.MergeSysdata([]registry.Entry{{
		ID: "ram-0", Category: "ram",
		Metadata: map[string]interface{}{"used_gb": 7.5},
	}}, []string{"ram"}, "test")

	resp := handle(d, "sysdata", "get_ram", nil)
	require.True(t, resp.OK)
	assert.Equal(t, 7.5, resp.Data.(map[string]interface{})["used_gb"])

	// An unsampled category reads as null data, not an error.
	resp = handle(d, "sysdata", "get_gpu", nil)
	require.True(t, resp.OK)
	assert.Nil(t, resp.Data)
}

func TestAddonCommandsRequireNameAndExistence(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	resp := handle(d, "addon", "start", nil)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, string(herr.ErrCodeMissingArgument))

	resp = handle(d, "addon", "start", map[string]interface{}{"addon_name": "ghost"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, string(herr.ErrCodeAddonNotFound))

	resp = handle(d, "addon", "reload", map[string]interface{}{"addon_name": "ghost"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, string(herr.ErrCodeAddonNotFound))
}
