package dispatch

import (
	"context"

	"github.com/mitchellh/mapstructure"

	"github.com/hearthdesk/hearthd/config"
	herr "github.com/hearthdesk/hearthd/errors"
	"github.com/hearthdesk/hearthd/internal/scheduler"
)

// BackendCommands serves the backend namespace: run-time settings and
// demand control.
type BackendCommands struct {
	Settings *config.Store
	Tracker  *scheduler.Tracker
	Signal   *scheduler.Signal
}

// Mount registers the backend namespace on d.
func (b *BackendCommands) Mount(d *Dispatcher) {
	d.Register("backend", "get_config", b.getConfig)
	d.Register("backend", "set_fast_pull_rate", b.setFastPullRate)
	d.Register("backend", "set_slow_pull_rate", b.setSlowPullRate)
	d.Register("backend", "set_pull_paused", b.setPullPaused)
	d.Register("backend", "set_refresh_on_request", b.setRefreshOnRequest)
	d.Register("backend", "set_ui_data_exception_enabled", b.setUIDataException)
	d.Register("backend", "ui_heartbeat", b.uiHeartbeat)
	d.Register("backend", "set_tracking_demands", b.setTrackingDemands)
}

// decodeArgs maps loosely-typed request args onto a typed struct. Numeric
// JSON values arrive as float64 and need weak decoding into integer fields.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return herr.Wrap(err, herr.ErrCodeInternal, "argument decoder setup failed")
	}
	if err := dec.Decode(args); err != nil {
		return herr.Wrap(err, herr.ErrCodeRequestInvalid, "invalid arguments")
	}
	return nil
}

func (b *BackendCommands) getConfig(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return b.Settings.Snapshot(), nil
}

func (b *BackendCommands) setFastPullRate(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var in struct {
		RateMS *uint64 `mapstructure:"rate_ms"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.RateMS == nil {
		return nil, herr.MissingArgument("rate_ms")
	}
	applied := b.Settings.SetFastPullRateMS(*in.RateMS)
	b.Signal.Wake()
	return map[string]interface{}{"fast_pull_rate_ms": applied}, nil
}

func (b *BackendCommands) setSlowPullRate(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var in struct {
		RateMS *uint64 `mapstructure:"rate_ms"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.RateMS == nil {
		return nil, herr.MissingArgument("rate_ms")
	}
	applied := b.Settings.SetSlowPullRateMS(*in.RateMS)
	b.Signal.Wake()
	return map[string]interface{}{"slow_pull_rate_ms": applied}, nil
}

func (b *BackendCommands) setPullPaused(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var in struct {
		Paused *bool `mapstructure:"paused"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Paused == nil {
		return nil, herr.MissingArgument("paused")
	}
	b.Settings.SetPaused(*in.Paused)
	b.Signal.Wake()
	return map[string]interface{}{"data_pull_paused": *in.Paused}, nil
}

func (b *BackendCommands) setRefreshOnRequest(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var in struct {
		Enabled *bool `mapstructure:"enabled"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Enabled == nil {
		return nil, herr.MissingArgument("enabled")
	}
	b.Settings.SetRefreshOnRequest(*in.Enabled)
	return map[string]interface{}{"refresh_on_request": *in.Enabled}, nil
}

func (b *BackendCommands) setUIDataException(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var in struct {
		Enabled *bool `mapstructure:"enabled"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Enabled == nil {
		return nil, herr.MissingArgument("enabled")
	}
	b.Settings.SetUIDataExceptionEnabled(*in.Enabled)
	b.Signal.Wake()
	return map[string]interface{}{"ui_data_exception_enabled": *in.Enabled}, nil
}

func (b *BackendCommands) uiHeartbeat(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	b.Tracker.TouchHeartbeat()
	return map[string]interface{}{"acknowledged": true}, nil
}

func (b *BackendCommands) setTrackingDemands(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var in struct {
		Sections *[]string `mapstructure:"sections"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Sections == nil {
		return nil, herr.MissingArgument("sections")
	}
	b.Tracker.SetSections(*in.Sections)
	return map[string]interface{}{"tracked": b.Tracker.Tracked()}, nil
}
