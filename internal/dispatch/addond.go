package dispatch

import (
	"context"

	herr "github.com/hearthdesk/hearthd/errors"
	"github.com/hearthdesk/hearthd/internal/addon"
)

// AddonCommands serves the addon namespace: process control for
// registered addons.
type AddonCommands struct {
	Controller *addon.Controller
}

// Mount registers the addon namespace on d.
func (a *AddonCommands) Mount(d *Dispatcher) {
	d.Register("addon", "start", a.control(a.Controller.Start))
	d.Register("addon", "stop", a.control(a.Controller.Stop))
	d.Register("addon", "reload", a.control(a.Controller.Reload))
}

func (a *AddonCommands) control(op func(ctx context.Context, name string) (string, error)) CommandFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		var in struct {
			AddonName string `mapstructure:"addon_name"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.AddonName == "" {
			return nil, herr.MissingArgument("addon_name")
		}
		status, err := op(ctx, in.AddonName)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"status": status, "addon": in.AddonName}, nil
	}
}
