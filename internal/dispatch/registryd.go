package dispatch

import (
	"context"

	"github.com/hearthdesk/hearthd/config"
	"github.com/hearthdesk/hearthd/internal/registry"
	"github.com/hearthdesk/hearthd/internal/scheduler"
)

// RegistryCommands serves the registry namespace: shaped read views of the
// authoritative in-memory state.
type RegistryCommands struct {
	Store     *registry.Store
	Tracker   *scheduler.Tracker
	Settings  *config.Store
	Scheduler *scheduler.Scheduler
}

// Mount registers the registry namespace on d.
func (r *RegistryCommands) Mount(d *Dispatcher) {
	d.Register("registry", "list_addons", r.listAddons)
	d.Register("registry", "list_assets", r.listAssets)
	d.Register("registry", "list_sysdata", r.listSysdata)
	d.Register("registry", "list_appdata", r.listAppdata)
	d.Register("registry", "snapshot", r.snapshot)
}

// refresh pulls the fast sysdata tiers inline when refresh-on-request is
// enabled, so reads observe data no staler than this request.
func (r *RegistryCommands) refresh(ctx context.Context) {
	if r.Settings.RefreshOnRequest() {
		r.Scheduler.RefreshFastNow(ctx)
	}
}

func (r *RegistryCommands) tracking() registry.TrackingMeta {
	return registry.TrackingMeta{
		Active:   r.Tracker.TrackingActive(),
		Sections: r.Tracker.Tracked(),
	}
}

func (r *RegistryCommands) listAddons(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	reg := r.Store.Snapshot()
	return registry.OutputAddons(reg.Addons), nil
}

func (r *RegistryCommands) listAssets(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	reg := r.Store.Snapshot()
	return registry.OutputAssets(reg.Assets), nil
}

func (r *RegistryCommands) listSysdata(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	r.refresh(ctx)
	reg := r.Store.Snapshot()
	return registry.OutputSysdata(reg.Sysdata), nil
}

func (r *RegistryCommands) listAppdata(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	r.refresh(ctx)
	reg := r.Store.Snapshot()
	return registry.OutputAppdata(reg.Appdata, reg.Sysdata), nil
}

func (r *RegistryCommands) snapshot(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	r.refresh(ctx)
	reg := r.Store.Snapshot()
	return registry.OutputDocument(reg, r.tracking()), nil
}
