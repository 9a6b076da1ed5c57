package registry

import (
	"context"

	"github.com/hearthdesk/hearthd/pkg/paths"
	"github.com/sirupsen/logrus"
)

// SensorSource is the sensor catalog as seen by the registry: a set of
// named sections that can each produce fresh entries on demand.
// *sensor.Catalog implements it.
type SensorSource interface {
	Sections() []string
	Collect(ctx context.Context, section string) ([]Entry, error)
}

// activeWindowSection is the one section whose entries land in appdata
// instead of sysdata.
const activeWindowSection = "active_window"

// Build produces a complete registry from scratch: addon discovery, asset
// discovery, a synchronous sensor pull across all sections, and an
// active-window sample, in that order. Individual failures are logged and
// their entries omitted; Build itself never fails.
func Build(ctx context.Context, root string, sensors SensorSource, logger *logrus.Entry) Registry {
	reg := Registry{
		Addons: DiscoverAddons(paths.AddonsDir(root), logger),
		Assets: DiscoverAssets(paths.AssetsDir(root), logger),
	}

	for _, section := range sensors.Sections() {
		entries, err := sensors.Collect(ctx, section)
		if err != nil {
			logger.WithError(err).WithField("section", section).Warn("Sensor pull failed during build")
			continue
		}
		if section == activeWindowSection {
			reg.Appdata = append(reg.Appdata, entries...)
		} else {
			reg.Sysdata = append(reg.Sysdata, entries...)
		}
	}

	logger.WithFields(logrus.Fields{
		"addons":  len(reg.Addons),
		"assets":  len(reg.Assets),
		"sysdata": len(reg.Sysdata),
		"appdata": len(reg.Appdata),
	}).Info("Registry built")
	return reg
}
