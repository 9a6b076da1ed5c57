package registry

import (
	"encoding/json"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// TrackingMeta is the demand state recorded in the snapshot's __meta
// section, so external tooling can see which sections were live when the
// snapshot was written.
type TrackingMeta struct {
	Active   bool
	Sections map[string]bool
}

type snapshotMeta struct {
	WrittenMS      int64                      `json:"written_ms"`
	TrackingActive bool                       `json:"tracking_active"`
	Sections       map[string]sectionTracking `json:"sections"`
}

type sectionTracking struct {
	Tracked bool `json:"tracked"`
}

// snapshotDocument is the on-disk snapshot shape: the four raw registry
// lists plus metadata. The lists round-trip byte-identically through
// Encode/Decode; the shaped RPC views in output.go are derived, not
// persisted.
type snapshotDocument struct {
	Addons  []Entry      `json:"addons"`
	Assets  []Entry      `json:"assets"`
	Sysdata []Entry      `json:"sysdata"`
	Appdata []Entry      `json:"appdata"`
	Meta    snapshotMeta `json:"__meta"`
}

// EncodeSnapshot serializes a registry to the snapshot format.
func EncodeSnapshot(reg Registry, tm TrackingMeta) ([]byte, error) {
	sections := make(map[string]sectionTracking, len(tm.Sections))
	for name, tracked := range tm.Sections {
		sections[name] = sectionTracking{Tracked: tracked}
	}
	doc := snapshotDocument{
		Addons:  reg.Addons,
		Assets:  reg.Assets,
		Sysdata: reg.Sysdata,
		Appdata: reg.Appdata,
		Meta: snapshotMeta{
			WrittenMS:      time.Now().UnixMilli(),
			TrackingActive: tm.Active,
			Sections:       sections,
		},
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeSnapshot parses a snapshot document back into a registry.
func DecodeSnapshot(data []byte) (Registry, error) {
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Registry{}, err
	}
	return Registry{
		Addons:  doc.Addons,
		Assets:  doc.Assets,
		Sysdata: doc.Sysdata,
		Appdata: doc.Appdata,
	}, nil
}

// Snapshotter writes the registry snapshot file. It stamps the store's
// self-write clock before touching the file so the watcher can suppress
// the resulting filesystem event.
type Snapshotter struct {
	Path     string
	Store    *Store
	Tracking func() TrackingMeta
	Logger   *logrus.Entry
}

// Persist writes reg to the snapshot path. Serialization or write
// failures are logged, never propagated: the in-memory registry remains
// authoritative regardless of persistence success.
func (s *Snapshotter) Persist(reg Registry) {
	tm := TrackingMeta{}
	if s.Tracking != nil {
		tm = s.Tracking()
	}

	data, err := EncodeSnapshot(reg, tm)
	if err != nil {
		s.Logger.WithError(err).Error("Failed to serialize registry snapshot")
		return
	}

	s.Store.MarkPersist()
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		s.Logger.WithError(err).Error("Failed to write registry snapshot")
	}
}
