package addon

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herr "github.com/hearthdesk/hearthd/errors"
	"github.com/hearthdesk/hearthd/internal/registry"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestController(addons ...registry.Entry) *Controller {
	store := registry.NewStore()
	store.Replace(registry.Registry{Addons: addons}, "test")
	return NewController(store, testLogger())
}

func TestFindMatchesIDCaseInsensitive(t *testing.T) {
	c := newTestController(registry.Entry{
		ID:       "wx1",
		Category: "addon",
		Metadata: map[string]interface{}{"name": "Weather"},
	})

	entry, err := c.find("WX1")
	require.NoError(t, err)
	assert.Equal(t, "wx1", entry.ID)
}

func TestFindMatchesDisplayName(t *testing.T) {
	c := newTestController(registry.Entry{
		ID:       "wx1",
		Category: "addon",
		Metadata: map[string]interface{}{"name": "Weather"},
	})

	entry, err := c.find("weather")
	require.NoError(t, err)
	assert.Equal(t, "wx1", entry.ID)
}

func TestFindUnknownAddon(t *testing.T) {
	c := newTestController()

	_, err := c.find("ghost")
	require.Error(t, err)
	assert.True(t, herr.Is(err, herr.ErrCodeAddonNotFound))
}

func TestStartWithoutExecutableDeclared(t *testing.T) {
	c := newTestController(registry.Entry{
		ID:       "passive",
		Category: "addon",
		Metadata: map[string]interface{}{"name": "Passive"},
	})

	_, err := c.Start(context.Background(), "passive")
	require.Error(t, err)
	assert.True(t, herr.Is(err, herr.ErrCodeAddonControl))
}

func TestStartWithMissingExecutable(t *testing.T) {
	c := newTestController(registry.Entry{
		ID:       "wx1",
		Category: "addon",
		Metadata: map[string]interface{}{"name": "Weather"},
		ExePath:  "/nonexistent/bin/weather",
	})

	_, err := c.Start(context.Background(), "wx1")
	require.Error(t, err)
	assert.True(t, herr.Is(err, herr.ErrCodeExeNotFound))
}

func TestStopWhenNotRunning(t *testing.T) {
	c := newTestController(registry.Entry{
		ID:       "wx1",
		Category: "addon",
		Metadata: map[string]interface{}{"name": "Weather"},
		ExePath:  "/nonexistent/bin/weather",
	})

	status, err := c.Stop(context.Background(), "wx1")
	require.NoError(t, err)
	assert.Equal(t, StatusNotRunning, status)
}

func TestStopAllWithNoAddons(t *testing.T) {
	c := newTestController()
	// Must be a quiet no-op.
	c.StopAll(context.Background())
}
