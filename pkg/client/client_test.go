package client

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herr "github.com/hearthdesk/hearthd/errors"
	"github.com/hearthdesk/hearthd/internal/server"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fixedHandler struct{}

func (fixedHandler) Handle(ctx context.Context, req server.Request) server.Response {
	switch req.Cmd {
	case "fail":
		return server.ErrResponse(herr.AddonNotFound("ghost"))
	default:
		return server.OKResponse(map[string]interface{}{"echo": req.Args["value"]})
	}
}

func startServer(t *testing.T) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "hearthd.sock")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := server.New(fixedHandler{}, testLogger())
	go func() { _ = srv.ListenAndServe(ctx, socketPath) }()
	t.Cleanup(srv.Shutdown)
	return socketPath
}

func TestCallRoundTrip(t *testing.T) {
	c := NewWithSocket(startServer(t))

	// The dial retry loop absorbs the server's startup window.
	data, err := c.Call(context.Background(), "test", "echo", map[string]interface{}{"value": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", data.(map[string]interface{})["echo"])
}

func TestCallSurfacesServerError(t *testing.T) {
	c := NewWithSocket(startServer(t))

	_, err := c.Call(context.Background(), "addon", "fail", nil)
	require.Error(t, err)
	assert.True(t, herr.Is(err, herr.ErrCodeAddonNotFound))
}

func TestCallAgainstDeadSocket(t *testing.T) {
	c := NewWithSocket(filepath.Join(t.TempDir(), "nobody-home.sock"))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Call(ctx, "backend", "get_config", nil)
	require.Error(t, err)
	// Bounded retry: gives up once the context expires.
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestCallRejectsOversizedRequest(t *testing.T) {
	c := NewWithSocket(startServer(t))

	big := make([]byte, server.MaxEnvelopeSize)
	for i := range big {
		big[i] = 'a'
	}
	_, err := c.Call(context.Background(), "test", "echo", map[string]interface{}{"value": string(big)})
	require.Error(t, err)
	assert.True(t, herr.Is(err, herr.ErrCodeRequestTooLarge))
}

func TestDecodeError(t *testing.T) {
	e := decodeError("ADDON_NOT_FOUND: addon \"ghost\" not found")
	assert.Equal(t, herr.ErrCodeAddonNotFound, e.Code)
	assert.Equal(t, "addon \"ghost\" not found", e.Message)

	// Strings without a code prefix survive as internal errors.
	e = decodeError("something went sideways: badly")
	assert.Equal(t, herr.ErrCodeInternal, e.Code)
	assert.Equal(t, "something went sideways: badly", e.Message)
}

func TestPing(t *testing.T) {
	c := NewWithSocket(startServer(t))
	assert.True(t, c.Ping(context.Background()))
}
