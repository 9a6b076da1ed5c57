// Package dispatch routes decoded RPC requests to command handlers.
package dispatch

import (
	"context"

	"github.com/sirupsen/logrus"

	herr "github.com/hearthdesk/hearthd/errors"
	"github.com/hearthdesk/hearthd/internal/server"
)

// CommandFunc handles one command. Args may be nil for no-arg commands.
type CommandFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Dispatcher is a two-level router: namespace to sub-router, command to
// handler. Unknown namespaces and commands produce ok:false responses,
// never transport failures.
type Dispatcher struct {
	namespaces map[string]map[string]CommandFunc
	logger     *logrus.Entry
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		namespaces: make(map[string]map[string]CommandFunc),
		logger:     logger,
	}
}

// Register binds a handler to (namespace, command).
func (d *Dispatcher) Register(namespace, cmd string, fn CommandFunc) {
	sub, ok := d.namespaces[namespace]
	if !ok {
		sub = make(map[string]CommandFunc)
		d.namespaces[namespace] = sub
	}
	sub[cmd] = fn
}

// Handle implements server.Handler.
func (d *Dispatcher) Handle(ctx context.Context, req server.Request) server.Response {
	sub, ok := d.namespaces[req.Namespace]
	if !ok {
		return server.ErrResponse(herr.UnknownNamespace(req.Namespace))
	}
	fn, ok := sub[req.Cmd]
	if !ok {
		return server.ErrResponse(herr.UnknownCommand(req.Namespace, req.Cmd))
	}

	data, err := fn(ctx, req.Args)
	if err != nil {
		d.logger.WithError(err).Debugf("Command %s.%s failed", req.Namespace, req.Cmd)
		return server.ErrResponse(err)
	}
	return server.OKResponse(data)
}
