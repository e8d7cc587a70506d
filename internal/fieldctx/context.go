// Package fieldctx composes the device core behind the one object the rest
// of the application depends on: permissions, discovery, the connection
// lifecycle and printing.
package fieldctx

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/courierhq/fieldlink/internal/config"
	"github.com/courierhq/fieldlink/internal/connection"
	"github.com/courierhq/fieldlink/internal/connstore"
	"github.com/courierhq/fieldlink/internal/device"
	"github.com/courierhq/fieldlink/internal/discovery"
	"github.com/courierhq/fieldlink/internal/driver"
	"github.com/courierhq/fieldlink/internal/permissions"
	"github.com/courierhq/fieldlink/internal/printing"
	"github.com/courierhq/fieldlink/internal/transport"
	"github.com/courierhq/fieldlink/internal/transport/ble"
	"github.com/courierhq/fieldlink/internal/transport/classic"
)

// Context is the facade. Environment absence (no transport at all) is
// detected once at construction and surfaced as an immediate error from
// every action method.
type Context struct {
	log zerolog.Logger

	gatekeeper *permissions.Gatekeeper
	engine     *discovery.Engine
	manager    *connection.Manager
	printer    *printing.Printer
	store      *connstore.Store

	labelWidth   int
	hasTransport bool
}

// Option adjusts facade construction.
type Option func(*options)

type options struct {
	backends []transport.Backend
}

// WithBackends substitutes the transport backends, bypassing the BlueZ and
// BLE adapter probes.
func WithBackends(backends ...transport.Backend) Option {
	return func(o *options) {
		o.backends = backends
	}
}

// New wires the core and restores the persisted connection, best-effort.
// Backend construction failures downgrade to the null transport; only the
// store failing to open is fatal.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger, opts ...Option) (*Context, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	backends := o.backends
	if backends == nil {
		backends = buildBackends(log)
	}

	hasTransport := false
	for _, b := range backends {
		if b.Available() {
			hasTransport = true
		}
	}

	store, err := connstore.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("fieldctx: %w", err)
	}

	var factory driver.Factory
	if cfg.Printer.DriverEnabled {
		factory = func(w driver.Writer) *driver.Driver {
			return driver.New(w, log)
		}
	}

	manager := connection.NewManager(log, store, factory, backends...)
	engine := discovery.New(log, cfg.Scan.Window(), backends...)
	manager.BindDiscovery(engine.Stop)

	platform := permissions.Resolve(cfg.Permissions.Model, nil)
	gatekeeper := permissions.NewGatekeeper(platform, func() bool { return hasTransport }, log)

	c := &Context{
		log:          log.With().Str("component", "fieldctx").Logger(),
		gatekeeper:   gatekeeper,
		engine:       engine,
		manager:      manager,
		printer:      printing.New(manager, log),
		store:        store,
		labelWidth:   cfg.Printer.LabelWidthDots,
		hasTransport: hasTransport,
	}

	manager.Restore(ctx)
	return c, nil
}

func buildBackends(log zerolog.Logger) []transport.Backend {
	backends := make([]transport.Backend, 0, 2)

	if b, err := classic.New(log); err != nil {
		log.Warn().Err(err).Msg("classic transport unavailable")
		backends = append(backends, transport.Unavailable{Transport: device.TransportClassic})
	} else {
		backends = append(backends, b)
	}

	if b, err := ble.New(log); err != nil {
		log.Warn().Err(err).Msg("ble transport unavailable")
		backends = append(backends, transport.Unavailable{Transport: device.TransportBLE})
	} else {
		backends = append(backends, b)
	}

	return backends
}

// RequestPermissions obtains the OS grants needed for discovery. Denial is a
// false return, never an error.
func (c *Context) RequestPermissions(ctx context.Context) bool {
	return c.gatekeeper.Request(ctx)
}

// ScanForDevices starts a discovery pass; results accumulate in Devices.
func (c *Context) ScanForDevices(ctx context.Context) error {
	if !c.hasTransport {
		return transport.ErrNoTransport
	}
	return c.engine.Scan(ctx)
}

func (c *Context) Devices() []device.Device { return c.engine.Devices() }

func (c *Context) Scanning() bool { return c.engine.Scanning() }

func (c *Context) ConnectToDevice(ctx context.Context, dev device.Device) error {
	if !c.hasTransport {
		return transport.ErrNoTransport
	}
	return c.manager.Connect(ctx, dev)
}

func (c *Context) DisconnectFromDevice(ctx context.Context) error {
	if !c.hasTransport {
		return transport.ErrNoTransport
	}
	return c.manager.Disconnect(ctx)
}

// ConnectedDevice returns the device occupying the connection slot, if any.
func (c *Context) ConnectedDevice() (device.Device, bool) {
	return c.manager.Current()
}

func (c *Context) ConnectionState() connection.State {
	return c.manager.State()
}

// Driver exposes the structured print driver for status surfaces (battery,
// firmware); nil when printing runs on raw commands.
func (c *Context) Driver() *driver.Driver {
	return c.manager.Driver()
}

func (c *Context) TestPrint(ctx context.Context) error {
	if !c.hasTransport {
		return transport.ErrNoTransport
	}
	return c.printer.TestPrint(ctx)
}

func (c *Context) PrintText(ctx context.Context, text string) error {
	if !c.hasTransport {
		return transport.ErrNoTransport
	}
	return c.printer.PrintText(ctx, text)
}

func (c *Context) PrintReceipt(ctx context.Context, r printing.Receipt) error {
	if !c.hasTransport {
		return transport.ErrNoTransport
	}
	return c.printer.PrintReceipt(ctx, r)
}

// PrintLabel prints lines as a rasterized label at the configured printhead
// width. Only available on the structured driver path.
func (c *Context) PrintLabel(ctx context.Context, lines []string) error {
	if !c.hasTransport {
		return transport.ErrNoTransport
	}
	return c.printer.PrintLabel(ctx, lines, c.labelWidth)
}

// Close releases the persistent store. The device link, if any, is left
// untouched so a restart can restore it.
func (c *Context) Close() error {
	return c.store.Close()
}
