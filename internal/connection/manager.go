// Package connection owns the single live device connection: connect,
// disconnect, persistence of the last-connected record, and best-effort
// restoration at startup.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/courierhq/fieldlink/internal/connstore"
	"github.com/courierhq/fieldlink/internal/device"
	"github.com/courierhq/fieldlink/internal/driver"
	"github.com/courierhq/fieldlink/internal/transport"
)

// State is the lifecycle position of the single connection slot.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	// StateRestoring marks the window between reading a persisted record at
	// startup and verifying the link is still alive.
	StateRestoring
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRestoring:
		return "restoring"
	default:
		return "disconnected"
	}
}

// Manager serializes all connection transitions behind one mutex: overlapping
// Connect calls queue instead of racing, and every other component observes
// the slot only through accessors.
type Manager struct {
	log      zerolog.Logger
	backends map[device.Transport]transport.Backend
	store    *connstore.Store
	factory  driver.Factory

	mu            sync.Mutex
	state         State
	current       device.Device
	drv           *driver.Driver
	stopDiscovery func()
}

func NewManager(log zerolog.Logger, store *connstore.Store, factory driver.Factory, backends ...transport.Backend) *Manager {
	m := &Manager{
		log:      log.With().Str("component", "connection").Logger(),
		backends: make(map[device.Transport]transport.Backend, len(backends)),
		store:    store,
		factory:  factory,
	}
	for _, b := range backends {
		m.backends[b.Kind()] = b
	}
	return m
}

// BindDiscovery registers the hook that halts an in-progress scan when a
// connection is established.
func (m *Manager) BindDiscovery(stop func()) {
	m.mu.Lock()
	m.stopDiscovery = stop
	m.mu.Unlock()
}

// Connect establishes dev as the single connection. An existing connection
// to another device is torn down first. On failure the slot is left
// disconnected and the error propagates; nothing is persisted.
func (m *Manager) Connect(ctx context.Context, dev device.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.backends[dev.Transport]
	if !ok || !b.Available() {
		return transport.ErrNoTransport
	}

	if m.state == StateConnected || m.state == StateConnecting {
		if m.current.ID == dev.ID {
			return nil
		}
		m.teardownLocked(ctx)
	}

	m.state = StateConnecting
	m.current = dev

	if err := b.Connect(ctx, dev); err != nil {
		m.state = StateDisconnected
		m.current = device.Device{}
		return fmt.Errorf("connect %s: %w", dev.ID, err)
	}

	dev.Connected = true
	m.current = dev
	m.state = StateConnected

	if m.stopDiscovery != nil {
		m.stopDiscovery()
	}

	if dev.Role == device.RolePrinter && m.factory != nil {
		m.bindDriverLocked(ctx, b, dev)
	}

	if err := m.store.Save(record(dev)); err != nil {
		// The live connection stands; only its durability is degraded.
		m.log.Error().Err(err).Str("id", dev.ID).Msg("failed to persist connection record")
	}

	m.log.Info().Str("id", dev.ID).Str("name", dev.Name).Stringer("transport", dev.Transport).Msg("device connected")
	return nil
}

// bindDriverLocked attaches the structured driver to a freshly connected
// printer. Driver failure downgrades printing to raw command sequences but
// never fails the connect.
func (m *Manager) bindDriverLocked(ctx context.Context, b transport.Backend, dev device.Device) {
	d := m.factory(boundWriter{backend: b, dev: dev})
	if err := d.Initialize(ctx); err != nil {
		m.log.Warn().Err(err).Str("id", dev.ID).Msg("print driver init failed, falling back to raw commands")
		return
	}
	if err := b.Notify(ctx, dev, d.HandleNotification); err != nil && !errors.Is(err, transport.ErrNotSupported) {
		m.log.Debug().Err(err).Str("id", dev.ID).Msg("printer notifications unavailable")
	}
	m.drv = d
}

// Disconnect clears the connection slot. A transport failure during teardown
// is logged and swallowed: the local state must never keep claiming a link
// the hardware may already have dropped.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateDisconnected {
		return nil
	}
	m.teardownLocked(ctx)
	return nil
}

func (m *Manager) teardownLocked(ctx context.Context) {
	dev := m.current

	if b, ok := m.backends[dev.Transport]; ok && b.Available() {
		if err := b.Disconnect(ctx, dev); err != nil {
			m.log.Warn().Err(err).Str("id", dev.ID).Bool("disconnect_swallowed", true).
				Msg("transport disconnect failed, clearing state anyway")
		}
	}

	m.drv = nil
	m.state = StateDisconnected
	m.current = device.Device{}

	if err := m.store.Clear(); err != nil {
		m.log.Error().Err(err).Msg("failed to erase connection record")
	} else {
		m.log.Info().Str("id", dev.ID).Msg("device disconnected")
	}
}

// Restore adopts the persisted connection at startup if the transport still
// reports the link alive; otherwise the record is erased. Restoration is
// best-effort and never surfaces an error.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.store.Load()
	if err != nil {
		m.log.Warn().Err(err).Msg("could not read persisted connection record")
		return
	}
	if rec == nil {
		return
	}

	dev := rec.Device()
	log := m.log.With().Str("id", dev.ID).Logger()

	b, ok := m.backends[dev.Transport]
	if !ok || !b.Available() {
		log.Info().Msg("persisted device's transport unavailable, dropping record")
		m.clearRecordLocked()
		return
	}

	m.state = StateRestoring
	alive, err := b.Connected(ctx, dev)
	if err != nil || !alive {
		if err != nil {
			log.Warn().Err(err).Msg("liveness check failed, dropping persisted record")
		} else {
			log.Info().Msg("persisted device no longer connected, dropping record")
		}
		m.state = StateDisconnected
		m.clearRecordLocked()
		return
	}

	dev.Connected = true
	m.current = dev
	m.state = StateConnected

	if dev.Role == device.RolePrinter && m.factory != nil {
		m.bindDriverLocked(ctx, b, dev)
	}
	log.Info().Str("name", dev.Name).Msg("restored connection from previous run")
}

func (m *Manager) clearRecordLocked() {
	if err := m.store.Clear(); err != nil {
		m.log.Error().Err(err).Msg("failed to erase connection record")
	}
}

// Current returns the connected device, if any.
func (m *Manager) Current() (device.Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.state == StateConnected
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Driver returns the structured print driver bound to the current
// connection, or nil when printing must fall back to raw commands.
func (m *Manager) Driver() *driver.Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drv
}

// Write sends raw bytes to the connected device.
func (m *Manager) Write(ctx context.Context, data []byte) error {
	m.mu.Lock()
	dev, b := m.current, m.backends[m.current.Transport]
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected {
		return transport.ErrNotConnected
	}
	return b.Write(ctx, dev, data)
}

func record(dev device.Device) connstore.Record {
	return connstore.Record{
		ID:        dev.ID,
		Name:      dev.Name,
		Address:   dev.Address,
		Transport: dev.Transport,
		Role:      dev.Role,
	}
}

// boundWriter adapts a backend + device pair to the driver's Writer.
type boundWriter struct {
	backend transport.Backend
	dev     device.Device
}

func (w boundWriter) Write(ctx context.Context, data []byte) error {
	return w.backend.Write(ctx, w.dev, data)
}
