// Package ble implements the BLE transport backend on top of
// tinygo.org/x/bluetooth: advertisement scanning, GATT connect with service
// and characteristic discovery, and raw characteristic writes.
package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"

	"github.com/courierhq/fieldlink/internal/device"
	"github.com/courierhq/fieldlink/internal/transport"
)

type characteristicKind byte

const (
	serviceKind  characteristicKind = 0x00
	writerKind   characteristicKind = 0x02
	notifierKind characteristicKind = 0x03
)

// locateWindow bounds the re-scan for a restored device id so a connect to
// hardware that is out of range fails instead of blocking on the caller's
// context.
const locateWindow = 5 * time.Second

// Thermal printers in the field advertise the 0xFF00 service with a write
// characteristic at 0xFF02 and a notify characteristic at 0xFF03.
func printerUUID(k characteristicKind) bluetooth.UUID {
	return bluetooth.NewUUID([16]byte{
		0x00, 0x00, 0xff, byte(k), 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb,
	})
}

// peripheral is one live GATT connection.
type peripheral struct {
	dev      bluetooth.Device
	writer   bluetooth.DeviceCharacteristic
	notifier bluetooth.DeviceCharacteristic
	hasNotes bool
}

// Backend is the BLE transport. A constructed Backend has an enabled adapter;
// construction failure means the runtime has no BLE stack and callers should
// fall back to transport.Unavailable.
type Backend struct {
	log     zerolog.Logger
	adapter *bluetooth.Adapter

	mu    sync.Mutex
	addrs map[string]bluetooth.Address
	conns map[string]*peripheral
}

var _ transport.Backend = (*Backend)(nil)

func New(log zerolog.Logger) (*Backend, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable ble adapter: %w", err)
	}

	return &Backend{
		log:     log.With().Str("component", "ble").Logger(),
		adapter: adapter,
		addrs:   make(map[string]bluetooth.Address),
		conns:   make(map[string]*peripheral),
	}, nil
}

func (b *Backend) Kind() device.Transport { return device.TransportBLE }

func (b *Backend) Available() bool { return b != nil && b.adapter != nil }

// Discover runs a continuous advertisement listener until ctx is cancelled.
// Advertisements without a local name are dropped; deduplication is the
// caller's concern.
func (b *Backend) Discover(ctx context.Context, emit func(transport.Advertisement)) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		if err := b.adapter.StopScan(); err != nil {
			b.log.Debug().Err(err).Msg("stop scan")
		}
	}()

	err := b.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		name := result.LocalName()
		if name == "" {
			return
		}

		id := result.Address.String()
		b.mu.Lock()
		b.addrs[id] = result.Address
		b.mu.Unlock()

		var services []string
		if result.HasServiceUUID(printerUUID(serviceKind)) {
			services = append(services, printerUUID(serviceKind).String())
		}

		emit(transport.Advertisement{
			ID:       id,
			Name:     name,
			Address:  id,
			RSSI:     result.RSSI,
			Services: services,
		})
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("ble scan: %w", err)
	}
	return nil
}

// Connect opens a GATT connection and performs service and characteristic
// discovery before returning. Failure at either step fails the whole
// operation and leaves nothing registered.
func (b *Backend) Connect(ctx context.Context, dev device.Device) error {
	addr, err := b.resolveAddress(ctx, dev.ID)
	if err != nil {
		return err
	}

	conn, err := b.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("ble connect %s: %w", dev.ID, err)
	}

	p, err := discoverCharacteristics(conn)
	if err != nil {
		_ = conn.Disconnect()
		return fmt.Errorf("ble discovery %s: %w", dev.ID, err)
	}

	b.mu.Lock()
	b.conns[dev.ID] = p
	b.mu.Unlock()

	b.log.Info().Str("id", dev.ID).Str("name", dev.Name).Msg("ble device connected")
	return nil
}

// discoverCharacteristics walks all services looking for the known writer and
// notifier characteristics, falling back to the first characteristic seen
// when the device doesn't expose the printer service layout.
func discoverCharacteristics(conn bluetooth.Device) (*peripheral, error) {
	services, err := conn.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("device exposes no services")
	}

	p := &peripheral{dev: conn}
	writerFound := false

	for _, service := range services {
		chars, err := service.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("discover characteristics for %s: %w", service.UUID().String(), err)
		}
		for _, char := range chars {
			switch char.UUID() {
			case printerUUID(writerKind):
				p.writer = char
				writerFound = true
			case printerUUID(notifierKind):
				p.notifier = char
				p.hasNotes = true
			default:
				if !writerFound {
					p.writer = char
					writerFound = true
				}
			}
		}
	}

	if !writerFound {
		return nil, fmt.Errorf("no writable characteristic found")
	}
	return p, nil
}

func (b *Backend) Disconnect(ctx context.Context, dev device.Device) error {
	b.mu.Lock()
	p, ok := b.conns[dev.ID]
	delete(b.conns, dev.ID)
	b.mu.Unlock()

	if !ok {
		return transport.ErrNotConnected
	}
	if err := p.dev.Disconnect(); err != nil {
		return fmt.Errorf("ble disconnect %s: %w", dev.ID, err)
	}
	return nil
}

// Connected reports whether this process holds a live GATT connection. BLE
// connections do not survive a process restart, so a restored record always
// reads as dead here.
func (b *Backend) Connected(ctx context.Context, dev device.Device) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conns[dev.ID]
	return ok, nil
}

func (b *Backend) Write(ctx context.Context, dev device.Device, data []byte) error {
	b.mu.Lock()
	p, ok := b.conns[dev.ID]
	b.mu.Unlock()

	if !ok {
		return transport.ErrNotConnected
	}
	if _, err := p.writer.WriteWithoutResponse(data); err != nil {
		return fmt.Errorf("ble write %s: %w", dev.ID, err)
	}
	b.log.Debug().Str("id", dev.ID).Int("size", len(data)).Msg("wrote data to device")
	return nil
}

func (b *Backend) Notify(ctx context.Context, dev device.Device, handler func([]byte)) error {
	b.mu.Lock()
	p, ok := b.conns[dev.ID]
	b.mu.Unlock()

	if !ok {
		return transport.ErrNotConnected
	}
	if !p.hasNotes {
		return transport.ErrNotSupported
	}
	if err := p.notifier.EnableNotifications(handler); err != nil {
		return fmt.Errorf("ble notifications %s: %w", dev.ID, err)
	}
	return nil
}

// resolveAddress returns the adapter address seen for id during discovery,
// running a short locate scan when the id was restored from storage and never
// scanned in this process.
func (b *Backend) resolveAddress(ctx context.Context, id string) (bluetooth.Address, error) {
	b.mu.Lock()
	addr, ok := b.addrs[id]
	b.mu.Unlock()
	if ok {
		return addr, nil
	}

	ctx, cancel := context.WithTimeout(ctx, locateWindow)
	defer cancel()

	found := make(chan bluetooth.Address, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = b.adapter.StopScan()
	}()

	err := b.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		if result.Address.String() == id {
			select {
			case found <- result.Address:
			default:
			}
			_ = adapter.StopScan()
		}
	})
	if err != nil && ctx.Err() == nil {
		return bluetooth.Address{}, fmt.Errorf("locate %s: %w", id, err)
	}

	select {
	case addr := <-found:
		b.mu.Lock()
		b.addrs[id] = addr
		b.mu.Unlock()
		return addr, nil
	default:
		return bluetooth.Address{}, fmt.Errorf("device %s not found: %w", id, ctx.Err())
	}
}
