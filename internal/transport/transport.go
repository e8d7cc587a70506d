// Package transport defines the backend contract shared by the classic
// (RFCOMM/paired-device) and BLE (GATT) Bluetooth implementations.
//
// Backends are optional at runtime: construction may fail in constrained
// environments, in which case callers substitute Unavailable so that presence
// checks stay out of the core logic.
package transport

import (
	"context"
	"errors"

	"github.com/courierhq/fieldlink/internal/device"
)

var (
	// ErrNoTransport reports that no usable Bluetooth backend exists in the
	// current runtime.
	ErrNoTransport = errors.New("no bluetooth transport available")

	// ErrNotConnected reports an operation that needs a live connection when
	// there is none.
	ErrNotConnected = errors.New("no device connected")

	// ErrNotSupported reports an operation the backend cannot perform, such
	// as notifications over a classic link.
	ErrNotSupported = errors.New("operation not supported by transport")
)

// Advertisement is the raw, unclassified result a backend emits during
// discovery. For classic it describes an already-paired device; for BLE it is
// one received advertisement.
type Advertisement struct {
	ID       string
	Name     string
	Address  string
	RSSI     int16
	Services []string
}

// Backend is one Bluetooth transport.
//
// Discover blocks: the classic backend returns after emitting its one-shot
// paired-device snapshot, the BLE backend keeps emitting advertisements until
// ctx is cancelled. Connect must complete any transport-level handshake
// (GATT service and characteristic discovery for BLE) before returning.
// Connected answers a liveness query without re-running the handshake.
type Backend interface {
	Kind() device.Transport
	Available() bool

	Discover(ctx context.Context, emit func(Advertisement)) error
	Connect(ctx context.Context, dev device.Device) error
	Disconnect(ctx context.Context, dev device.Device) error
	Connected(ctx context.Context, dev device.Device) (bool, error)
	Write(ctx context.Context, dev device.Device, data []byte) error

	// Notify subscribes handler to device-originated data. Backends without
	// a notification channel return ErrNotSupported.
	Notify(ctx context.Context, dev device.Device, handler func([]byte)) error
}
