package transport

import (
	"context"

	"github.com/courierhq/fieldlink/internal/device"
)

// Unavailable is the null backend substituted when the real one cannot be
// constructed. Every operation fails with ErrNoTransport and Available
// reports false, so the capability probe is the only presence check the rest
// of the core needs.
type Unavailable struct {
	Transport device.Transport
}

var _ Backend = Unavailable{}

func (u Unavailable) Kind() device.Transport { return u.Transport }

func (Unavailable) Available() bool { return false }

func (Unavailable) Discover(context.Context, func(Advertisement)) error {
	return ErrNoTransport
}

func (Unavailable) Connect(context.Context, device.Device) error {
	return ErrNoTransport
}

func (Unavailable) Disconnect(context.Context, device.Device) error {
	return ErrNoTransport
}

func (Unavailable) Connected(context.Context, device.Device) (bool, error) {
	return false, ErrNoTransport
}

func (Unavailable) Write(context.Context, device.Device, []byte) error {
	return ErrNoTransport
}

func (Unavailable) Notify(context.Context, device.Device, func([]byte)) error {
	return ErrNoTransport
}
