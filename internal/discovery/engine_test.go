package discovery_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierhq/fieldlink/internal/device"
	"github.com/courierhq/fieldlink/internal/discovery"
	"github.com/courierhq/fieldlink/internal/transport"
)

// fakeBackend emits a fixed advertisement set. When streaming it emits and
// then blocks until ctx is done, mimicking the BLE listener; otherwise it
// returns immediately like the classic paired-device query.
type fakeBackend struct {
	kind      device.Transport
	available bool
	streaming bool
	adverts   []transport.Advertisement
	err       error
}

func (f *fakeBackend) Kind() device.Transport { return f.kind }

func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Discover(ctx context.Context, emit func(transport.Advertisement)) error {
	if f.err != nil {
		return f.err
	}
	for _, adv := range f.adverts {
		emit(adv)
	}
	if f.streaming {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeBackend) Connect(context.Context, device.Device) error    { return nil }
func (f *fakeBackend) Disconnect(context.Context, device.Device) error { return nil }
func (f *fakeBackend) Connected(context.Context, device.Device) (bool, error) {
	return false, nil
}
func (f *fakeBackend) Write(context.Context, device.Device, []byte) error { return nil }
func (f *fakeBackend) Notify(context.Context, device.Device, func([]byte)) error {
	return transport.ErrNotSupported
}

func waitForDevices(t *testing.T, e *discovery.Engine, n int) []device.Device {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		if devs := e.Devices(); len(devs) >= n {
			return devs
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d devices, have %d", n, len(e.Devices()))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestScanNoTransport(t *testing.T) {
	t.Parallel()

	e := discovery.New(zerolog.Nop(), time.Second,
		transport.Unavailable{Transport: device.TransportClassic},
		transport.Unavailable{Transport: device.TransportBLE},
	)

	err := e.Scan(context.Background())
	assert.ErrorIs(t, err, transport.ErrNoTransport)
	assert.False(t, e.Scanning())
}

func TestScanMergesBothTransports(t *testing.T) {
	t.Parallel()

	classic := &fakeBackend{
		kind: device.TransportClassic, available: true,
		adverts: []transport.Advertisement{
			{ID: "AA:AA", Name: "Epson-TM88", Address: "AA:AA"},
		},
	}
	ble := &fakeBackend{
		kind: device.TransportBLE, available: true, streaming: true,
		adverts: []transport.Advertisement{
			{ID: "BB:BB", Name: "Unknown-XYZ", Address: "BB:BB", RSSI: -60},
		},
	}

	e := discovery.New(zerolog.Nop(), 100*time.Millisecond, classic, ble)
	require.NoError(t, e.Scan(context.Background()))

	devs := waitForDevices(t, e, 2)
	require.Len(t, devs, 2)

	byID := map[string]device.Device{devs[0].ID: devs[0], devs[1].ID: devs[1]}
	epson := byID["AA:AA"]
	assert.Equal(t, device.RolePrinter, epson.Role)
	assert.Equal(t, device.TransportClassic, epson.Transport)

	unknown := byID["BB:BB"]
	assert.Equal(t, device.RoleUnknown, unknown.Role)
	assert.Equal(t, device.TransportBLE, unknown.Transport)
}

func TestScanDeduplicatesByID(t *testing.T) {
	t.Parallel()

	classic := &fakeBackend{
		kind: device.TransportClassic, available: true,
		adverts: []transport.Advertisement{
			{ID: "AA:AA", Name: "Epson-TM88", Address: "AA:AA"},
			{ID: "AA:AA", Name: "Epson-TM88 (2)", Address: "AA:AA"},
		},
	}
	ble := &fakeBackend{
		kind: device.TransportBLE, available: true, streaming: true,
		adverts: []transport.Advertisement{
			{ID: "AA:AA", Name: "TM88 BLE advert", Address: "AA:AA"},
		},
	}

	e := discovery.New(zerolog.Nop(), 100*time.Millisecond, classic, ble)
	require.NoError(t, e.Scan(context.Background()))

	devs := waitForDevices(t, e, 1)
	time.Sleep(20 * time.Millisecond)
	devs = e.Devices()

	require.Len(t, devs, 1)
	ids := map[string]int{}
	for _, d := range devs {
		ids[d.ID]++
	}
	assert.Equal(t, 1, ids["AA:AA"])
}

func TestScanSurvivesTransportError(t *testing.T) {
	t.Parallel()

	classic := &fakeBackend{
		kind: device.TransportClassic, available: true,
		err: errors.New("hci socket: permission denied"),
	}
	ble := &fakeBackend{
		kind: device.TransportBLE, available: true, streaming: true,
		adverts: []transport.Advertisement{
			{ID: "CC:CC", Name: "Phomemo T02", Address: "CC:CC"},
		},
	}

	e := discovery.New(zerolog.Nop(), 100*time.Millisecond, classic, ble)
	require.NoError(t, e.Scan(context.Background()))

	devs := waitForDevices(t, e, 1)
	require.Len(t, devs, 1)
	assert.Equal(t, device.RolePrinter, devs[0].Role)
}

func TestScanWindowClearsFlag(t *testing.T) {
	t.Parallel()

	ble := &fakeBackend{kind: device.TransportBLE, available: true, streaming: true}
	e := discovery.New(zerolog.Nop(), 50*time.Millisecond, ble)

	require.NoError(t, e.Scan(context.Background()))
	assert.True(t, e.Scanning())

	assert.Eventually(t, func() bool { return !e.Scanning() }, 2*time.Second, 10*time.Millisecond)
}

func TestScanResetsDeviceList(t *testing.T) {
	t.Parallel()

	classic := &fakeBackend{
		kind: device.TransportClassic, available: true,
		adverts: []transport.Advertisement{
			{ID: "AA:AA", Name: "Epson-TM88", Address: "AA:AA"},
		},
	}
	e := discovery.New(zerolog.Nop(), 50*time.Millisecond, classic)

	require.NoError(t, e.Scan(context.Background()))
	waitForDevices(t, e, 1)

	require.NoError(t, e.Scan(context.Background()))
	devs := waitForDevices(t, e, 1)
	require.Len(t, devs, 1)
}

// syncBuffer collects log output written from the engine's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSupersededScanClosesSilently(t *testing.T) {
	t.Parallel()

	classic := &fakeBackend{
		kind: device.TransportClassic, available: true,
		adverts: []transport.Advertisement{
			{ID: "AA:AA", Name: "Epson-TM88", Address: "AA:AA"},
		},
	}

	var buf syncBuffer
	e := discovery.New(zerolog.New(&buf), 50*time.Millisecond, classic)

	require.NoError(t, e.Scan(context.Background()))
	require.NoError(t, e.Scan(context.Background()))

	assert.Eventually(t, func() bool { return !e.Scanning() }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	closed := strings.Count(buf.String(), "discovery window closed")
	assert.Equal(t, 1, closed, "only the scan that owns the window reports its close")
}

func TestStopEndsScanEarly(t *testing.T) {
	t.Parallel()

	ble := &fakeBackend{kind: device.TransportBLE, available: true, streaming: true}
	e := discovery.New(zerolog.Nop(), time.Minute, ble)

	require.NoError(t, e.Scan(context.Background()))
	require.True(t, e.Scanning())

	e.Stop()
	assert.False(t, e.Scanning())
}
