//go:build linux

// Package classic implements the paired-device Bluetooth transport over the
// BlueZ D-Bus API: a one-shot paired-device query for discovery, Device1
// Connect/Disconnect for the link, and a client-role Profile1 registration
// that yields an RFCOMM file descriptor used for raw printer writes.
package classic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/courierhq/fieldlink/internal/device"
	"github.com/courierhq/fieldlink/internal/transport"
)

const (
	bluezService        = "org.bluez"
	adapterIface        = "org.bluez.Adapter1"
	deviceIface         = "org.bluez.Device1"
	profileIface        = "org.bluez.Profile1"
	profileManagerIface = "org.bluez.ProfileManager1"
	objManagerIface     = "org.freedesktop.DBus.ObjectManager"
	propsIface          = "org.freedesktop.DBus.Properties"

	// Serial Port Profile, the write channel used by thermal printers.
	sppUUID = "00001101-0000-1000-8000-00805f9b34fb"
)

var pathCounter uint64

// Backend is the classic transport. Construction fails when the system bus
// is unreachable or no BlueZ adapter exists, which callers translate into a
// transport.Unavailable substitute.
type Backend struct {
	log zerolog.Logger

	mu       sync.Mutex
	bus      *dbus.Conn
	profile  *sppProfile
	profPath dbus.ObjectPath
	exported bool
	links    map[string]*os.File
}

var _ transport.Backend = (*Backend)(nil)

func New(log zerolog.Logger) (*Backend, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	b := &Backend{
		log:   log.With().Str("component", "classic").Logger(),
		bus:   bus,
		links: make(map[string]*os.File),
	}

	objs, err := b.managedObjects(context.Background())
	if err != nil {
		bus.Close()
		return nil, err
	}
	for _, ifaces := range objs {
		if _, ok := ifaces[adapterIface]; ok {
			return b, nil
		}
	}
	bus.Close()
	return nil, errors.New("no bluez adapter present")
}

func (b *Backend) Kind() device.Transport { return device.TransportClassic }

func (b *Backend) Available() bool { return b != nil && b.bus != nil }

// Discover emits the current paired-device snapshot and returns. There is no
// live inquiry scan on this transport; pairing happens in OS settings.
func (b *Backend) Discover(ctx context.Context, emit func(transport.Advertisement)) error {
	objs, err := b.managedObjects(ctx)
	if err != nil {
		return err
	}

	for path, ifaces := range objs {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if paired, _ := props["Paired"].Value().(bool); !paired {
			continue
		}

		addr, _ := props["Address"].Value().(string)
		if addr == "" {
			addr = macFromPath(path)
		}
		name, _ := props["Name"].Value().(string)
		if name == "" {
			name, _ = props["Alias"].Value().(string)
		}

		emit(transport.Advertisement{
			ID:      addr,
			Name:    name,
			Address: addr,
		})
	}
	return nil
}

// Connect opens the BlueZ device connection. For printers it additionally
// establishes the SPP channel so Write has an RFCOMM descriptor to send raw
// command bytes through; non-printer devices (scanners pushing HID input)
// only need the link itself.
func (b *Backend) Connect(ctx context.Context, dev device.Device) error {
	path, err := b.devicePath(ctx, dev.Address)
	if err != nil {
		return err
	}
	obj := b.bus.Object(bluezService, path)

	if dev.Role == device.RolePrinter {
		if err := b.connectSPP(ctx, obj, dev.Address); err != nil {
			return err
		}
		b.log.Info().Str("address", dev.Address).Msg("spp channel established")
		return nil
	}

	if call := obj.CallWithContext(ctx, deviceIface+".Connect", 0); call.Err != nil {
		return fmt.Errorf("classic connect %s: %w", dev.Address, call.Err)
	}
	return nil
}

func (b *Backend) Disconnect(ctx context.Context, dev device.Device) error {
	b.mu.Lock()
	if f, ok := b.links[dev.Address]; ok {
		_ = f.Close()
		delete(b.links, dev.Address)
	}
	b.mu.Unlock()

	path, err := b.devicePath(ctx, dev.Address)
	if err != nil {
		return err
	}
	if call := b.bus.Object(bluezService, path).CallWithContext(ctx, deviceIface+".Disconnect", 0); call.Err != nil {
		return fmt.Errorf("classic disconnect %s: %w", dev.Address, call.Err)
	}
	return nil
}

// Connected reads the Device1.Connected property, which reflects link state
// independent of this process; this is what makes startup restoration
// meaningful on the classic transport. For printers a live link without a
// held SPP descriptor (the previous process owned it) is reattached here, so
// "still connected" also means "can still print"; failing that, the device
// reads as dead and the caller drops its record.
func (b *Backend) Connected(ctx context.Context, dev device.Device) (bool, error) {
	path, err := b.devicePath(ctx, dev.Address)
	if err != nil {
		return false, err
	}
	obj := b.bus.Object(bluezService, path)

	call := obj.CallWithContext(ctx, propsIface+".Get", 0, deviceIface, "Connected")
	if call.Err != nil {
		return false, fmt.Errorf("classic connected query %s: %w", dev.Address, call.Err)
	}
	var v dbus.Variant
	if err := call.Store(&v); err != nil {
		return false, fmt.Errorf("classic connected decode %s: %w", dev.Address, err)
	}
	connected, _ := v.Value().(bool)

	if connected && dev.Role == device.RolePrinter {
		b.mu.Lock()
		_, held := b.links[dev.Address]
		b.mu.Unlock()
		if !held {
			if err := b.connectSPP(ctx, obj, dev.Address); err != nil {
				b.log.Warn().Err(err).Str("address", dev.Address).Msg("could not reattach spp channel")
				return false, nil
			}
		}
	}
	return connected, nil
}

func (b *Backend) Write(ctx context.Context, dev device.Device, data []byte) error {
	b.mu.Lock()
	f, ok := b.links[dev.Address]
	b.mu.Unlock()

	if !ok {
		return transport.ErrNotConnected
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("classic write %s: %w", dev.Address, err)
	}
	b.log.Debug().Str("address", dev.Address).Int("size", len(data)).Msg("wrote data to device")
	return nil
}

// Notify is not supported: the RFCOMM channel is write-only in this design.
func (b *Backend) Notify(context.Context, device.Device, func([]byte)) error {
	return transport.ErrNotSupported
}

// sppProfile implements org.bluez.Profile1 and hands incoming RFCOMM
// descriptors to the goroutine waiting inside connectSPP.
type sppProfile struct {
	mu      sync.Mutex
	waiters map[string]chan int
}

func (p *sppProfile) Release() *dbus.Error { return nil }

func (p *sppProfile) Cancel() *dbus.Error { return nil }

func (p *sppProfile) RequestDisconnection(dbus.ObjectPath) *dbus.Error { return nil }

func (p *sppProfile) NewConnection(path dbus.ObjectPath, fd dbus.UnixFD, _ map[string]dbus.Variant) *dbus.Error {
	addr := macFromPath(path)

	p.mu.Lock()
	ch, ok := p.waiters[addr]
	p.mu.Unlock()

	if !ok {
		_ = os.NewFile(uintptr(fd), "rfcomm").Close()
		return &dbus.Error{Name: "org.bluez.Error.Rejected", Body: []interface{}{"no waiter"}}
	}
	select {
	case ch <- int(fd):
		return nil
	default:
		_ = os.NewFile(uintptr(fd), "rfcomm").Close()
		return &dbus.Error{Name: "org.bluez.Error.Rejected", Body: []interface{}{"waiter gone"}}
	}
}

// connectSPP registers the client profile once, asks BlueZ to connect the
// SPP channel, and waits for the Profile1 NewConnection callback to deliver
// the descriptor.
func (b *Backend) connectSPP(ctx context.Context, obj dbus.BusObject, addr string) error {
	if err := b.ensureProfile(); err != nil {
		return err
	}

	ch := make(chan int, 1)
	b.profile.mu.Lock()
	b.profile.waiters[addr] = ch
	b.profile.mu.Unlock()
	defer func() {
		b.profile.mu.Lock()
		delete(b.profile.waiters, addr)
		b.profile.mu.Unlock()
	}()

	if call := obj.CallWithContext(ctx, deviceIface+".ConnectProfile", 0, sppUUID); call.Err != nil {
		return fmt.Errorf("classic connect profile %s: %w", addr, call.Err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("classic connect %s: %w", addr, ctx.Err())
	case fd := <-ch:
		b.mu.Lock()
		b.links[addr] = os.NewFile(uintptr(fd), "rfcomm")
		b.mu.Unlock()
		return nil
	}
}

func (b *Backend) ensureProfile() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exported {
		return nil
	}

	b.profile = &sppProfile{waiters: make(map[string]chan int)}
	id := atomic.AddUint64(&pathCounter, 1)
	b.profPath = dbus.ObjectPath("/com/courierhq/fieldlink/spp/p" + strconv.FormatUint(id, 10))

	if err := b.bus.Export(b.profile, b.profPath, profileIface); err != nil {
		return fmt.Errorf("export spp profile: %w", err)
	}

	opts := map[string]dbus.Variant{
		"Role": dbus.MakeVariant("client"),
	}
	pm := b.bus.Object(bluezService, dbus.ObjectPath("/org/bluez"))
	if call := pm.Call(profileManagerIface+".RegisterProfile", 0, b.profPath, sppUUID, opts); call.Err != nil {
		return fmt.Errorf("register spp profile: %w", call.Err)
	}

	b.exported = true
	return nil
}

// Close unregisters the profile and releases the bus. The backend is unusable
// afterwards.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bus == nil {
		return nil
	}
	for addr, f := range b.links {
		_ = f.Close()
		delete(b.links, addr)
	}
	if b.exported {
		pm := b.bus.Object(bluezService, dbus.ObjectPath("/org/bluez"))
		_ = pm.Call(profileManagerIface+".UnregisterProfile", 0, b.profPath).Err
		_ = b.bus.Export(nil, b.profPath, profileIface)
		b.exported = false
	}
	err := b.bus.Close()
	b.bus = nil
	return err
}

func (b *Backend) managedObjects(ctx context.Context) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	obj := b.bus.Object(bluezService, dbus.ObjectPath("/"))
	call := obj.CallWithContext(ctx, objManagerIface+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("bluez managed objects: %w", call.Err)
	}
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := call.Store(&objs); err != nil {
		return nil, fmt.Errorf("decode managed objects: %w", err)
	}
	return objs, nil
}

// devicePath finds the Device1 object whose Address matches, so we never have
// to guess which adapter a device was paired against.
func (b *Backend) devicePath(ctx context.Context, addr string) (dbus.ObjectPath, error) {
	objs, err := b.managedObjects(ctx)
	if err != nil {
		return "", err
	}
	for path, ifaces := range objs {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if a, _ := props["Address"].Value().(string); strings.EqualFold(a, addr) {
			return path, nil
		}
	}
	return "", fmt.Errorf("device %s not known to bluez", addr)
}

// macFromPath recovers "AA:BB:CC:DD:EE:FF" from a BlueZ device object path
// ending in dev_AA_BB_CC_DD_EE_FF.
func macFromPath(path dbus.ObjectPath) string {
	s := string(path)
	i := strings.LastIndex(s, "/dev_")
	if i < 0 {
		return ""
	}
	return strings.ReplaceAll(s[i+len("/dev_"):], "_", ":")
}
