// Package driver is the structured thermal-print driver: it formats text and
// raster jobs into the printer's command set and tracks device status from
// notifications, when the transport delivers any. The printing layer prefers
// this driver and falls back to hand-built command sequences without it.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/courierhq/fieldlink/internal/bitmap"
	"github.com/courierhq/fieldlink/internal/label"
)

// Raster blocks are limited to this many rows per command.
const maxRasterRows = 256

// Writer transmits raw bytes to the bound device.
type Writer interface {
	Write(ctx context.Context, data []byte) error
}

// Factory builds a driver bound to one device's write channel. A nil factory
// on the lifecycle manager means the driver is unavailable in this runtime.
type Factory func(w Writer) *Driver

// New is the default Factory.
func New(w Writer, log zerolog.Logger) *Driver {
	return &Driver{
		w:   w,
		log: log.With().Str("component", "driver").Logger(),
	}
}

// Driver is bound to a single connected printer.
type Driver struct {
	w   Writer
	log zerolog.Logger

	mu          sync.Mutex
	battery     int
	firmware    string
	paperLoaded bool
	ready       bool
}

// Initialize resets the printhead and asks for a status snapshot. The answers
// arrive as notifications on transports that support them; on write-only
// links the queries are simply ignored by the device.
func (d *Driver) Initialize(ctx context.Context) error {
	data := initPrinter()
	data = append(data, queryBatteryStatus()...)
	data = append(data, queryPaperStatus()...)
	data = append(data, queryFirmwareVersion()...)

	if err := d.w.Write(ctx, data); err != nil {
		return fmt.Errorf("driver init: %w", err)
	}
	return nil
}

// PrintText prints text lines using the device's built-in font.
func (d *Driver) PrintText(ctx context.Context, lines []string) error {
	payload := initPrinter()
	payload = append(payload, setJustify(JustifyLeft)...)
	payload = append(payload, setDensity(DensityMedium)...)
	for _, line := range lines {
		payload = append(payload, line...)
		payload = append(payload, '\n')
	}
	payload = append(payload, feedLines(4)...)

	if err := d.w.Write(ctx, payload); err != nil {
		return fmt.Errorf("driver text print: %w", err)
	}
	return nil
}

// PrintLabel renders lines into a raster image at the given printhead width
// and streams it in bounded chunks.
func (d *Driver) PrintLabel(ctx context.Context, lines []string, width int) error {
	packed, err := label.Rasterize(lines, width)
	if err != nil {
		return fmt.Errorf("driver label render: %w", err)
	}
	if packed.Stride() > 0xFF {
		return fmt.Errorf("driver label: bitmap too wide for printer: %s", packed)
	}

	payload := initPrinter()
	payload = append(payload, setJustify(JustifyCentre)...)
	payload = append(payload, setDensity(DensityMedium)...)
	payload = appendRaster(payload, packed)
	payload = append(payload, feedLines(4)...)

	if err := d.w.Write(ctx, payload); err != nil {
		return fmt.Errorf("driver label print: %w", err)
	}
	return nil
}

func appendRaster(payload []byte, packed *bitmap.Packed) []byte {
	stride := byte(packed.Stride())
	for start := 0; start < packed.Height(); start += maxRasterRows {
		end := min(start+maxRasterRows, packed.Height())
		chunk := packed.Chunk(start, end-start)
		payload = append(payload, printRaster(stride, uint16(chunk.Height()))...)
		payload = append(payload, chunk.Data()...)
	}
	return payload
}

// HandleNotification dispatches one device-originated frame by its prefix.
// Unknown frames are logged and dropped.
func (d *Driver) HandleNotification(data []byte) {
	switch {
	case hasPrefix(data, 0x02, 0xb6, 0x00):
		d.mu.Lock()
		d.ready = true
		d.mu.Unlock()
		d.log.Debug().Msg("printer ready")
	case hasPrefix(data, 0x1a, 0x0f, 0x0c):
		d.log.Debug().Msg("printer finished job")
	case hasPrefix(data, 0x1a, 0x04) && len(data) >= 3:
		d.mu.Lock()
		d.battery = int(data[2])
		d.mu.Unlock()
		d.log.Debug().Int("level", int(data[2])).Msg("battery level")
	case hasPrefix(data, 0x1a, 0x07) && len(data) >= 5:
		version := fmt.Sprintf("%v.%v.%v", data[2], data[3], data[4])
		d.mu.Lock()
		d.firmware = version
		d.mu.Unlock()
		d.log.Debug().Str("version", version).Msg("firmware version")
	case hasPrefix(data, 0x1a, 0x06) && len(data) >= 3 && (data[2] == 0x88 || data[2] == 0x89):
		loaded := data[2]&1 == 1
		d.mu.Lock()
		d.paperLoaded = loaded
		d.mu.Unlock()
		d.log.Info().Bool("loaded", loaded).Msg("paper status changed")
	default:
		d.log.Debug().Str("data", fmt.Sprintf("%x", data)).Msg("unknown printer notification")
	}
}

func (d *Driver) BatteryLevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.battery
}

func (d *Driver) FirmwareVersion() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.firmware
}

func (d *Driver) PaperLoaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paperLoaded
}

func (d *Driver) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

func hasPrefix(d []byte, p ...byte) bool {
	return len(d) >= len(p) && bytes.Equal(d[:len(p)], p)
}
