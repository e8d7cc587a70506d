// Package printing executes print operations against the connected device,
// preferring the structured driver and degrading to raw command sequences.
package printing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/courierhq/fieldlink/internal/device"
	"github.com/courierhq/fieldlink/internal/driver"
	"github.com/courierhq/fieldlink/internal/transport"
)

const timestampLayout = "2006-01-02 15:04:05"

// Connection is the slice of the lifecycle manager printing depends on.
type Connection interface {
	Current() (device.Device, bool)
	Write(ctx context.Context, data []byte) error
	Driver() *driver.Driver
}

// Receipt is one scan-action receipt. Absent fields are omitted from the
// printout entirely; field order is fixed: package, customer, status,
// timestamp.
type Receipt struct {
	PackageCode string
	Customer    string
	Status      string
	Timestamp   time.Time
}

// Lines renders the receipt body. The timestamp line is always present and
// defaults to the current time.
func (r Receipt) Lines() []string {
	lines := make([]string, 0, 4)
	if r.PackageCode != "" {
		lines = append(lines, "Package: "+r.PackageCode)
	}
	if r.Customer != "" {
		lines = append(lines, "Customer: "+r.Customer)
	}
	if r.Status != "" {
		lines = append(lines, "Status: "+r.Status)
	}

	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return append(lines, "Time: "+ts.Format(timestampLayout))
}

// Printer is the print abstraction layer. Every operation checks the
// connection before touching the transport.
type Printer struct {
	conn Connection
	log  zerolog.Logger
}

func New(conn Connection, log zerolog.Logger) *Printer {
	return &Printer{
		conn: conn,
		log:  log.With().Str("component", "printing").Logger(),
	}
}

// TestPrint emits a short alignment pattern to verify the paper path.
func (p *Printer) TestPrint(ctx context.Context) error {
	lines := []string{
		"FIELDLINK TEST PRINT",
		strings.Repeat("=", 24),
		"ABCDEFGHIJKLMNOPQRSTUVWX",
		"0123456789",
		strings.Repeat("=", 24),
	}
	if err := p.print(ctx, lines); err != nil {
		return fmt.Errorf("test print: %w", err)
	}
	return nil
}

// PrintText prints free-form text, one line per input line.
func (p *Printer) PrintText(ctx context.Context, text string) error {
	if err := p.print(ctx, strings.Split(text, "\n")); err != nil {
		return fmt.Errorf("print text: %w", err)
	}
	return nil
}

// PrintReceipt prints a scan-action receipt.
func (p *Printer) PrintReceipt(ctx context.Context, r Receipt) error {
	if err := p.print(ctx, r.Lines()); err != nil {
		return fmt.Errorf("print receipt: %w", err)
	}
	return nil
}

// PrintLabel rasterizes lines at the given printhead width and prints the
// resulting bitmap. Raster output has no raw-command fallback, so this
// requires the structured driver.
func (p *Printer) PrintLabel(ctx context.Context, lines []string, width int) error {
	dev, ok := p.conn.Current()
	if !ok {
		return transport.ErrNotConnected
	}

	d := p.conn.Driver()
	if d == nil || dev.Role != device.RolePrinter {
		return fmt.Errorf("print label: %w", transport.ErrNotSupported)
	}

	p.log.Debug().Str("id", dev.ID).Int("lines", len(lines)).Int("width", width).Msg("printing label raster")
	if err := d.PrintLabel(ctx, lines, width); err != nil {
		return fmt.Errorf("print label: %w", err)
	}
	return nil
}

func (p *Printer) print(ctx context.Context, lines []string) error {
	dev, ok := p.conn.Current()
	if !ok {
		return transport.ErrNotConnected
	}

	if d := p.conn.Driver(); d != nil && dev.Role == device.RolePrinter {
		p.log.Debug().Str("id", dev.ID).Int("lines", len(lines)).Msg("printing via structured driver")
		return d.PrintText(ctx, lines)
	}

	p.log.Debug().Str("id", dev.ID).Int("lines", len(lines)).Msg("printing via raw command sequence")
	return p.conn.Write(ctx, rawPayload(lines))
}
