package driver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierhq/fieldlink/internal/driver"
)

type captureWriter struct {
	writes [][]byte
	err    error
}

func (c *captureWriter) Write(_ context.Context, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, data)
	return nil
}

func TestInitializeWritesPreamble(t *testing.T) {
	t.Parallel()

	w := &captureWriter{}
	d := driver.New(w, zerolog.Nop())

	require.NoError(t, d.Initialize(context.Background()))
	require.Len(t, w.writes, 1)
	// ESC @ reset leads the init sequence.
	assert.Equal(t, []byte{0x1B, 0x40}, w.writes[0][:2])
}

func TestPrintTextPayload(t *testing.T) {
	t.Parallel()

	w := &captureWriter{}
	d := driver.New(w, zerolog.Nop())

	require.NoError(t, d.PrintText(context.Background(), []string{"PKG-1", "Depot 4"}))
	require.Len(t, w.writes, 1)

	payload := w.writes[0]
	assert.Equal(t, []byte{0x1B, 0x40}, payload[:2])
	assert.Contains(t, string(payload), "PKG-1\n")
	assert.Contains(t, string(payload), "Depot 4\n")
	// Trailing feed.
	assert.Equal(t, []byte{0x1B, 0x64, 4}, payload[len(payload)-3:])
}

func TestPrintTextWriteFailure(t *testing.T) {
	t.Parallel()

	w := &captureWriter{err: errors.New("link dropped")}
	d := driver.New(w, zerolog.Nop())

	err := d.PrintText(context.Background(), []string{"PKG-1"})
	assert.ErrorContains(t, err, "driver text print")
}

func TestPrintLabelEmitsRasterHeader(t *testing.T) {
	t.Parallel()

	w := &captureWriter{}
	d := driver.New(w, zerolog.Nop())

	require.NoError(t, d.PrintLabel(context.Background(), []string{"PKG-1"}, 384))
	require.Len(t, w.writes, 1)

	// GS v 0 raster header with a 48-byte stride must appear in the payload.
	assert.Contains(t, string(w.writes[0]), string([]byte{0x1D, 0x76, 0x30, 0x00, 48, 0x00}))
}

func TestHandleNotificationStatus(t *testing.T) {
	t.Parallel()

	d := driver.New(&captureWriter{}, zerolog.Nop())

	d.HandleNotification([]byte{0x1a, 0x04, 72})
	assert.Equal(t, 72, d.BatteryLevel())

	d.HandleNotification([]byte{0x1a, 0x07, 1, 4, 2})
	assert.Equal(t, "1.4.2", d.FirmwareVersion())

	d.HandleNotification([]byte{0x1a, 0x06, 0x89})
	assert.True(t, d.PaperLoaded())
	d.HandleNotification([]byte{0x1a, 0x06, 0x88})
	assert.False(t, d.PaperLoaded())

	assert.False(t, d.Ready())
	d.HandleNotification([]byte{0x02, 0xb6, 0x00})
	assert.True(t, d.Ready())
}

func TestHandleNotificationUnknownFrame(t *testing.T) {
	t.Parallel()

	d := driver.New(&captureWriter{}, zerolog.Nop())
	// Must not panic or disturb tracked status.
	d.HandleNotification([]byte{0xde, 0xad})
	d.HandleNotification(nil)
	assert.Equal(t, 0, d.BatteryLevel())
}
