package connstore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierhq/fieldlink/internal/connstore"
	"github.com/courierhq/fieldlink/internal/device"
)

func openStore(t *testing.T) *connstore.Store {
	t.Helper()

	s, err := connstore.Open(filepath.Join(t.TempDir(), "fieldlink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadEmpty(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	rec, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSaveLoadClear(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	want := connstore.Record{
		ID:        "AA:BB:CC:DD:EE:FF",
		Name:      "Epson-TM88",
		Address:   "AA:BB:CC:DD:EE:FF",
		Transport: device.TransportClassic,
		Role:      device.RolePrinter,
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	require.NoError(t, s.Clear())
	got, err = s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveReplacesSlot(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	require.NoError(t, s.Save(connstore.Record{
		ID: "11:11:11:11:11:11", Name: "Phomemo T02",
		Address: "11:11:11:11:11:11", Transport: device.TransportBLE, Role: device.RolePrinter,
	}))
	require.NoError(t, s.Save(connstore.Record{
		ID: "22:22:22:22:22:22", Name: "Honeywell Voyager",
		Address: "22:22:22:22:22:22", Transport: device.TransportClassic, Role: device.RoleScanner,
	}))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "22:22:22:22:22:22", got.ID)
	assert.Equal(t, device.RoleScanner, got.Role)
}

func TestClearEmptySlot(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	assert.NoError(t, s.Clear())
}

func TestRecordDevice(t *testing.T) {
	t.Parallel()

	rec := connstore.Record{
		ID: "id-1", Name: "Zebra ZQ320", Address: "id-1",
		Transport: device.TransportBLE, Role: device.RolePrinter,
	}
	dev := rec.Device()
	assert.Equal(t, rec.ID, dev.ID)
	assert.Equal(t, rec.Role, dev.Role)
	assert.False(t, dev.Connected)
}
