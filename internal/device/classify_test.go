package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/courierhq/fieldlink/internal/device"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want device.Role
	}{
		{name: "Epson-TM88", want: device.RolePrinter},
		{name: "ZEBRA ZQ320", want: device.RolePrinter},
		{name: "Phomemo T02", want: device.RolePrinter},
		{name: "BlueTooth Printer", want: device.RolePrinter},
		{name: "Honeywell Voyager", want: device.RoleScanner},
		{name: "Datalogic QuickScan", want: device.RoleScanner},
		{name: "Unknown-XYZ", want: device.RoleUnknown},
		{name: "JBL Flip 5", want: device.RoleUnknown},
		{name: "", want: device.RoleUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, device.Classify(tt.name))
		})
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	t.Parallel()

	assert.Equal(t, device.Classify("HP LaserJet Printer"), device.Classify("hp laserjet printer"))
	assert.Equal(t, device.RolePrinter, device.Classify("EPSON-tm88"))
	assert.Equal(t, device.RolePrinter, device.Classify("epson-TM88"))
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	first := device.Classify("Epson-TM88")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, device.Classify("Epson-TM88"))
	}
}

func TestTransportRoundTrip(t *testing.T) {
	t.Parallel()

	for _, tr := range []device.Transport{device.TransportClassic, device.TransportBLE} {
		parsed, ok := device.ParseTransport(tr.String())
		assert.True(t, ok)
		assert.Equal(t, tr, parsed)
	}

	_, ok := device.ParseTransport("serial")
	assert.False(t, ok)
}

func TestRoleRoundTrip(t *testing.T) {
	t.Parallel()

	for _, r := range []device.Role{device.RoleUnknown, device.RolePrinter, device.RoleScanner} {
		parsed, ok := device.ParseRole(r.String())
		assert.True(t, ok)
		assert.Equal(t, r, parsed)
	}
}
