package driver

const (
	esc = 0x1B
	gs  = 0x1D
	us  = 0x1F
)

// Justify positions a printed block on the paper.
type Justify byte

const (
	JustifyLeft   Justify = 0x00
	JustifyCentre Justify = 0x01
	JustifyRight  Justify = 0x02
)

// Density selects the printhead heat level.
type Density byte

const (
	DensityLow    Density = 0x01
	DensityMedium Density = 0x03
	DensityHigh   Density = 0x04
)

func initPrinter() []byte {
	return []byte{esc, 0x40}
}

func setJustify(j Justify) []byte {
	return []byte{esc, 0x61, byte(j)}
}

func setDensity(d Density) []byte {
	return []byte{us, 0x11, 0x02, byte(d)}
}

// printRaster announces a raster block of heightRows rows, each strideBytes
// wide; the packed pixel data follows immediately.
func printRaster(strideBytes byte, heightRows uint16) []byte {
	return []byte{
		gs, 0x76, 0x30, 0x00,
		strideBytes, 0x00,
		byte(heightRows & 0xFF), byte(heightRows >> 8),
	}
}

func feedLines(n byte) []byte {
	return []byte{esc, 0x64, n}
}

func queryBatteryStatus() []byte {
	return []byte{us, 0x11, 0x08}
}

func queryPaperStatus() []byte {
	return []byte{us, 0x11, 0x11}
}

func queryFirmwareVersion() []byte {
	return []byte{us, 0x11, 0x07}
}
