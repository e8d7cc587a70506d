package printing

// Raw command sequences for the fallback path, used when no structured
// driver is bound to the connection.

const (
	esc = 0x1B
	gs  = 0x1D
)

func initSequence() []byte {
	return []byte{esc, 0x40}
}

func feedLines(n byte) []byte {
	return []byte{esc, 0x64, n}
}

func cutPaper() []byte {
	return []byte{gs, 0x56, 0x00}
}

// rawPayload builds the complete fallback job: reset preamble, literal text
// lines, paper feed, cut.
func rawPayload(lines []string) []byte {
	payload := initSequence()
	for _, line := range lines {
		payload = append(payload, line...)
		payload = append(payload, '\n')
	}
	payload = append(payload, feedLines(3)...)
	payload = append(payload, cutPaper()...)
	return payload
}
