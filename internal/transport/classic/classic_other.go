//go:build !linux

package classic

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/courierhq/fieldlink/internal/transport"
)

// Backend is only implemented over BlueZ. On other platforms construction
// fails and the facade substitutes transport.Unavailable.
type Backend = transport.Unavailable

func New(zerolog.Logger) (*Backend, error) {
	return nil, errors.New("classic transport requires bluez")
}
