// Package discovery orchestrates bounded-duration scanning across the
// classic and BLE transports, merging results into one deduplicated list.
package discovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/courierhq/fieldlink/internal/device"
	"github.com/courierhq/fieldlink/internal/transport"
)

// DefaultWindow bounds a scan when no window is configured.
const DefaultWindow = 10 * time.Second

// Engine fans a scan out to every available backend and owns the shared
// device list. Classic results arrive as a one-shot paired-device snapshot;
// BLE results stream in until the window closes. There is no ordering
// guarantee between the two.
type Engine struct {
	log      zerolog.Logger
	backends []transport.Backend
	window   time.Duration

	mu       sync.Mutex
	devices  []device.Device
	seen     map[string]struct{}
	scanning bool
	cancel   context.CancelFunc
	gen      uint64
}

func New(log zerolog.Logger, window time.Duration, backends ...transport.Backend) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Engine{
		log:      log.With().Str("component", "discovery").Logger(),
		backends: backends,
		window:   window,
		seen:     make(map[string]struct{}),
	}
}

// Scan starts a discovery pass and returns immediately; results accumulate
// in the shared list for the duration of the window. Starting a scan resets
// the list. A scan already in progress is stopped first.
func (e *Engine) Scan(ctx context.Context) error {
	available := make([]transport.Backend, 0, len(e.backends))
	for _, b := range e.backends {
		if b.Available() {
			available = append(available, b)
		}
	}
	if len(available) == 0 {
		return transport.ErrNoTransport
	}

	e.mu.Lock()
	if e.scanning {
		e.stopLocked()
	}
	e.devices = nil
	e.seen = make(map[string]struct{})
	e.scanning = true
	e.gen++
	gen := e.gen

	scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.window)
	e.cancel = cancel
	e.mu.Unlock()

	var wg sync.WaitGroup
	for _, b := range available {
		wg.Add(1)
		go func(b transport.Backend) {
			defer wg.Done()
			err := b.Discover(scanCtx, func(adv transport.Advertisement) {
				e.merge(gen, b.Kind(), adv)
			})
			if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				e.log.Warn().Err(err).Stringer("transport", b.Kind()).Msg("discovery failed on transport")
			}
		}(b)
	}

	go func() {
		wg.Wait()
		<-scanCtx.Done()
		cancel()

		e.mu.Lock()
		// A newer scan may already own the window; it reports its own close.
		if e.gen != gen {
			e.mu.Unlock()
			return
		}
		e.cancel = nil
		e.scanning = false
		count := len(e.devices)
		e.mu.Unlock()

		e.log.Info().Int("devices", count).Msg("discovery window closed")
	}()

	return nil
}

// merge classifies and appends one result. First-seen wins on id collisions;
// results arriving after the scan window closes belong to a dead generation
// and are discarded.
func (e *Engine) merge(gen uint64, kind device.Transport, adv transport.Advertisement) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.scanning || e.gen != gen {
		return
	}
	if _, dup := e.seen[adv.ID]; dup {
		return
	}
	e.seen[adv.ID] = struct{}{}

	e.devices = append(e.devices, device.Device{
		ID:                 adv.ID,
		Name:               adv.Name,
		Address:            adv.Address,
		Transport:          kind,
		Role:               device.Classify(adv.Name),
		RSSI:               adv.RSSI,
		AdvertisedServices: adv.Services,
	})
}

// Devices returns a snapshot of the current aggregate list.
func (e *Engine) Devices() []device.Device {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]device.Device, len(e.devices))
	copy(out, e.devices)
	return out
}

// Scanning reports whether a discovery window is open.
func (e *Engine) Scanning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanning
}

// Stop ends an in-progress scan early; connecting to a device does this so
// the BLE listener doesn't compete with the connection handshake.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.scanning = false
}
