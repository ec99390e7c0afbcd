package pv

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/beamline/pkg/device"
)

// DefaultPollInterval is used when a status register has no interval set.
const DefaultPollInterval = 100 * time.Millisecond

// StatusRegister is a holding register decoded into discrete device states.
// Subscriptions poll the register; only changes are delivered.
type StatusRegister struct {
	Client   RegisterClient
	UnitID   uint8
	Addr     uint16
	Codes    map[uint16]device.State
	Interval time.Duration
}

// Read returns the decoded register value.
func (r *StatusRegister) Read(ctx context.Context) (device.State, error) {
	raw, err := r.Client.ReadRegister(ctx, r.UnitID, r.Addr)
	if err != nil {
		return device.Unknown, err
	}
	s, ok := r.Codes[raw]
	if !ok {
		return device.Unknown, fmt.Errorf("pv: status register %d: unknown code %d", r.Addr, raw)
	}
	return s, nil
}

// Subscribe starts a poll loop that delivers the first decoded value and
// every change after it. One goroutine per subscription, no overlap.
func (r *StatusRegister) Subscribe(fn func(device.State)) (device.Subscription, error) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &pollSubscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var (
			last    device.State
			seen    bool
			failing bool
		)

		poll := func() {
			s, err := r.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// Log the first failure of a run only.
				if !failing {
					log.Warn().Err(err).Uint16("addr", r.Addr).Msg("Status poll failed")
					failing = true
				}
				return
			}
			if failing {
				log.Info().Uint16("addr", r.Addr).Msg("Status poll recovered")
				failing = false
			}
			if seen && s == last {
				return
			}
			last, seen = s, true
			fn(s)
		}

		poll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				poll()
			}
		}
	}()

	return sub, nil
}

type pollSubscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Close stops the poll loop and waits for it to exit.
func (s *pollSubscription) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}

// CommandRegister writes scaled values to a holding register.
type CommandRegister struct {
	Client RegisterClient
	UnitID uint8
	Addr   uint16
	Scale  float64 // raw = round(value * Scale); zero means 1
}

// Write encodes value and writes it.
func (r *CommandRegister) Write(ctx context.Context, value float64) error {
	raw, err := encode(value, r.Scale)
	if err != nil {
		return fmt.Errorf("pv: command register %d: %w", r.Addr, err)
	}
	return r.Client.WriteRegister(ctx, r.UnitID, r.Addr, raw)
}

// ValueRegister reads a scaled continuous value from a holding register.
type ValueRegister struct {
	Client RegisterClient
	UnitID uint8
	Addr   uint16
	Scale  float64 // value = raw / Scale; zero means 1
	Signed bool    // interpret raw as int16
}

// Read decodes the register value.
func (r *ValueRegister) Read(ctx context.Context) (float64, error) {
	raw, err := r.Client.ReadRegister(ctx, r.UnitID, r.Addr)
	if err != nil {
		return 0, err
	}
	v := float64(raw)
	if r.Signed {
		v = float64(int16(raw))
	}
	return v / scaleOrOne(r.Scale), nil
}

func encode(value, scale float64) (uint16, error) {
	raw := math.Round(value * scaleOrOne(scale))
	if math.IsNaN(raw) || raw < 0 || raw > math.MaxUint16 {
		return 0, fmt.Errorf("value %g out of register range", value)
	}
	return uint16(raw), nil
}

func scaleOrOne(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}
