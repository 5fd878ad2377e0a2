// Package battery reads the charge level of a kiosk's UPS board so the
// viewer can warn before the display goes dark.
package battery

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"countdown/internal/config"
	appLog "countdown/internal/log"
)

// PiSugar-style register map.
const (
	regVoltageHigh = 0x22
	regVoltageLow  = 0x23
	regPercent     = 0x2A
)

// Status is the battery state served on /api/battery.
type Status struct {
	Percent   int    `json:"percent"`
	VoltageMv int    `json:"voltage_mv"`
	Source    string `json:"source"`
}

// Reader obtains the current battery status.
type Reader interface {
	Read(ctx context.Context) (Status, error)
}

type mockReader struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMockReader returns pseudo-random levels for machines without a UPS
// board.
func NewMockReader() Reader {
	return &mockReader{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (m *mockReader) Read(_ context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{Percent: 20 + m.rnd.Intn(81), Source: "mock"}, nil
}

type i2cReader struct {
	busName string
	addr    uint16
}

// NewI2CReader reads the board at addr on busName ("" is the default bus).
// The bus is opened per read.
func NewI2CReader(busName string, addr uint16) Reader {
	return &i2cReader{busName: busName, addr: addr}
}

func (r *i2cReader) Read(_ context.Context) (Status, error) {
	if runtime.GOOS != "linux" {
		return Status{}, errors.New("battery: i2c reader unavailable on this platform")
	}
	if _, err := host.Init(); err != nil {
		return Status{}, err
	}

	bus, err := i2creg.Open(r.busName)
	if err != nil {
		return Status{}, err
	}
	defer bus.Close()

	dev := &i2c.Dev{Bus: bus, Addr: r.addr}
	readReg := func(reg byte) (byte, error) {
		buf := []byte{0}
		if err := dev.Tx([]byte{reg}, buf); err != nil {
			return 0, err
		}
		return buf[0], nil
	}

	high, err := readReg(regVoltageHigh)
	if err != nil {
		return Status{}, err
	}
	low, err := readReg(regVoltageLow)
	if err != nil {
		return Status{}, err
	}
	pct, err := readReg(regPercent)
	if err != nil {
		return Status{}, err
	}
	return decode(high, low, pct), nil
}

func decode(high, low, pct byte) Status {
	if pct > 100 {
		pct = 100
	}
	return Status{
		Percent:   int(pct),
		VoltageMv: int(uint16(high)<<8 | uint16(low)),
		Source:    "i2c",
	}
}

// New returns the reader for cfg, or nil when the battery is disabled. An
// enabled reader whose first read fails falls back to the mock.
func New(cfg config.BatteryConfig) Reader {
	if !cfg.Enabled {
		return nil
	}
	r := NewI2CReader(cfg.Bus, cfg.Addr)
	if _, err := r.Read(context.Background()); err != nil {
		appLog.Warn("battery i2c unavailable, using mock reader", "bus", cfg.Bus, "addr", cfg.Addr, "err", err)
		return NewMockReader()
	}
	return r
}

// Cached wraps r so reads within ttl reuse the last status.
func Cached(r Reader, ttl time.Duration) Reader {
	return &cachedReader{next: r, ttl: ttl, now: time.Now}
}

type cachedReader struct {
	next Reader
	ttl  time.Duration
	now  func() time.Time

	mu        sync.Mutex
	last      Status
	updatedAt time.Time
}

func (c *cachedReader) Read(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.updatedAt.IsZero() && c.now().Sub(c.updatedAt) < c.ttl {
		return c.last, nil
	}
	st, err := c.next.Read(ctx)
	if err != nil {
		return Status{}, err
	}
	c.last, c.updatedAt = st, c.now()
	return st, nil
}
