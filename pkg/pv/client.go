package pv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog/log"
)

// RegisterClient is the register-level contract the PV types need.
type RegisterClient interface {
	ReadRegister(ctx context.Context, unitID uint8, addr uint16) (uint16, error)
	WriteRegister(ctx context.Context, unitID uint8, addr, value uint16) error
}

// Config is minimal transport config.
type Config struct {
	// Endpoint is host:port (optionally tcp://host:port) or rtu:///dev/ttyX
	Endpoint string
	Timeout  time.Duration
	BaudRate int
}

type handler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// Client is a single Modbus connection to one endpoint.
// It serializes requests because it mutates the slave id per call.
type Client struct {
	mu       sync.Mutex
	endpoint string
	handler  handler
	setSlave func(uint8)
	client   modbus.Client
}

// Dial connects to a Modbus TCP or RTU endpoint.
func Dial(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("pv: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	c := &Client{endpoint: cfg.Endpoint}

	if path, ok := strings.CutPrefix(cfg.Endpoint, "rtu://"); ok {
		h := modbus.NewRTUClientHandler(path)
		h.BaudRate = cfg.BaudRate
		if h.BaudRate <= 0 {
			h.BaudRate = 19200
		}
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.Timeout = cfg.Timeout
		c.handler = h
		c.setSlave = func(id uint8) { h.SlaveId = id }
	} else {
		h := modbus.NewTCPClientHandler(strings.TrimPrefix(cfg.Endpoint, "tcp://"))
		h.Timeout = cfg.Timeout
		c.handler = h
		c.setSlave = func(id uint8) { h.SlaveId = id }
	}

	if err := c.handler.Connect(); err != nil {
		return nil, fmt.Errorf("pv: connect %s: %w", cfg.Endpoint, err)
	}
	c.client = modbus.NewClient(c.handler)

	log.Info().Str("endpoint", cfg.Endpoint).Msg("PV endpoint connected")
	return c, nil
}

// Endpoint returns the configured endpoint.
func (c *Client) Endpoint() string { return c.endpoint }

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ReadRegister reads one holding register.
func (c *Client) ReadRegister(ctx context.Context, unitID uint8, addr uint16) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(unitID)
	b, err := c.client.ReadHoldingRegisters(addr, 1)
	if err != nil {
		return 0, fmt.Errorf("pv: read %s unit=%d addr=%d: %w", c.endpoint, unitID, addr, err)
	}
	if len(b) < 2 {
		return 0, fmt.Errorf("pv: read %s unit=%d addr=%d: short payload", c.endpoint, unitID, addr)
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// WriteRegister writes one holding register.
func (c *Client) WriteRegister(ctx context.Context, unitID uint8, addr, value uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(unitID)
	if _, err := c.client.WriteSingleRegister(addr, value); err != nil {
		return fmt.Errorf("pv: write %s unit=%d addr=%d: %w", c.endpoint, unitID, addr, err)
	}
	return nil
}
