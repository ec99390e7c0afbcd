// Package mcp exposes the beamline as Model Context Protocol tools.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/urmzd/beamline/pkg/api/schema"
	"github.com/urmzd/beamline/pkg/beamline"
	"github.com/urmzd/beamline/pkg/device"
)

// Service is the beamline surface the tools drive.
type Service interface {
	Name() string
	Simulated() bool
	Len() int
	Devices() []beamline.DeviceInfo
	Device(ctx context.Context, id string) (beamline.DeviceInfo, error)
	Do(ctx context.Context, id, action string) (device.State, error)
	Go(ctx context.Context, id string, target float64) (float64, error)
	ResetCell(ctx context.Context, id string) error
}

// Server wraps the MCP server with beamline device control
type Server struct {
	mcpServer *server.MCPServer
	svc       Service
	validator *schema.Validator
}

// NewServer creates a new MCP server for device control
func NewServer(svc Service, validator *schema.Validator) *Server {
	s := &Server{
		svc:       svc,
		validator: validator,
	}

	s.mcpServer = server.NewMCPServer(
		"beamline",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
