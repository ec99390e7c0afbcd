package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/urmzd/beamline/pkg/beamline"
)

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the health of the beamline service and how many devices are running"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_devices",
			mcp.WithDescription("List all configured valves and pressure cells with their cached state"),
		),
		s.handleListDevices,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_device",
			mcp.WithDescription("Get one device's state, pending request and available actions; pressure cells include the pump pressure"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Device id from the beamline configuration"),
			),
		),
		s.handleGetDevice,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("operate_device",
			mcp.WithDescription("Run a valve action and wait for the valve to settle. Fails if the device is already moving or faulted."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Device id from the beamline configuration"),
			),
			mcp.WithString("action",
				mcp.Required(),
				mcp.Description("Action to run; see the device's actions list"),
				mcp.Enum(beamline.ActionOpen, beamline.ActionClose, beamline.ActionArm, beamline.ActionDisarm, beamline.ActionReset),
			),
		),
		s.handleOperateDevice,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("pressure_go",
			mcp.WithDescription("Drive a pressure cell to a target pressure, wait for it to go IDLE and check the pump pressure is within tolerance"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Pressure cell id"),
			),
			mcp.WithNumber("target",
				mcp.Required(),
				mcp.Description("Target pressure, non-negative"),
			),
		),
		s.handlePressureGo,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("reset_cell",
			mcp.WithDescription("Reset a pressure cell's valves: disarm, reset and close each in order. Stops at the first failure."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Pressure cell id"),
			),
		),
		s.handleResetCell,
	)
}
