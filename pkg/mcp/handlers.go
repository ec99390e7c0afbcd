package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/urmzd/beamline/pkg/api/schema"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := "healthy"
	if s.svc.Len() == 0 {
		status = "degraded"
	}

	out := GetHealthOutput{
		Status:    status,
		Beamline:  s.svc.Name(),
		Devices:   s.svc.Len(),
		Simulated: s.svc.Simulated(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	devices := s.svc.Devices()
	out := ListDevicesOutput{
		Devices: devices,
		Count:   len(devices),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d, err := s.svc.Device(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("device not found: %s", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(GetDeviceOutput{Device: d})), nil
}

func (s *Server) handleOperateDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d, err := s.svc.Device(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("device not found: %s", err)), nil
	}

	args := map[string]any{"action": request.GetArguments()["action"]}
	if err := s.validator.Validate(schema.ActionRequest(d.Actions), args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validation error: %s", err)), nil
	}
	action := args["action"].(string)

	state, err := s.svc.Do(ctx, id, action)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to %s %s: %s", action, id, err)), nil
	}

	out := OperateDeviceOutput{
		DeviceID: id,
		Action:   action,
		State:    state,
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handlePressureGo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := map[string]any{"target": request.GetArguments()["target"]}
	if err := s.validator.Validate(schema.GoRequest, args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validation error: %s", err)), nil
	}
	target := args["target"].(float64)

	measured, err := s.svc.Go(ctx, id, target)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("pressure go failed: %s", err)), nil
	}

	out := PressureGoOutput{
		DeviceID: id,
		Target:   target,
		Measured: measured,
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleResetCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.svc.ResetCell(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reset cell: %s", err)), nil
	}

	out := ResetCellOutput{
		Success: true,
		Message: fmt.Sprintf("Cell %q valves disarmed, reset and closed", id),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// --- helpers ---

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
