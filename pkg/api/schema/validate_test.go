package schema

import (
	"encoding/json"
	"testing"
)

func valveActions() json.RawMessage {
	return ActionRequest([]string{"open", "close", "reset"})
}

func TestValidate_ValidAction(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(valveActions(), map[string]any{"action": "open"}); err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_ActionNotOffered(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(valveActions(), map[string]any{"action": "arm"}); err == nil {
		t.Error("expected validation error for action outside enum")
	}
}

func TestValidate_MissingAction(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(valveActions(), map[string]any{}); err == nil {
		t.Error("expected validation error for missing action")
	}
}

func TestValidate_UnknownProperty(t *testing.T) {
	v := NewValidator()

	err := v.Validate(valveActions(), map[string]any{
		"action":  "open",
		"timeout": float64(3),
	})
	if err == nil {
		t.Error("expected validation error for unknown property")
	}
}

func TestValidate_GoTarget(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(GoRequest, map[string]any{"target": float64(1000)}); err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
	if err := v.Validate(GoRequest, map[string]any{"target": float64(-5)}); err == nil {
		t.Error("expected validation error for negative target")
	}
	if err := v.Validate(GoRequest, map[string]any{"target": "high"}); err == nil {
		t.Error("expected validation error for wrong type")
	}
}

func TestValidate_EmptySchema(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(json.RawMessage(`{}`), map[string]any{"anything": "goes"}); err != nil {
		t.Errorf("empty schema should skip validation, got: %v", err)
	}
	if err := v.Validate(nil, map[string]any{"anything": "goes"}); err != nil {
		t.Errorf("nil schema should skip validation, got: %v", err)
	}
}

func TestValidate_CachesSchema(t *testing.T) {
	v := NewValidator()

	for _, action := range []string{"open", "close"} {
		if err := v.Validate(valveActions(), map[string]any{"action": action}); err != nil {
			t.Fatal(err)
		}
	}

	v.mu.RLock()
	cacheSize := len(v.cache)
	v.mu.RUnlock()
	if cacheSize != 1 {
		t.Errorf("expected 1 cached schema, got %d", cacheSize)
	}
}
