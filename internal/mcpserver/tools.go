package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"bigrack/internal/inventory"
)

// toolset binds the MCP tool surface to the inventory store.
type toolset struct {
	store *inventory.Store
}

func (t *toolset) descriptors() []toolDescriptor {
	stringProp := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	intProp := func(desc string) map[string]any {
		return map[string]any{"type": "integer", "description": desc}
	}
	objectSchema := func(props map[string]any, required ...string) map[string]any {
		schema := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			schema["required"] = required
		}
		return schema
	}

	return []toolDescriptor{
		{
			Name:        "list_racks",
			Description: "List all racks with their location and unit capacity.",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        "list_devices",
			Description: "List devices, optionally restricted to a single rack.",
			InputSchema: objectSchema(map[string]any{
				"rack": stringProp("Rack name to filter by; omit for all racks."),
			}),
		},
		{
			Name:        "find_devices",
			Description: "Search devices by name, kind, or rack (case-insensitive).",
			InputSchema: objectSchema(map[string]any{
				"query": stringProp("Substring to search for."),
			}, "query"),
		},
		{
			Name:        "add_rack",
			Description: "Register a new rack.",
			InputSchema: objectSchema(map[string]any{
				"name":     stringProp("Unique rack name."),
				"location": stringProp("Physical location, free-form."),
				"units":    intProp("Unit capacity; defaults to 42."),
			}, "name"),
		},
		{
			Name:        "add_device",
			Description: "Mount a device into a rack at a unit position.",
			InputSchema: objectSchema(map[string]any{
				"rack":     stringProp("Rack name."),
				"position": intProp("Unit position, 1-based."),
				"kind":     stringProp("Device kind, e.g. server, switch, pdu."),
				"name":     stringProp("Device name."),
			}, "rack", "position", "kind", "name"),
		},
		{
			Name:        "set_device_status",
			Description: "Set a device's status to active, maintenance, or retired.",
			InputSchema: objectSchema(map[string]any{
				"uuid":   stringProp("Device UUID."),
				"status": stringProp("New status."),
			}, "uuid", "status"),
		},
	}
}

func (t *toolset) call(ctx context.Context, name string, arguments json.RawMessage) (toolsCallResult, error) {
	if len(arguments) == 0 {
		arguments = json.RawMessage("{}")
	}
	switch name {
	case "list_racks":
		racks, err := t.store.ListRacks(ctx)
		if err != nil {
			return toolError(err.Error()), nil
		}
		return jsonResult(racks)
	case "list_devices":
		var args struct {
			Rack string `json:"rack"`
		}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return toolsCallResult{}, fmt.Errorf("list_devices arguments: %w", err)
		}
		devices, err := t.store.ListDevices(ctx, args.Rack)
		if err != nil {
			return toolError(err.Error()), nil
		}
		return jsonResult(devices)
	case "find_devices":
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return toolsCallResult{}, fmt.Errorf("find_devices arguments: %w", err)
		}
		devices, err := t.store.FindDevices(ctx, args.Query)
		if err != nil {
			return toolError(err.Error()), nil
		}
		return jsonResult(devices)
	case "add_rack":
		var args struct {
			Name     string `json:"name"`
			Location string `json:"location"`
			Units    int    `json:"units"`
		}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return toolsCallResult{}, fmt.Errorf("add_rack arguments: %w", err)
		}
		rack, err := t.store.AddRack(ctx, args.Name, args.Location, args.Units)
		if err != nil {
			return toolError(err.Error()), nil
		}
		return jsonResult(rack)
	case "add_device":
		var args struct {
			Rack     string `json:"rack"`
			Position int    `json:"position"`
			Kind     string `json:"kind"`
			Name     string `json:"name"`
		}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return toolsCallResult{}, fmt.Errorf("add_device arguments: %w", err)
		}
		device, err := t.store.AddDevice(ctx, args.Rack, args.Position, args.Kind, args.Name)
		if err != nil {
			return toolError(err.Error()), nil
		}
		return jsonResult(device)
	case "set_device_status":
		var args struct {
			UUID   string `json:"uuid"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return toolsCallResult{}, fmt.Errorf("set_device_status arguments: %w", err)
		}
		device, err := t.store.SetDeviceStatus(ctx, args.UUID, inventory.DeviceStatus(args.Status))
		if err != nil {
			return toolError(err.Error()), nil
		}
		return jsonResult(device)
	default:
		return toolsCallResult{}, fmt.Errorf("unknown tool %q", name)
	}
}

func jsonResult(value any) (toolsCallResult, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return toolsCallResult{}, fmt.Errorf("marshal tool result: %w", err)
	}
	return textResult(string(data)), nil
}
