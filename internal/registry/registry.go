// ABOUTME: Named inventory of Atlas processor endpoints
// ABOUTME: Model capability table for validating zone/source indexes

package registry

import (
	"fmt"
	"sort"
)

// Device describes one physical Atlas unit.
type Device struct {
	Name    string
	Host    string
	TCPPort int // JSON-RPC control port, 5321 when unset
	UDPPort int // metering broadcast port, informational
	Model   string
}

// Capabilities of a processor model.
type Capabilities struct {
	Inputs        int
	Outputs       int
	Zones         int
	DanteChannels int
}

// Known Atlas model capabilities.
var models = map[string]Capabilities{
	"AZM4":       {Inputs: 4, Outputs: 4, Zones: 4, DanteChannels: 8},
	"AZM8":       {Inputs: 8, Outputs: 8, Zones: 8, DanteChannels: 16},
	"Atmosphere": {Inputs: 12, Outputs: 8, Zones: 12, DanteChannels: 32},
}

const defaultTCPPort = 5321

// Capabilities returns the model table entry for the device, when known.
func (d Device) Capabilities() (Capabilities, bool) {
	c, ok := models[d.Model]
	return c, ok
}

// ValidateZone rejects zone indexes the device cannot have. Unknown
// models only get the non-negative check.
func (d Device) ValidateZone(zone int) error {
	if zone < 0 {
		return fmt.Errorf("zone %d: index must be non-negative", zone)
	}
	if c, ok := d.Capabilities(); ok && zone >= c.Zones {
		return fmt.Errorf("zone %d: %s has %d zones (0-%d)", zone, d.Model, c.Zones, c.Zones-1)
	}
	return nil
}

// ValidateSource rejects source indexes the device cannot have. -1 is
// allowed: it clears a zone's routing.
func (d Device) ValidateSource(source int) error {
	if source < -1 {
		return fmt.Errorf("source %d: index must be -1 or non-negative", source)
	}
	if c, ok := d.Capabilities(); ok && source >= c.Inputs {
		return fmt.Errorf("source %d: %s has %d inputs (0-%d)", source, d.Model, c.Inputs, c.Inputs-1)
	}
	return nil
}

// Registry resolves device names to endpoints.
type Registry struct {
	devices map[string]Device
}

// New builds a registry, defaulting unset TCP ports to 5321.
func New(devices []Device) (*Registry, error) {
	r := &Registry{devices: make(map[string]Device, len(devices))}
	for _, d := range devices {
		if d.Name == "" {
			return nil, fmt.Errorf("device with host %q has no name", d.Host)
		}
		if d.Host == "" {
			return nil, fmt.Errorf("device %q has no host", d.Name)
		}
		if _, exists := r.devices[d.Name]; exists {
			return nil, fmt.Errorf("duplicate device name %q", d.Name)
		}
		if d.TCPPort <= 0 {
			d.TCPPort = defaultTCPPort
		}
		if d.Model != "" {
			if _, ok := models[d.Model]; !ok {
				return nil, fmt.Errorf("device %q: unknown model %q", d.Name, d.Model)
			}
		}
		r.devices[d.Name] = d
	}
	return r, nil
}

// Lookup resolves a device by name.
func (r *Registry) Lookup(name string) (Device, bool) {
	d, ok := r.devices[name]
	return d, ok
}

// Devices returns all devices sorted by name.
func (r *Registry) Devices() []Device {
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
