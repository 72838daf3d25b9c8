// ABOUTME: Typed get/set/subscribe operations over the protocol client
// ABOUTME: Domain wrappers for zone volume, mute, routing, scenes, and groups

package atlas

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/harper/atlas-control/internal/jsonrpc"
)

// Value is a normalized parameter reading. Num holds val/pct readings,
// Str holds str readings. When the device answered with an unexpected
// result shape, Format is empty and Raw carries the payload unchanged.
type Value struct {
	Format jsonrpc.Format
	Num    float64
	Str    string
	Raw    json.RawMessage
}

// GetParameter reads one parameter in the requested format. The device
// answers gets with an array of {param, val|pct|str} objects; the first
// element's matching field is unwrapped so callers never see the array.
func (c *Client) GetParameter(ctx context.Context, param string, format jsonrpc.Format) (Value, error) {
	res, err := c.SendRequest(ctx, jsonrpc.MethodGet, jsonrpc.GetParams(param, format))
	if err != nil {
		return Value{}, err
	}

	var entries []jsonrpc.Params
	if err := json.Unmarshal(res, &entries); err == nil && len(entries) > 0 {
		if v, ok := entries[0].Value(format); ok {
			out := Value{Format: format}
			switch format {
			case jsonrpc.FormatStr:
				out.Str = v.(string)
			default:
				out.Num = v.(float64)
			}
			return out, nil
		}
	}
	return Value{Raw: res}, nil
}

// SetParameter writes one parameter and waits for the round-trip
// confirmation. params must carry exactly one value field; use the
// jsonrpc constructors.
func (c *Client) SetParameter(ctx context.Context, params jsonrpc.Params) error {
	_, err := c.SendRequest(ctx, jsonrpc.MethodSet, params)
	return err
}

// SetParameterAsync writes without an id: no confirmation round trip.
func (c *Client) SetParameterAsync(params jsonrpc.Params) error {
	return c.SendNotification(jsonrpc.MethodSet, params)
}

// Bump adjusts a numeric parameter by a relative delta.
func (c *Client) Bump(ctx context.Context, param string, delta float64) error {
	_, err := c.SendRequest(ctx, jsonrpc.MethodBump, jsonrpc.ValParams(param, delta))
	return err
}

// Subscribe registers fn for updates to param and issues a sub to the
// device the first time this (param, format) pair is requested;
// redundant subscribes reuse the existing wire subscription. The
// listener is live as soon as it is registered: updates arriving before
// or instead of the sub confirmation are still dispatched. On a
// non-socket error the handle is returned alongside the error so the
// caller can still Unsubscribe.
func (c *Client) Subscribe(ctx context.Context, param string, format jsonrpc.Format, fn UpdateFunc) (*Subscription, error) {
	id, needsWire := c.subs.add(param, format, fn)
	sub := &Subscription{id: id, param: param, format: format}
	if !needsWire {
		return sub, nil
	}

	if _, err := c.SendRequest(ctx, jsonrpc.MethodSubscribe, jsonrpc.GetParams(param, format)); err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) || errors.Is(err, ErrNotConnected) {
			// The sub never left the socket; let the next subscriber retry.
			c.subs.unwire(param, format)
		}
		return sub, err
	}
	return sub, nil
}

// Unsubscribe removes the listener and, when it was the last one for
// its (param, format) pair, issues an unsub to the device.
func (c *Client) Unsubscribe(ctx context.Context, sub *Subscription) error {
	if sub == nil {
		return nil
	}
	if last := c.subs.remove(sub.param, sub.id); !last {
		return nil
	}
	_, err := c.SendRequest(ctx, jsonrpc.MethodUnsubscribe, jsonrpc.GetParams(sub.param, sub.format))
	return err
}

// RecallScene loads the device-stored preset at index scene.
func (c *Client) RecallScene(ctx context.Context, scene int) error {
	return c.SetParameter(ctx, jsonrpc.ValParams(ParamRecallScene, float64(scene)))
}

// PlayMessage triggers the stored announcement at index msg.
func (c *Client) PlayMessage(ctx context.Context, msg int) error {
	return c.SetParameter(ctx, jsonrpc.ValParams(ParamPlayMessage, float64(msg)))
}

// SetZoneSource routes source to a zone. Pass NoSource to clear.
func (c *Client) SetZoneSource(ctx context.Context, zone, source int) error {
	return c.SetParameter(ctx, jsonrpc.ValParams(ZoneSourceParam(zone), float64(source)))
}

// SetZoneVolume sets a zone's gain in raw dB.
func (c *Client) SetZoneVolume(ctx context.Context, zone int, db float64) error {
	return c.SetParameter(ctx, jsonrpc.ValParams(ZoneGainParam(zone), db))
}

// SetZoneVolumePct sets a zone's gain as a 0-100 percentage.
func (c *Client) SetZoneVolumePct(ctx context.Context, zone int, pct float64) error {
	return c.SetParameter(ctx, jsonrpc.PctParams(ZoneGainParam(zone), pct))
}

// BumpZoneVolume nudges a zone's gain by delta dB.
func (c *Client) BumpZoneVolume(ctx context.Context, zone int, delta float64) error {
	return c.Bump(ctx, ZoneGainParam(zone), delta)
}

// SetZoneMute mutes or unmutes a zone.
func (c *Client) SetZoneMute(ctx context.Context, zone int, muted bool) error {
	return c.SetParameter(ctx, jsonrpc.ValParams(ZoneMuteParam(zone), boolVal(muted)))
}

// SetSourceMute mutes or unmutes an input source.
func (c *Client) SetSourceMute(ctx context.Context, source int, muted bool) error {
	return c.SetParameter(ctx, jsonrpc.ValParams(SourceMuteParam(source), boolVal(muted)))
}

// SetGroupActive activates or deactivates a zone group.
func (c *Client) SetGroupActive(ctx context.Context, group int, active bool) error {
	return c.SetParameter(ctx, jsonrpc.ValParams(GroupActiveParam(group), boolVal(active)))
}

// ZoneVolume reads a zone's gain in dB.
func (c *Client) ZoneVolume(ctx context.Context, zone int) (float64, error) {
	v, err := c.GetParameter(ctx, ZoneGainParam(zone), jsonrpc.FormatVal)
	if err != nil {
		return 0, err
	}
	return v.Num, nil
}

// ZoneName reads a zone's hardware-configured display name.
func (c *Client) ZoneName(ctx context.Context, zone int) (string, error) {
	v, err := c.GetParameter(ctx, ZoneNameParam(zone), jsonrpc.FormatStr)
	if err != nil {
		return "", err
	}
	return v.Str, nil
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
