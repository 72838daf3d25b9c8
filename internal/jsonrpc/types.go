// ABOUTME: JSON-RPC 2.0 message types for the Atlas control protocol
// ABOUTME: Implements request, response, and update-notification structures

package jsonrpc

import "encoding/json"

const Version = "2.0"

// Methods understood by Atlas processors.
const (
	MethodGet         = "get"
	MethodSet         = "set"
	MethodBump        = "bmp"
	MethodSubscribe   = "sub"
	MethodUnsubscribe = "unsub"
	MethodUpdate      = "update"
)

// Format selects which value encoding a parameter read or write uses.
// Exactly one of the three appears as a value key on the wire.
type Format string

const (
	FormatVal Format = "val" // raw numeric: dB gain, index, 0/1 booleans
	FormatPct Format = "pct" // 0-100 percentage
	FormatStr Format = "str" // string, read-only for hardware-named parameters
)

// Valid reports whether f is one of the three wire formats.
func (f Format) Valid() bool {
	return f == FormatVal || f == FormatPct || f == FormatStr
}

// Params identifies the target parameter and carries at most one value
// field. Fmt is set on get/sub/unsub requests to tell the device which
// encoding to answer with; set/bmp carry the encoding in the value key.
type Params struct {
	Param string   `json:"param"`
	Val   *float64 `json:"val,omitempty"`
	Pct   *float64 `json:"pct,omitempty"`
	Str   *string  `json:"str,omitempty"`
	Fmt   Format   `json:"fmt,omitempty"`
}

// ValParams builds params with a raw numeric value.
func ValParams(param string, v float64) Params {
	return Params{Param: param, Val: &v}
}

// PctParams builds params with a percentage value.
func PctParams(param string, v float64) Params {
	return Params{Param: param, Pct: &v}
}

// StrParams builds params with a string value.
func StrParams(param string, s string) Params {
	return Params{Param: param, Str: &s}
}

// GetParams builds value-less params carrying only the requested format.
func GetParams(param string, f Format) Params {
	return Params{Param: param, Fmt: f}
}

// Value returns the value stored under format f, if present.
func (p Params) Value(f Format) (interface{}, bool) {
	switch f {
	case FormatVal:
		if p.Val != nil {
			return *p.Val, true
		}
	case FormatPct:
		if p.Pct != nil {
			return *p.Pct, true
		}
	case FormatStr:
		if p.Str != nil {
			return *p.Str, true
		}
	}
	return nil, false
}

// AnyValue returns whichever value field is set, preferring val, then
// pct, then str. Used when dispatching updates where the device chooses
// the encoding.
func (p Params) AnyValue() (interface{}, bool) {
	switch {
	case p.Val != nil:
		return *p.Val, true
	case p.Pct != nil:
		return *p.Pct, true
	case p.Str != nil:
		return *p.Str, true
	}
	return nil, false
}

type Request struct {
	JSONRPC string  `json:"jsonrpc"`
	Method  string  `json:"method"`
	Params  Params  `json:"params"`
	ID      *uint64 `json:"id,omitempty"`
}

type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Message is the unified incoming shape. A response carries ID plus
// result or error; an unsolicited notification carries Method and
// Params with no ID. The two shapes are mutually exclusive.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsResponse reports whether m correlates to a pending request.
func (m *Message) IsResponse() bool { return m.ID != nil }

// IsUpdate reports whether m is an unsolicited parameter update.
func (m *Message) IsUpdate() bool { return m.ID == nil && m.Method == MethodUpdate }

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
)
