package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestMarshalRequest_ExactlyOneValueKey(t *testing.T) {
	id := uint64(7)
	req := Request{
		JSONRPC: Version,
		Method:  MethodSet,
		Params:  ValParams("ZoneGain_0", -12),
		ID:      &id,
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	var params map[string]json.RawMessage
	if err := json.Unmarshal(raw["params"], &params); err != nil {
		t.Fatalf("failed to unmarshal params: %v", err)
	}

	if _, ok := params["val"]; !ok {
		t.Error("expected val to be present")
	}
	for _, key := range []string{"pct", "str", "fmt"} {
		if _, ok := params[key]; ok {
			t.Errorf("unexpected key %q in params", key)
		}
	}
	if string(raw["id"]) != "7" {
		t.Errorf("expected id 7, got %s", raw["id"])
	}
}

func TestMarshalRequest_NoIDOmitted(t *testing.T) {
	req := Request{JSONRPC: Version, Method: MethodSet, Params: PctParams("ZoneGain_1", 80)}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if _, ok := raw["id"]; ok {
		t.Error("expected id to be omitted for fire-and-forget requests")
	}
}

func TestGetParams_CarriesOnlyFormat(t *testing.T) {
	data, err := json.Marshal(GetParams("SourceMute_2", FormatVal))
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if string(raw["fmt"]) != `"val"` {
		t.Errorf("expected fmt val, got %s", raw["fmt"])
	}
	for _, key := range []string{"val", "pct", "str"} {
		if _, ok := raw[key]; ok {
			t.Errorf("unexpected value key %q on a get", key)
		}
	}
}

func TestParseResponse(t *testing.T) {
	data := []byte(`{
		"jsonrpc": "2.0",
		"id": 1,
		"result": [{"param": "ZoneGain_0", "val": -12}]
	}`)

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if !msg.IsResponse() {
		t.Fatal("expected a response")
	}
	if msg.IsUpdate() {
		t.Error("a response must not also be an update")
	}
	if *msg.ID != 1 {
		t.Errorf("expected id 1, got %d", *msg.ID)
	}

	var entries []Params
	if err := json.Unmarshal(msg.Result, &entries); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	v, ok := entries[0].Value(FormatVal)
	if !ok {
		t.Fatal("expected val to be set")
	}
	if v.(float64) != -12 {
		t.Errorf("expected -12, got %v", v)
	}
}

func TestParseErrorResponse(t *testing.T) {
	data := []byte(`{
		"jsonrpc": "2.0",
		"id": 4,
		"error": {"code": -32602, "message": "bad param"}
	}`)

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if msg.Error == nil {
		t.Fatal("expected error to be set")
	}
	if msg.Error.Code != -32602 {
		t.Errorf("expected code -32602, got %d", msg.Error.Code)
	}
}

func TestParseUpdate(t *testing.T) {
	data := []byte(`{
		"jsonrpc": "2.0",
		"method": "update",
		"params": {"param": "ZoneGain_0", "val": -6}
	}`)

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if !msg.IsUpdate() {
		t.Fatal("expected an update notification")
	}
	if msg.IsResponse() {
		t.Error("an update must not also be a response")
	}

	var p Params
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		t.Fatalf("failed to unmarshal params: %v", err)
	}
	v, ok := p.AnyValue()
	if !ok || v.(float64) != -6 {
		t.Errorf("expected -6, got %v", v)
	}
}

func TestFormatValid(t *testing.T) {
	for _, f := range []Format{FormatVal, FormatPct, FormatStr} {
		if !f.Valid() {
			t.Errorf("%s should be valid", f)
		}
	}
	if Format("raw").Valid() {
		t.Error("raw should not be valid")
	}
	if Format("").Valid() {
		t.Error("empty format should not be valid")
	}
}

func TestParamsAnyValue_PrefersVal(t *testing.T) {
	s := "x"
	v := 1.0
	p := Params{Param: "ZoneName_0", Val: &v, Str: &s}
	got, ok := p.AnyValue()
	if !ok || got.(float64) != 1.0 {
		t.Errorf("expected val preferred, got %v", got)
	}
}
