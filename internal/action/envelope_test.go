package action

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRequestReadsRoutingFields(t *testing.T) {
	raw := []byte(`{
		"messageVersion": "1.0",
		"agent": {"name": "cost-assistant"},
		"actionGroup": "cost-tools",
		"apiPath": "/comparePrices",
		"httpMethod": "PUT",
		"sessionId": "ignored",
		"requestBody": {"content": {"application/json": {"properties": [
			{"name": "hospital_prices", "type": "string", "value": "{}"}
		]}}}
	}`)

	req, err := ParseRequest(raw)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.ActionGroup != "cost-tools" || req.APIPath != "/comparePrices" || req.HTTPMethod != "PUT" {
		t.Fatalf("unexpected routing fields %+v", req)
	}
	if string(req.Agent) != `{"name": "cost-assistant"}` {
		t.Fatalf("expected agent kept verbatim, got %s", req.Agent)
	}
	if req.Properties == nil || req.Content == nil {
		t.Fatal("expected content and properties to be located")
	}
}

func TestParseRequestMissingLevelsMeanNoParameters(t *testing.T) {
	inputs := []string{
		`{"apiPath": "/calculateCoinsurance"}`,
		`{"apiPath": "/calculateCoinsurance", "requestBody": null}`,
		`{"apiPath": "/calculateCoinsurance", "requestBody": {}}`,
		`{"apiPath": "/calculateCoinsurance", "requestBody": {"content": {}}}`,
		`{"apiPath": "/calculateCoinsurance", "requestBody": {"content": {"text/plain": {"properties": []}}}}`,
		`{"apiPath": "/calculateCoinsurance", "requestBody": {"content": {"application/json": {}}}}`,
		`{"apiPath": "/calculateCoinsurance", "requestBody": {"content": {"application/json": {"properties": null}}}}`,
	}

	for _, raw := range inputs {
		req, err := ParseRequest([]byte(raw))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", raw, err)
		}
		params, err := req.FlattenParameters()
		if err != nil {
			t.Fatalf("%s: FlattenParameters: %v", raw, err)
		}
		if len(params) != 0 {
			t.Fatalf("%s: expected no parameters, got %v", raw, params)
		}
	}
}

func TestParseRequestRejectsNonObjectEnvelope(t *testing.T) {
	for _, raw := range []string{`[]`, `"event"`, `42`, `null`, `{`} {
		req, err := ParseRequest([]byte(raw))
		if err == nil {
			t.Fatalf("%s: expected an error", raw)
		}
		if req.HTTPMethod != DefaultHTTPMethod {
			t.Fatalf("%s: expected default method, got %q", raw, req.HTTPMethod)
		}
	}
}

func TestParseRequestIgnoresNonStringRoutingFields(t *testing.T) {
	req, err := ParseRequest([]byte(`{"actionGroup": 7, "apiPath": ["/comparePrices"]}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.ActionGroup != "" || req.APIPath != "" {
		t.Fatalf("expected non-string fields to read as empty, got %+v", req)
	}
}

func TestLookup(t *testing.T) {
	doc := json.RawMessage(`{"a": {"b": {"c": [1]}}, "n": null, "s": "text"}`)

	got, found, err := lookup(doc, "a", "b", "c")
	if err != nil || !found || string(got) != "[1]" {
		t.Fatalf("expected [1], got %s, %v, %v", got, found, err)
	}

	if _, found, err := lookup(doc, "n", "x"); err != nil || found {
		t.Fatalf("expected null level to end the walk quietly, got %v, %v", found, err)
	}
	if _, found, err := lookup(doc, "missing"); err != nil || found {
		t.Fatalf("expected missing key to be not found, got %v, %v", found, err)
	}

	_, _, err = lookup(doc, "s", "x")
	if err == nil || !strings.Contains(err.Error(), "got string") {
		t.Fatalf("expected non-object level error, got %v", err)
	}
}

func TestJSONKind(t *testing.T) {
	tests := map[string]string{
		``:         "missing",
		`{"a": 1}`: "object",
		` [1] `:    "array",
		`"text"`:   "string",
		`true`:     "boolean",
		`null`:     "null",
		`-12.5e3`:  "number",
		`nonsense`: "invalid",
	}
	for raw, want := range tests {
		if got := jsonKind(json.RawMessage(raw)); got != want {
			t.Fatalf("jsonKind(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParameterUnmarshal(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr string
	}{
		{raw: `{"name": "amount", "type": "string", "value": "500"}`, want: "500"},
		{raw: `{"name": "amount", "value": 500.5}`, want: "500.5"},
		{raw: `{"name": "prices", "value": {"A": 1, "B": 2}}`, want: `{"A":1,"B":2}`},
		{raw: `{"name": "flag", "value": true}`, want: "true"},
		{raw: `{"name": "empty", "value": ""}`, want: ""},
		{raw: `{"value": "500"}`, wantErr: "parameter has no name"},
		{raw: `{"name": "amount"}`, wantErr: `parameter "amount" has no value`},
		{raw: `{"name": "amount", "value": null}`, wantErr: `parameter "amount" has no value`},
	}

	for _, tc := range tests {
		var p Parameter
		err := json.Unmarshal([]byte(tc.raw), &p)
		if tc.wantErr != "" {
			if err == nil || err.Error() != tc.wantErr {
				t.Fatalf("%s: expected error %q, got %v", tc.raw, tc.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.raw, err)
		}
		if p.Value != tc.want {
			t.Fatalf("%s: expected value %q, got %q", tc.raw, tc.want, p.Value)
		}
	}
}

func TestNewRequestRoundTripsThroughEnvelope(t *testing.T) {
	req, err := NewRequest("cli", PathOutOfPocketCost, map[string]string{
		"procedure_cost": "1000",
		"deductible":     "500",
	})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	raw, err := json.Marshal(map[string]any{
		"actionGroup": req.ActionGroup,
		"apiPath":     req.APIPath,
		"requestBody": map[string]json.RawMessage{"content": req.Content},
	})
	if err != nil {
		t.Fatalf("encoding envelope: %v", err)
	}

	parsed, err := ParseRequest(raw)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	params, err := parsed.FlattenParameters()
	if err != nil {
		t.Fatalf("FlattenParameters: %v", err)
	}
	if params["procedure_cost"] != "1000" || params["deductible"] != "500" || len(params) != 2 {
		t.Fatalf("unexpected parameters %v", params)
	}

	var list []Parameter
	if err := json.Unmarshal(req.Properties, &list); err != nil {
		t.Fatalf("decoding properties: %v", err)
	}
	if list[0].Name != "deductible" || list[1].Name != "procedure_cost" {
		t.Fatalf("expected properties in name order, got %+v", list)
	}
}
