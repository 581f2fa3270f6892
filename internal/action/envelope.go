package action

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"healthcost-actions/internal/costcalc"
)

const (
	MessageVersion    = "1.0"
	DefaultHTTPMethod = "POST"
	ContentTypeJSON   = "application/json"
)

// Request is what the dispatcher reads from an inbound envelope. Every field
// is optional; absent fields keep their zero value.
type Request struct {
	// Agent is the caller's agent descriptor, kept verbatim for diagnostics.
	Agent       json.RawMessage
	ActionGroup string
	APIPath     string
	HTTPMethod  string

	// Parameters is the top-level parameter list (path and query parameters).
	Parameters json.RawMessage
	// Content is requestBody.content, kept verbatim for diagnostics.
	Content json.RawMessage
	// Properties is requestBody.content["application/json"].properties.
	Properties json.RawMessage

	SessionAttributes       json.RawMessage
	PromptSessionAttributes json.RawMessage
}

// Parameter is one {name, value} pair from a parameter list.
type Parameter struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
}

// UnmarshalJSON requires both name and value. String values are taken as-is;
// any other non-null JSON value is kept as its compact JSON text, so an
// inline object for hospital_prices reaches the calculator unchanged.
func (p *Parameter) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name  *string         `json:"name"`
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Name == nil {
		return errors.New("parameter has no name")
	}
	if len(aux.Value) == 0 || string(aux.Value) == "null" {
		return fmt.Errorf("parameter %q has no value", *aux.Name)
	}

	value, err := wireText(aux.Value)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", *aux.Name, err)
	}

	p.Name = *aux.Name
	p.Type = aux.Type
	p.Value = value
	return nil
}

func wireText(raw json.RawMessage) (string, error) {
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseRequest reads the routing fields and parameter lists out of an
// envelope. It fails only when raw is not a JSON object, or when a level of
// the requestBody path is present but is not an object.
func ParseRequest(raw []byte) (Request, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Request{HTTPMethod: DefaultHTTPMethod}, fmt.Errorf("envelope is not a JSON object: %w", err)
	}
	if doc == nil {
		return Request{HTTPMethod: DefaultHTTPMethod}, errors.New("envelope is not a JSON object: null")
	}

	req := Request{
		Agent:                   present(doc["agent"]),
		ActionGroup:             stringField(doc, "actionGroup"),
		APIPath:                 stringField(doc, "apiPath"),
		HTTPMethod:              stringField(doc, "httpMethod"),
		Parameters:              present(doc["parameters"]),
		SessionAttributes:       present(doc["sessionAttributes"]),
		PromptSessionAttributes: present(doc["promptSessionAttributes"]),
	}
	if present(doc["httpMethod"]) == nil {
		req.HTTPMethod = DefaultHTTPMethod
	}

	content, _, err := lookup(doc["requestBody"], "content")
	if err != nil {
		return req, fmt.Errorf("requestBody: %w", err)
	}
	req.Content = content

	props, _, err := lookup(content, ContentTypeJSON, "properties")
	if err != nil {
		return req, fmt.Errorf("requestBody.content: %w", err)
	}
	req.Properties = props

	return req, nil
}

// lookup follows keys through nested JSON objects. An absent or null level
// ends the walk with found=false; a level that exists but is not an object is
// an error.
func lookup(raw json.RawMessage, keys ...string) (json.RawMessage, bool, error) {
	cur := present(raw)
	for _, key := range keys {
		if cur == nil {
			return nil, false, nil
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil, false, fmt.Errorf("expected an object holding %q, got %s", key, jsonKind(cur))
		}
		cur = present(obj[key])
	}
	return cur, cur != nil, nil
}

// present maps JSON null and missing values to nil.
func present(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

// stringField reads a string member; anything else reads as "".
func stringField(doc map[string]json.RawMessage, key string) string {
	raw := present(doc[key])
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// jsonKind names the JSON type of raw for diagnostics.
func jsonKind(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "missing"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	}
	if _, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return "number"
	}
	return "invalid"
}

// FlattenParameters merges the top-level parameter list and the body
// properties into one set. Body properties are applied last, and within a
// list a later duplicate replaces an earlier one.
func (r Request) FlattenParameters() (costcalc.Params, error) {
	params := make(costcalc.Params)
	for _, src := range []struct {
		name string
		raw  json.RawMessage
	}{
		{name: "parameters", raw: r.Parameters},
		{name: "properties", raw: r.Properties},
	} {
		if src.raw == nil {
			continue
		}
		var list []Parameter
		if err := json.Unmarshal(src.raw, &list); err != nil {
			return nil, fmt.Errorf("%s: %w", src.name, err)
		}
		for _, p := range list {
			params[p.Name] = p.Value
		}
	}
	return params, nil
}

// NewRequest builds a request for apiPath whose body properties are params,
// in name order.
func NewRequest(actionGroup, apiPath string, params map[string]string) (Request, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	slices.Sort(names)

	list := make([]Parameter, 0, len(names))
	for _, name := range names {
		list = append(list, Parameter{Name: name, Type: "string", Value: params[name]})
	}

	props, err := json.Marshal(list)
	if err != nil {
		return Request{}, err
	}
	content, err := json.Marshal(map[string]map[string]json.RawMessage{
		ContentTypeJSON: {"properties": props},
	})
	if err != nil {
		return Request{}, err
	}

	return Request{
		ActionGroup: actionGroup,
		APIPath:     apiPath,
		HTTPMethod:  DefaultHTTPMethod,
		Content:     content,
		Properties:  props,
	}, nil
}

// Response is the outbound envelope.
type Response struct {
	MessageVersion          string          `json:"messageVersion"`
	Response                ActionResponse  `json:"response"`
	SessionAttributes       json.RawMessage `json:"sessionAttributes,omitempty"`
	PromptSessionAttributes json.RawMessage `json:"promptSessionAttributes,omitempty"`
}

type ActionResponse struct {
	ActionGroup    string                  `json:"actionGroup"`
	APIPath        string                  `json:"apiPath"`
	HTTPMethod     string                  `json:"httpMethod"`
	HTTPStatusCode int                     `json:"httpStatusCode"`
	ResponseBody   map[string]ResponseBody `json:"responseBody"`
}

type ResponseBody struct {
	// Body is the calculation result serialised as JSON text.
	Body string `json:"body"`
}

// Body returns the serialised result carried by the envelope.
func (r Response) Body() string {
	return r.Response.ResponseBody[ContentTypeJSON].Body
}
