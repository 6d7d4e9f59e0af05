// Package apierror decodes backend error bodies and turns failures into
// localized messages for the user.
package apierror

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// CodeTokenExpired is the backend error code treated like HTTP 401
const CodeTokenExpired = 112

// Shape identifies which error layout a body used
type Shape int

// Shapes in decode priority order
const (
	ShapeUnknown Shape = iota
	ShapeMessageList
	ShapeFieldErrors
	ShapeMessages
	ShapeMessage
	ShapeDetails
)

func (s Shape) String() string {
	switch s {
	case ShapeMessageList:
		return "message_list"
	case ShapeFieldErrors:
		return "field_errors"
	case ShapeMessages:
		return "messages"
	case ShapeMessage:
		return "message"
	case ShapeDetails:
		return "details"
	default:
		return "unknown"
	}
}

// Payload is a decoded error body. Exactly one of List, Fields or Text is
// populated, as selected by Shape.
type Payload struct {
	Shape     Shape
	ErrorCode int
	HasCode   bool

	// List holds ShapeMessageList and ShapeDetails
	List []string
	// Fields holds ShapeFieldErrors
	Fields map[string][]string
	// Text holds ShapeMessages and ShapeMessage
	Text string

	Raw json.RawMessage
}

// Decode classifies body into one shape. The first matching shape wins:
// messages[] > errors{} > messages > message > details[]. Empty values do
// not match.
func Decode(body []byte) Payload {
	p := Payload{Raw: json.RawMessage(body)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return p
	}

	p.ErrorCode, p.HasCode = decodeCode(fields["errorCode"])

	if list, ok := decodeStrings(fields["messages"]); ok {
		p.Shape, p.List = ShapeMessageList, list
		return p
	}
	if errs, ok := decodeFieldErrors(fields["errors"]); ok {
		p.Shape, p.Fields = ShapeFieldErrors, errs
		return p
	}
	if s, ok := decodeString(fields["messages"]); ok {
		p.Shape, p.Text = ShapeMessages, s
		return p
	}
	if s, ok := decodeString(fields["message"]); ok {
		p.Shape, p.Text = ShapeMessage, s
		return p
	}
	if list, ok := decodeStrings(fields["details"]); ok {
		p.Shape, p.List = ShapeDetails, list
		return p
	}
	return p
}

// Messages returns the strings to show, one notification each. Field
// errors are ordered by field name.
func (p Payload) Messages() []string {
	switch p.Shape {
	case ShapeMessageList, ShapeDetails:
		return slices.Clone(p.List)
	case ShapeFieldErrors:
		var out []string
		for _, field := range slices.Sorted(maps.Keys(p.Fields)) {
			out = append(out, p.Fields[field]...)
		}
		return out
	case ShapeMessages, ShapeMessage:
		return []string{p.Text}
	default:
		return nil
	}
}

// TokenExpired reports whether the body carries the token-expired code
func (p Payload) TokenExpired() bool {
	return p.HasCode && p.ErrorCode == CodeTokenExpired
}

func decodeCode(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func decodeStrings(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
		return nil, false
	}
	return list, true
}

// decodeFieldErrors accepts {field: [msg...]} and {field: msg}
func decodeFieldErrors(raw json.RawMessage) (map[string][]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}

	out := make(map[string][]string, len(entries))
	for field, v := range entries {
		if list, ok := decodeStrings(v); ok {
			out[field] = list
		} else if s, ok := decodeString(v); ok {
			out[field] = []string{s}
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
