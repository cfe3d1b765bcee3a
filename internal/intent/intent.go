// Package intent defines the structured operation records derived from
// LLM output and the executor that runs them.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is one of the seven supported operation kinds.
type Action string

const (
	ActionRead      Action = "READ"
	ActionInsert    Action = "INSERT"
	ActionUpdate    Action = "UPDATE"
	ActionDelete    Action = "DELETE"
	ActionTemplate  Action = "TEMPLATE"
	ActionWorkflow  Action = "WORKFLOW"
	ActionSendEmail Action = "SEND_EMAIL"
)

// ParseAction canonicalizes and validates an action value. Anything
// outside the seven enumerated kinds (e.g. a hallucinated "ROUTE") is
// rejected, never defaulted.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(raw)))
	switch a {
	case ActionRead, ActionInsert, ActionUpdate, ActionDelete,
		ActionTemplate, ActionWorkflow, ActionSendEmail:
		return a, true
	}
	return "", false
}

// ValuesKind tags the shape of an intent's VALUES payload.
type ValuesKind int

const (
	ValuesAbsent ValuesKind = iota
	ValuesMapping
	ValuesSequence
	ValuesRaw
)

// Values is the tagged VALUES payload, resolved once at intent
// construction instead of being re-parsed at every point of use.
type Values struct {
	Kind     ValuesKind
	Mapping  map[string]any
	Sequence []any
	Raw      string
}

// DecodeValues resolves raw VALUES text: JSON objects and arrays become
// typed payloads, everything else stays raw for the row store's own
// normalization (comma splitting etc.).
func DecodeValues(raw string) Values {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Values{}
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		switch v := parsed.(type) {
		case map[string]any:
			return Values{Kind: ValuesMapping, Mapping: v}
		case []any:
			return Values{Kind: ValuesSequence, Sequence: v}
		}
	}
	return Values{Kind: ValuesRaw, Raw: trimmed}
}

// IsAbsent reports whether no payload was supplied.
func (v Values) IsAbsent() bool {
	return v.Kind == ValuesAbsent
}

// Payload returns the untagged payload for the row store.
func (v Values) Payload() any {
	switch v.Kind {
	case ValuesMapping:
		return v.Mapping
	case ValuesSequence:
		return v.Sequence
	case ValuesRaw:
		return v.Raw
	default:
		return nil
	}
}

// MarshalJSON emits the underlying payload (or null when absent).
func (v Values) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Payload())
}

// UnmarshalJSON accepts any JSON shape: objects and arrays become
// typed payloads, strings stay raw, null is absent.
func (v *Values) UnmarshalJSON(data []byte) error {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	switch p := parsed.(type) {
	case nil:
		*v = Values{}
	case map[string]any:
		*v = Values{Kind: ValuesMapping, Mapping: p}
	case []any:
		*v = Values{Kind: ValuesSequence, Sequence: p}
	case string:
		*v = Values{Kind: ValuesRaw, Raw: p}
	default:
		*v = Values{Kind: ValuesRaw, Raw: fmt.Sprintf("%v", p)}
	}
	return nil
}

// Intent is one atomic requested operation. Field names on the wire
// match the INTENT block grammar the LLM is prompted with.
type Intent struct {
	Action     Action `json:"ACTION"`
	Department string `json:"DEPARTMENT"`
	ExcelPath  string `json:"EXCEL_PATH,omitempty"`
	Sheet      string `json:"SHEET,omitempty"`
	Condition  string `json:"CONDITION,omitempty"`
	Values     Values `json:"VALUES,omitempty"`
	Notes      string `json:"NOTES,omitempty"`

	// Email-specific fields (ACTION=SEND_EMAIL, DEPARTMENT=HR).
	EmployeeName string `json:"EMPLOYEE_NAME,omitempty"`
	Email        string `json:"EMAIL,omitempty"`
	Subject      string `json:"SUBJECT,omitempty"`
	Body         string `json:"BODY,omitempty"`
}

// Result is the externally visible outcome of executing one intent.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
