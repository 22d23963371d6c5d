package vmrest

import "net/http"

// Operation names the kind of call a response came from. It decides how
// the HTTP status maps onto the changed flag.
type Operation string

const (
	OpCreate          Operation = "create"
	OpCreateTemporary Operation = "create_temporary"
	OpDelete          Operation = "delete"
	OpMove            Operation = "move"
	OpGet             Operation = "get"
	OpList            Operation = "list"
)

// Mutating reports whether a successful call of this kind changes remote state.
func (o Operation) Mutating() bool {
	switch o {
	case OpCreate, OpCreateTemporary, OpDelete, OpMove:
		return true
	}
	return false
}

// Result is the normalized outcome of one reconciliation.
type Result struct {
	Changed bool   `json:"changed"`
	Failed  bool   `json:"failed"`
	Value   any    `json:"value"`
	ID      string `json:"id,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// Normalize returns body as an envelope with a top-level "value" key.
//
// vCenter 7.0.2 and later return bare documents where older releases wrap
// them in {"value": ...}. A map that already has "value" is returned as is;
// nil becomes {"value": {}}; anything else is wrapped. Applying Normalize to
// its own output returns the same envelope.
func Normalize(body any) map[string]any {
	switch v := body.(type) {
	case nil:
		return map[string]any{"value": map[string]any{}}
	case map[string]any:
		if _, ok := v["value"]; ok {
			return v
		}
	}
	return map[string]any{"value": body}
}

// UpdateChangedFlag folds a response body and status into a Result.
//
//   - 500 fails.
//   - a mutating operation answered with 2xx changed remote state.
//   - get and list answered with 200 succeed unchanged.
//   - any other status from 400 up fails.
//
// A value carrying vCenter's "error_type" always fails.
func UpdateChangedFlag(body any, status int, op Operation) *Result {
	env := Normalize(body)

	result := &Result{Value: env["value"], Status: status}
	if id, ok := env["id"].(string); ok {
		result.ID = id
	}

	switch {
	case status == http.StatusInternalServerError:
		result.Failed = true
	case op.Mutating() && status >= 200 && status < 300:
		result.Changed = true
	case (op == OpGet || op == OpList) && status == http.StatusOK:
	case status >= 400:
		result.Failed = true
	}

	if v, ok := result.Value.(map[string]any); ok {
		if _, hasErr := v["error_type"]; hasErr {
			result.Failed = true
			result.Changed = false
		}
	}

	return result
}
