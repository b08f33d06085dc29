// Package action decodes the voice assistant's raw text output into typed
// document-mutation actions. The upstream model is instructed to emit strict
// JSON but is not guaranteed to comply; this package is the boundary that
// absorbs that unreliability.
package action

// Type identifies a document mutation in the assistant's action vocabulary.
type Type string

const (
	TypeUpdateClient   Type = "update_client"
	TypeAddLine        Type = "add_line"
	TypeUpdateLine     Type = "update_line"
	TypeDeleteLine     Type = "delete_line"
	TypeApplyDiscount  Type = "apply_discount"
	TypeRemoveDiscount Type = "remove_discount"
	TypeSetObject      Type = "set_object"
	TypeUnknown        Type = "unknown"
)

// Action is a single decoded document mutation. Actions are produced only by
// Decode and are immutable once produced.
type Action struct {
	Type   Type           `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Result is the outcome of decoding one assistant turn. Decoding never
// fails: on garbage input Actions is empty and Message carries a diagnostic.
type Result struct {
	Actions []Action
	Message string
	// Parsed reports whether the text was valid JSON in one of the shapes
	// the assistant is known to emit.
	Parsed bool
}
