package action

import (
	"strings"

	"github.com/bytedance/sonic"
)

// Decode parses one assistant turn into a list of actions.
//
// The assistant has been observed to reply in three shapes:
//
//	{"actions":[{"type":...,"params":{...}}], "message":"..."}
//	{"message":"..."} or {"spoken":"..."} with no actions
//	{"action":"add_line", "line":{...}} (single-action, older prompt wording)
//
// All three are accepted. Anything else yields zero actions and the raw text
// as a status message.
func Decode(raw string) Result {
	text := stripFences(strings.TrimSpace(raw))
	if text == "" {
		return Result{}
	}

	var payload map[string]any
	if err := sonic.Unmarshal([]byte(text), &payload); err != nil {
		return Result{Message: raw}
	}

	if rawActions, ok := payload["actions"].([]any); ok {
		return Result{
			Actions: decodeActionList(rawActions),
			Message: stringField(payload, "message", "spoken"),
			Parsed:  true,
		}
	}

	if name, ok := payload["action"].(string); ok && name != "" {
		return Result{
			Actions: []Action{decodeSingleAction(name, payload)},
			Message: stringField(payload, "message", "spoken"),
			Parsed:  true,
		}
	}

	// Legacy/compatibility path: valid JSON carrying only a spoken reply.
	return Result{Message: stringField(payload, "message", "spoken"), Parsed: true}
}

func decodeActionList(raw []any) []Action {
	actions := make([]Action, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := obj["type"].(string)
		if name == "" {
			continue
		}
		params, _ := obj["params"].(map[string]any)
		actions = append(actions, Action{Type: Type(name), Params: params})
	}
	return actions
}

// decodeSingleAction handles the older single-action shape where parameters
// arrive under "line" or "client" (or inline next to "action").
func decodeSingleAction(name string, payload map[string]any) Action {
	if line, ok := payload["line"].(map[string]any); ok {
		return Action{Type: Type(name), Params: line}
	}
	if client, ok := payload["client"].(map[string]any); ok {
		return Action{Type: Type(name), Params: client}
	}

	params := make(map[string]any)
	for k, v := range payload {
		switch k {
		case "action", "message", "spoken":
		default:
			params[k] = v
		}
	}
	if len(params) == 0 {
		params = nil
	}
	return Action{Type: Type(name), Params: params}
}

func stringField(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := payload[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// stripFences removes a surrounding markdown code fence (```json ... ``` or
// ``` ... ```) if present.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := text[3:]
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		// Drop the fence line itself, including any "json" language tag.
		body = body[idx+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
