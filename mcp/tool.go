package mcp

// Tool describes a single tool advertised by a tool provider, including
// its JSON-schema parameters.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// NormalizeSchema returns a parameter schema safe to hand to model
// providers. Some servers advertise object schemas with a missing or
// empty properties field, which strict providers reject.
func NormalizeSchema(schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		}
	}
	if t, _ := schema["type"].(string); t == "object" {
		props, ok := schema["properties"].(map[string]interface{})
		if !ok || len(props) == 0 {
			out := make(map[string]interface{}, len(schema)+1)
			for k, v := range schema {
				out[k] = v
			}
			out["properties"] = map[string]interface{}{}
			return out
		}
	}
	return schema
}

// OpenAI renders the tool in the OpenAI function-calling format.
func (t Tool) OpenAI() map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  NormalizeSchema(t.InputSchema),
		},
	}
}
