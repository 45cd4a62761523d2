// Package toolschema removes JSON schema keywords from tool definitions before
// they are sent to backends that reject them.
package toolschema

import (
	"github.com/ezlinkai/vllm-relay/relay/model"
)

// DefaultStrippedKeys are removed at every depth of a tool definition when
// cleaning is enabled.
var DefaultStrippedKeys = []string{"additionalProperties", "strict"}

// Policy turns tool definitions into the form sent upstream. Implementations
// must not mutate their input.
type Policy interface {
	Tools(tools []model.Tool) []model.Tool
	Raw(tools any) any
}

// StripKeys is the default Policy: it prunes Keys from every map in the tree.
type StripKeys struct {
	Keys []string
}

var Default Policy = StripKeys{Keys: DefaultStrippedKeys}

func (s StripKeys) Tools(tools []model.Tool) []model.Tool {
	if tools == nil {
		return nil
	}
	out := make([]model.Tool, len(tools))
	for i, tool := range tools {
		out[i] = s.tool(tool)
	}
	return out
}

func (s StripKeys) Raw(tools any) any {
	return Prune(tools, s.Keys...)
}

func (s StripKeys) tool(tool model.Tool) model.Tool {
	// tool is a value copy; only the nested trees need a deep copy.
	tool.Function.Parameters = Prune(tool.Function.Parameters, s.Keys...)
	tool.Function.Arguments = Prune(tool.Function.Arguments, s.Keys...)
	if s.has("strict") {
		tool.Function.Strict = nil
	}
	return tool
}

func (s StripKeys) has(key string) bool {
	for _, k := range s.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Clean applies the default policy when enabled. When disabled the input slice
// is returned as is.
func Clean(tools []model.Tool, enabled bool) []model.Tool {
	return Apply(Default, tools, enabled)
}

// CleanRaw is Clean for decoded JSON tool payloads ([]any, []map[string]any).
func CleanRaw(tools any, enabled bool) any {
	return ApplyRaw(Default, tools, enabled)
}

func Apply(policy Policy, tools []model.Tool, enabled bool) []model.Tool {
	if !enabled || len(tools) == 0 || policy == nil {
		return tools
	}
	return policy.Tools(tools)
}

func ApplyRaw(policy Policy, tools any, enabled bool) any {
	if !enabled || tools == nil || policy == nil {
		return tools
	}
	return policy.Raw(tools)
}
