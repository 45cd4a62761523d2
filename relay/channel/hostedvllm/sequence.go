package hostedvllm

import (
	"github.com/ezlinkai/vllm-relay/relay/model"
	"github.com/pkg/errors"
)

// ErrOrphanToolOutput is what vLLM reports as "No tool calls but found tool
// output": a tool message with no matching assistant tool call before it.
var ErrOrphanToolOutput = errors.New("tool output without a preceding assistant tool call")

// CheckToolMessageSequence finds the first tool message whose tool_call_id was
// not announced by an earlier assistant message. It only inspects the
// conversation; the backend still decides.
func CheckToolMessageSequence(messages []model.Message) error {
	announced := make(map[string]bool)
	anyToolCall := false
	for i, message := range messages {
		switch message.Role {
		case model.RoleAssistant:
			for _, call := range message.ToolCalls {
				anyToolCall = true
				if call.Id != "" {
					announced[call.Id] = true
				}
			}
		case model.RoleTool:
			if message.ToolCallId == "" {
				if !anyToolCall {
					return errors.Wrapf(ErrOrphanToolOutput, "message %d", i)
				}
				continue
			}
			if !announced[message.ToolCallId] {
				return errors.Wrapf(ErrOrphanToolOutput, "message %d tool_call_id %q", i, message.ToolCallId)
			}
		}
	}
	return nil
}
