// Web search expert tool.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richinex/pythia/tools"
)

// ExpertTool exposes the search sub-agent as a single tool.
type ExpertTool struct {
	tools.BaseTool
	agent *Agent
}

// NewExpertTool wraps a sub-agent as a tool.
func NewExpertTool(agent *Agent) *ExpertTool {
	return &ExpertTool{agent: agent}
}

var _ tools.Tool = (*ExpertTool)(nil)

// Metadata returns the tool metadata.
func (t *ExpertTool) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{
		Name: "web_search_expert",
		Description: "Research current information on the internet: live news, weather, prices, " +
			"anything that changes over time, and math questions. " +
			"Use it for facts the internal knowledge base cannot hold.",
		Parameters: []tools.ToolParameter{
			{Name: "task", ParamType: "string", Description: "The research task, phrased as a full question", Required: true},
		},
	}
}

type expertArgs struct {
	Task string `json:"task"`
}

// Validate validates the arguments.
func (t *ExpertTool) Validate(args json.RawMessage) error {
	var a expertArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(a.Task) == "" {
		return fmt.Errorf("task cannot be empty")
	}
	return nil
}

// Execute runs the sub-agent on the task.
func (t *ExpertTool) Execute(ctx context.Context, args json.RawMessage) (tools.ToolResult, error) {
	var a expertArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tools.FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}

	answer, err := t.agent.Run(ctx, a.Task)
	if err != nil {
		return tools.FailureResult(err), nil
	}
	return tools.SuccessResult(answer), nil
}
