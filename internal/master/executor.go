package master

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/observability"
)

// toolExecutor dispatches plan.ToolsToUse in parallel: built-in tools
// against toolTimeout, sub-agents against subAgentTimeout. Per-call
// failures are recorded in error_log and never abort the remaining
// dispatches (§4.4 policy, §7 tool_failure kind).
func toolExecutor(ctx context.Context, state *domain.AgentState, tools map[string]Tool, caller SubAgentCaller, cfg Config) {
	state.AppendTrace("tool_executor", "start", nil)
	defer state.AppendTrace("tool_executor", "end", nil)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, name := range state.Plan.ToolsToUse {
		name := name
		if tool, ok := tools[name]; ok {
			wg.Add(1)
			go func() {
				defer wg.Done()
				runTool(ctx, state, &mu, tool, name, state.UserQuery, cfg.ToolTimeout)
			}()
			continue
		}
		if caller != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				runSubAgent(ctx, state, &mu, caller, name, state.UserQuery, cfg.SubAgentTimeout)
			}()
			continue
		}
		mu.Lock()
		state.AppendError(fmt.Sprintf("tool_executor: %q is not a registered tool or sub-agent", name))
		mu.Unlock()
	}

	wg.Wait()
}

func runTool(ctx context.Context, state *domain.AgentState, mu *sync.Mutex, tool Tool, name, query string, timeout time.Duration) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	output, err := tool.Call(callCtx, query, nil)
	duration := time.Since(start)
	observability.GetGlobalMetrics().RecordToolExecution(ctx, name, duration, err)

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		errMsg := err.Error()
		if callCtx.Err() != nil {
			errMsg = "timeout: " + errMsg
		}
		state.ToolResults[name] = domain.ToolResult{Error: errMsg, Duration: duration}
		state.AppendError(fmt.Sprintf("tool_executor(%s): %s", name, errMsg))
		return
	}
	state.ToolResults[name] = domain.ToolResult{Output: output, Duration: duration}
}

func runSubAgent(ctx context.Context, state *domain.AgentState, mu *sync.Mutex, caller SubAgentCaller, name, query string, timeout time.Duration) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result := caller.Call(callCtx, name, query, nil)
	var callErr error
	if !result.Success {
		callErr = fmt.Errorf("%s", result.Error)
	}
	observability.GetGlobalMetrics().RecordAgentCall(ctx, time.Since(start), 0, callErr)

	mu.Lock()
	defer mu.Unlock()
	state.SubAgentResults[name] = result
	if !result.Success {
		state.AppendError(fmt.Sprintf("tool_executor(%s): %s", name, result.Error))
	}
}
