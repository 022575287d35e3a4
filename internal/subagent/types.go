// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package subagent implements the Sub-Agent Framework (§4.10): a closed
// registry of self-contained mini-graphs (sentiment_analysis_agent,
// media_bias_detector_agent, live_political_monitor_agent), each invoked
// through a uniform call contract and returning a uniform
// domain.SubAgentResult.
package subagent

import (
	"context"

	"github.com/polanalyst/workbench/internal/domain"
)

// Input is the normalized request every sub-agent receives, regardless
// of its internal mini-graph shape.
type Input struct {
	Query  string
	Extras map[string]any
}

// Agent is one sub-agent instance. Run must never panic or return a raw
// error to the caller: failures are caught and folded into
// domain.SubAgentResult.Error by Caller.Call.
type Agent interface {
	// Name is the registry key the planner selects by
	// (e.g. "sentiment_analysis_agent").
	Name() string

	Run(ctx context.Context, in Input) domain.SubAgentResult
}

// Factory constructs a fresh Agent instance per call. Go has no runtime
// module system to unload, so the isolation contract (§4.10, "evicts any
// modules loaded under A's root") is modeled as: every invocation gets a
// brand-new Agent value with its own state, never a shared singleton: two
// agents cannot collide on package-level mutable state because there is
// none to collide on. See DESIGN.md for the full Open-Question writeup.
type Factory func() Agent
