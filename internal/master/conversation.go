package master

import (
	"strings"

	"github.com/polanalyst/workbench/internal/domain"
)

// conversationManager assembles the working context: bounds history to
// the last MaxHistoryTurns turns, extracts a rough entity/topic list for
// the planner, and resets iteration to 0. Deterministic, no LLM call.
func conversationManager(state *domain.AgentState, cfg Config) []string {
	state.AppendTrace("conversation_manager", "start", nil)
	defer state.AppendTrace("conversation_manager", "end", nil)

	if cfg.MaxHistoryTurns > 0 && len(state.MessageHistory) > cfg.MaxHistoryTurns {
		state.MessageHistory = state.MessageHistory[len(state.MessageHistory)-cfg.MaxHistoryTurns:]
	}
	state.Iteration = 0

	return extractEntities(state.MessageHistory, state.UserQuery)
}

// extractEntities pulls a coarse list of capitalized multi-word phrases
// from recent turns and the current query, good enough to seed the
// planner's prompt without a dedicated NLP pass.
func extractEntities(history []domain.Turn, query string) []string {
	seen := make(map[string]bool)
	var entities []string

	collect := func(text string) {
		for _, word := range strings.Fields(text) {
			trimmed := strings.Trim(word, ".,!?;:\"'()")
			if len(trimmed) > 2 && isCapitalized(trimmed) && !seen[trimmed] {
				seen[trimmed] = true
				entities = append(entities, trimmed)
			}
		}
	}

	for _, turn := range history {
		collect(turn.Content)
	}
	collect(query)

	return entities
}

func isCapitalized(word string) bool {
	r := []rune(word)
	return len(r) > 0 && r[0] >= 'A' && r[0] <= 'Z'
}
