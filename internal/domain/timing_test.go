package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepDurationFloorsTinySpans(t *testing.T) {
	base := time.Now()
	records := []TraceRecord{
		{Step: "strategic_planner", Status: "start", Timestamp: base},
		{Step: "strategic_planner", Status: "end", Timestamp: base.Add(3 * time.Millisecond)},
	}
	assert.Equal(t, 50*time.Millisecond, StepDuration(records, "strategic_planner"))
}

func TestStepDurationReportsRealSpan(t *testing.T) {
	base := time.Now()
	records := []TraceRecord{
		{Step: "tool_executor", Status: "start", Timestamp: base},
		{Step: "tool_executor", Status: "end", Timestamp: base.Add(2 * time.Second)},
	}
	assert.Equal(t, 2*time.Second, StepDuration(records, "tool_executor"))
}

func TestStepDurationUnknownStepIsZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), StepDuration(nil, "missing"))
}

func TestStepNamesPreservesFirstSeenOrder(t *testing.T) {
	records := []TraceRecord{
		{Step: "a", Status: "start"},
		{Step: "b", Status: "start"},
		{Step: "a", Status: "end"},
	}
	assert.Equal(t, []string{"a", "b"}, StepNames(records))
}
