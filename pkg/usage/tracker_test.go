package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/crewkit/crewkit/pkg/types/llm"
)

func TestTrackerRecordSubagentUsage(t *testing.T) {
	tr := NewTracker()

	tr.RecordSubagentUsage("researcher", llmtypes.Usage{InputTokens: 100, OutputTokens: 40})
	tr.RecordSubagentUsage("researcher", llmtypes.Usage{InputTokens: 50, OutputTokens: 10})
	tr.RecordSubagentUsage("scribe", llmtypes.Usage{InputTokens: 20, OutputTokens: 5})

	breakdown := tr.Breakdown()
	require.Len(t, breakdown, 2)

	assert.Equal(t, 2, breakdown["researcher"].Requests)
	assert.Equal(t, 150, breakdown["researcher"].Usage.InputTokens)
	assert.Equal(t, 50, breakdown["researcher"].Usage.OutputTokens)
	assert.Equal(t, 1, breakdown["scribe"].Requests)

	total := tr.Total()
	assert.Equal(t, 170, total.InputTokens)
	assert.Equal(t, 55, total.OutputTokens)
}

func TestTrackerZeroUsageStillCountsRequest(t *testing.T) {
	tr := NewTracker()
	tr.RecordSubagentUsage("failed", llmtypes.Usage{})

	breakdown := tr.Breakdown()
	assert.Equal(t, 1, breakdown["failed"].Requests)
	assert.Equal(t, 0, breakdown["failed"].Usage.TotalTokens())
}

func TestTrackerBreakdownIsCopy(t *testing.T) {
	tr := NewTracker()
	tr.RecordSubagentUsage("worker", llmtypes.Usage{InputTokens: 10})

	breakdown := tr.Breakdown()
	entry := breakdown["worker"]
	entry.Usage.InputTokens = 9999
	entry.Requests = 9999
	breakdown["worker"] = entry

	fresh := tr.Breakdown()
	assert.Equal(t, 10, fresh["worker"].Usage.InputTokens)
	assert.Equal(t, 1, fresh["worker"].Requests)
}

func TestTrackerMonotonicGrowth(t *testing.T) {
	tr := NewTracker()

	previous := 0
	for i := 0; i < 10; i++ {
		tr.RecordSubagentUsage("worker", llmtypes.Usage{InputTokens: 7, OutputTokens: 3})
		current := tr.Total().TotalTokens()
		assert.Greater(t, current, previous)
		previous = current
	}
	assert.Equal(t, 100, previous)
}

func TestTrackerConcurrentRecording(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.RecordSubagentUsage("worker", llmtypes.Usage{InputTokens: 1})
			_ = tr.Breakdown()
			_ = tr.Total()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, tr.Breakdown()["worker"].Requests)
	assert.Equal(t, 50, tr.Total().InputTokens)
}
