package integration_tests

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/burstfn/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

// TestConcurrency_IndependentFunctionsOverlap verifies that invocations of
// different functions are not serialized by the runtime.
func TestConcurrency_IndependentFunctionsOverlap(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	const fnCount = 4
	files := map[string]string{}
	ids := []string{"A", "B", "C", "D"}
	for _, id := range ids {
		files["sleep_"+id+".hcl"] = `
			export "default" {
				result = sleep("` + id + `")
			}
		`
	}
	completionChan := make(chan string, fnCount)
	mockModule := testutil.NewMockSleeperModule(completionChan, 150*time.Millisecond)
	result := testutil.RunIntegrationTest(t, files, mockModule)
	require.NoError(t, result.Err)

	// --- Act ---
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := result.Invoke(t, "sleep_"+id, cty.NilVal)
			assert.NoError(t, err)
			assert.Equal(t, cty.StringVal(id), got)
		}()
	}
	wg.Wait()

	// --- Assert ---
	require.Len(t, completionChan, fnCount)
	var latestStart, earliestEnd time.Time
	for _, id := range ids {
		rec, ok := mockModule.Record(id)
		require.True(t, ok, "no record for %s", id)
		if latestStart.IsZero() || rec.Start.After(latestStart) {
			latestStart = rec.Start
		}
		if earliestEnd.IsZero() || rec.End.Before(earliestEnd) {
			earliestEnd = rec.End
		}
	}
	assert.True(t, latestStart.Before(earliestEnd), "invocations ran sequentially")

	a, _ := mockModule.Record("A")
	b, _ := mockModule.Record("B")
	assert.True(t, a.Overlaps(b))
}

// TestConcurrency_SharedStateAcrossFunctions documents that shared state is
// process-wide rather than scoped to a function.
func TestConcurrency_SharedStateAcrossFunctions(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"writer.hcl": `
			export "default" {
				result = shared_set("greeting", ctx.payload)
			}
		`,
		"reader.hcl": `
			export "default" {
				result = shared_get("greeting")
			}
		`,
	}
	result := testutil.RunIntegrationTest(t, files)
	require.NoError(t, result.Err)

	_, err := result.Invoke(t, "writer", cty.StringVal("hi"))
	require.NoError(t, err)
	got, err := result.Invoke(t, "reader", cty.NilVal)

	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("hi"), got)
}
