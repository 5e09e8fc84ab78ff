package executor_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/strata/executor"
)

func depsMap(m map[string][]string) func(string) []string {
	return func(n string) []string { return m[n] }
}

func TestRunRespectsDependencyOrder(t *testing.T) {
	deps := depsMap(map[string][]string{"web": {"db"}})
	nodes := []string{"db", "web"}

	var mu sync.Mutex
	var completion []string
	var dbDone time.Time
	var webStart time.Time

	exec := executor.New(deps)
	results := exec.Run(context.Background(), nodes, func(ctx context.Context, node string) error {
		if node == "web" {
			mu.Lock()
			webStart = time.Now()
			mu.Unlock()
		}
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		completion = append(completion, node)
		if node == "db" {
			dbDone = time.Now()
		}
		mu.Unlock()
		return nil
	})

	require.Equal(t, executor.StatusSucceeded, results["db"].Status)
	require.Equal(t, executor.StatusSucceeded, results["web"].Status)
	assert.True(t, dbDone.Before(webStart) || dbDone.Equal(webStart))
	assert.Equal(t, []string{"db", "web"}, completion)
}

func TestRunSkipsDependentsOnFailure(t *testing.T) {
	deps := depsMap(map[string][]string{"web": {"db"}})
	nodes := []string{"db", "web"}

	exec := executor.New(deps)
	results := exec.Run(context.Background(), nodes, func(ctx context.Context, node string) error {
		if node == "db" {
			return fmt.Errorf("boom")
		}
		return nil
	})

	assert.Equal(t, executor.StatusFailed, results["db"].Status)
	assert.Equal(t, executor.StatusSkipped, results["web"].Status)
}

func TestRunIndependentNodesDoNotBlockEachOther(t *testing.T) {
	deps := depsMap(map[string][]string{})
	nodes := []string{"a", "b"}

	exec := executor.New(deps)
	results := exec.Run(context.Background(), nodes, func(ctx context.Context, node string) error {
		if node == "b" {
			return fmt.Errorf("b failed")
		}
		return nil
	})

	assert.Equal(t, executor.StatusSucceeded, results["a"].Status)
	assert.Equal(t, executor.StatusFailed, results["b"].Status)
}

func TestRunUnknownDependencyFails(t *testing.T) {
	deps := depsMap(map[string][]string{"web": {"ghost"}})
	nodes := []string{"web"}

	exec := executor.New(deps)
	results := exec.Run(context.Background(), nodes, func(ctx context.Context, node string) error {
		return nil
	})

	assert.Equal(t, executor.StatusFailed, results["web"].Status)
}

func TestRunCycleSkipsCyclicNodes(t *testing.T) {
	deps := depsMap(map[string][]string{"a": {"b"}, "b": {"a"}})
	nodes := []string{"a", "b"}

	exec := executor.New(deps)
	results := exec.Run(context.Background(), nodes, func(ctx context.Context, node string) error {
		return nil
	})

	assert.Equal(t, executor.StatusSkipped, results["a"].Status)
	assert.Equal(t, executor.StatusSkipped, results["b"].Status)
}

func TestRunConcurrencyLimit(t *testing.T) {
	deps := depsMap(map[string][]string{})
	nodes := []string{"a", "b", "c", "d"}

	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	exec := executor.New(deps)
	exec.Limit = 2
	exec.Run(context.Background(), nodes, func(ctx context.Context, node string) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	})

	assert.LessOrEqual(t, maxInFlight, 2)
}
