package graph

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/prosearch/providers/observability"
	"github.com/leofalp/prosearch/providers/observability/slogobs"
)

type testState struct {
	Log    []string
	Count  int
	Items  []int
	Branch int
}

type testUpdate struct {
	Log   []string
	Add   int
	Items []int
}

// newTestBuilder registers the reducers every test graph shares.
func newTestBuilder(opts ...Option) *Builder[testState, testUpdate] {
	return NewBuilder[testState, testUpdate]("test", opts...).
		AddReducer("log", func(state testState, update testUpdate) testState {
			state.Log = append(state.Log, update.Log...)
			return state
		}).
		AddReducer("count", func(state testState, update testUpdate) testState {
			state.Count += update.Add
			return state
		}).
		AddReducer("items", func(state testState, update testUpdate) testState {
			state.Items = append(state.Items, update.Items...)
			return state
		})
}

func logNode(name string) NodeFunc[testState, testUpdate] {
	return func(ctx context.Context, state testState) (testUpdate, error) {
		return testUpdate{Log: []string{name}, Add: 1}, nil
	}
}

func fanOutRouter(width int) RouterFunc[testState] {
	return func(ctx context.Context, state testState) (Decision[testState], error) {
		branches := make([]Branch[testState], width)
		for i := range branches {
			branches[i] = Send("worker", testState{Branch: i})
		}
		return FanOut(branches...), nil
	}
}

func TestBuilder_ReportsAllProblems(testCase *testing.T) {
	_, err := newTestBuilder().
		AddNode("", logNode("x")).
		AddNode("a", logNode("a")).
		AddNode("a", logNode("a")).
		AddNode(End, logNode("end")).
		AddReducer("log", func(state testState, update testUpdate) testState { return state }).
		Build()

	require.Error(testCase, err)
	assert.Contains(testCase, err.Error(), "node ID must not be empty")
	assert.Contains(testCase, err.Error(), `duplicate node ID "a"`)
	assert.Contains(testCase, err.Error(), "is reserved")
	assert.Contains(testCase, err.Error(), `duplicate reducer for field "log"`)
}

func TestBuilder_StructuralValidation(testCase *testing.T) {
	tests := []struct {
		name    string
		build   func() (*Graph[testState, testUpdate], error)
		message string
	}{
		{"no nodes", func() (*Graph[testState, testUpdate], error) {
			return newTestBuilder().Build()
		}, "at least one node"},
		{"no entry", func() (*Graph[testState, testUpdate], error) {
			return newTestBuilder().AddNode("a", logNode("a")).AddEdge("a", End).Build()
		}, "no entry edge"},
		{"dangling edge", func() (*Graph[testState, testUpdate], error) {
			return newTestBuilder().AddNode("a", logNode("a")).AddEdge(Start, "a").AddEdge("a", "ghost").Build()
		}, "undeclared node"},
		{"missing exit", func() (*Graph[testState, testUpdate], error) {
			return newTestBuilder().AddNode("a", logNode("a")).AddNode("b", logNode("b")).AddEdge(Start, "a").AddEdge("a", "b").Build()
		}, `node "b" has no outgoing edge`},
		{"two exits", func() (*Graph[testState, testUpdate], error) {
			return newTestBuilder().AddNode("a", logNode("a")).AddEdge(Start, "a").AddEdge("a", End).
				AddConditionalEdges("a", fanOutRouter(1), End).Build()
		}, "already has an outgoing edge"},
		{"undeclared conditional target", func() (*Graph[testState, testUpdate], error) {
			return newTestBuilder().AddNode("a", logNode("a")).AddEdge(Start, "a").
				AddConditionalEdges("a", fanOutRouter(1), "worker").Build()
		}, `"a" -> "worker"`},
	}
	for _, test := range tests {
		testCase.Run(test.name, func(t *testing.T) {
			_, err := test.build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.message)
		})
	}
}

func TestBuilder_BuiltGraphIsIsolated(testCase *testing.T) {
	builder := newTestBuilder().AddNode("a", logNode("a")).AddEdge(Start, "a").AddEdge("a", End)
	built, err := builder.Build()
	require.NoError(testCase, err)

	builder.AddNode("b", logNode("b"))

	assert.Equal(testCase, []string{"a"}, built.Nodes())
	assert.Equal(testCase, "a", built.Entry())
	assert.Equal(testCase, []string{"log", "count", "items"}, built.Fields())
}

func TestRun_LinearGraph(testCase *testing.T) {
	g, err := newTestBuilder().
		AddNode("first", logNode("first")).
		AddNode("second", logNode("second")).
		AddEdge(Start, "first").
		AddEdge("first", "second").
		AddEdge("second", End).
		Build()
	require.NoError(testCase, err)

	final, err := g.Run(context.Background(), testState{Log: []string{"seed"}}, Start)

	require.NoError(testCase, err)
	assert.Equal(testCase, []string{"seed", "first", "second"}, final.Log)
	assert.Equal(testCase, 2, final.Count)
}

func TestRun_LoopsUntilRouterStops(testCase *testing.T) {
	g, err := newTestBuilder().
		AddNode("tick", logNode("tick")).
		AddEdge(Start, "tick").
		AddConditionalEdges("tick", func(ctx context.Context, state testState) (Decision[testState], error) {
			if state.Count >= 5 {
				return Goto[testState](End), nil
			}
			return Goto[testState]("tick"), nil
		}, "tick", End).
		Build()
	require.NoError(testCase, err)

	final, err := g.Run(context.Background(), testState{}, Start)

	require.NoError(testCase, err)
	assert.Equal(testCase, 5, final.Count)
}

func TestRun_StartFromNamedNode(testCase *testing.T) {
	g, err := newTestBuilder().
		AddNode("a", logNode("a")).
		AddNode("b", logNode("b")).
		AddEdge(Start, "a").
		AddEdge("a", "b").
		AddEdge("b", End).
		Build()
	require.NoError(testCase, err)

	final, err := g.Run(context.Background(), testState{}, "b")
	require.NoError(testCase, err)
	assert.Equal(testCase, []string{"b"}, final.Log)

	_, err = g.Run(context.Background(), testState{}, "ghost")
	require.ErrorIs(testCase, err, ErrUndeclaredNode)
}

func buildFanOutGraph(testCase *testing.T, width int, worker NodeFunc[testState, testUpdate], after NodeFunc[testState, testUpdate], opts ...Option) *Graph[testState, testUpdate] {
	g, err := newTestBuilder(opts...).
		AddNode("plan", logNode("plan")).
		AddNode("worker", worker).
		AddNode("after", after).
		AddEdge(Start, "plan").
		AddConditionalEdges("plan", fanOutRouter(width), "worker").
		AddEdge("worker", "after").
		AddEdge("after", End).
		Build()
	require.NoError(testCase, err)
	return g
}

func TestRun_FanOutMergesInBranchOrder(testCase *testing.T) {
	worker := func(ctx context.Context, state testState) (testUpdate, error) {
		time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
		return testUpdate{Items: []int{state.Branch, state.Branch * 10}}, nil
	}
	g := buildFanOutGraph(testCase, 6, worker, logNode("after"))

	want := []int{0, 0, 1, 10, 2, 20, 3, 30, 4, 40, 5, 50}
	for i := 0; i < 20; i++ {
		final, err := g.Run(context.Background(), testState{}, Start)
		require.NoError(testCase, err)
		require.Equal(testCase, want, final.Items)
		require.Equal(testCase, []string{"plan", "after"}, final.Log)
	}
}

func TestRun_JoinWaitsForEveryBranch(testCase *testing.T) {
	var finished atomic.Int32
	worker := func(ctx context.Context, state testState) (testUpdate, error) {
		time.Sleep(time.Duration(state.Branch) * time.Millisecond)
		finished.Add(1)
		return testUpdate{Add: 1}, nil
	}
	var seenAtJoin int32
	after := func(ctx context.Context, state testState) (testUpdate, error) {
		seenAtJoin = finished.Load()
		return testUpdate{}, nil
	}
	g := buildFanOutGraph(testCase, 5, worker, after)

	final, err := g.Run(context.Background(), testState{}, Start)

	require.NoError(testCase, err)
	assert.Equal(testCase, int32(5), seenAtJoin)
	assert.Equal(testCase, 6, final.Count)
}

func TestRun_MaxConcurrencyBoundsBranches(testCase *testing.T) {
	var running, peak atomic.Int32
	worker := func(ctx context.Context, state testState) (testUpdate, error) {
		current := running.Add(1)
		for {
			observed := peak.Load()
			if current <= observed || peak.CompareAndSwap(observed, current) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return testUpdate{Add: 1}, nil
	}
	g := buildFanOutGraph(testCase, 8, worker, logNode("after"), WithMaxConcurrency(2))

	final, err := g.Run(context.Background(), testState{}, Start)

	require.NoError(testCase, err)
	assert.LessOrEqual(testCase, peak.Load(), int32(2))
	assert.Equal(testCase, 10, final.Count)
}

func TestRun_RoutingErrors(testCase *testing.T) {
	tests := []struct {
		name   string
		router RouterFunc[testState]
		want   error
	}{
		{"undeclared target", func(ctx context.Context, state testState) (Decision[testState], error) {
			return Goto[testState]("b"), nil
		}, ErrUndeclaredRoutingTarget},
		{"empty fan-out", func(ctx context.Context, state testState) (Decision[testState], error) {
			return FanOut[testState](), nil
		}, ErrEmptyFanOut},
		{"zero decision", func(ctx context.Context, state testState) (Decision[testState], error) {
			return Decision[testState]{}, nil
		}, ErrEmptyRoute},
		{"fan-out to end", func(ctx context.Context, state testState) (Decision[testState], error) {
			return FanOut(Send(End, state)), nil
		}, ErrUndeclaredNode},
	}
	for _, test := range tests {
		testCase.Run(test.name, func(t *testing.T) {
			g, err := newTestBuilder().
				AddNode("a", logNode("a")).
				AddNode("b", logNode("b")).
				AddEdge(Start, "a").
				AddConditionalEdges("a", test.router, End).
				AddEdge("b", End).
				Build()
			require.NoError(t, err)

			final, err := g.Run(context.Background(), testState{}, Start)

			require.ErrorIs(t, err, test.want)
			var executionErr *ExecutionError
			require.ErrorAs(t, err, &executionErr)
			assert.Equal(t, "a", executionErr.Node)
			assert.Equal(t, []string{"a"}, final.Log)
		})
	}
}

func TestRun_RouterErrorIsWrapped(testCase *testing.T) {
	boom := errors.New("router exploded")
	g, err := newTestBuilder().
		AddNode("a", logNode("a")).
		AddEdge(Start, "a").
		AddConditionalEdges("a", func(ctx context.Context, state testState) (Decision[testState], error) {
			return Decision[testState]{}, boom
		}, End).
		Build()
	require.NoError(testCase, err)

	_, err = g.Run(context.Background(), testState{}, Start)

	require.ErrorIs(testCase, err, boom)
}

func TestRun_NodeFailuresAbort(testCase *testing.T) {
	boom := errors.New("node failed")

	failing := buildFanOutGraph(testCase, 3, func(ctx context.Context, state testState) (testUpdate, error) {
		if state.Branch == 1 {
			return testUpdate{}, boom
		}
		return testUpdate{Add: 1}, nil
	}, logNode("after"))
	final, err := failing.Run(context.Background(), testState{}, Start)
	require.ErrorIs(testCase, err, boom)
	assert.Equal(testCase, []string{"plan"}, final.Log)

	panicking := buildFanOutGraph(testCase, 1, func(ctx context.Context, state testState) (testUpdate, error) {
		panic("kaboom")
	}, logNode("after"))
	_, err = panicking.Run(context.Background(), testState{}, Start)
	require.ErrorIs(testCase, err, ErrNodePanic)
	assert.Contains(testCase, err.Error(), "kaboom")
}

func TestRun_DivergentJoin(testCase *testing.T) {
	g, err := newTestBuilder().
		AddNode("plan", logNode("plan")).
		AddNode("left", logNode("left")).
		AddNode("right", logNode("right")).
		AddEdge(Start, "plan").
		AddConditionalEdges("plan", func(ctx context.Context, state testState) (Decision[testState], error) {
			return FanOut(Send("left", state), Send("right", state)), nil
		}, "left", "right").
		AddEdge("left", End).
		AddEdge("right", "plan").
		Build()
	require.NoError(testCase, err)

	_, err = g.Run(context.Background(), testState{}, Start)

	require.ErrorIs(testCase, err, ErrDivergentJoin)
}

func TestRun_CancelledContext(testCase *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g, err := newTestBuilder().
		AddNode("a", func(ctx context.Context, state testState) (testUpdate, error) {
			cancel()
			return testUpdate{Add: 1}, nil
		}).
		AddNode("b", logNode("b")).
		AddEdge(Start, "a").
		AddEdge("a", "b").
		AddEdge("b", End).
		Build()
	require.NoError(testCase, err)

	final, err := g.Run(ctx, testState{}, Start)

	require.ErrorIs(testCase, err, context.Canceled)
	assert.Equal(testCase, 1, final.Count)
}

func TestRun_EventsAndObservability(testCase *testing.T) {
	var (
		mu     sync.Mutex
		events []Event
	)
	listener := func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	}
	observer := slogobs.New(slogobs.WithOutput(&bytes.Buffer{}))
	var runID string
	worker := func(ctx context.Context, state testState) (testUpdate, error) {
		mu.Lock()
		runID = RunIDFromContext(ctx)
		mu.Unlock()
		return testUpdate{}, nil
	}
	g := buildFanOutGraph(testCase, 3, worker, logNode("after"), WithListener(listener), WithObserver(observer))

	_, err := g.Run(context.Background(), testState{}, Start)
	require.NoError(testCase, err)

	counts := map[EventType]int{}
	for _, event := range events {
		counts[event.Type]++
		assert.Equal(testCase, runID, event.RunID)
	}
	assert.NotEmpty(testCase, runID)
	assert.Equal(testCase, 1, counts[EventRunStarted])
	assert.Equal(testCase, 5, counts[EventNodeStarted])
	assert.Equal(testCase, 5, counts[EventNodeCompleted])
	assert.Equal(testCase, 1, counts[EventFanOut])
	assert.Equal(testCase, 1, counts[EventJoin])
	assert.Equal(testCase, 1, counts[EventRunCompleted])
	assert.Equal(testCase, EventRunCompleted, events[len(events)-1].Type)

	assert.Equal(testCase, int64(5), observer.CounterValue(observability.MetricGraphNodeRuns))
	assert.Equal(testCase, int64(1), observer.CounterValue(observability.MetricGraphRuns))
}

func TestDecisionAccessors(testCase *testing.T) {
	single := Goto[int]("next")
	assert.False(testCase, single.IsFanOut())
	assert.Equal(testCase, "next", single.Target())

	fan := FanOut(Send("w", 1), Send("w", 2))
	assert.True(testCase, fan.IsFanOut())
	branches := fan.Branches()
	require.Len(testCase, branches, 2)
	branches[0].State = 99
	assert.Equal(testCase, 1, fan.Branches()[0].State)
}
