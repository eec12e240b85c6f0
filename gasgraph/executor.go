package gasgraph

import (
	"context"
	"sync/atomic"
	"time"
)

// ExecutorCallbacks encapsulates a series of callbacks that are invoked by an
// Executor instance on a graph. All callbacks are optional and will be ignored
// if not specified.
type ExecutorCallbacks struct {
	// PreRound, if defined, is invoked before running the next round. This
	// is a good place to initialize per-round variables and counters.
	PreRound func(ctx context.Context, g *Graph) error

	// PostRound, if defined, is invoked after running a round. The number
	// of the active vertices that the round processed is passed as the
	// last argument.
	PostRound func(ctx context.Context, g *Graph, processed int) error

	// PostRoundKeepRunning, if defined, is invoked after running a round
	// to decide whether an externally imposed stop condition for
	// terminating the run has been met. Runs always terminate when a
	// round activates no vertices for the next round, independent of this
	// callback.
	PostRoundKeepRunning func(ctx context.Context, g *Graph, processed int) (bool, error)
}

func patchEmptyCallbacks(cb *ExecutorCallbacks) {
	if cb.PreRound == nil {
		cb.PreRound = func(context.Context, *Graph) error { return nil }
	}
	if cb.PostRound == nil {
		cb.PostRound = func(context.Context, *Graph, int) error { return nil }
	}
	if cb.PostRoundKeepRunning == nil {
		cb.PostRoundKeepRunning = func(context.Context, *Graph, int) (bool, error) { return true, nil }
	}
}

// ExecutorFactory is a function that creates new Executor instances.
type ExecutorFactory func(*Graph, ExecutorCallbacks) *Executor

// Executor wraps a Graph instance and provides an orchestration layer for
// executing gather-apply-scatter rounds until the active set drains, an error
// occurs or an exit condition is met. Users can provide an optional set of
// callbacks to be executed before and after each round.
type Executor struct {
	g  *Graph
	cb ExecutorCallbacks

	baseUpdates int64
	rounds      int
	elapsed     time.Duration
}

// Summary describes a finished or in-flight executor run.
type Summary struct {
	// Rounds is the number of rounds that processed at least one vertex.
	Rounds int

	// Updates is the total number of apply invocations across all rounds.
	Updates int64

	// Elapsed is the wall-clock time spent inside Run* calls.
	Elapsed time.Duration
}

// UpdatesPerSecond returns the apply throughput of the run. It returns zero
// when no wall-clock time has been recorded.
func (s Summary) UpdatesPerSecond() float64 {
	if secs := s.Elapsed.Seconds(); secs > 0 {
		return float64(s.Updates) / secs
	}
	return 0
}

// NewExecutor returns an Executor instance for graph g that invokes the
// provided list of callbacks inside each execution loop.
func NewExecutor(g *Graph, cb ExecutorCallbacks) *Executor {
	patchEmptyCallbacks(&cb)
	g.round = 0
	return &Executor{
		g:           g,
		cb:          cb,
		baseUpdates: g.Updates(),
	}
}

// RunToCompletion keeps executing rounds until the active set becomes empty,
// the context expires, an error occurs or one of the PostRoundKeepRunning
// callbacks specified at configuration time returns false.
func (ex *Executor) RunToCompletion(ctx context.Context) error {
	return ex.run(ctx, -1)
}

// RunRounds executes at most numRounds rounds unless the active set becomes
// empty, the context expires, an error occurs or one of the
// PostRoundKeepRunning callbacks specified at configuration time returns
// false.
func (ex *Executor) RunRounds(ctx context.Context, numRounds int) error {
	return ex.run(ctx, numRounds)
}

// Graph returns the graph instance associated with this executor.
func (ex *Executor) Graph() *Graph {
	return ex.g
}

// Round returns the current graph round index.
func (ex *Executor) Round() int {
	return ex.g.Round()
}

// Summary returns the run statistics recorded by this executor so far.
func (ex *Executor) Summary() Summary {
	return Summary{
		Rounds:  ex.rounds,
		Updates: ex.g.Updates() - ex.baseUpdates,
		Elapsed: ex.elapsed,
	}
}

func (ex *Executor) run(ctx context.Context, maxRounds int) error {
	var (
		processed   int
		err         error
		keepRunning bool
		cb          = ex.cb
		startedAt   = ex.g.clk.Now()
	)
	defer func() { ex.elapsed += ex.g.clk.Now().Sub(startedAt) }()

	for ; maxRounds != 0; ex.g.round, maxRounds = ex.g.round+1, maxRounds-1 {
		if err = ensureContextNotExpired(ctx); err != nil {
			break
		} else if err = cb.PreRound(ctx, ex.g); err != nil {
			break
		} else if processed, err = ex.g.runRound(); err != nil {
			break
		} else if processed > 0 {
			ex.rounds++
		}

		if err = cb.PostRound(ctx, ex.g, processed); err != nil {
			break
		} else if keepRunning, err = cb.PostRoundKeepRunning(ctx, ex.g, processed); !keepRunning || err != nil {
			break
		}

		// The next round's active set is complete once scatter finishes;
		// an empty set terminates the run.
		if atomic.LoadInt64(&ex.g.activatedInRound) == 0 {
			break
		}
	}

	return err
}

func ensureContextNotExpired(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
