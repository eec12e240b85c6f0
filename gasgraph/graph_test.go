package gasgraph_test

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/panyawen/PowerGraph/gasgraph"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(GraphTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type GraphTestSuite struct {
}

func (s *GraphTestSuite) TestGatherReadsStartOfRoundSnapshot(c *gc.C) {
	// (1) <-> (2) with distinct initial ranks. Each vertex copies the rank
	// it gathered from the other one into its own state. If the gather and
	// apply phases were not separated by a barrier, one of the vertices
	// could observe the other's mid-round update instead of its initial
	// rank.
	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{
		Program:        snapshotProgram{},
		ComputeWorkers: 4,
	})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	g.AddVertex(1, gasgraph.State{Rank: 1.0})
	g.AddVertex(2, gasgraph.State{Rank: 2.0})
	c.Assert(g.AddEdge(1, 2), gc.IsNil)
	c.Assert(g.AddEdge(2, 1), gc.IsNil)

	ex := gasgraph.NewExecutor(g, gasgraph.ExecutorCallbacks{})
	c.Assert(ex.RunToCompletion(context.TODO()), gc.IsNil)

	c.Assert(g.Vertices()[1].State().Rank, gc.Equals, 2.0)
	c.Assert(g.Vertices()[2].State().Rank, gc.Equals, 1.0)

	summary := ex.Summary()
	c.Assert(summary.Rounds, gc.Equals, 1)
	c.Assert(summary.Updates, gc.Equals, int64(2))
}

func (s *GraphTestSuite) TestSignalMergeIsIdempotent(c *gc.C) {
	// (1)..(5) -> (6)
	//
	// All five sources signal the same target during round 0. The target
	// must join round 1 exactly once.
	prog := &onceProgram{applies: newCounters(1, 2, 3, 4, 5, 6)}
	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{
		Program:        prog,
		ComputeWorkers: 4,
	})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	for id := int64(1); id <= 6; id++ {
		g.AddVertex(id, gasgraph.State{})
	}
	for id := int64(1); id <= 5; id++ {
		c.Assert(g.AddEdge(id, 6), gc.IsNil)
	}

	ex := gasgraph.NewExecutor(g, gasgraph.ExecutorCallbacks{})
	c.Assert(ex.RunToCompletion(context.TODO()), gc.IsNil)

	for id := int64(1); id <= 5; id++ {
		c.Assert(atomic.LoadInt64(prog.applies[id]), gc.Equals, int64(1), gc.Commentf("vertex %d", id))
	}
	c.Assert(atomic.LoadInt64(prog.applies[6]), gc.Equals, int64(2), gc.Commentf("signal target must be re-processed exactly once"))

	summary := ex.Summary()
	c.Assert(summary.Rounds, gc.Equals, 2)
	c.Assert(summary.Updates, gc.Equals, int64(7))
}

func (s *GraphTestSuite) TestApplyIsNeverConcurrentPerVertex(c *gc.C) {
	numVertices := 100
	prog := &instrumentedProgram{inFlight: make(map[int64]*int32)}
	for id := int64(0); id < int64(numVertices); id++ {
		prog.inFlight[id] = new(int32)
	}

	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{
		Program:        prog,
		ComputeWorkers: 8,
	})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	buildRing(c, g, numVertices)

	ex := gasgraph.NewExecutor(g, gasgraph.ExecutorCallbacks{})
	c.Assert(ex.RunRounds(context.TODO(), 5), gc.IsNil)

	c.Assert(atomic.LoadInt32(&prog.violations), gc.Equals, int32(0))
	c.Assert(ex.Summary().Updates, gc.Equals, int64(numVertices*5))
}

func (s *GraphTestSuite) TestScatterDirections(c *gc.C) {
	// (1) -> (2) -> (3); only the middle vertex scatters and it activates
	// the far endpoint of each visited edge.
	specs := []struct {
		descr      string
		dir        gasgraph.EdgeDirection
		expApplies map[int64]int64
	}{
		{
			descr:      "in-edges activate the upstream vertex",
			dir:        gasgraph.InEdges,
			expApplies: map[int64]int64{1: 2, 2: 1, 3: 1},
		},
		{
			descr:      "out-edges activate the downstream vertex",
			dir:        gasgraph.OutEdges,
			expApplies: map[int64]int64{1: 1, 2: 1, 3: 2},
		},
		{
			descr:      "all edges activate both neighbours",
			dir:        gasgraph.AllEdges,
			expApplies: map[int64]int64{1: 2, 2: 1, 3: 2},
		},
	}

	for specIndex, spec := range specs {
		comment := gc.Commentf("[spec %d] %s", specIndex, spec.descr)

		prog := &directionProgram{dir: spec.dir, applies: newCounters(1, 2, 3)}
		g, err := gasgraph.NewGraph(gasgraph.GraphConfig{Program: prog, ComputeWorkers: 2})
		c.Assert(err, gc.IsNil, comment)

		g.AddVertex(1, gasgraph.State{})
		g.AddVertex(2, gasgraph.State{})
		g.AddVertex(3, gasgraph.State{})
		c.Assert(g.AddEdge(1, 2), gc.IsNil, comment)
		c.Assert(g.AddEdge(2, 3), gc.IsNil, comment)

		ex := gasgraph.NewExecutor(g, gasgraph.ExecutorCallbacks{})
		c.Assert(ex.RunToCompletion(context.TODO()), gc.IsNil, comment)

		for id, exp := range spec.expApplies {
			c.Assert(atomic.LoadInt64(prog.applies[id]), gc.Equals, exp, gc.Commentf("[spec %d] %s: vertex %d", specIndex, spec.descr, id))
		}
		c.Assert(g.Close(), gc.IsNil, comment)
	}
}

func (s *GraphTestSuite) TestRunRoundsAndDeltaTracking(c *gc.C) {
	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{
		Program:        pulseProgram{},
		ComputeWorkers: 2,
	})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	buildRing(c, g, 3)
	c.Assert(g.NumVertices(), gc.Equals, 3)
	c.Assert(g.NumEdges(), gc.Equals, 3)

	ex := gasgraph.NewExecutor(g, gasgraph.ExecutorCallbacks{})
	c.Assert(ex.RunRounds(context.TODO(), 2), gc.IsNil)
	c.Assert(ex.Summary().Rounds, gc.Equals, 2)
	c.Assert(ex.Summary().Updates, gc.Equals, int64(6))
	c.Assert(g.Round(), gc.Equals, 2)
	c.Assert(g.RankDelta(), gc.Equals, 6.0)

	// Resuming the same executor must pick up the pending activations.
	c.Assert(ex.RunRounds(context.TODO(), 1), gc.IsNil)
	c.Assert(ex.Summary().Rounds, gc.Equals, 3)
	c.Assert(ex.Summary().Updates, gc.Equals, int64(9))
	c.Assert(g.RankDelta(), gc.Equals, 3.0)
}

func (s *GraphTestSuite) TestPerRoundCallbacks(c *gc.C) {
	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{Program: pulseProgram{}})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	buildRing(c, g, 2)

	var preCalls, postCalls, processedTotal int
	ex := gasgraph.NewExecutor(g, gasgraph.ExecutorCallbacks{
		PreRound: func(context.Context, *gasgraph.Graph) error {
			preCalls++
			return nil
		},
		PostRound: func(_ context.Context, _ *gasgraph.Graph, processed int) error {
			postCalls++
			processedTotal += processed
			return nil
		},
		PostRoundKeepRunning: func(context.Context, *gasgraph.Graph, int) (bool, error) {
			return postCalls < 3, nil
		},
	})
	c.Assert(ex.RunToCompletion(context.TODO()), gc.IsNil)

	c.Assert(preCalls, gc.Equals, 3)
	c.Assert(postCalls, gc.Equals, 3)
	c.Assert(processedTotal, gc.Equals, 6)
}

func (s *GraphTestSuite) TestUnknownSignalTarget(c *gc.C) {
	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{Program: badSignalProgram{}})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	g.AddVertex(1, gasgraph.State{})
	g.AddVertex(2, gasgraph.State{})
	c.Assert(g.AddEdge(1, 2), gc.IsNil)

	err = gasgraph.NewExecutor(g, gasgraph.ExecutorCallbacks{}).RunToCompletion(context.TODO())
	c.Assert(err, gc.ErrorMatches, `running scatter for vertex 1 failed: signal vertex 99: signal target is not part of the graph`)
	c.Assert(xerrors.Is(err, gasgraph.ErrUnknownSignalTarget), gc.Equals, true)
}

func (s *GraphTestSuite) TestAddEdgeValidation(c *gc.C) {
	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{Program: snapshotProgram{}})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	g.AddVertex(1, gasgraph.State{})

	err = g.AddEdge(2, 1)
	c.Assert(err, gc.ErrorMatches, `create edge from 2 to 1: source vertex is not part of the graph`)
	c.Assert(xerrors.Is(err, gasgraph.ErrUnknownEdgeSource), gc.Equals, true)

	err = g.AddEdge(1, 2)
	c.Assert(err, gc.ErrorMatches, `create edge from 1 to 2: target vertex is not part of the graph`)
	c.Assert(xerrors.Is(err, gasgraph.ErrUnknownEdgeTarget), gc.Equals, true)
}

func (s *GraphTestSuite) TestGraphConfigValidation(c *gc.C) {
	_, err := gasgraph.NewGraph(gasgraph.GraphConfig{})
	c.Assert(err, gc.ErrorMatches, "(?ms).*vertex program not specified.*")
}

func (s *GraphTestSuite) TestTransformAndMapReduceVertices(c *gc.C) {
	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{Program: snapshotProgram{}})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	for id := int64(1); id <= 5; id++ {
		g.AddVertex(id, gasgraph.State{})
	}
	g.TransformVertices(func(v *gasgraph.Vertex) {
		v.SetState(gasgraph.State{Rank: float64(v.ID())})
	})

	sum := g.MapReduceVertices(
		func(v *gasgraph.Vertex) float64 { return v.State().Rank },
		func(a, b float64) float64 { return a + b },
	)
	c.Assert(sum, gc.Equals, 15.0)

	min := g.MapReduceVertices(
		func(v *gasgraph.Vertex) float64 { return v.State().Rank },
		math.Min,
	)
	c.Assert(min, gc.Equals, 1.0)
}

func (s *GraphTestSuite) TestReset(c *gc.C) {
	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{Program: pulseProgram{}})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	buildRing(c, g, 3)
	c.Assert(gasgraph.NewExecutor(g, gasgraph.ExecutorCallbacks{}).RunRounds(context.TODO(), 2), gc.IsNil)
	c.Assert(g.Updates(), gc.Equals, int64(6))

	g.Reset()
	c.Assert(g.NumVertices(), gc.Equals, 0)
	c.Assert(g.NumEdges(), gc.Equals, 0)
	c.Assert(g.Round(), gc.Equals, 0)
	c.Assert(g.Updates(), gc.Equals, int64(0))
}

func (s *GraphTestSuite) TestExecutorSummaryUsesInjectedClock(c *gc.C) {
	clk := testclock.NewClock(time.Now())
	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{
		Program: snapshotProgram{},
		Clock:   clk,
	})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	g.AddVertex(1, gasgraph.State{})

	ex := gasgraph.NewExecutor(g, gasgraph.ExecutorCallbacks{})
	c.Assert(ex.RunToCompletion(context.TODO()), gc.IsNil)

	summary := ex.Summary()
	c.Assert(summary.Rounds, gc.Equals, 1)
	c.Assert(summary.Updates, gc.Equals, int64(1))
	c.Assert(summary.Elapsed, gc.Equals, time.Duration(0), gc.Commentf("fake clock did not advance"))
	c.Assert(summary.UpdatesPerSecond(), gc.Equals, 0.0)
}

func (s *GraphTestSuite) TestRunWithExpiredContext(c *gc.C) {
	g, err := gasgraph.NewGraph(gasgraph.GraphConfig{Program: pulseProgram{}})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(g.Close(), gc.IsNil) }()

	buildRing(c, g, 2)

	ctx, cancelFn := context.WithCancel(context.TODO())
	cancelFn()
	err = gasgraph.NewExecutor(g, gasgraph.ExecutorCallbacks{}).RunToCompletion(ctx)
	c.Assert(err, gc.ErrorMatches, "context canceled")
	c.Assert(g.Updates(), gc.Equals, int64(0))
}

func buildRing(c *gc.C, g *gasgraph.Graph, numVertices int) {
	for id := int64(0); id < int64(numVertices); id++ {
		g.AddVertex(id, gasgraph.State{})
	}
	for id := int64(0); id < int64(numVertices); id++ {
		c.Assert(g.AddEdge(id, (id+1)%int64(numVertices)), gc.IsNil)
	}
}

func newCounters(ids ...int64) map[int64]*int64 {
	counters := make(map[int64]*int64, len(ids))
	for _, id := range ids {
		counters[id] = new(int64)
	}
	return counters
}

// snapshotProgram replaces each vertex's rank with the sum of the ranks its
// in-neighbours held at the start of the round and never signals anything.
type snapshotProgram struct{}

func (snapshotProgram) Gather(_ *gasgraph.Vertex, e *gasgraph.Edge) float64 {
	return e.Source().State().Rank
}
func (snapshotProgram) Sum(a, b float64) float64 { return a + b }
func (snapshotProgram) Apply(v *gasgraph.Vertex, total float64) {
	v.SetState(gasgraph.State{Rank: total})
}
func (snapshotProgram) ScatterEdges(*gasgraph.Vertex) gasgraph.EdgeDirection { return gasgraph.NoEdges }
func (snapshotProgram) Scatter(*gasgraph.Vertex, *gasgraph.Edge) []int64     { return nil }

// pulseProgram keeps the whole graph active by signalling every out-edge
// target after each apply.
type pulseProgram struct{}

func (pulseProgram) Gather(*gasgraph.Vertex, *gasgraph.Edge) float64 { return 1 }
func (pulseProgram) Sum(a, b float64) float64                        { return a + b }
func (pulseProgram) Apply(v *gasgraph.Vertex, _ float64) {
	st := v.State()
	st.Rank++
	st.LastChange = 1
	v.SetState(st)
}
func (pulseProgram) ScatterEdges(*gasgraph.Vertex) gasgraph.EdgeDirection { return gasgraph.OutEdges }
func (pulseProgram) Scatter(_ *gasgraph.Vertex, e *gasgraph.Edge) []int64 {
	return []int64{e.Target().ID()}
}

// onceProgram signals its out-edge targets the first time a vertex is applied
// and counts every apply invocation.
type onceProgram struct {
	applies map[int64]*int64
}

func (p *onceProgram) Gather(*gasgraph.Vertex, *gasgraph.Edge) float64 { return 0 }
func (p *onceProgram) Sum(a, b float64) float64                        { return a + b }
func (p *onceProgram) Apply(v *gasgraph.Vertex, _ float64) {
	atomic.AddInt64(p.applies[v.ID()], 1)
	st := v.State()
	if st.Rank == 0 {
		st.Rank, st.LastChange = 1, 1
	} else {
		st.LastChange = 0
	}
	v.SetState(st)
}
func (p *onceProgram) ScatterEdges(v *gasgraph.Vertex) gasgraph.EdgeDirection {
	if v.State().LastChange > 0 {
		return gasgraph.OutEdges
	}
	return gasgraph.NoEdges
}
func (p *onceProgram) Scatter(_ *gasgraph.Vertex, e *gasgraph.Edge) []int64 {
	return []int64{e.Target().ID()}
}

// instrumentedProgram tracks concurrent apply invocations per vertex.
type instrumentedProgram struct {
	pulseProgram
	inFlight   map[int64]*int32
	violations int32
}

func (p *instrumentedProgram) Apply(v *gasgraph.Vertex, total float64) {
	slot := p.inFlight[v.ID()]
	if atomic.AddInt32(slot, 1) != 1 {
		atomic.StoreInt32(&p.violations, 1)
	}
	p.pulseProgram.Apply(v, total)
	atomic.AddInt32(slot, -1)
}

// directionProgram only scatters from vertex 2 and activates the far endpoint
// of each edge it visits.
type directionProgram struct {
	dir     gasgraph.EdgeDirection
	applies map[int64]*int64
}

func (p *directionProgram) Gather(*gasgraph.Vertex, *gasgraph.Edge) float64 { return 0 }
func (p *directionProgram) Sum(a, b float64) float64                        { return a + b }
func (p *directionProgram) Apply(v *gasgraph.Vertex, _ float64) {
	atomic.AddInt64(p.applies[v.ID()], 1)
	st := v.State()
	if st.Rank == 0 {
		st.Rank, st.LastChange = 1, 1
	} else {
		st.LastChange = 0
	}
	v.SetState(st)
}
func (p *directionProgram) ScatterEdges(v *gasgraph.Vertex) gasgraph.EdgeDirection {
	if v.ID() == 2 && v.State().LastChange > 0 {
		return p.dir
	}
	return gasgraph.NoEdges
}
func (p *directionProgram) Scatter(v *gasgraph.Vertex, e *gasgraph.Edge) []int64 {
	if e.Target() == v {
		return []int64{e.Source().ID()}
	}
	return []int64{e.Target().ID()}
}

// badSignalProgram requests the activation of a vertex that does not exist.
type badSignalProgram struct{}

func (badSignalProgram) Gather(*gasgraph.Vertex, *gasgraph.Edge) float64      { return 0 }
func (badSignalProgram) Sum(a, b float64) float64                             { return a + b }
func (badSignalProgram) Apply(*gasgraph.Vertex, float64)                      {}
func (badSignalProgram) ScatterEdges(*gasgraph.Vertex) gasgraph.EdgeDirection { return gasgraph.OutEdges }
func (badSignalProgram) Scatter(*gasgraph.Vertex, *gasgraph.Edge) []int64     { return []int64{99} }
