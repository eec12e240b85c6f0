package gasgraph

import (
	"sync"
	"sync/atomic"

	"github.com/juju/clock"
	"github.com/panyawen/PowerGraph/gasgraph/aggregator"
	"golang.org/x/xerrors"
)

var (
	// ErrUnknownEdgeSource is returned by AddEdge when the source vertex
	// is not present in the graph.
	ErrUnknownEdgeSource = xerrors.New("source vertex is not part of the graph")

	// ErrUnknownEdgeTarget is returned by AddEdge when the target vertex
	// is not present in the graph.
	ErrUnknownEdgeTarget = xerrors.New("target vertex is not part of the graph")

	// ErrUnknownSignalTarget is returned when a scatter call requests the
	// activation of a vertex that is not present in the graph.
	ErrUnknownSignalTarget = xerrors.New("signal target is not part of the graph")
)

// phase enumerates the three stages that each round runs through.
type phase int

const (
	phaseGather phase = iota
	phaseApply
	phaseScatter
)

// Vertex represents a vertex in the Graph.
type Vertex struct {
	id    int64
	state State

	inEdges  []*Edge
	outEdges []*Edge

	// acc buffers the combined gather total between the gather and apply
	// phases of a round. Written only by the worker that owns the vertex
	// during gather.
	acc float64

	// signal holds the activation flags for the current and the next
	// round, indexed by round parity. Scatter calls targeting this vertex
	// CAS the next-round slot so that concurrent signals coalesce.
	signal [2]uint32
}

// ID returns the vertex ID.
func (v *Vertex) ID() int64 { return v.id }

// State returns the state associated with this vertex.
func (v *Vertex) State() State { return v.state }

// SetState sets the state associated with this vertex. It must only be
// invoked from a Program's Apply method or while no round is executing.
func (v *Vertex) SetState(st State) { v.state = st }

// InEdges returns the list of edges pointing to this vertex.
func (v *Vertex) InEdges() []*Edge { return v.inEdges }

// OutEdges returns the list of edges originating from this vertex.
func (v *Vertex) OutEdges() []*Edge { return v.outEdges }

// OutDegree returns the number of edges originating from this vertex.
func (v *Vertex) OutDegree() int { return len(v.outEdges) }

// Edge represents a directed edge in the Graph. Edges carry no payload; the
// graph registers each edge with both of its endpoints so that gather can
// visit in-edges and scatter can visit either direction.
type Edge struct {
	source *Vertex
	target *Vertex
}

// Source returns the vertex this edge originates from.
func (e *Edge) Source() *Vertex { return e.source }

// Target returns the vertex this edge points to.
func (e *Edge) Target() *Vertex { return e.target }

// Graph implements a parallel graph processor based on the gather-apply-
// scatter model popularized by PowerGraph. Computation proceeds in
// synchronous rounds over the set of active vertices: every active vertex
// folds the contributions of its in-edges, applies the combined total to its
// own state and finally emits activation signals along its selected edges. A
// full barrier separates the three phases, so every gather call observes the
// vertex states exactly as they were at the start of the round regardless of
// how many compute workers are configured.
type Graph struct {
	round int
	phase phase

	prog     Program
	clk      clock.Clock
	vertices map[int64]*Vertex
	numEdges int

	// updates counts apply invocations over the lifetime of the graph;
	// rankDelta accumulates the LastChange magnitudes so that callers can
	// track per-round convergence progress.
	updates   aggregator.IntAccumulator
	rankDelta aggregator.Float64Accumulator

	wg               sync.WaitGroup
	vertexCh         chan *Vertex
	errCh            chan error
	phaseCompletedCh chan struct{}
	activeInPhase    int64
	pendingInPhase   int64
	activatedInRound int64
}

// NewGraph creates a new Graph instance using the specified configuration. It
// is important for callers to invoke Close() on the returned graph instance
// when they are done using it.
func NewGraph(cfg GraphConfig) (*Graph, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("graph config validation failed: %w", err)
	}

	g := &Graph{
		prog:     cfg.Program,
		clk:      cfg.Clock,
		vertices: make(map[int64]*Vertex),
	}
	g.startWorkers(cfg.ComputeWorkers)

	return g, nil
}

// Close releases any resources associated with the graph.
func (g *Graph) Close() error {
	close(g.vertexCh)
	g.wg.Wait()

	g.Reset()
	return nil
}

// Reset the state of the graph by removing any existing vertices and edges
// and resetting the round counter and update statistics.
func (g *Graph) Reset() {
	g.round = 0
	g.vertices = make(map[int64]*Vertex)
	g.numEdges = 0
	g.updates.Set(0)
	g.rankDelta.Set(0)
}

// Vertices returns the graph vertices as a map where the key is the vertex ID.
func (g *Graph) Vertices() map[int64]*Vertex { return g.vertices }

// NumVertices returns the number of vertices in the graph.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// NumEdges returns the number of edges in the graph.
func (g *Graph) NumEdges() int { return g.numEdges }

// Round returns the current round index.
func (g *Graph) Round() int { return g.round }

// Updates returns the total number of apply invocations since the graph was
// created or last reset.
func (g *Graph) Updates() int64 { return g.updates.Get() }

// RankDelta returns the sum of the LastChange magnitudes recorded by apply
// invocations since the previous call to RankDelta. Callers that poll once
// per round obtain the aggregate rank movement of that round.
func (g *Graph) RankDelta() float64 { return g.rankDelta.Delta() }

// AddVertex inserts a new vertex with the specified id and initial state into
// the graph and marks it as active for the first round. If the vertex already
// exists, AddVertex will just overwrite its state with the provided initState.
func (g *Graph) AddVertex(id int64, initState State) {
	v := g.vertices[id]
	if v == nil {
		v = &Vertex{id: id}
		v.signal[0] = 1
		g.vertices[id] = v
	}

	v.SetState(initState)
}

// AddEdge inserts a directed edge from src to dst. Both endpoints must have
// been added to the graph beforehand; otherwise, AddEdge returns an error.
func (g *Graph) AddEdge(srcID, dstID int64) error {
	srcVert := g.vertices[srcID]
	if srcVert == nil {
		return xerrors.Errorf("create edge from %d to %d: %w", srcID, dstID, ErrUnknownEdgeSource)
	}
	dstVert := g.vertices[dstID]
	if dstVert == nil {
		return xerrors.Errorf("create edge from %d to %d: %w", srcID, dstID, ErrUnknownEdgeTarget)
	}

	e := &Edge{source: srcVert, target: dstVert}
	srcVert.outEdges = append(srcVert.outEdges, e)
	dstVert.inEdges = append(dstVert.inEdges, e)
	g.numEdges++
	return nil
}

// SignalAll marks every vertex in the graph as active for the first round of
// the next run. Any activations still pending from a previous run are
// discarded. SignalAll must not be invoked while a round is executing.
func (g *Graph) SignalAll() {
	for _, v := range g.vertices {
		atomic.StoreUint32(&v.signal[0], 1)
		atomic.StoreUint32(&v.signal[1], 0)
	}
}

// TransformVertices invokes fn for every vertex in the graph. It is intended
// for bulk state initialization before a run and must not be invoked while a
// round is executing.
func (g *Graph) TransformVertices(fn func(*Vertex)) {
	for _, v := range g.vertices {
		fn(v)
	}
}

// MapReduceVertices extracts a value from every vertex via mapFn and folds
// the extracted values pairwise via reduceFn. The reduction visits vertices
// in unspecified order so reduceFn must be associative and commutative. An
// empty graph reduces to zero.
func (g *Graph) MapReduceVertices(mapFn func(*Vertex) float64, reduceFn func(a, b float64) float64) float64 {
	var (
		acc   float64
		first = true
	)
	for _, v := range g.vertices {
		if first {
			acc, first = mapFn(v), false
			continue
		}
		acc = reduceFn(acc, mapFn(v))
	}
	return acc
}

// runRound executes the next gather-apply-scatter round and returns back the
// number of active vertices that were processed.
func (g *Graph) runRound() (int, error) {
	atomic.StoreInt64(&g.activatedInRound, 0)

	var processed int
	for ph := phaseGather; ph <= phaseScatter; ph++ {
		g.phase = ph
		n, err := g.runPhase()
		if err != nil {
			return 0, err
		}
		if ph == phaseGather {
			processed = n
		}
	}

	return processed, nil
}

// runPhase dispatches all vertices to the worker pool for the current phase
// and blocks until the phase barrier is reached.
func (g *Graph) runPhase() (int, error) {
	g.activeInPhase = 0
	g.pendingInPhase = int64(len(g.vertices))

	// No work required.
	if g.pendingInPhase == 0 {
		return 0, nil
	}

	for _, v := range g.vertices {
		g.vertexCh <- v
	}

	// Block until the worker pool has finished processing all vertices.
	<-g.phaseCompletedCh

	// Dequeue any errors
	var err error
	select {
	case err = <-g.errCh: // dequeued
	default: // no error available
	}

	return int(g.activeInPhase), err
}

// startWorkers allocates the required channels and spins up numWorkers to
// execute the phases of each round.
func (g *Graph) startWorkers(numWorkers int) {
	g.vertexCh = make(chan *Vertex)
	g.errCh = make(chan error, 1)
	g.phaseCompletedCh = make(chan struct{})

	g.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go g.phaseWorker()
	}
}

// phaseWorker polls vertexCh for incoming vertices and runs the current phase
// for each active one. The worker automatically exits when vertexCh gets
// closed.
func (g *Graph) phaseWorker() {
	for v := range g.vertexCh {
		if atomic.LoadUint32(&v.signal[g.round%2]) == 1 {
			_ = atomic.AddInt64(&g.activeInPhase, 1)
			switch g.phase {
			case phaseGather:
				g.gatherVertex(v)
			case phaseApply:
				g.applyVertex(v)
			case phaseScatter:
				g.scatterVertex(v)
			}
		}
		if atomic.AddInt64(&g.pendingInPhase, -1) == 0 {
			g.phaseCompletedCh <- struct{}{}
		}
	}
	g.wg.Done()
}

// gatherVertex folds the contributions of the in-edges of v into its gather
// buffer. The first contribution seeds the fold so that non-additive
// combiners (e.g. min) work without a designated identity value; a vertex
// without in-edges buffers a total of zero.
func (g *Graph) gatherVertex(v *Vertex) {
	var total float64
	for i, e := range v.inEdges {
		if i == 0 {
			total = g.prog.Gather(v, e)
			continue
		}
		total = g.prog.Sum(total, g.prog.Gather(v, e))
	}
	v.acc = total
}

// applyVertex hands the buffered gather total to the program and records the
// update statistics.
func (g *Graph) applyVertex(v *Vertex) {
	g.prog.Apply(v, v.acc)
	g.updates.Aggregate(1)
	g.rankDelta.Aggregate(v.state.LastChange)
}

// scatterVertex runs the program's scatter calls over the selected edge set
// and queues the returned activation requests for the next round. The
// vertex's own activation is consumed at the end of the phase.
func (g *Graph) scatterVertex(v *Vertex) {
	nextSlot := (g.round + 1) % 2
	switch g.prog.ScatterEdges(v) {
	case OutEdges:
		g.scatterEdges(v, v.outEdges, nextSlot)
	case InEdges:
		g.scatterEdges(v, v.inEdges, nextSlot)
	case AllEdges:
		g.scatterEdges(v, v.inEdges, nextSlot)
		g.scatterEdges(v, v.outEdges, nextSlot)
	case NoEdges:
	}

	atomic.StoreUint32(&v.signal[g.round%2], 0)
}

func (g *Graph) scatterEdges(v *Vertex, edges []*Edge, slot int) {
	for _, e := range edges {
		for _, id := range g.prog.Scatter(v, e) {
			if err := g.signalVertex(id, slot); err != nil {
				tryEmitError(g.errCh, xerrors.Errorf("running scatter for vertex %d failed: %w", v.ID(), err))
			}
		}
	}
}

// signalVertex marks the vertex with the given id as active in the provided
// signal slot. Signals are merged idempotently: a vertex activated by
// multiple concurrent scatter calls joins the next round exactly once.
func (g *Graph) signalVertex(id int64, slot int) error {
	target := g.vertices[id]
	if target == nil {
		return xerrors.Errorf("signal vertex %d: %w", id, ErrUnknownSignalTarget)
	}
	if atomic.CompareAndSwapUint32(&target.signal[slot], 0, 1) {
		_ = atomic.AddInt64(&g.activatedInRound, 1)
	}
	return nil
}

func tryEmitError(errCh chan<- error, err error) {
	select {
	case errCh <- err: // queued error
	default: // channel already contains another error
	}
}
