package gasgraph

// EdgeDirection describes the set of edges that the scatter phase visits for
// a particular vertex.
type EdgeDirection int

const (
	// NoEdges skips the scatter phase for the vertex.
	NoEdges EdgeDirection = iota

	// InEdges scatters over the edges pointing to the vertex.
	InEdges

	// OutEdges scatters over the edges originating from the vertex.
	OutEdges

	// AllEdges scatters over both the in- and out-edges of the vertex.
	AllEdges
)

// Program is implemented by vertex programs that a graph instance executes in
// synchronous gather-apply-scatter rounds. Within a round, the graph invokes
// Gather once per in-edge of every active vertex, combines the results with
// Sum, hands the combined total to Apply and finally runs Scatter over the
// edges selected by ScatterEdges.
//
// Gather, Sum and Scatter may be invoked concurrently for different edges and
// vertices; they must not mutate any vertex state. Apply is the only method
// that may mutate state and only ever the state of the vertex it was invoked
// for. Apply calls for the same vertex are never concurrent.
type Program interface {
	// Gather returns the contribution of the in-edge e to the value of
	// vertex v. Gather reads the state of the edge endpoints as it was at
	// the start of the round.
	Gather(v *Vertex, e *Edge) float64

	// Sum combines two gather contributions. Sum must be associative and
	// commutative as the combination order of edge contributions is
	// unspecified. Vertices without in-edges apply a total of zero.
	Sum(a, b float64) float64

	// Apply consumes the combined gather total and updates the state of
	// vertex v.
	Apply(v *Vertex, total float64)

	// ScatterEdges selects the edge set that Scatter visits for vertex v.
	ScatterEdges(v *Vertex) EdgeDirection

	// Scatter inspects one of the selected edges and returns the IDs of
	// the vertices that should become active in the next round. Returning
	// a nil slice activates nothing.
	Scatter(v *Vertex, e *Edge) []int64
}
