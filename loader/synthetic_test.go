package loader_test

import (
	"github.com/panyawen/PowerGraph/loader"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(SyntheticTestSuite))

type SyntheticTestSuite struct{}

func (s *SyntheticTestSuite) TestSyntheticPowerlaw(c *gc.C) {
	g := new(captureGraph)
	c.Assert(loader.SyntheticPowerlaw(g, 500, 2.1, 42), gc.IsNil)

	c.Assert(g.vertices, gc.HasLen, 500)
	for i, id := range g.vertices {
		c.Assert(id, gc.Equals, int64(i))
	}

	c.Assert(len(g.edges) >= 500, gc.Equals, true, gc.Commentf("every vertex emits at least one edge; got %d", len(g.edges)))

	outDegrees := make(map[int64]int)
	for _, e := range g.edges {
		c.Assert(e[0], gc.Not(gc.Equals), e[1], gc.Commentf("self-loop on vertex %d", e[0]))
		c.Assert(e[1] >= 0 && e[1] < 500, gc.Equals, true, gc.Commentf("edge target %d out of range", e[1]))
		outDegrees[e[0]]++
	}
	for id, degree := range outDegrees {
		c.Assert(degree <= 100, gc.Equals, true, gc.Commentf("vertex %d has out-degree %d", id, degree))
	}
}

func (s *SyntheticTestSuite) TestSyntheticPowerlawIsDeterministic(c *gc.C) {
	g1, g2 := new(captureGraph), new(captureGraph)
	c.Assert(loader.SyntheticPowerlaw(g1, 100, 2.1, 7), gc.IsNil)
	c.Assert(loader.SyntheticPowerlaw(g2, 100, 2.1, 7), gc.IsNil)

	c.Assert(g1.vertices, gc.DeepEquals, g2.vertices)
	c.Assert(g1.edges, gc.DeepEquals, g2.edges)
}

func (s *SyntheticTestSuite) TestSyntheticPowerlawValidation(c *gc.C) {
	err := loader.SyntheticPowerlaw(new(captureGraph), 1, 2.1, 42)
	c.Assert(err, gc.ErrorMatches, "powerlaw graphs require at least 2 vertices")

	err = loader.SyntheticPowerlaw(new(captureGraph), 10, 0, 42)
	c.Assert(err, gc.ErrorMatches, "powerlaw exponent must be greater than zero")

	err = loader.SyntheticPowerlaw(new(captureGraph), 10, -1.5, 42)
	c.Assert(err, gc.ErrorMatches, "powerlaw exponent must be greater than zero")
}

func (s *SyntheticTestSuite) TestSyntheticPowerlawPropagatesGraphErrors(c *gc.C) {
	boom := xerrors.New("boom")
	err := loader.SyntheticPowerlaw(&captureGraph{edgeErr: boom}, 10, 2.1, 42)
	c.Assert(err, gc.Equals, boom)
}
