package gasgraph_test

import (
	"github.com/panyawen/PowerGraph/gasgraph"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(StateTestSuite))

type StateTestSuite struct {
}

func (s *StateTestSuite) TestBinaryRoundTrip(c *gc.C) {
	orig := gasgraph.State{Rank: 0.15, LastChange: 42.5}
	data, err := orig.MarshalBinary()
	c.Assert(err, gc.IsNil)
	c.Assert(data, gc.HasLen, 16)

	var got gasgraph.State
	c.Assert(got.UnmarshalBinary(data), gc.IsNil)
	c.Assert(got, gc.DeepEquals, orig)
}

func (s *StateTestSuite) TestUnmarshalSizeCheck(c *gc.C) {
	var st gasgraph.State
	err := st.UnmarshalBinary([]byte{0xba, 0xd0})
	c.Assert(err, gc.ErrorMatches, `unmarshal vertex state: expected 16 bytes; got 2`)
}
