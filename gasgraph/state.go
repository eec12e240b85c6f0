package gasgraph

import (
	"encoding/binary"
	"math"

	"golang.org/x/xerrors"
)

// stateEncodedSize is the wire size of a marshaled State value: two
// big-endian IEEE 754 words.
const stateEncodedSize = 16

// State holds the per-vertex payload that vertex programs operate on. Rank is
// the current value estimate and LastChange the absolute difference between
// the rank before and after the most recent apply call. LastChange is zero
// for vertices that have not been applied yet.
type State struct {
	Rank       float64
	LastChange float64
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s State) MarshalBinary() ([]byte, error) {
	buf := make([]byte, stateEncodedSize)
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(s.Rank))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(s.LastChange))
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *State) UnmarshalBinary(data []byte) error {
	if len(data) != stateEncodedSize {
		return xerrors.Errorf("unmarshal vertex state: expected %d bytes; got %d", stateEncodedSize, len(data))
	}
	s.Rank = math.Float64frombits(binary.BigEndian.Uint64(data[0:8]))
	s.LastChange = math.Float64frombits(binary.BigEndian.Uint64(data[8:16]))
	return nil
}
