package gasgraph

import (
	multierror "github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"golang.org/x/xerrors"
)

// GraphConfig encapsulates the configuration options for creating graphs.
type GraphConfig struct {
	// Program is the vertex program that the graph executes for each
	// active vertex when running a round. A valid Program instance is
	// required for the config to be valid.
	Program Program

	// ComputeWorkers specifies the number of workers to use for running
	// the phases of each round. If not specified, a single worker will be
	// used.
	ComputeWorkers int

	// Clock is used for measuring the elapsed time of executor runs. If
	// not specified, the system wall-clock will be used instead.
	Clock clock.Clock
}

// validate checks whether a graph configuration is valid and sets the default
// values where required.
func (g *GraphConfig) validate() error {
	var err error
	if g.ComputeWorkers <= 0 {
		g.ComputeWorkers = 1
	}
	if g.Clock == nil {
		g.Clock = clock.WallClock
	}

	if g.Program == nil {
		err = multierror.Append(err, xerrors.New("vertex program not specified"))
	}

	return err
}
