package pagerank

import (
	"io/ioutil"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Config encapsulates the required parameters for creating a new PageRank
// calculator instance.
type Config struct {
	// ResetProb is the probability that a random surfer stops following
	// links and teleports to a random vertex in the graph. It must lie in
	// the range (0, 1).
	//
	// If not specified, a default value of 0.15 will be used instead.
	ResetProb float64

	// ConvergenceThreshold is the rank change below which a vertex stops
	// activating its neighbours. The run terminates once every vertex's
	// rank change within a round drops to the threshold or below. It must
	// be greater than zero.
	//
	// If not specified, a default value of 0.01 will be used instead.
	ConvergenceThreshold float64

	// MaxRounds caps the number of rounds a run may execute even if the
	// ranks are still moving. A zero value leaves the run bounded only by
	// convergence.
	MaxRounds int

	// ComputeWorkers specifies the number of workers to use for computing
	// PageRank scores. If not specified, a single worker will be used.
	ComputeWorkers int

	// Clock is used for measuring run times. If not specified, the system
	// wall-clock will be used instead.
	Clock clock.Clock

	// Logger for recording per-round progress. If not specified, a
	// no-op logger will be used instead.
	Logger *logrus.Entry
}

func (c *Config) validate() error {
	var err error
	if c.ResetProb < 0 || c.ResetProb >= 1.0 {
		err = multierror.Append(err, xerrors.New("ResetProb must be in the range (0, 1)"))
	} else if c.ResetProb == 0 {
		c.ResetProb = 0.15
	}
	if c.ConvergenceThreshold < 0 {
		err = multierror.Append(err, xerrors.New("ConvergenceThreshold must be greater than zero"))
	} else if c.ConvergenceThreshold == 0 {
		c.ConvergenceThreshold = 0.01
	}
	if c.MaxRounds < 0 {
		err = multierror.Append(err, xerrors.New("MaxRounds cannot be negative"))
	}
	if c.ComputeWorkers <= 0 {
		c.ComputeWorkers = 1
	}
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}
