package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/panyawen/PowerGraph/loader"
	"github.com/panyawen/PowerGraph/pagerank"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"
)

var (
	appName = "pagerank"
	appSha  = "populated-at-link-time"
	logger  *logrus.Entry
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetFormatter(new(logrus.JSONFormatter))
	logger = rootLogger.WithFields(logrus.Fields{
		"app":    appName,
		"sha":    appSha,
		"host":   host,
		"run_id": uuid.New().String(),
	})

	if err := makeApp().Run(os.Args); err != nil {
		logger.WithField("err", err).Error("shutting down due to error")
		_ = os.Stderr.Sync()
		os.Exit(1)
	}
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Version = appSha
	app.Usage = "Calculate PageRank scores for a directed graph"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "graph",
			EnvVar: "GRAPH",
			Usage:  "The path to the graph file to load. Files with a .gz extension are decompressed on the fly",
		},
		cli.StringFlag{
			Name:   "format",
			Value:  string(loader.FormatTSV),
			EnvVar: "GRAPH_FORMAT",
			Usage:  "The layout of the graph file. Supported values are 'tsv', 'snap' and 'adj'",
		},
		cli.IntFlag{
			Name:   "powerlaw",
			EnvVar: "POWERLAW_VERTICES",
			Usage:  "Generate a synthetic powerlaw graph with this number of vertices instead of loading a graph file",
		},
		cli.Float64Flag{
			Name:   "powerlaw-exponent",
			Value:  2.1,
			EnvVar: "POWERLAW_EXPONENT",
			Usage:  "The exponent of the out-degree distribution for synthetic powerlaw graphs",
		},
		cli.Int64Flag{
			Name:   "seed",
			Value:  42,
			EnvVar: "SEED",
			Usage:  "The seed for generating synthetic powerlaw graphs",
		},
		cli.Float64Flag{
			Name:   "reset-prob",
			Value:  0.15,
			EnvVar: "RESET_PROB",
			Usage:  "The probability that a random surfer teleports to a random vertex",
		},
		cli.Float64Flag{
			Name:   "convergence-threshold",
			Value:  0.01,
			EnvVar: "CONVERGENCE_THRESHOLD",
			Usage:  "The minimum per-round rank change that keeps a vertex active",
		},
		cli.IntFlag{
			Name:   "max-rounds",
			EnvVar: "MAX_ROUNDS",
			Usage:  "The maximum number of rounds to execute; 0 runs until convergence",
		},
		cli.IntFlag{
			Name:   "num-workers",
			Value:  runtime.NumCPU(),
			EnvVar: "NUM_WORKERS",
			Usage:  "The number of workers to use for calculating PageRank scores",
		},
		cli.StringFlag{
			Name:   "save-to",
			EnvVar: "SAVE_TO",
			Usage:  "The path to a file for writing out the calculated scores; leave empty to skip",
		},
		cli.IntFlag{
			Name:   "pprof-port",
			Value:  6060,
			EnvVar: "PPROF_PORT",
			Usage:  "The port for exposing pprof endpoints",
		},
	}
	app.Action = runMain
	return app
}

func runMain(appCtx *cli.Context) error {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	calc, err := pagerank.NewCalculator(pagerank.Config{
		ResetProb:            appCtx.Float64("reset-prob"),
		ConvergenceThreshold: appCtx.Float64("convergence-threshold"),
		MaxRounds:            appCtx.Int("max-rounds"),
		ComputeWorkers:       appCtx.Int("num-workers"),
		Logger:               logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = calc.Close() }()

	if err = populateGraph(appCtx, calc); err != nil {
		return err
	}

	// Start pprof server
	pprofListener, err := net.Listen("tcp", fmt.Sprintf(":%d", appCtx.Int("pprof-port")))
	if err != nil {
		return err
	}
	defer func() { _ = pprofListener.Close() }()

	go func() {
		logger.WithField("port", appCtx.Int("pprof-port")).Info("listening for pprof requests")
		srv := new(http.Server)
		_ = srv.Serve(pprofListener)
	}()

	// Start signal watcher
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			logger.WithField("signal", s.String()).Info("cancelling run due to signal")
			cancelFn()
		case <-ctx.Done():
		}
	}()

	g := calc.Graph()
	logger.WithFields(logrus.Fields{
		"vertices": g.NumVertices(),
		"edges":    g.NumEdges(),
	}).Info("populated graph")

	ex := calc.Executor()
	if err = ex.RunToCompletion(ctx); err != nil {
		return err
	}

	summary := ex.Summary()
	logger.WithFields(logrus.Fields{
		"rounds":             summary.Rounds,
		"updates":            summary.Updates,
		"elapsed":            summary.Elapsed.String(),
		"updates_per_second": summary.UpdatesPerSecond(),
		"total_rank":         calc.TotalRank(),
	}).Info("completed PageRank run")

	if saveTo := appCtx.String("save-to"); saveTo != "" {
		return saveScores(calc, saveTo)
	}
	return nil
}

func populateGraph(appCtx *cli.Context, calc *pagerank.Calculator) error {
	var (
		graphFile   = appCtx.String("graph")
		numVertices = appCtx.Int("powerlaw")
	)
	switch {
	case graphFile == "" && numVertices == 0:
		return xerrors.New("either --graph or --powerlaw must be specified")
	case graphFile != "" && numVertices != 0:
		return xerrors.New("--graph and --powerlaw are mutually exclusive")
	case graphFile != "":
		logger.WithFields(logrus.Fields{
			"file":   graphFile,
			"format": appCtx.String("format"),
		}).Info("loading graph file")
		return loader.LoadFile(calc, graphFile, loader.Format(appCtx.String("format")))
	default:
		logger.WithFields(logrus.Fields{
			"vertices": numVertices,
			"exponent": appCtx.Float64("powerlaw-exponent"),
			"seed":     appCtx.Int64("seed"),
		}).Info("generating synthetic powerlaw graph")
		return loader.SyntheticPowerlaw(calc, numVertices, appCtx.Float64("powerlaw-exponent"), appCtx.Int64("seed"))
	}
}

func saveScores(calc *pagerank.Calculator, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.Errorf("save scores: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err = calc.SaveScores(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err = bw.Flush(); err != nil {
		_ = f.Close()
		return xerrors.Errorf("save scores: %w", err)
	}
	if err = f.Close(); err != nil {
		return xerrors.Errorf("save scores: %w", err)
	}

	logger.WithField("file", path).Info("saved PageRank scores")
	return nil
}
