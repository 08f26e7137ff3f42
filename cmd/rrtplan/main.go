// Command rrtplan runs the RRT-family planners from the command line or as an HTTP service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"rrt-planner/internal/logging"
	"rrt-planner/planner"
	"rrt-planner/workspace"
)

const (
	flagLogLevel      = "log-level"
	flagLogFormat     = "log-format"
	flagLayout        = "layout"
	flagAlgorithm     = "algorithm"
	flagOptions       = "options"
	flagStep          = "step"
	flagRadius        = "radius"
	flagSeed          = "seed"
	flagMaxIterations = "max-iterations"
	flagTimeout       = "timeout"
	flagOut           = "out"
	flagAddr          = "addr"
	flagLayouts       = "layouts"
)

func main() {
	logger := zap.NewNop()

	app := &cli.App{
		Name:  "rrtplan",
		Usage: "plan collision-free paths with RRT, RRT*, Q-RRT*, DT-RRT* and Lazy-DT-RRT*",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagLogLevel, Value: "info", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: flagLogFormat, Value: "console", Usage: "console or json"},
		},
		Before: func(c *cli.Context) error {
			l, err := logging.New(c.String(flagLogLevel), c.String(flagLogFormat))
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		After: func(*cli.Context) error {
			_ = logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "run one planner on a layout file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagLayout, Aliases: []string{"l"}, Required: true, Usage: "layout file (.yaml or .json)"},
					&cli.StringFlag{Name: flagAlgorithm, Aliases: []string{"a"}, Value: "rrt", Usage: "rrt, rrt*, q-rrt*, dt-rrt* or lazy-dt-rrt*"},
					&cli.StringFlag{Name: flagOptions, Usage: "planner options file (.yaml or .json)"},
					&cli.Float64Flag{Name: flagStep, Usage: "step size"},
					&cli.Float64Flag{Name: flagRadius, Usage: "neighbor radius"},
					&cli.Uint64Flag{Name: flagSeed, Usage: "random seed, 0 for time-based"},
					&cli.IntFlag{Name: flagMaxIterations, Usage: "iteration budget, 0 for unbounded"},
					&cli.DurationFlag{Name: flagTimeout, Usage: "give up after this long"},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "write the result as GeoJSON"},
				},
				Action: func(c *cli.Context) error { return runPlan(c, logger) },
			},
			{
				Name:  "serve",
				Usage: "serve POST /plan, GET /layouts, GET /health and the /stream websocket",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagAddr, Value: ":8080", Usage: "listen address"},
					&cli.StringFlag{Name: flagLayouts, Usage: "directory of named layouts"},
				},
				Action: func(c *cli.Context) error { return runServe(c, logger) },
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runPlan(c *cli.Context, logger *zap.Logger) error {
	layout, err := workspace.LoadLayoutFile(c.String(flagLayout))
	if err != nil {
		return err
	}
	ws, err := layout.Build(logger)
	if err != nil {
		return err
	}
	alg, err := planner.ParseAlgorithm(c.String(flagAlgorithm))
	if err != nil {
		return err
	}
	opts, err := loadOptions(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := c.Duration(flagTimeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p, err := planner.New(alg, ws, opts, logger)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := p.FindPath(ctx); err != nil {
		return errors.Wrapf(err, "planning %s with %s", layout.Name, alg)
	}
	stats := p.Stats()

	fmt.Fprintf(c.App.Writer, "%s on %s: length %.2f, %d path nodes, %d tree nodes, %d iterations, %s\n",
		alg, layout.Name, ws.PathLength(), len(ws.PathIDs()), ws.NodeCount(), stats.Iterations,
		time.Since(start).Round(time.Millisecond))

	if out := c.String(flagOut); out != "" {
		if err := ws.SaveGeoJSON(out); err != nil {
			return err
		}
		logger.Info("result written", zap.String("file", out))
	}
	return nil
}

// loadOptions starts from the defaults, applies the options file and then any explicit flags.
func loadOptions(c *cli.Context) (planner.Options, error) {
	opts := planner.DefaultOptions()
	if path := c.String(flagOptions); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return opts, errors.Wrap(err, "reading options")
		}
		// YAML is a superset of JSON
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, errors.Wrapf(err, "decoding options %s", path)
		}
	}
	if c.IsSet(flagStep) {
		opts.StepSize = c.Float64(flagStep)
	}
	if c.IsSet(flagRadius) {
		opts.NeighborRadius = c.Float64(flagRadius)
	}
	if c.IsSet(flagSeed) {
		opts.Seed = c.Uint64(flagSeed)
	}
	if c.IsSet(flagMaxIterations) {
		opts.MaxIterations = c.Int(flagMaxIterations)
	}
	return opts, opts.Validate()
}
