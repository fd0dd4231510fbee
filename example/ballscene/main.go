// Command ballscene moves balls among static obstacles and reports the contacts found by
// the dual-tree broad phase and the GJK narrow phase.
package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"runtime"

	"github.com/akmonengine/proximity/geom"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	app := &cli.App{
		Name:  "ballscene",
		Usage: "simulate moving balls and report their proximity queries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scene",
				Aliases: []string{"s"},
				Usage:   "YAML scene file, a random scene is generated when omitted",
			},
			&cli.IntFlag{
				Name:  "steps",
				Usage: "number of steps, overrides the scene",
			},
			&cli.IntFlag{
				Name:  "workers",
				Value: runtime.NumCPU(),
				Usage: "goroutines running the GJK queries",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Value: 1,
				Usage: "seed of the random scene",
			},
			&cli.IntFlag{
				Name:  "dimension",
				Value: 3,
				Usage: "dimension of the random scene",
			},
			&cli.IntFlag{
				Name:  "balls",
				Value: 300,
				Usage: "number of balls of the random scene",
			},
			&cli.IntFlag{
				Name:  "obstacles",
				Value: 25,
				Usage: "number of obstacles of the random scene",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log every step",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ballscene: %+v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.Bool("verbose"))
	if err != nil {
		return errors.Wrap(err, "creating logger")
	}
	defer logger.Sync() //nolint:errcheck

	var scene *Scene
	if path := c.String("scene"); path != "" {
		if scene, err = LoadScene(path); err != nil {
			return err
		}
		logger.Info("scene loaded", zap.String("path", path))
	} else {
		seed := c.Uint64("seed")
		scene = RandomScene(rand.New(rand.NewPCG(seed, seed)), c.Int("dimension"), c.Int("balls"), c.Int("obstacles"))
		logger.Info("random scene generated", zap.Uint64("seed", seed))
	}
	if c.IsSet("steps") {
		scene.Steps = c.Int("steps")
	}

	sim, err := NewSimulation(scene, c.Int("workers"), logger)
	if err != nil {
		return err
	}

	reports := make([]StepReport, 0, scene.Steps)
	for i := 0; i < scene.Steps; i++ {
		report := sim.Step()
		reports = append(reports, report)

		logger.Debug("step",
			zap.Int("step", report.Step),
			zap.Int("reinserted", report.Reinserted),
			zap.Int("candidates", report.Candidates),
			zap.Int("contacts", report.Contacts),
			zap.Float64("minDistance", report.MinDistance),
		)
	}

	if err := sim.Check(); err != nil {
		logger.Error("simulation is inconsistent", zap.Error(err))
		return err
	}

	summarize(logger, reports)

	ray := geom.NewRay(geom.Splat(scene.Dimension, -scene.Extent), geom.Splat(scene.Dimension, 1))
	obstacles, balls := sim.CastRay(ray, 2*scene.Extent)
	logger.Info("diagonal ray cast",
		zap.Ints("obstacles", obstacles),
		zap.Int("balls", len(balls)),
	)
	return nil
}

func summarize(logger *zap.Logger, reports []StepReport) {
	if len(reports) == 0 {
		logger.Info("no step run")
		return
	}

	candidates := lo.SumBy(reports, func(r StepReport) int { return r.Candidates })
	minDistance := lo.Min(lo.Map(reports, func(r StepReport, _ int) float64 { return r.MinDistance }))

	logger.Info("simulation done",
		zap.Int("steps", len(reports)),
		zap.Int("candidates", candidates),
		zap.Int("contacts", lo.SumBy(reports, func(r StepReport) int { return r.Contacts })),
		zap.Int("nonConvergent", lo.SumBy(reports, func(r StepReport) int { return r.NonConvergent })),
		zap.Int("reinserted", lo.SumBy(reports, func(r StepReport) int { return r.Reinserted })),
		zap.Float64("meanIterations", float64(lo.SumBy(reports, func(r StepReport) int { return r.Iterations }))/math.Max(1, float64(candidates))),
		zap.Float64("minDistance", minDistance),
	)
}
