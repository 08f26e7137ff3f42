package planner

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rrt-planner/geometry"
	"rrt-planner/internal/logging"
	"rrt-planner/workspace"
)

// Stats counts what a planner has done so far.
type Stats struct {
	Iterations int
	Inserted   int
	Rejected   int
	Optimized  int
}

// Planner grows a tree in a workspace with one of the RRT variants.
// It is not safe for concurrent use; only the Gate in its options may be
// touched from other goroutines.
type Planner struct {
	alg  Algorithm
	ws   *workspace.Workspace
	tree *Tree
	opts Options

	src      rand.Source
	sampler  Sampler
	rewire   RewirePolicy
	optimize OptimizePolicy
	seedPath []geometry.Vector

	stats  Stats
	logger *zap.Logger
}

// New creates a planner for ws. DT variants build their sampling seed path
// lazily on the first FindPath or Iterate call.
func New(alg Algorithm, ws *workspace.Workspace, opts Options, logger *zap.Logger) (*Planner, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return newPlanner(alg, ws, opts, logger, rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func newPlanner(alg Algorithm, ws *workspace.Workspace, opts Options, logger *zap.Logger, src rand.Source) (*Planner, error) {
	if _, ok := algorithmNames[alg]; !ok {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "%d", uint8(alg))
	}
	if ws == nil {
		return nil, errors.New("planner needs a workspace")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.LogInterval <= 0 {
		opts.LogInterval = DefaultOptions().LogInterval
	}

	rewire, optimize := policies(alg)
	p := &Planner{
		alg:      alg,
		ws:       ws,
		tree:     NewTree(ws, opts.StepSize, opts.NeighborRadius),
		opts:     opts,
		src:      src,
		rewire:   rewire,
		optimize: optimize,
		logger:   logging.OrNop(logger).With(zap.Stringer("algorithm", alg)),
	}
	if !alg.usesReferencePath() {
		p.sampler = NewUniformSampler(ws.Bound(), src)
	}
	return p, nil
}

func (p *Planner) Algorithm() Algorithm            { return p.alg }
func (p *Planner) Workspace() *workspace.Workspace { return p.ws }
func (p *Planner) Tree() *Tree                     { return p.tree }
func (p *Planner) Stats() Stats                    { return p.stats }

// SeedPath returns the prepared path the DT variants sample around.
func (p *Planner) SeedPath() []geometry.Vector {
	return append([]geometry.Vector(nil), p.seedPath...)
}

// SetSampler replaces the sampling strategy, including the seed path sampler of the DT variants.
func (p *Planner) SetSampler(s Sampler) { p.sampler = s }

// FindPath iterates until the goal is reached. It returns ErrNoPath once
// MaxIterations is exhausted, or the context error if ctx ends first.
func (p *Planner) FindPath(ctx context.Context) error {
	if err := p.prepare(ctx); err != nil {
		return err
	}

	start := time.Now()
	p.logger.Info("planning started",
		zap.Int("max_iterations", p.opts.MaxIterations),
		zap.Float64("step_size", p.opts.StepSize),
		zap.Float64("neighbor_radius", p.opts.NeighborRadius),
	)

	for !p.ws.HasPath() {
		if p.opts.MaxIterations > 0 && p.stats.Iterations >= p.opts.MaxIterations {
			p.logger.Warn("iteration budget exhausted",
				zap.Int("iterations", p.stats.Iterations),
				zap.Int("nodes", p.ws.NodeCount()),
			)
			return errors.Wrapf(ErrNoPath, "after %d iterations", p.stats.Iterations)
		}
		if err := p.opts.Gate.Wait(ctx); err != nil {
			return errors.Wrap(err, "planning interrupted")
		}
		if _, err := p.extend(); err != nil {
			return err
		}
	}

	p.logger.Info("path found",
		zap.Int("iterations", p.stats.Iterations),
		zap.Int("nodes", p.ws.NodeCount()),
		zap.Int("path_nodes", len(p.ws.PathIDs())),
		zap.Float64("path_length", p.ws.PathLength()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Iterate performs one unit of work: a single candidate insertion while no
// path exists, one optimization pass afterwards. It reports whether a path exists.
func (p *Planner) Iterate(ctx context.Context) (bool, error) {
	if err := p.prepare(ctx); err != nil {
		return false, err
	}
	if err := p.opts.Gate.Wait(ctx); err != nil {
		return p.ws.HasPath(), err
	}

	if !p.ws.HasPath() {
		_, err := p.extend()
		return p.ws.HasPath(), err
	}

	moved, err := p.optimize.Optimize(p.tree)
	p.stats.Optimized += moved
	return true, err
}

// OptimisePath re-searches parents along the current path regardless of the
// variant. It fails with ErrInvalidState when no path exists.
func (p *Planner) OptimisePath() (int, error) {
	moved, err := p.tree.OptimisePath()
	p.stats.Optimized += moved
	return moved, err
}

// extend runs one sample, steer, check, insert, rewire and goal-test cycle.
// It reports whether the goal was reached.
func (p *Planner) extend() (bool, error) {
	p.stats.Iterations++
	if p.stats.Iterations%p.opts.LogInterval == 0 {
		p.logger.Debug("progress",
			zap.Int("iterations", p.stats.Iterations),
			zap.Int("nodes", p.ws.NodeCount()),
			zap.Int("rejected", p.stats.Rejected),
		)
	}

	sample := p.sampler.Sample()
	nearest := p.ws.NearestNode(sample)
	from := p.ws.Node(nearest).Position()
	pos := Steer(from, sample, p.opts.StepSize)

	if from.Distance(pos) == 0 || !p.ws.InBounds(pos) {
		p.stats.Rejected++
		return false, nil
	}
	free, err := p.tree.CollisionFree(from, pos)
	if err != nil {
		return false, err
	}
	if !free {
		p.stats.Rejected++
		return false, nil
	}

	neighbors := p.tree.Neighbors(pos)
	parent, err := p.rewire.Parent(p.tree, pos, nearest, neighbors)
	if err != nil {
		return false, err
	}
	id, err := p.ws.Insert(pos, parent)
	if err != nil {
		return false, err
	}
	if err := p.rewire.Rewire(p.tree, id, neighbors); err != nil {
		return false, err
	}
	p.stats.Inserted++

	if pos.Distance(p.ws.Goal()) > p.opts.StepSize {
		return false, nil
	}
	if _, err := p.ws.AttachGoal(id); err != nil {
		return false, err
	}
	moved, err := p.optimize.Optimize(p.tree)
	p.stats.Optimized += moved
	return true, err
}
