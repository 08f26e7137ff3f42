package planner

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rrt-planner/geometry"
	"rrt-planner/workspace"
)

// prepare builds the Gaussian sampler of the DT variants on first use.
func (p *Planner) prepare(ctx context.Context) error {
	if p.sampler != nil {
		return nil
	}
	seeds, err := p.referenceSeeds(ctx)
	if err != nil {
		return errors.Wrap(err, "preparing reference path")
	}
	sampler, err := NewGaussianSampler(seeds, p.opts.Gaussian, p.ws.Bound(), p.src)
	if err != nil {
		return err
	}
	p.seedPath = seeds
	p.sampler = sampler
	return nil
}

// referenceSeeds obtains a reference path in a scratch copy of the workspace,
// shortcuts it by re-searching parents from goal to root and densifies it to
// step resolution.
func (p *Planner) referenceSeeds(ctx context.Context) ([]geometry.Vector, error) {
	scratch := p.ws.Scratch()
	tree := NewTree(scratch, p.opts.StepSize, p.opts.NeighborRadius)

	if ref := p.opts.referencePoints(); len(ref) > 0 {
		if err := buildChain(scratch, ref); err != nil {
			return nil, err
		}
	} else {
		opts := p.opts
		opts.ReferencePath = nil
		ref, err := newPlanner(RRT, scratch, opts, p.logger.Named("reference"), p.src)
		if err != nil {
			return nil, err
		}
		if err := ref.FindPath(ctx); err != nil {
			return nil, err
		}
	}

	before := scratch.PathLength()
	if _, err := tree.OptimisePath(); err != nil {
		return nil, err
	}
	added, err := tree.Densify()
	if err != nil {
		return nil, err
	}

	p.logger.Debug("reference path prepared",
		zap.Float64("length_before", before),
		zap.Float64("length_after", scratch.PathLength()),
		zap.Int("points", len(scratch.PathIDs())),
		zap.Int("densified", added),
	)
	return scratch.Path(), nil
}

// buildChain links points into a single branch from the root and attaches
// the goal to its end. Points equal to the start or goal are skipped.
func buildChain(ws *workspace.Workspace, points []geometry.Vector) error {
	const tol = 1e-9
	prev := ws.Root()
	for _, pt := range points {
		if pt.Equal(ws.Start(), tol) || pt.Equal(ws.Goal(), tol) {
			continue
		}
		if !ws.InBounds(pt) {
			return errors.Wrapf(ErrInvalidState, "reference point %s is outside the workspace", pt)
		}
		if pt.Distance(ws.Node(prev).Position()) == 0 {
			continue
		}
		id, err := ws.Insert(pt, prev)
		if err != nil {
			return err
		}
		prev = id
	}
	_, err := ws.AttachGoal(prev)
	return err
}
