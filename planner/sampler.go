package planner

import (
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"rrt-planner/geometry"
)

// Sampler draws candidate points for the tree to grow toward.
type Sampler interface {
	Sample() geometry.Vector
}

// UniformSampler draws points uniformly over a rectangle.
type UniformSampler struct {
	x, y distuv.Uniform
}

// NewUniformSampler samples over bound using src.
func NewUniformSampler(bound orb.Bound, src rand.Source) *UniformSampler {
	return &UniformSampler{
		x: distuv.Uniform{Min: bound.Min.X(), Max: bound.Max.X(), Src: src},
		y: distuv.Uniform{Min: bound.Min.Y(), Max: bound.Max.Y(), Src: src},
	}
}

func (s *UniformSampler) Sample() geometry.Vector {
	return geometry.FromRectangular(s.x.Rand(), s.y.Rand())
}

// GaussianSampler picks a seed point uniformly and offsets it by a polar
// vector with normally distributed radius and angle. Results are clamped to bound.
type GaussianSampler struct {
	seeds  []geometry.Vector
	rng    *rand.Rand
	radius distuv.Normal
	angle  distuv.Normal
	bound  orb.Bound
}

// NewGaussianSampler samples around seeds. At least one seed is required.
func NewGaussianSampler(seeds []geometry.Vector, params GaussianParams, bound orb.Bound, src rand.Source) (*GaussianSampler, error) {
	if len(seeds) == 0 {
		return nil, errors.Wrap(ErrInvalidState, "gaussian sampling needs at least one seed point")
	}
	return &GaussianSampler{
		seeds:  append([]geometry.Vector(nil), seeds...),
		rng:    rand.New(src),
		radius: distuv.Normal{Mu: params.MuR, Sigma: params.SigmaR, Src: src},
		angle:  distuv.Normal{Mu: params.MuTheta, Sigma: params.SigmaTheta, Src: src},
		bound:  bound,
	}, nil
}

func (s *GaussianSampler) Sample() geometry.Vector {
	seed := s.seeds[s.rng.IntN(len(s.seeds))]
	offset := geometry.FromPolar(s.radius.Rand(), s.angle.Rand())
	return clamp(geometry.FromRectangular(seed.X()+offset.X(), seed.Y()+offset.Y()), s.bound)
}

// Seeds returns the points the sampler draws around.
func (s *GaussianSampler) Seeds() []geometry.Vector {
	return append([]geometry.Vector(nil), s.seeds...)
}

func clamp(p geometry.Vector, bound orb.Bound) geometry.Vector {
	return geometry.FromRectangular(
		math.Max(bound.Min.X(), math.Min(p.X(), bound.Max.X())),
		math.Max(bound.Min.Y(), math.Min(p.Y(), bound.Max.Y())),
	)
}
