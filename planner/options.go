package planner

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"rrt-planner/geometry"
)

// GaussianParams shapes the polar offset drawn around a reference path point.
type GaussianParams struct {
	MuR        float64 `yaml:"mu_r" json:"mu_r"`
	SigmaR     float64 `yaml:"sigma_r" json:"sigma_r"`
	MuTheta    float64 `yaml:"mu_theta" json:"mu_theta"`
	SigmaTheta float64 `yaml:"sigma_theta" json:"sigma_theta"`
}

// Options configures a planner run.
type Options struct {
	StepSize       float64 `yaml:"step_size" json:"step_size"`
	NeighborRadius float64 `yaml:"neighbor_radius" json:"neighbor_radius"`

	// MaxIterations bounds FindPath; 0 means run until the goal is reached or ctx ends.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`

	// Seed for the sampling source; 0 picks a time-based seed.
	Seed uint64 `yaml:"seed" json:"seed"`

	Gaussian GaussianParams `yaml:"gaussian" json:"gaussian"`

	// ReferencePath seeds the DT variants. When empty, a plain RRT run provides one.
	ReferencePath [][]float64 `yaml:"reference_path,omitempty" json:"reference_path,omitempty"`

	// LogInterval is the number of iterations between progress lines at debug level.
	LogInterval int `yaml:"log_interval" json:"log_interval"`

	// Gate, when set, is waited on once per iteration.
	Gate *Gate `yaml:"-" json:"-"`
}

// DefaultOptions returns the standard tuning: step 10, neighbor radius 20,
// r ~ N(2, 20) and θ ~ N(π/2, π/6).
func DefaultOptions() Options {
	return Options{
		StepSize:       10,
		NeighborRadius: 20,
		Gaussian: GaussianParams{
			MuR:        2,
			SigmaR:     20,
			MuTheta:    math.Pi / 2,
			SigmaTheta: math.Pi / 6,
		},
		LogInterval: 1000,
	}
}

// Validate reports every invalid field at once.
func (o Options) Validate() error {
	var err error
	if !(o.StepSize > 0) || math.IsInf(o.StepSize, 0) {
		err = multierr.Append(err, fmt.Errorf("step_size must be a positive number, got %v", o.StepSize))
	}
	if o.NeighborRadius < 0 || math.IsNaN(o.NeighborRadius) {
		err = multierr.Append(err, fmt.Errorf("neighbor_radius must not be negative, got %v", o.NeighborRadius))
	}
	if o.MaxIterations < 0 {
		err = multierr.Append(err, fmt.Errorf("max_iterations must not be negative, got %d", o.MaxIterations))
	}
	if o.Gaussian.SigmaR < 0 || o.Gaussian.SigmaTheta < 0 {
		err = multierr.Append(err, fmt.Errorf("gaussian sigmas must not be negative"))
	}
	for i, p := range o.ReferencePath {
		if len(p) != 2 {
			err = multierr.Append(err, fmt.Errorf("reference_path[%d] needs 2 values, got %d", i, len(p)))
		}
	}
	return errors.Wrap(err, "invalid planner options")
}

func (o Options) referencePoints() []geometry.Vector {
	if len(o.ReferencePath) == 0 {
		return nil
	}
	points := make([]geometry.Vector, len(o.ReferencePath))
	for i, p := range o.ReferencePath {
		points[i] = geometry.FromRectangular(p...)
	}
	return points
}
