package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"rrt-planner/geometry"
	"rrt-planner/internal/logging"
	"rrt-planner/obstacle"
)

// ObstacleSpec is the file form of an obstacle. Velocity is only read for dynamic obstacles.
type ObstacleSpec struct {
	Shape    string    `yaml:"shape" json:"shape"`
	Args     []float64 `yaml:"args" json:"args"`
	Anchor   []float64 `yaml:"anchor" json:"anchor"`
	Velocity []float64 `yaml:"velocity,omitempty" json:"velocity,omitempty"`
}

// Layout is the file form of a workspace: its size, endpoints and obstacles.
// Boundary walls are not listed; New adds them.
type Layout struct {
	Name    string         `yaml:"name,omitempty" json:"name,omitempty"`
	Size    []float64      `yaml:"size" json:"size"`
	Start   []float64      `yaml:"start" json:"start"`
	Goal    []float64      `yaml:"goal" json:"goal"`
	Static  []ObstacleSpec `yaml:"static,omitempty" json:"static,omitempty"`
	Dynamic []ObstacleSpec `yaml:"dynamic,omitempty" json:"dynamic,omitempty"`
}

// ParseLayout decodes a layout. format is "json" or "yaml"; YAML is the default.
func ParseLayout(data []byte, format string) (*Layout, error) {
	var layout Layout
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &layout); err != nil {
			return nil, errors.Wrap(err, "decoding JSON layout")
		}
	default:
		if err := yaml.Unmarshal(data, &layout); err != nil {
			return nil, errors.Wrap(err, "decoding YAML layout")
		}
	}
	return &layout, nil
}

// LoadLayoutFile reads a layout from a .yaml, .yml or .json file.
func LoadLayoutFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading layout %s", path)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	layout, err := ParseLayout(data, format)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if layout.Name == "" {
		layout.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return layout, nil
}

// LoadLayoutDir loads every layout file in dir, keyed by name. Files that fail
// to load are logged and skipped.
func LoadLayoutDir(dir string, logger *zap.Logger) (map[string]*Layout, error) {
	logger = logging.OrNop(logger)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	logger.Info("loading layouts", zap.String("dir", dir), zap.Int("files", len(files)))

	layouts := make(map[string]*Layout, len(files))
	for _, file := range files {
		layout, err := LoadLayoutFile(file)
		if err == nil {
			err = layout.Validate()
		}
		if err != nil {
			logger.Warn("skipping layout", zap.String("file", filepath.Base(file)), zap.Error(err))
			continue
		}
		layouts[layout.Name] = layout
	}

	logger.Info("layouts loaded", zap.Int("count", len(layouts)))
	return layouts, nil
}

// Validate reports every structural problem in the layout at once.
func (l *Layout) Validate() error {
	var err error
	if len(l.Size) != 2 {
		err = multierr.Append(err, fmt.Errorf("size needs 2 values, got %d", len(l.Size)))
	} else if !(l.Size[0] > 0 && l.Size[1] > 0) {
		err = multierr.Append(err, fmt.Errorf("size must be positive, got %v", l.Size))
	}
	if len(l.Start) != 2 {
		err = multierr.Append(err, fmt.Errorf("start needs 2 values, got %d", len(l.Start)))
	}
	if len(l.Goal) != 2 {
		err = multierr.Append(err, fmt.Errorf("goal needs 2 values, got %d", len(l.Goal)))
	}
	for i, o := range l.Static {
		err = multierr.Append(err, o.validate(fmt.Sprintf("static[%d]", i), false))
	}
	for i, o := range l.Dynamic {
		err = multierr.Append(err, o.validate(fmt.Sprintf("dynamic[%d]", i), true))
	}
	if err != nil {
		return multierr.Append(errors.WithStack(ErrInvalidLayout), err)
	}
	return nil
}

func (o ObstacleSpec) validate(where string, dynamic bool) error {
	var err error
	if _, shapeErr := geometry.ParseShape(o.Shape, o.Args...); shapeErr != nil {
		err = multierr.Append(err, errors.Wrap(shapeErr, where))
	}
	if len(o.Anchor) != 2 {
		err = multierr.Append(err, fmt.Errorf("%s: anchor needs 2 values, got %d", where, len(o.Anchor)))
	}
	if dynamic && len(o.Velocity) != 2 {
		err = multierr.Append(err, fmt.Errorf("%s: velocity needs 2 values, got %d", where, len(o.Velocity)))
	}
	return err
}

// Obstacles converts the layout's obstacle lists.
func (l *Layout) Obstacles() (static, dynamic []*obstacle.Obstacle, err error) {
	for _, spec := range l.Static {
		shape, err := geometry.ParseShape(spec.Shape, spec.Args...)
		if err != nil {
			return nil, nil, err
		}
		static = append(static, obstacle.NewStatic(shape, geometry.FromRectangular(spec.Anchor...)))
	}
	for _, spec := range l.Dynamic {
		shape, err := geometry.ParseShape(spec.Shape, spec.Args...)
		if err != nil {
			return nil, nil, err
		}
		o, err := obstacle.NewDynamic(shape,
			geometry.FromRectangular(spec.Anchor...), geometry.FromRectangular(spec.Velocity...))
		if err != nil {
			return nil, nil, err
		}
		dynamic = append(dynamic, o)
	}
	return static, dynamic, nil
}

// Build validates the layout and constructs its workspace.
func (l *Layout) Build(logger *zap.Logger) (*Workspace, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	static, dynamic, err := l.Obstacles()
	if err != nil {
		return nil, err
	}
	ws, err := New(Config{
		Width:   l.Size[0],
		Height:  l.Size[1],
		Start:   geometry.FromRectangular(l.Start...),
		Goal:    geometry.FromRectangular(l.Goal...),
		Static:  static,
		Dynamic: dynamic,
		Logger:  logger,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "building layout %q", l.Name)
	}
	return ws, nil
}
