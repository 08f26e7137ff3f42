package planner

import (
	"strings"

	"github.com/pkg/errors"
)

// Algorithm selects one of the RRT variants.
type Algorithm uint8

const (
	// RRT grows the tree toward uniform samples and stops at the first path.
	RRT Algorithm = iota + 1
	// RRTStar adds choose-parent and neighbor rewiring.
	RRTStar
	// QRRTStar widens the rewire set to the ancestors of every neighbor.
	QRRTStar
	// DTRRTStar samples around a reference path and re-searches the ancestor chain for a cheaper parent.
	DTRRTStar
	// LazyDTRRTStar defers the ancestor re-search until a path exists and then repeats it along the path.
	LazyDTRRTStar
)

var algorithmNames = map[Algorithm]string{
	RRT:           "rrt",
	RRTStar:       "rrt*",
	QRRTStar:      "q-rrt*",
	DTRRTStar:     "dt-rrt*",
	LazyDTRRTStar: "lazy-dt-rrt*",
}

// Algorithms lists every variant in declaration order.
func Algorithms() []Algorithm {
	return []Algorithm{RRT, RRTStar, QRRTStar, DTRRTStar, LazyDTRRTStar}
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAlgorithm accepts names like "rrt*", "rrt-star", "Q_RRT_STAR" or "lazy-dt-rrt*".
func ParseAlgorithm(name string) (Algorithm, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "-", "star", "*").Replace(key)
	key = strings.ReplaceAll(key, "-*", "*")
	for alg, canonical := range algorithmNames {
		if key == canonical || key == strings.ReplaceAll(canonical, "-", "") {
			return alg, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownAlgorithm, "%q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if _, ok := algorithmNames[a]; !ok {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "%d", uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// usesReferencePath reports whether the variant samples around a seed path.
func (a Algorithm) usesReferencePath() bool {
	return a == DTRRTStar || a == LazyDTRRTStar
}
