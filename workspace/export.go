package workspace

import (
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"rrt-planner/geometry"
	"rrt-planner/obstacle"
)

// FeatureCollection renders the current state as GeoJSON: obstacles, tree edges,
// the start and goal points and, when one exists, the path.
func (ws *Workspace) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for i, o := range ws.static {
		f := obstacleFeature(o)
		f.Properties["kind"] = "static"
		f.Properties["wall"] = i < 4
		fc.Append(f)
	}
	for _, o := range ws.dynamic {
		f := obstacleFeature(o)
		f.Properties["kind"] = "dynamic"
		f.Properties["velocity"] = o.Velocity().Components()
		fc.Append(f)
	}

	edges := make(orb.MultiLineString, 0, len(ws.nodes))
	for _, n := range ws.nodes {
		if n.parent == NoParent {
			continue
		}
		p := ws.nodes[n.parent].position
		edges = append(edges, orb.LineString{toPoint(p), toPoint(n.position)})
	}
	tree := geojson.NewFeature(edges)
	tree.Properties["kind"] = "tree"
	tree.Properties["nodes"] = len(ws.nodes)
	fc.Append(tree)

	start := geojson.NewFeature(toPoint(ws.start))
	start.Properties["kind"] = "start"
	fc.Append(start)
	goal := geojson.NewFeature(toPoint(ws.goal))
	goal.Properties["kind"] = "goal"
	fc.Append(goal)

	if ws.HasPath() {
		path := geojson.NewFeature(ws.PathLineString())
		path.Properties["kind"] = "path"
		path.Properties["length"] = ws.PathLength()
		path.Properties["cost"] = ws.nodes[ws.goalID].cost
		fc.Append(path)
	}
	return fc
}

// SaveGeoJSON writes FeatureCollection to filename.
func (ws *Workspace) SaveGeoJSON(filename string) error {
	data, err := ws.FeatureCollection().MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encoding GeoJSON")
	}
	return errors.Wrapf(os.WriteFile(filename, data, 0644), "writing %s", filename)
}

func obstacleFeature(o *obstacle.Obstacle) *geojson.Feature {
	var f *geojson.Feature
	switch o.Shape.Kind {
	case geometry.Circle:
		f = geojson.NewFeature(toPoint(o.Anchor))
		f.Properties["radius"] = o.Shape.Radius
	default:
		x, y := o.Anchor.X(), o.Anchor.Y()
		w, h := o.Shape.Width, o.Shape.Height
		ring := orb.Ring{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}, {x, y}}
		f = geojson.NewFeature(orb.Polygon{ring})
	}
	f.Properties["shape"] = o.Shape.Kind.String()
	return f
}

func toPoint(v geometry.Vector) orb.Point {
	return orb.Point{v.X(), v.Y()}
}
