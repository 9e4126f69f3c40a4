// Package uiauto implements coordinate-table UI automation: named screen
// elements are resolved through a static JSON map of absolute pixel
// coordinates and driven through a pointer Driver.
//
// Coordinates are absolute screen pixels; they change if windows move or
// display scaling changes.
package uiauto

import (
	"encoding/json"
	"fmt"
	"os"
)

// Point is an absolute screen position.
type Point struct {
	X int
	Y int
}

// Coords maps element names to screen positions.
type Coords map[string]Point

// LoadCoords reads and validates the coordinate map file. Every entry must
// be an object with numeric "x" and "y" fields.
func LoadCoords(path string) (Coords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("coordinate map not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read coordinate map %s: %w", path, err)
	}

	var raw map[string]map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("coordinate map %s must be a JSON object {name: {x:..., y:...}}: %w", path, err)
	}

	coords := make(Coords, len(raw))
	for name, xy := range raw {
		x, okX := xy["x"]
		y, okY := xy["y"]
		if xy == nil || !okX || !okY || x == nil || y == nil {
			return nil, fmt.Errorf("invalid mapping for %q: expected {\"x\": number, \"y\": number}", name)
		}
		coords[name] = Point{X: int(*x), Y: int(*y)}
	}
	return coords, nil
}

// Lookup resolves an element name to its screen position.
func (c Coords) Lookup(name string) (Point, error) {
	p, ok := c[name]
	if !ok {
		return Point{}, fmt.Errorf("unknown element %q: add it to the coordinate map", name)
	}
	return p, nil
}
