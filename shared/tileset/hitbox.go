package tileset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rect is an axis-aligned rectangle in tile-local pixels.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"width" yaml:"width"`
	H float64 `json:"height" yaml:"height"`
}

// Insets is how far a rectangle reaches outside a bounding box on each side.
type Insets struct {
	Left, Top, Right, Bottom float64
}

// Max returns the largest of the four insets.
func (in Insets) Max() float64 {
	return math.Max(math.Max(in.Left, in.Top), math.Max(in.Right, in.Bottom))
}

// Scale multiplies position and size by f.
func (r Rect) Scale(f float64) Rect {
	return Rect{X: r.X * f, Y: r.Y * f, W: r.W * f, H: r.H * f}
}

// Offset translates the rectangle.
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Bleed measures how far r extends past [0,w]x[0,h].
func (r Rect) Bleed(w, h float64) Insets {
	return Insets{
		Left:   math.Max(0, -r.X),
		Top:    math.Max(0, -r.Y),
		Right:  math.Max(0, r.X+r.W-w),
		Bottom: math.Max(0, r.Y+r.H-h),
	}
}

// Overlaps reports whether the two rectangles share a positive area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Hitboxes returns the bounding rectangles of the tile's collision
// objects, nil when it has none.
func (t *Tile) Hitboxes() []Rect {
	if !t.HasCollision() {
		return nil
	}
	out := make([]Rect, 0, len(t.ObjectGroup.Objects))
	for _, o := range t.ObjectGroup.Objects {
		out = append(out, o.Bounds())
	}
	return out
}

// Bounds is the object's bounding rectangle. Points are zero-sized;
// polygons and polylines span their vertices, and unreadable vertex lists
// collapse to the object position.
func (o Object) Bounds() Rect {
	pts := o.shapePoints()
	if pts == nil {
		if o.Point != nil {
			return Rect{X: o.X, Y: o.Y}
		}
		return Rect{X: o.X, Y: o.Y, W: o.Width, H: o.Height}
	}

	vs, err := pts.Vertices()
	if err != nil || len(vs) == 0 {
		return Rect{X: o.X, Y: o.Y}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range vs {
		minX, maxX = math.Min(minX, v[0]), math.Max(maxX, v[0])
		minY, maxY = math.Min(minY, v[1]), math.Max(maxY, v[1])
	}
	return Rect{X: o.X + minX, Y: o.Y + minY, W: maxX - minX, H: maxY - minY}
}

func (o Object) shapePoints() *Points {
	if o.Polygon != nil {
		return o.Polygon
	}
	return o.Polyline
}

// Vertices parses the point list.
func (p *Points) Vertices() ([][2]float64, error) {
	fields := strings.Fields(p.Points)
	out := make([][2]float64, 0, len(fields))
	for _, f := range fields {
		xs, ys, ok := strings.Cut(f, ",")
		if !ok {
			return nil, fmt.Errorf("point %q: want x,y", f)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", f, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", f, err)
		}
		if !finite(x) || !finite(y) {
			return nil, fmt.Errorf("point %q is not finite", f)
		}
		out = append(out, [2]float64{x, y})
	}
	return out, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// HitboxFor returns the tile's hitboxes. Tiles without an object group get a
// single full-image rectangle when fullTile is set, matching engines that
// treat undecorated tiles as solid blocks.
func HitboxFor(t *Tile, fullTile bool) []Rect {
	if boxes := t.Hitboxes(); boxes != nil {
		return boxes
	}
	if !fullTile {
		return nil
	}
	return []Rect{{W: float64(t.Image.Width), H: float64(t.Image.Height)}}
}
