package tileset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Class is the gameplay classification derived from a tile's Type property.
type Class string

const (
	// ClassNeutral is assigned to tiles without a Type property.
	ClassNeutral Class = "neutral"
	// ClassUnknown is assigned to unrecognized Type values under PolicyDefault.
	ClassUnknown Class = "unknown"

	ClassCollectible Class = "collectible"
	ClassInteractive Class = "interactive"
)

// DefaultTypeProperty is the property name read by NewClassifier.
const DefaultTypeProperty = "Type"

// TypePolicy decides what happens to Type values missing from the class table.
type TypePolicy int

const (
	PolicyDefault TypePolicy = iota
	PolicyStrict
)

func (p TypePolicy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "default"
}

// ParseTypePolicy accepts "default" or "strict".
func ParseTypePolicy(s string) (TypePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return PolicyDefault, nil
	case "strict":
		return PolicyStrict, nil
	}
	return PolicyDefault, fmt.Errorf("unknown type policy %q", s)
}

// DefaultClasses maps the Type values used by the platformer tileset.
func DefaultClasses() map[int]Class {
	return map[int]Class{
		1: ClassCollectible,
		2: ClassInteractive,
	}
}

// Classifier maps tiles to classes through an integer property.
type Classifier struct {
	Property string
	Classes  map[int]Class
	Policy   TypePolicy
}

// NewClassifier returns a classifier reading DefaultTypeProperty. A nil
// table means DefaultClasses.
func NewClassifier(classes map[int]Class, policy TypePolicy) *Classifier {
	if classes == nil {
		classes = DefaultClasses()
	}
	return &Classifier{
		Property: DefaultTypeProperty,
		Classes:  classes,
		Policy:   policy,
	}
}

// Classify returns the tile's class. Under PolicyStrict an unrecognized or
// non-integer value returns *UnknownTypeError.
func (c *Classifier) Classify(t *Tile) (Class, error) {
	prop, ok := t.Properties.Get(c.Property)
	if !ok {
		return ClassNeutral, nil
	}

	if v, err := prop.Int(); err == nil {
		if class, ok := c.Classes[v]; ok {
			return class, nil
		}
	}

	if c.Policy == PolicyStrict {
		return ClassUnknown, &UnknownTypeError{TileID: t.ID, Property: c.Property, Value: prop.Value}
	}
	return ClassUnknown, nil
}

// ClassifyAll indexes tile ids by class, ids ascending within each class.
// Every strict-mode failure is returned joined; the index still holds the
// tiles that did classify.
func (c *Classifier) ClassifyAll(ts *Tileset) (map[Class][]uint32, error) {
	index := make(map[Class][]uint32)
	var errs []error
	for _, id := range ts.IDs() {
		t, _ := ts.Tile(id)
		class, err := c.Classify(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		index[class] = append(index[class], id)
	}
	return index, errors.Join(errs...)
}

// SortedClasses returns the class names of an index in sorted order.
func SortedClasses(index map[Class][]uint32) []Class {
	out := make([]Class, 0, len(index))
	for c := range index {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
