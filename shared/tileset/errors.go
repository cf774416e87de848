package tileset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrImageCount is wrapped by ParseError when a tile does not have exactly
// one image element.
var ErrImageCount = errors.New("tile must have exactly one image")

// ErrObjectGroupCount is wrapped by ParseError when a tile has more than one
// object group.
var ErrObjectGroupCount = errors.New("tile has more than one objectgroup")

// ParseError reports a malformed or structurally invalid TSX document.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse tileset")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingResourceError reports an image source that does not resolve.
type MissingResourceError struct {
	TileID   uint32
	Source   string
	Resolved string
	Err      error
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("tile %d: image %q (resolved %q): %v", e.TileID, e.Source, e.Resolved, e.Err)
}

func (e *MissingResourceError) Unwrap() error { return e.Err }

// UnknownTypeError reports a classification property whose value is not in
// the class table.
type UnknownTypeError struct {
	TileID   uint32
	Property string
	Value    string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("tile %d: unrecognized %s value %q", e.TileID, e.Property, e.Value)
}

// ValidationError carries every error-severity issue of a report.
type ValidationError struct {
	Tileset string
	Issues  []Issue
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return fmt.Sprintf("tileset %q: validation failed", e.Tileset)
	case 1:
		return fmt.Sprintf("tileset %q: %s", e.Tileset, e.Issues[0])
	}
	return fmt.Sprintf("tileset %q: %d validation errors, first: %s", e.Tileset, len(e.Issues), e.Issues[0])
}
