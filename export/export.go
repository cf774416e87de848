// Package export writes tilesets in formats other tools consume.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	FormatTSX  Format = "tsx"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// Formats lists every supported format.
var Formats = []Format{FormatTSX, FormatJSON, FormatYAML, FormatCBOR}

// ParseFormat accepts a format name, case-insensitively. "xml" and "yml" are
// aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tsx", "xml":
		return FormatTSX, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Binary reports whether the format is not text.
func (f Format) Binary() bool { return f == FormatCBOR }

// Write encodes ts to w. The load path is not part of the output.
func Write(w io.Writer, ts *tileset.Tileset, f Format) error {
	out := *ts
	out.Path = ""

	switch f {
	case FormatTSX:
		return tileset.Encode(w, &out)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&out)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&out); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		data, err := cbor.Marshal(&out)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown format %q", f)
}

// Read decodes a tileset previously written with Write.
func Read(r io.Reader, f Format) (*tileset.Tileset, error) {
	if f == FormatTSX {
		return tileset.Decode(r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var ts tileset.Tileset
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &ts)
	case FormatYAML:
		err = yaml.Unmarshal(data, &ts)
	case FormatCBOR:
		err = cbor.Unmarshal(data, &ts)
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f, err)
	}
	return &ts, nil
}
