package tileset

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ErrDataLoss is wrapped by DiffDocuments when the second document lacks or
// changes something the first one has.
var ErrDataLoss = errors.New("documents differ")

// node is a schema-free view of an element.
type node struct {
	name     string
	attrs    map[string]string
	text     string
	children []*node
	key      string
}

// DiffDocuments compares two XML documents element by element, ignoring
// attribute order, sibling order, indentation and the number format of
// numeric attributes. Comments count as content. It returns nil when both
// carry the same data.
func DiffDocuments(a, b []byte) error {
	na, err := parseNode(a)
	if err != nil {
		return fmt.Errorf("first document: %w", err)
	}
	nb, err := parseNode(b)
	if err != nil {
		return fmt.Errorf("second document: %w", err)
	}
	if err := diffNode(na.name, na, nb); err != nil {
		return fmt.Errorf("%w: %w", ErrDataLoss, err)
	}
	return nil
}

func parseNode(data []byte) (*node, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	root := &node{}
	stack := []*node{root}
	text := [][]byte{nil}

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: qualified(t.Name), attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[qualified(a.Name)] = a.Value
			}
			top.children = append(top.children, n)
			stack = append(stack, n)
			text = append(text, nil)
		case xml.EndElement:
			top.text = string(text[len(text)-1])
			if strings.TrimSpace(top.text) == "" {
				top.text = ""
			}
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			text[len(text)-1] = append(text[len(text)-1], t...)
		case xml.Comment:
			top.children = append(top.children, &node{name: "#comment", text: string(t)})
		}
	}

	if len(root.children) != 1 {
		return nil, fmt.Errorf("want one root element, found %d", len(root.children))
	}
	setKeys(root.children[0])
	return root.children[0], nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// setKeys computes an order-independent fingerprint of every subtree.
func setKeys(n *node) {
	var b strings.Builder
	b.WriteString(n.name)
	for _, k := range sortedKeys(n.attrs) {
		fmt.Fprintf(&b, " %s=%q", k, canonicalValue(n.attrs[k]))
	}
	fmt.Fprintf(&b, " text=%q", n.text)

	keys := make([]string, 0, len(n.children))
	for _, c := range n.children {
		setKeys(c)
		keys = append(keys, c.key)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("(" + k + ")")
	}
	n.key = b.String()
}

func canonicalValue(v string) string {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func diffNode(path string, a, b *node) error {
	if a.key == b.key {
		return nil
	}
	for _, k := range sortedKeys(a.attrs) {
		bv, ok := b.attrs[k]
		if !ok {
			return fmt.Errorf("%s: attribute %s dropped", path, k)
		}
		if canonicalValue(a.attrs[k]) != canonicalValue(bv) {
			return fmt.Errorf("%s: attribute %s changed from %q to %q", path, k, a.attrs[k], bv)
		}
	}
	for _, k := range sortedKeys(b.attrs) {
		if _, ok := a.attrs[k]; !ok {
			return fmt.Errorf("%s: attribute %s added", path, k)
		}
	}
	if a.text != b.text {
		return fmt.Errorf("%s: text changed", path)
	}

	// Match identical subtrees first, then pair what is left by label.
	unmatched := make(map[string][]*node)
	for _, c := range b.children {
		unmatched[c.key] = append(unmatched[c.key], c)
	}
	var onlyA []*node
	for _, c := range a.children {
		if m := unmatched[c.key]; len(m) > 0 {
			unmatched[c.key] = m[1:]
			continue
		}
		onlyA = append(onlyA, c)
	}
	var onlyB []*node
	for _, c := range b.children {
		if m := unmatched[c.key]; len(m) > 0 && m[0] == c {
			unmatched[c.key] = m[1:]
			onlyB = append(onlyB, c)
		}
	}

	for _, ca := range onlyA {
		for _, cb := range onlyB {
			if label(ca) == label(cb) {
				return diffNode(path+"/"+label(ca), ca, cb)
			}
		}
		return fmt.Errorf("%s: element %s dropped", path, label(ca))
	}
	if len(onlyB) > 0 {
		return fmt.Errorf("%s: element %s added", path, label(onlyB[0]))
	}
	return nil
}

// label names an element for messages and for pairing siblings.
func label(n *node) string {
	for _, k := range []string{"id", "name"} {
		if v, ok := n.attrs[k]; ok {
			return fmt.Sprintf("%s[%s=%s]", n.name, k, v)
		}
	}
	return n.name
}
