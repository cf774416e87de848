package tileset

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Property is a typed key/value annotation. An empty Type means string.
type Property struct {
	Name         string `json:"name" yaml:"name" cbor:"name"`
	Type         string `json:"type,omitempty" yaml:"type,omitempty" cbor:"type,omitempty"`
	PropertyType string `json:"propertyType,omitempty" yaml:"propertyType,omitempty" cbor:"propertyType,omitempty"`
	Value        string `json:"value" yaml:"value" cbor:"value"`

	// Members of a class-typed property.
	Properties Properties `json:"properties,omitempty" yaml:"properties,omitempty" cbor:"properties,omitempty"`

	// TextValue is set when the value is element text rather than the value
	// attribute, Tiled's form for multi-line strings.
	TextValue bool `json:"textValue,omitempty" yaml:"textValue,omitempty" cbor:"textValue,omitempty"`

	Attrs []xml.Attr `json:"attrs,omitempty" yaml:"attrs,omitempty" cbor:"attrs,omitempty"`
}

type rawProperty struct {
	Name         string     `xml:"name,attr"`
	Type         string     `xml:"type,attr"`
	PropertyType string     `xml:"propertytype,attr"`
	Value        *string    `xml:"value,attr"`
	Text         string     `xml:",chardata"`
	Properties   Properties `xml:"properties>property"`
	Attrs        []xml.Attr `xml:",any,attr"`
}

func (p *Property) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw rawProperty
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	*p = Property{
		Name:         raw.Name,
		Type:         raw.Type,
		PropertyType: raw.PropertyType,
		Properties:   raw.Properties,
		Attrs:        raw.Attrs,
	}
	switch {
	case raw.Value != nil:
		p.Value = *raw.Value
	case len(raw.Properties) == 0 && strings.TrimSpace(raw.Text) != "":
		p.Value = raw.Text
		p.TextValue = true
	}
	return nil
}

// MarshalXML writes multi-line values as element text like Tiled does.
func (p Property) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = []xml.Attr{attr("name", p.Name)}
	if p.Type != "" {
		start.Attr = append(start.Attr, attr("type", p.Type))
	}
	if p.PropertyType != "" {
		start.Attr = append(start.Attr, attr("propertytype", p.PropertyType))
	}
	text := p.TextValue || strings.Contains(p.Value, "\n")
	if !text && (p.Value != "" || len(p.Properties) == 0) {
		start.Attr = append(start.Attr, attr("value", p.Value))
	}
	start.Attr = append(start.Attr, p.Attrs...)

	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if text {
		if err := e.EncodeToken(xml.CharData(p.Value)); err != nil {
			return err
		}
	}
	if err := encodeProperties(e, p.Properties); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// encodeProperties writes a <properties> block, nothing when p is empty.
func encodeProperties(e *xml.Encoder, p Properties) error {
	if len(p) == 0 {
		return nil
	}
	wrapper := xml.StartElement{Name: xml.Name{Local: "properties"}}
	if err := e.EncodeToken(wrapper); err != nil {
		return err
	}
	for _, prop := range p {
		if err := e.EncodeElement(prop, xml.StartElement{Name: xml.Name{Local: "property"}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(wrapper.End())
}

// Properties is the ordered property list of a tile.
type Properties []Property

// Get returns the first property with the given name.
func (p Properties) Get(name string) (Property, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop, true
		}
	}
	return Property{}, false
}

// String returns the raw value of name, or "" when absent.
func (p Properties) String(name string) string {
	prop, _ := p.Get(name)
	return prop.Value
}

// Int returns the integer value of name. ok is false when the property is
// absent; err is set when it is present but does not parse.
func (p Properties) Int(name string) (v int, ok bool, err error) {
	prop, ok := p.Get(name)
	if !ok {
		return 0, false, nil
	}
	v, err = prop.Int()
	return v, true, err
}

// Int parses the value as a decimal integer.
func (p Property) Int() (int, error) {
	v, err := strconv.Atoi(p.Value)
	if err != nil {
		return 0, fmt.Errorf("property %q: %w", p.Name, err)
	}
	return v, nil
}

// Float parses the value as a float64.
func (p Property) Float() (float64, error) {
	v, err := strconv.ParseFloat(p.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("property %q: %w", p.Name, err)
	}
	return v, nil
}

// Bool parses the value as written by Tiled ("true"/"false").
func (p Property) Bool() (bool, error) {
	v, err := strconv.ParseBool(p.Value)
	if err != nil {
		return false, fmt.Errorf("property %q: %w", p.Name, err)
	}
	return v, nil
}

// check verifies that the value parses according to the declared type.
// Types without a textual constraint (string, file, color, object, class)
// always pass.
func (p Property) check() error {
	var err error
	switch p.Type {
	case "int":
		_, err = p.Int()
	case "float":
		_, err = p.Float()
	case "bool":
		_, err = p.Bool()
	}
	return err
}
