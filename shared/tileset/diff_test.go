package tileset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffDocumentsIgnoresLayout(t *testing.T) {
	a := `<tileset name="t" tilewidth="16"><tile id="1"><image source="a.png" width="16"/></tile><tile id="2"/></tileset>`
	b := `<?xml version="1.0"?>
<tileset tilewidth="16.0" name="t">
 <tile id="2"></tile>
 <tile id="1">
  <image width="16" source="a.png"></image>
 </tile>
</tileset>`
	assert.NoError(t, DiffDocuments([]byte(a), []byte(b)))
}

func TestDiffDocumentsReportsLoss(t *testing.T) {
	base := `<tileset name="t"><!-- keep --><tile id="1" probability="0.5"><image source="a.png"/><animation><frame tileid="1"/></animation></tile><property name="d">text</property></tileset>`

	cases := map[string]struct {
		other string
		want  string
	}{
		"attribute_dropped": {
			other: `<tileset name="t"><!-- keep --><tile id="1"><image source="a.png"/><animation><frame tileid="1"/></animation></tile><property name="d">text</property></tileset>`,
			want:  "attribute probability dropped",
		},
		"attribute_changed": {
			other: `<tileset name="t"><!-- keep --><tile id="1" probability="0.25"><image source="a.png"/><animation><frame tileid="1"/></animation></tile><property name="d">text</property></tileset>`,
			want:  "attribute probability changed",
		},
		"element_dropped": {
			other: `<tileset name="t"><!-- keep --><tile id="1" probability="0.5"><image source="a.png"/></tile><property name="d">text</property></tileset>`,
			want:  "element animation dropped",
		},
		"comment_dropped": {
			other: `<tileset name="t"><tile id="1" probability="0.5"><image source="a.png"/><animation><frame tileid="1"/></animation></tile><property name="d">text</property></tileset>`,
			want:  "element #comment dropped",
		},
		"text_changed": {
			other: `<tileset name="t"><!-- keep --><tile id="1" probability="0.5"><image source="a.png"/><animation><frame tileid="1"/></animation></tile><property name="d"></property></tileset>`,
			want:  "text changed",
		},
		"element_added": {
			other: `<tileset name="t"><!-- keep --><tile id="1" probability="0.5"><image source="a.png"/><animation><frame tileid="1"/></animation></tile><property name="d">text</property><grid/></tileset>`,
			want:  "element grid added",
		},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			err := DiffDocuments([]byte(base), []byte(c.other))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDataLoss))
			assert.Contains(t, err.Error(), c.want)
		})
	}
}

func TestDiffDocumentsMalformed(t *testing.T) {
	err := DiffDocuments([]byte(`<tileset>`), []byte(`<tileset/>`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDataLoss))
}
