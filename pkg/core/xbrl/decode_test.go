package xbrl

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tidyxbrl/pkg/common/errors"
)

func TestDecode_KeepsPrefixesAndAttributes(t *testing.T) {
	root := mustDecode(t, `<xbrl xmlns="http://www.xbrl.org/2003/instance" xmlns:us-gaap="http://fasb.org/us-gaap/2020">
  <us-gaap:Assets contextRef="C1" xsi:nil="false" decimals="-6">10</us-gaap:Assets>
</xbrl>`)

	assert.Equal(t, "xbrl", root.Name)
	assert.False(t, root.Qualified())
	require.Len(t, root.Children, 1)

	fact := root.Children[0]
	assert.Equal(t, "us-gaap", fact.Prefix)
	assert.Equal(t, "Assets", fact.Name)
	assert.Equal(t, "us-gaap:Assets", fact.QName())
	assert.Equal(t, "10", fact.TextContent())

	ref, ok := fact.Attr("contextRef")
	assert.True(t, ok)
	assert.Equal(t, "C1", ref)

	_, ok = fact.Attr("nil")
	assert.False(t, ok, "prefixed attributes are not returned by Attr")
	require.Len(t, fact.Attrs, 3)
	assert.Equal(t, "xsi:nil", fact.Attrs[1].QName())
}

func TestDecode_MixedContentKeepsTextOrder(t *testing.T) {
	root := mustDecode(t, `<p>one <b>two</b> three <i>four</i></p>`)
	assert.Equal(t, "one two three four", root.TextContent())
}

func TestDecode_Lenient(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		text string
	}{
		{"html entity", `<a>caf&eacute;&amp;&nbsp;bar</a>`, "caf\u00e9&\u00a0bar"},
		{"unclosed inner element", `<a><b>x<br>y</b></a>`, "xy"},
		{"stray end tag", `<a>x</c></a>`, "x"},
		{"unclosed root", `<a><b>x</b>`, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustDecode(t, tt.doc)
			assert.Equal(t, "a", root.Name)
			assert.Equal(t, tt.text, root.TextContent())
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"plain text", `just some words`},
		{"bare less-than", `<p>1 < 2</p>`},
		{"two roots", `<a/><b/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrParse), "got %v", err)
		})
	}
}

func TestDecode_Charset(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><a>Soci\xe9t\xe9</a>")

	root, err := Decode(bytes.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Société", root.TextContent())
}

func TestDecode_WithUnqualified(t *testing.T) {
	root := mustDecode(t, `<xbrli:xbrl><xbrli:context id="c"/><dei:Name contextRef="c">A</dei:Name></xbrli:xbrl>`,
		WithUnqualified("xbrli"))

	assert.Equal(t, "", root.Prefix)
	assert.Equal(t, "", root.Children[0].Prefix)
	assert.Equal(t, "dei", root.Children[1].Prefix)
}

func TestNode_Find(t *testing.T) {
	root := mustDecode(t, `<r><a><x>1</x></a><b><c><x>2</x></c></b><x>3</x></r>`)

	found := root.Find("x", 0)
	require.NotNil(t, found)
	assert.Equal(t, "1", found.TextContent(), "first match in document order")

	assert.Nil(t, root.Find("c", 1))
	assert.NotNil(t, root.Find("c", 2))
	assert.Nil(t, root.Find("missing", 0))
}

func TestNode_Clone(t *testing.T) {
	root := mustDecode(t, `<r a="1"><b>x</b>tail</r>`)
	cp := root.Clone()
	require.Equal(t, root, cp)

	cp.Children[0].Name = "changed"
	cp.Attrs[0].Value = "2"
	assert.Equal(t, "b", root.Children[0].Name)
	v, _ := root.Attr("a")
	assert.Equal(t, "1", v)
}
