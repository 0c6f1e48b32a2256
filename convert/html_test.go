package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfind/docfind/ingest"
)

func TestHTMLConvertsToMarkdown(t *testing.T) {
	path := writeFile(t, t.TempDir(), "page.html", []byte(`
		<html><body>
		<h1>Release Notes</h1>
		<p>Fixed <strong>everything</strong>.</p>
		<ul><li>one</li><li>two</li></ul>
		</body></html>`))

	res := NewHTML().Handle(path, "html")
	require.True(t, res.Success, res.Err)
	assert.Equal(t, ingest.ConversionHTMLToMD, res.Type)
	assert.Contains(t, res.Content, "# Release Notes")
	assert.Contains(t, res.Content, "**everything**")
	assert.Contains(t, res.Content, "- one")
}

func TestHTMLTablesSurvive(t *testing.T) {
	path := writeFile(t, t.TempDir(), "table.html", []byte(`
		<table><tr><th>Name</th><th>Port</th></tr>
		<tr><td>api</td><td>8090</td></tr></table>`))

	res := NewHTML().Handle(path, "html")
	require.True(t, res.Success, res.Err)
	assert.Contains(t, res.Content, "| Name | Port |")
	assert.Contains(t, res.Content, "| api | 8090 |")
}

func TestHTMLMissingFile(t *testing.T) {
	res := NewHTML().Handle("/nonexistent/page.html", "html")
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "page.html")
}
