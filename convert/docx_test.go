package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfind/docfind/ingest"
)

const docxDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>
      <w:pPr><w:pStyle w:val="Heading1"/></w:pPr>
      <w:r><w:t>Quarterly Report</w:t></w:r>
    </w:p>
    <w:p>
      <w:r><w:t>Revenue grew in all regions.</w:t></w:r>
    </w:p>
    <w:p>
      <w:pPr><w:pStyle w:val="Heading2"/></w:pPr>
      <w:r><w:t>Details</w:t></w:r>
    </w:p>
    <w:p>
      <w:r><w:t>First half</w:t><w:br/><w:t>second half.</w:t></w:r>
    </w:p>
    <w:p><w:r><w:t>   </w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestDocxHeadingsAndParagraphs(t *testing.T) {
	path := writeZip(t, t.TempDir(), "report.docx", map[string]string{
		"word/document.xml":   docxDocumentXML,
		"[Content_Types].xml": "<Types/>",
	})

	res := Docx(path, "docx")
	require.True(t, res.Success, res.Err)
	assert.Equal(t, ingest.ConversionStructuredMD, res.Type)

	assert.Contains(t, res.Content, "# report.docx")
	assert.Contains(t, res.Content, "## Quarterly Report")
	assert.Contains(t, res.Content, "### Details")
	assert.Contains(t, res.Content, "Revenue grew in all regions.")
	assert.Contains(t, res.Content, "First half\nsecond half.")
}

func TestDocxMissingDocumentXML(t *testing.T) {
	path := writeZip(t, t.TempDir(), "odd.docx", map[string]string{
		"[Content_Types].xml": "<Types/>",
	})

	res := Docx(path, "docx")
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "word/document.xml")
}

func TestDocxNotAnArchive(t *testing.T) {
	path := writeFile(t, t.TempDir(), "legacy.docx", []byte("old binary format"))

	res := Docx(path, "docx")
	assert.False(t, res.Success)
}

func TestHeadingLevel(t *testing.T) {
	cases := map[string]int{
		"Heading1":      1,
		"heading3":      3,
		"Title":         1,
		"Subtitle":      2,
		"Titre2":        2,
		"BodyText":      0,
		"":              0,
		"Heading7":      0,
		"Heading12":     0,
	}
	for style, want := range cases {
		assert.Equal(t, want, headingLevel(style), style)
	}
}
