package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfind/docfind/config"
)

func TestNewCaptionerDisabled(t *testing.T) {
	c, err := NewCaptioner(config.CaptionConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewCaptionerUnknownProvider(t *testing.T) {
	_, err := NewCaptioner(config.CaptionConfig{Provider: "bard"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bard"`)
}

func TestNewCaptionerOllama(t *testing.T) {
	c, err := NewCaptioner(config.CaptionConfig{
		Provider: "ollama",
		Model:    "llava",
		BaseURL:  "http://localhost:11434",
	})
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestImageHandlerWithoutCaptioner(t *testing.T) {
	handler := NewImageHandler(nil)

	res := handler("/photos/cat.png", "png")
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "caption.provider")
	assert.Contains(t, res.Err, "cat.png")
	assert.True(t, res.Valid())
}

func TestImageMIME(t *testing.T) {
	cases := map[string]string{
		"/a/photo.JPG": "image/jpeg",
		"/a/anim.gif":  "image/gif",
		"/a/pic.webp":  "image/webp",
		"/a/shot.png":  "image/png",
		"/a/unknown":   "image/png",
	}
	for path, want := range cases {
		assert.Equal(t, want, imageMIME(path), path)
	}
}
