package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoMetadataMissingFFprobe(t *testing.T) {
	t.Setenv("FFPROBE_BIN", "/nonexistent/ffprobe")

	res := VideoMetadata("/videos/demo.mp4", "mp4")
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "ffprobe failed")
	assert.Contains(t, res.Err, "demo.mp4")
}

func TestFFprobeBinDefault(t *testing.T) {
	t.Setenv("FFPROBE_BIN", "")
	assert.Equal(t, "ffprobe", ffprobeBin())

	t.Setenv("FFPROBE_BIN", "/usr/local/bin/ffprobe")
	assert.Equal(t, "/usr/local/bin/ffprobe", ffprobeBin())
}
