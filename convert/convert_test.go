package convert

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfind/docfind/config"
	"github.com/docfind/docfind/ingest"
)

func defaultIngestConfig(t *testing.T) config.IngestConfig {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	var cfg config.Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg.Ingest
}

func TestRegisterDefaultsCoversAllFamilies(t *testing.T) {
	cfg := defaultIngestConfig(t)
	reg := ingest.NewRegistry(nil)
	require.NoError(t, RegisterDefaults(reg, cfg, nil, nil))

	for _, token := range []string{"md", "txt", "go", "html", "docx", "drawio", "xmind", "mp4", "png"} {
		_, ok := reg.Resolve(token)
		assert.True(t, ok, "no handler for %q", token)
	}

	_, ok := reg.Resolve("exe")
	assert.False(t, ok)
}

func TestRegisterDefaultsRejectsOverlappingFamilies(t *testing.T) {
	cfg := defaultIngestConfig(t)
	cfg.PlainTextTypes = append(cfg.PlainTextTypes, "md") // collides with native markdown

	reg := ingest.NewRegistry(nil)
	err := RegisterDefaults(reg, cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"md"`)
}

func TestRegisterDefaultsSkipsEmptyFamilies(t *testing.T) {
	cfg := config.IngestConfig{NativeMarkdownTypes: []string{"md"}}
	reg := ingest.NewRegistry(nil)
	require.NoError(t, RegisterDefaults(reg, cfg, nil, nil))
	assert.Equal(t, []string{"md"}, reg.Types())
}
