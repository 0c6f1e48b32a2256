package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertedStripsNUL(t *testing.T) {
	r := Converted("before\x00after\x00", ConversionTextToMD)
	assert.True(t, r.Success)
	assert.Equal(t, "beforeafter", r.Content)
	assert.True(t, r.Valid())
}

func TestConvertedEmptyContentIsValid(t *testing.T) {
	// An empty markdown file converts to an empty document
	r := Converted("", ConversionDirect)
	assert.True(t, r.Success)
	assert.True(t, r.Valid())
}

func TestFailedCarriesError(t *testing.T) {
	r := Failed("Unsupported file type: %s", "exe")
	assert.False(t, r.Success)
	assert.Equal(t, "Unsupported file type: exe", r.Err)
	assert.Empty(t, r.Type)
	assert.True(t, r.Valid())
}

func TestResultInvariant(t *testing.T) {
	cases := []struct {
		name  string
		r     Result
		valid bool
	}{
		{"zero value", Result{}, false},
		{"success without type", Result{Success: true, Content: "x"}, false},
		{"success with error", Result{Success: true, Type: ConversionDirect, Err: "boom"}, false},
		{"failure without error", Result{Success: false}, false},
		{"failure with content", Result{Success: false, Err: "boom", Content: "leftover"}, false},
		{"well-formed success", Result{Success: true, Content: "x", Type: ConversionDirect}, true},
		{"well-formed failure", Result{Success: false, Err: "boom"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.r.Valid())
		})
	}
}
