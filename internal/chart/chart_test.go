package chart

import (
	"bytes"
	"strings"
	"testing"
	"voxeval/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func assertPNG(t *testing.T, uri string) {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, dataURIPrefix))

	data, err := Decode(uri)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestPNG_Profile(t *testing.T) {
	uri, err := NewPNG().Profile([]Bar{
		{Label: "Grammar", Value: 80},
		{Label: "Vocabulary", Value: 55.5},
		{Label: "Fluency", Value: 100},
		{Label: "Pronunciation", Value: 0},
		{Label: "Filler", Value: 120},
	})

	require.NoError(t, err)
	assertPNG(t, uri)
}

func TestPNG_Profile_Empty(t *testing.T) {
	_, err := NewPNG().Profile(nil)
	assert.Error(t, err)
}

func TestPNG_FluencyCurve(t *testing.T) {
	tests := []struct {
		name   string
		points []scoring.RatePoint
	}{
		{"series", []scoring.RatePoint{{Time: 1, WPM: 90}, {Time: 3, WPM: 150}, {Time: 5, WPM: 240}}},
		{"single point", []scoring.RatePoint{{Time: 0, WPM: 0}}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := NewPNG().FluencyCurve(tt.points)
			require.NoError(t, err)
			assertPNG(t, uri)
		})
	}
}

func TestNoop(t *testing.T) {
	var r Renderer = Noop{}

	uri, err := r.Profile([]Bar{{Label: "x", Value: 1}})
	assert.NoError(t, err)
	assert.Empty(t, uri)

	uri, err = r.FluencyCurve(nil)
	assert.NoError(t, err)
	assert.Empty(t, uri)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("data:text/plain;base64,aGk=")
	assert.Error(t, err)
}
