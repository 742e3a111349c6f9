package damsdk

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformValidate(t *testing.T) {
	valid := []Transform{
		{},
		{Width: 800, Height: 600},
		{Fit: "cover", Format: "webp", Quality: 80},
		{Fit: "Inside", Format: "JPEG"},
		{Blur: 5, Grayscale: true, Rotate: 270},
	}
	for _, tr := range valid {
		assert.NoError(t, tr.Validate(), "%+v", tr)
	}

	invalid := []Transform{
		{Fit: "stretch"},
		{Format: "bmp"},
		{Quality: 101},
		{Quality: -1},
	}
	for _, tr := range invalid {
		assert.ErrorIs(t, tr.Validate(), ErrValidation, "%+v", tr)
	}
}

func TestTransformQuery(t *testing.T) {
	tr := Transform{
		Width:     320,
		Height:    240,
		Fit:       "contain",
		Format:    "webp",
		Quality:   75,
		Blur:      2,
		Grayscale: true,
		Rotate:    90,
	}

	want := url.Values{
		"w":         {"320"},
		"h":         {"240"},
		"fit":       {"contain"},
		"format":    {"webp"},
		"quality":   {"75"},
		"blur":      {"2"},
		"grayscale": {"true"},
		"rotate":    {"90"},
	}
	assert.Equal(t, want, tr.Query())

	assert.Empty(t, (&Transform{}).Query())
}

func TestFileURL(t *testing.T) {
	c, err := New("https://dam.example.com", "id", "secret")
	require.NoError(t, err)

	assert.Equal(t, "https://dam.example.com/api/transform/abc-123", c.FileURL("abc-123", nil))
	assert.Equal(t, "https://dam.example.com/api/transform/abc-123", c.FileURL("abc-123", &Transform{}))

	got := c.FileURL("abc-123", &Transform{Width: 640, Format: "webp"})
	assert.Equal(t, "https://dam.example.com/api/transform/abc-123?format=webp&w=640", got)
}

func TestThumbnailURL(t *testing.T) {
	c, err := New("https://dam.example.com", "id", "secret")
	require.NoError(t, err)

	assert.Equal(t, "https://dam.example.com/api/transform/abc/thumbnail?size=150", c.ThumbnailURL("abc", 150))
	assert.Equal(t, "https://dam.example.com/api/transform/abc/thumbnail?size=200", c.ThumbnailURL("abc", 0))
}
