package info

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
intro: Product intro
price_button: "$ Price"
back_button: "Back"
sections:
  - button: Action
    text: How it works
  - button: Composition
    text: |
      What is inside
document:
  button: Cases
  file: cases.pdf
  caption: Clinical cases
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Sections, 2)

	s, ok := c.Section("Composition")
	require.True(t, ok)
	assert.Equal(t, "What is inside\n", s.Text)

	_, ok = c.Section("Missing")
	assert.False(t, ok)
	assert.Equal(t, "cases.pdf", c.Document.File)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no intro", "price_button: p\nback_button: b\n"},
		{"duplicate", "intro: i\nprice_button: p\nback_button: b\nsections:\n  - {button: a, text: x}\n  - {button: a, text: y}\n"},
		{"document without file", "intro: i\nprice_button: p\nback_button: b\ndocument: {button: d}\n"},
		{"broken yaml", "intro: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_ShippedCatalogue(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "content.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, c.Sections)
	assert.NotEmpty(t, c.Document.File)
}
