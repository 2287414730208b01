package template

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML_Escapes(t *testing.T) {
	r := NewRenderer()
	out, err := r.RenderHTML(`<p>Hello {{ .Name }}</p>`, map[string]any{"Name": "<b>Ada</b>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello &lt;b&gt;Ada&lt;/b&gt;</p>", out)
}

func TestRenderText_DoesNotEscape(t *testing.T) {
	r := NewRenderer()
	out, err := r.RenderText(`Hello {{ .Name }}`, map[string]any{"Name": "<b>Ada</b>"})
	require.NoError(t, err)
	assert.Equal(t, "Hello <b>Ada</b>", out)
}

func TestSprigFunctionsAvailable(t *testing.T) {
	r := NewRenderer()
	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"upper function", `{{ .name | upper }}`, "WORLD"},
		{"title function", `{{ "acme tools" | title }}`, "Acme Tools"},
		{"trim function", `{{ "  hello  " | trim }}`, "hello"},
		{"default function", `{{ .missing | default "fallback" }}`, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.RenderText(tt.template, map[string]any{"name": "world"})
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestCustomFuncs(t *testing.T) {
	r := NewRenderer()
	data := map[string]any{
		"Price": decimal.RequireFromString("19.5"),
		"When":  time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC),
	}
	out, err := r.RenderHTML(`{{ money .Price }} until {{ humanDate .When }}`, data)
	require.NoError(t, err)
	assert.Equal(t, "19.50 until March 7, 2026", out)
}

func TestRendererCachesParsedTemplates(t *testing.T) {
	r := NewRenderer()
	_, err := r.RenderText(`{{ . }}`, 1)
	require.NoError(t, err)
	_, err = r.RenderText(`{{ . }}`, 2)
	require.NoError(t, err)
	assert.Len(t, r.text, 1)

	_, err = r.RenderText(`{{ .Broken `, nil)
	assert.Error(t, err)
	assert.Equal(t, generateTemplateName("a"), generateTemplateName("a"))
	assert.NotEqual(t, generateTemplateName("a"), generateTemplateName("b"))
}
