// Package template renders email bodies with sprig helpers.
package template

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	htmltemplate "html/template"
	"sync"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
)

// Renderer caches parsed templates by content
type Renderer struct {
	mu   sync.Mutex
	html map[string]*htmltemplate.Template
	text map[string]*texttemplate.Template
}

// NewRenderer creates a new template renderer
func NewRenderer() *Renderer {
	return &Renderer{
		html: make(map[string]*htmltemplate.Template),
		text: make(map[string]*texttemplate.Template),
	}
}

// generateTemplateName generates a unique name for a template based on its content
func generateTemplateName(tmpl string) string {
	hash := sha256.Sum256([]byte(tmpl))
	return fmt.Sprintf("tmpl_%s", hex.EncodeToString(hash[:8]))
}

// RenderHTML renders tmpl with contextual escaping
func (r *Renderer) RenderHTML(tmpl string, data any) (string, error) {
	name := generateTemplateName(tmpl)
	r.mu.Lock()
	t, ok := r.html[name]
	if !ok {
		var err error
		t, err = htmltemplate.New(name).Funcs(sprig.FuncMap()).Funcs(htmltemplate.FuncMap(funcs())).Parse(tmpl)
		if err != nil {
			r.mu.Unlock()
			return "", err
		}
		r.html[name] = t
	}
	r.mu.Unlock()

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderText renders tmpl without escaping, for plain text parts and subjects
func (r *Renderer) RenderText(tmpl string, data any) (string, error) {
	name := generateTemplateName(tmpl)
	r.mu.Lock()
	t, ok := r.text[name]
	if !ok {
		var err error
		t, err = texttemplate.New(name).Funcs(sprig.TxtFuncMap()).Funcs(funcs()).Parse(tmpl)
		if err != nil {
			r.mu.Unlock()
			return "", err
		}
		r.text[name] = t
	}
	r.mu.Unlock()

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
