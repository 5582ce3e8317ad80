package guidelines

import (
	"bytes"
	"fmt"
	"sync"

	"healthmate/internal/catalog"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const htmlMediaType = "text/html"

// Section is a guideline section rendered for display.
type Section struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	HTML   string `json:"html"`
}

// Renderer turns markdown section bodies into minified HTML. Results are
// cached by body, so a reloaded catalog only renders changed sections.
type Renderer struct {
	md goldmark.Markdown
	m  *minify.M

	mu    sync.Mutex
	cache map[string]string
}

func NewRenderer() *Renderer {
	m := minify.New()
	m.AddFunc(htmlMediaType, html.Minify)
	return &Renderer{
		md:    goldmark.New(goldmark.WithExtensions(extension.Table)),
		m:     m,
		cache: map[string]string{},
	}
}

func (r *Renderer) Render(markdown string) (string, error) {
	r.mu.Lock()
	if out, ok := r.cache[markdown]; ok {
		r.mu.Unlock()
		return out, nil
	}
	r.mu.Unlock()

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	out, err := r.m.String(htmlMediaType, buf.String())
	if err != nil {
		return "", fmt.Errorf("minify html: %w", err)
	}

	r.mu.Lock()
	r.cache[markdown] = out
	r.mu.Unlock()
	return out, nil
}

// Sections renders every catalog section, numbered from 1 in catalog order.
func (r *Renderer) Sections(sections []catalog.GuidelineSection) ([]Section, error) {
	out := make([]Section, 0, len(sections))
	for i, s := range sections {
		h, err := r.Render(s.Body)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", s.ID, err)
		}
		out = append(out, Section{ID: s.ID, Number: i + 1, Title: s.Title, HTML: h})
	}
	return out, nil
}
