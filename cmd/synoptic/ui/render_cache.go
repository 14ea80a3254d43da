package ui

import (
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/charmbracelet/glamour"
)

// RenderCache memoizes rendered markdown by content and wrap width.
type RenderCache struct {
	mu      sync.Mutex
	entries map[uint64]string
	maxSize int
}

// NewRenderCache creates a cache holding at most maxSize entries.
func NewRenderCache(maxSize int) *RenderCache {
	return &RenderCache{entries: make(map[uint64]string), maxSize: maxSize}
}

// ComputeKey hashes the inputs with FNV-1a.
func ComputeKey(content string, width int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strconv.Itoa(width)))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return h.Sum64()
}

// GetOrCompute returns the cached value or computes and stores it. A full
// cache is emptied before storing.
func (rc *RenderCache) GetOrCompute(key uint64, compute func() string) string {
	rc.mu.Lock()
	if v, ok := rc.entries[key]; ok {
		rc.mu.Unlock()
		return v
	}
	rc.mu.Unlock()

	v := compute()

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.entries) >= rc.maxSize {
		rc.entries = make(map[uint64]string)
	}
	rc.entries[key] = v
	return v
}

// Len returns the number of cached entries.
func (rc *RenderCache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.entries)
}

// Markdown renders SOAP notes, prognosis reports, and chat replies.
type Markdown struct {
	dark     bool
	width    int
	renderer *glamour.TermRenderer
	cache    *RenderCache
}

// NewMarkdown creates a renderer for the theme wrapping at width.
func NewMarkdown(theme Theme, width int) *Markdown {
	m := &Markdown{dark: theme.IsDark, cache: NewRenderCache(128)}
	m.SetWidth(width)
	return m
}

// SetWidth rebuilds the renderer when the wrap width changes.
func (m *Markdown) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == m.width && m.renderer != nil {
		return
	}
	m.width = width
	style := "light"
	if m.dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r = nil
	}
	m.renderer = r
}

// Width returns the current wrap width.
func (m *Markdown) Width() int { return m.width }

// Render returns content as terminal markdown, or the plain text when the
// renderer is unavailable or fails.
func (m *Markdown) Render(content string) string {
	if content == "" {
		return ""
	}
	return m.cache.GetOrCompute(ComputeKey(content, m.width), func() string {
		return m.safeRender(content)
	})
}

func (m *Markdown) safeRender(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}
