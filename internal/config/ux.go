package config

// UIConfig holds user interface configuration.
type UIConfig struct {
	// Theme is "dark" or "light".
	Theme string `yaml:"theme"`

	// MarkdownWidth wraps rendered notes and chat replies (0 = follow the window).
	MarkdownWidth int `yaml:"markdown_width,omitempty"`
}

// ValidThemes lists supported themes.
var ValidThemes = []string{"dark", "light"}

// DefaultUIConfig returns sensible UI defaults.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Theme: "dark",
	}
}

// ValidTheme reports whether theme is supported.
func ValidTheme(theme string) bool {
	for _, t := range ValidThemes {
		if t == theme {
			return true
		}
	}
	return false
}

// IsDark reports whether the dark theme is selected.
func (u UIConfig) IsDark() bool {
	return u.Theme != "light"
}
