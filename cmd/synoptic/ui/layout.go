// Package ui layout constants for consistent spacing and dimensions
package ui

// Layout constants for viewport and panel sizing
const (
	ViewportHorizontalPadding = 4

	// Dashboard split: patient record left, workspace right
	SplitPaneLeftRatio = 0.55
	SplitPaneDivider   = 1

	PanelBorderWidth = 1
	PanelPaddingH    = 1

	HeaderHeight  = 3
	FooterHeight  = 2
	TabBarHeight  = 2
	InputHeight   = 3
	NoteEditorMin = 5

	// Responsive breakpoints
	MinimumTerminalWidth  = 60
	MinimumTerminalHeight = 20
	CompactModeWidth      = 110

	DialogWidth = 60
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	// IsCompact stacks the dashboard panes instead of splitting them.
	IsCompact bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size.
// Sizes below the minimum are clamped.
func NewLayoutConfig(width, height int) LayoutConfig {
	if width < MinimumTerminalWidth {
		width = MinimumTerminalWidth
	}
	if height < MinimumTerminalHeight {
		height = MinimumTerminalHeight
	}
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		IsCompact:      width < CompactModeWidth,
	}
}

// ContentWidth returns the usable content width for a viewport
func (l LayoutConfig) ContentWidth() int {
	return l.TerminalWidth - ViewportHorizontalPadding
}

// BodyHeight is the height left between header and footer.
func (l LayoutConfig) BodyHeight() int {
	return l.TerminalHeight - HeaderHeight - FooterHeight
}

// Panes returns the record and workspace pane widths. In compact mode both
// panes take the full content width.
func (l LayoutConfig) Panes() (record, work int) {
	total := l.ContentWidth()
	if l.IsCompact {
		return total, total
	}
	return SplitPaneWidths(total)
}

// SplitPaneWidths calculates left and right pane widths for a split view
func SplitPaneWidths(totalWidth int) (leftWidth, rightWidth int) {
	leftWidth = int(float64(totalWidth) * SplitPaneLeftRatio)
	rightWidth = totalWidth - leftWidth - SplitPaneDivider
	return
}

// PanelContentWidth returns the content width inside a bordered panel
func PanelContentWidth(panelWidth int) int {
	w := panelWidth - (PanelBorderWidth * 2) - (PanelPaddingH * 2)
	if w < 1 {
		return 1
	}
	return w
}
