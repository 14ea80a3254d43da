package app

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"synoptic/cmd/synoptic/ui"
	"synoptic/internal/config"
	"synoptic/internal/logging"
	"synoptic/internal/route"
	"synoptic/internal/voice"
)

// New builds the model. Nothing is fetched until Init.
func New(deps Deps) Model {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	detect := deps.DetectVoice
	if detect == nil {
		detect = detectLine
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	delay := deps.NoticeDelay
	if delay == 0 {
		delay = route.RegisterNoticeDelay
	}

	styles := ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))
	layout := ui.NewLayoutConfig(ui.MinimumTerminalWidth, ui.MinimumTerminalHeight)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		cfg:         cfg,
		api:         deps.API,
		store:       deps.Store,
		watcher:     deps.Watcher,
		detect:      detect,
		now:         now,
		noticeDelay: delay,
		start:       deps.Start,
		ctx:         ctx,
		cancel:      cancel,
		styles:      styles,
		layout:      layout,
		spinner:     sp,
	}
	m.md = ui.NewMarkdown(styles.Theme, m.markdownWidth())
	m.login = m.newLoginForm()
	return m
}

// detectLine adapts voice.Detect, keeping a failed detection a nil interface.
func detectLine(cfg config.VoiceConfig) (voice.Recognizer, error) {
	rec, err := voice.Detect(cfg)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Init navigates to the start route and begins watching the session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return navigateMsg{to: m.start} }, m.waitSession())
}

// navigateMsg asks Update to change route.
type navigateMsg struct{ to route.Route }

// Shutdown stops background readers. Safe to call more than once.
func (m *Model) Shutdown() {
	if m.dash != nil && m.dash.rec != nil {
		m.dash.rec.Stop()
	}
	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.cancel()
}

// Route returns the current route.
func (m Model) Route() route.Route { return m.route }

// Run starts the program on the alternate screen and blocks until it exits.
func Run(deps Deps) error {
	if deps.API == nil || deps.Store == nil {
		return errors.New("app: API and Store are required")
	}
	if deps.Watcher != nil {
		if err := deps.Watcher.Start(context.Background()); err != nil {
			logging.Get(logging.CategoryUI).Warn("session watcher disabled: %v", err)
			deps.Watcher = nil
		}
	}

	m := New(deps)
	logging.UI("starting interactive client against %s", m.cfg.API.BaseURL)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Shutdown()
	} else {
		m.Shutdown()
	}
	return err
}

func (m Model) markdownWidth() int {
	if m.cfg.UI.MarkdownWidth > 0 {
		return m.cfg.UI.MarkdownWidth
	}
	_, work := m.layout.Panes()
	return ui.PanelContentWidth(work)
}
