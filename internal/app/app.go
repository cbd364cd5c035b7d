// Package app is the Bubble Tea root model: it owns the session controller,
// drives it from keys, remote commands and detector events, and renders
// the breathing guide.
package app

import (
	"context"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pranayama-assistant/pranayama/internal/capability"
	"github.com/pranayama-assistant/pranayama/internal/clock"
	"github.com/pranayama-assistant/pranayama/internal/config"
	"github.com/pranayama-assistant/pranayama/internal/detector"
	"github.com/pranayama-assistant/pranayama/internal/feedback"
	"github.com/pranayama-assistant/pranayama/internal/session"
	"github.com/pranayama-assistant/pranayama/internal/theme"
	"github.com/pranayama-assistant/pranayama/internal/views/breath"
	"github.com/pranayama-assistant/pranayama/internal/views/guide"
	"github.com/pranayama-assistant/pranayama/internal/views/messages"
	"github.com/pranayama-assistant/pranayama/internal/views/settings"
	"github.com/pranayama-assistant/pranayama/internal/views/stats"
	"github.com/pranayama-assistant/pranayama/internal/views/status"
	"github.com/pranayama-assistant/pranayama/internal/ws"
)

// Feedback texts.
const (
	msgReady          = "System ready. Position yourself comfortably and press Start."
	msgBasicMode      = "System started in basic mode. Camera monitoring disabled."
	msgCameraDemo     = "Camera feature not yet implemented in this demo."
	msgNoCamera       = "Continuing without camera. Focus on breathing guidance."
	msgCameraOn       = "Camera monitoring enabled."
	msgCameraLost     = "Camera monitoring lost. Continuing with breathing guidance."
	msgCameraGone     = "Camera monitoring is unavailable until restart."
	msgEyeAlert       = "Eyes open. Gently close them and return to the breath."
	msgPosture        = "Straighten your back and relax your shoulders."
	msgSettingsSaved  = "Settings saved."
	msgSettingsFailed = "Settings could not be applied."
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayCamera
	OverlaySettings
	OverlayGuide
	OverlayLog
)

// capsMsg carries the negotiated capabilities.
type capsMsg struct{ report capability.Report }

// expireMsg re-renders while feedback entries are waiting to expire.
type expireMsg struct{}

// postureCheckMsg fires after the posture grace period.
type postureCheckMsg struct{ seq int }

// Options wires the model to its collaborators. Only Config is required.
type Options struct {
	Config     *config.Config
	ConfigPath string // settings are saved here when ui.persist_settings is set
	Steps      []capability.Step
	Detector   detector.Source
	OpenCue    func() (session.Cue, error)

	Broadcaster *ws.Broadcaster
	Remote      *Remote
	ServerAddr  string

	Clock  clock.Clock
	Logger *log.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	cfg     *config.Config
	cfgPath string
	steps   []capability.Step
	logger  *log.Logger
	clock   clock.Clock
	ctx     context.Context
	cancel  context.CancelFunc

	ctrl        *session.Controller
	sched       *teaScheduler
	fb          *feedback.Log
	history     *messages.Model
	broadcaster *ws.Broadcaster
	remote      *Remote
	det         detector.Source

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	width   int
	height  int

	ready       bool
	report      capability.Report
	overlay     Overlay
	monitoring  bool
	detLive     bool
	detLost     bool
	expiring    bool
	postureSeq  int
	postureGood bool

	// Sub-views.
	statusBar status.Model
	breath    breath.Model
	stats     stats.Model
	settings  settings.Model
	guide     guide.Model
}

// New creates the root model and its controller.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	history := &messages.Model{}
	fb := feedback.New(clk, feedback.WithLogger(logger))
	fb.OnAdd(history.Add)

	var observers []session.Observer
	if opts.Broadcaster != nil {
		observers = append(observers, opts.Broadcaster)
		fb.OnAdd(opts.Broadcaster.Feedback)
	}

	sched := newTeaScheduler()
	ctrl := session.New(session.Config{
		Clock:     clk,
		Scheduler: sched,
		Feedback:  fb,
		Settings:  cfg.Settings(),
		OpenCue:   opts.OpenCue,
		Observers: observers,
		Logger:    logger,
	})
	if opts.Remote != nil {
		opts.Remote.setSettings(ctrl.Settings())
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorInhale)

	statusBar := status.New()
	statusBar.Server = opts.ServerAddr

	return Model{
		cfg:         cfg,
		cfgPath:     opts.ConfigPath,
		steps:       opts.Steps,
		logger:      logger,
		clock:       clk,
		ctx:         ctx,
		cancel:      cancel,
		ctrl:        ctrl,
		sched:       sched,
		fb:          fb,
		history:     history,
		broadcaster: opts.Broadcaster,
		remote:      opts.Remote,
		det:         opts.Detector,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		postureGood: true,
		statusBar:   statusBar,
		breath:      breath.New(),
		stats:       stats.New(),
	}
}

// Controller returns the session controller.
func (m Model) Controller() *session.Controller { return m.ctrl }

// Overlay returns the active overlay.
func (m Model) Overlay() Overlay { return m.overlay }

// Init starts capability negotiation and the loading spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, negotiate(m.ctx, m.steps))
}

func negotiate(ctx context.Context, steps []capability.Step) tea.Cmd {
	return func() tea.Msg {
		return capsMsg{report: capability.NegotiateAll(ctx, steps...)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.breath.Width = msg.Width
		m.stats.Width = msg.Width
		m.help.Width = msg.Width
		if m.overlay == OverlayGuide {
			m.guide = guide.New(msg.Width)
		}

	case tea.KeyMsg:
		m, cmd = m.handleKey(msg)

	case spinner.TickMsg:
		if !m.ready {
			m.spinner, cmd = m.spinner.Update(msg)
		}

	case capsMsg:
		cmd = m.onCapabilities(msg.report)

	case fireMsg:
		m.sched.fire(msg.id)

	case breath.FrameMsg:
		m.breath, cmd = m.breath.Update(msg)

	case commandMsg:
		msg.reply <- m.execute(msg.cmd)

	case settings.AppliedMsg:
		m.overlay = OverlayNone
		if err := m.applySettings(msg.Settings, msg.Sensitivity); err != nil {
			m.fb.Add(feedback.Error, msgSettingsFailed)
		} else {
			m.fb.Add(feedback.Success, msgSettingsSaved)
		}

	case expireMsg:
		m.expiring = false

	case postureCheckMsg:
		if msg.seq == m.postureSeq && !m.postureGood && m.ctrl.Active() {
			m.fb.Add(feedback.Warning, msgPosture)
		}

	case detector.ConnectedMsg:
		m.detLive = true
		m.startMonitoring()
		cmd = detector.Listen(m.ctx, m.det)

	case detector.EyeAlertMsg:
		if m.ctrl.Active() {
			m.ctrl.RecordEyeAlert()
			m.fb.Add(feedback.Warning, msgEyeAlert)
		}
		cmd = m.listen()

	case detector.PostureMsg:
		m.ctrl.SetPosture(msg.Good)
		m.postureGood = msg.Good
		m.postureSeq++
		cmd = m.listen()
		if !msg.Good {
			cmd = tea.Batch(cmd, m.postureCheck())
		}

	case detector.EyesMsg:
		m.ctrl.SetEyesOpen(msg.Open)
		cmd = m.listen()

	case detector.LostMsg:
		m.logger.Printf("app: detector lost: %v", msg.Err)
		wasMonitoring := m.monitoring
		m.detLive = false
		m.detLost = true
		m.monitoring = false
		m.stats.Monitoring = false
		m.statusBar.Detector = status.DetectorLost
		if wasMonitoring {
			m.fb.Add(feedback.Warning, msgCameraLost)
		} else {
			m.fb.Add(feedback.Warning, msgCameraGone)
		}
	}

	cmds := tea.Batch(cmd, m.sched.drain(), m.refresh(), m.expireTick())
	return m, cmds
}

// refresh pushes the current snapshot into the views.
func (m *Model) refresh() tea.Cmd {
	snap := m.ctrl.Snapshot()
	m.stats.SetSnapshot(snap)
	if m.broadcaster != nil {
		m.statusBar.Clients = m.broadcaster.ClientCount()
	}
	return m.breath.SetSnapshot(snap)
}

// expireTick keeps the view refreshing once a second while feedback
// entries are visible, so they disappear on time.
func (m *Model) expireTick() tea.Cmd {
	if m.expiring || m.fb.Len() == 0 {
		return nil
	}
	m.expiring = true
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return expireMsg{} })
}

func (m *Model) postureCheck() tea.Cmd {
	grace := time.Duration(11-m.cfg.Monitoring.PostureSensitivity) * 500 * time.Millisecond
	if grace <= 0 {
		grace = 500 * time.Millisecond
	}
	seq := m.postureSeq
	return tea.Tick(grace, func(time.Time) tea.Msg { return postureCheckMsg{seq: seq} })
}

func (m *Model) listen() tea.Cmd {
	if !m.detLive || m.det == nil {
		return nil
	}
	return detector.Listen(m.ctx, m.det)
}

func (m *Model) onCapabilities(r capability.Report) tea.Cmd {
	m.ready = true
	m.report = r
	m.statusBar.SetReport(r)
	m.logger.Printf("app: capabilities %s", r.Summary())

	if m.broadcaster != nil {
		m.broadcaster.SetCapabilities(r)
		m.broadcaster.Observe(session.Event{Type: session.EventSettings, Snapshot: m.ctrl.Snapshot()})
	}

	m.detLive = m.det != nil && r.Available(capability.NameDetector)
	if r.BasicMode() && !m.detLive {
		m.fb.Add(feedback.Warning, msgBasicMode)
		return nil
	}
	m.fb.Add(feedback.Info, msgReady)
	if r.Available(capability.NameCamera) || m.detLive {
		m.overlay = OverlayCamera
	}
	return nil
}

func (m *Model) startMonitoring() {
	m.monitoring = true
	m.stats.Monitoring = true
	m.statusBar.Detector = status.DetectorLive
	m.fb.Add(feedback.Success, msgCameraOn)
}

func (m Model) acceptCamera() (Model, tea.Cmd) {
	m.overlay = OverlayNone
	switch {
	case m.det == nil:
		m.fb.Add(feedback.Info, msgCameraDemo)
		return m, nil
	case m.detLost:
		m.fb.Add(feedback.Warning, msgCameraGone)
		return m, nil
	case m.monitoring:
		return m, nil
	case m.detLive:
		m.startMonitoring()
		return m, detector.Listen(m.ctx, m.det)
	}
	m.statusBar.Detector = status.DetectorConnecting
	return m, detector.Connect(m.ctx, m.det)
}

func (m Model) declineCamera() Model {
	m.overlay = OverlayNone
	m.fb.Add(feedback.Info, msgNoCamera)
	return m
}

// execute applies a remote command on the update loop.
func (m *Model) execute(cmd ws.Command) error {
	switch cmd.Action {
	case ws.ActionStart:
		m.ctrl.Start()
	case ws.ActionPause:
		m.ctrl.PauseToggle()
	case ws.ActionStop:
		m.ctrl.Stop()
	case ws.ActionSettings:
		return m.applySettings(cmd.Settings, m.cfg.Monitoring.PostureSensitivity)
	default:
		return ws.ErrUnknownAction
	}
	return nil
}

// applySettings updates the controller and, when enabled, the config file.
// Settings outside the config file ranges are rejected before anything changes.
func (m *Model) applySettings(s session.Settings, sensitivity int) error {
	if err := config.ValidateSettings(s); err != nil {
		m.logger.Printf("app: rejected settings: %v", err)
		return err
	}
	if err := m.ctrl.UpdateSettings(s); err != nil {
		m.logger.Printf("app: rejected settings: %v", err)
		return err
	}
	if m.remote != nil {
		m.remote.setSettings(s)
	}

	old := *m.cfg
	m.cfg.SetSettings(s)
	m.cfg.Monitoring.PostureSensitivity = sensitivity
	for _, line := range config.Diff(&old, m.cfg) {
		m.logger.Printf("app: config %s", line)
	}
	if m.cfg.UI.PersistSettings && m.cfgPath != "" {
		if err := m.cfg.Save(m.cfgPath); err != nil {
			m.logger.Printf("app: save config: %v", err)
		}
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) && (msg.String() == "ctrl+c" || m.overlay == OverlayNone) {
		m.shutdown()
		return m, tea.Quit
	}

	switch m.overlay {
	case OverlayCamera:
		switch {
		case key.Matches(msg, m.keys.Accept):
			return m.acceptCamera()
		case key.Matches(msg, m.keys.Decline), key.Matches(msg, m.keys.Escape):
			return m.declineCamera(), nil
		}
		return m, nil

	case OverlaySettings:
		if key.Matches(msg, m.keys.Escape) {
			m.overlay = OverlayNone
			return m, nil
		}
		var cmd tea.Cmd
		m.settings, cmd = m.settings.Update(msg)
		return m, cmd

	case OverlayLog:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.history.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.history.ScrollDown(1)
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Log):
			m.overlay = OverlayNone
		}
		return m, nil

	case OverlayGuide:
		if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Guide) {
			m.overlay = OverlayNone
		}
		return m, nil
	}

	if !m.ready {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Start):
		m.ctrl.Start()
	case key.Matches(msg, m.keys.Pause):
		m.ctrl.PauseToggle()
	case key.Matches(msg, m.keys.Stop):
		m.ctrl.Stop()
	case key.Matches(msg, m.keys.Settings):
		m.settings = settings.New(m.ctrl.Settings(), m.cfg.Monitoring.PostureSensitivity)
		m.overlay = OverlaySettings
	case key.Matches(msg, m.keys.Guide):
		m.guide = guide.New(m.width)
		m.overlay = OverlayGuide
	case key.Matches(msg, m.keys.Camera):
		if !m.monitoring {
			m.overlay = OverlayCamera
		}
	case key.Matches(msg, m.keys.Log):
		m.overlay = OverlayLog
	}
	return m, nil
}

// shutdown stops the session and releases the detector and audio.
func (m *Model) shutdown() {
	if m.ctrl.Active() {
		m.ctrl.Stop()
	}
	if err := m.ctrl.Close(); err != nil {
		m.logger.Printf("app: close audio: %v", err)
	}
	m.cancel()
	if m.det != nil {
		if err := m.det.Close(); err != nil {
			m.logger.Printf("app: close detector: %v", err)
		}
	}
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if !m.ready {
		return m.renderLoading()
	}

	var body string
	switch m.overlay {
	case OverlayCamera:
		body = m.center(renderCameraPrompt())
	case OverlaySettings:
		body = m.center(m.settings.View())
	case OverlayGuide:
		body = m.center(m.guide.View())
	case OverlayLog:
		body = m.history.View(m.width, m.height-4)
	default:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.breath.View(),
			m.stats.View(),
			messages.Panel(m.fb.Entries(), m.width),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		body,
		"  "+m.help.View(m.keys),
	)
}

func (m Model) center(s string) string {
	return lipgloss.Place(m.width, max(m.height-5, lipgloss.Height(s)), lipgloss.Center, lipgloss.Center, s)
}

func (m Model) renderLoading() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		theme.StyleHeader.Render("Pranayama"),
		"",
		m.spinner.View()+" Preparing your practice...",
		theme.StyleDimmed.Render("Checking camera and pose detection"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func renderCameraPrompt() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.StyleHeader.Render("Camera monitoring"),
		"",
		"A camera can watch your posture and count the times your eyes",
		"open during practice. Video never leaves this machine.",
		"",
		theme.StyleDimmed.Render("y/enter: enable    n/esc: continue without"),
	)
	return lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorInhale).
		Render(content)
}
