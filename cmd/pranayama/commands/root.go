package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pranayama-assistant/pranayama/internal/app"
	"github.com/pranayama-assistant/pranayama/internal/audio"
	"github.com/pranayama-assistant/pranayama/internal/capability"
	"github.com/pranayama-assistant/pranayama/internal/config"
	"github.com/pranayama-assistant/pranayama/internal/detector"
	"github.com/pranayama-assistant/pranayama/internal/frontend"
	"github.com/pranayama-assistant/pranayama/internal/session"
	"github.com/pranayama-assistant/pranayama/internal/ws"
)

const shutdownTimeout = 5 * time.Second

var (
	configPath   string
	pace         int
	volume       float64
	limit        int
	listenAddr   string
	remoteToken  string
	detectorURL  string
	mockDetector string
	logFile      string
)

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pranayama",
		Short: "Guided alternate-nostril breathing in the terminal",
		Long: `pranayama paces Nadi Shodhana practice: exhale right, inhale left,
exhale left, inhale right, with a soft audio cue at every change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	flags := rootCmd.Flags()
	flags.IntVar(&pace, "pace", 0, fmt.Sprintf("seconds per breath phase (%d-%d)", config.MinPace, config.MaxPace))
	flags.Float64Var(&volume, "volume", 0, "cue volume (0-1)")
	flags.IntVar(&limit, "limit", 0, "practice limit in minutes, 0 for none")
	flags.StringVar(&listenAddr, "listen", "", "serve the remote API on this address")
	flags.StringVar(&remoteToken, "token", "", "bearer token for the remote API")
	flags.StringVar(&detectorURL, "detector-url", "", "websocket URL of the pose detector")
	flags.StringVar(&mockDetector, "mock-detector", "", "use a simulated detector (steady, restless, drowsy)")
	flags.StringVar(&logFile, "log-file", "", "log file (default "+config.DefaultLogPath()+")")

	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewRemoteCommand())
	rootCmd.AddCommand(NewCueCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers the config file and PRANAYAMA_* variables, then applies
// override before validating.
func loadConfig(override func(*config.Config)) (*config.Config, string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: .env: %v", err)
	}

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", fmt.Errorf("environment: %w", err)
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// applyFlags copies the root flags that were set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("pace") {
		cfg.Breathing.PaceSeconds = pace
	}
	if flags.Changed("volume") {
		cfg.Audio.Volume = volume
	}
	if flags.Changed("limit") {
		cfg.Breathing.PracticeLimitMinutes = limit
	}
	if flags.Changed("listen") {
		cfg.Server.Listen = listenAddr
		cfg.Server.Enabled = listenAddr != ""
	}
	if flags.Changed("token") {
		cfg.Server.Token = remoteToken
	}
	if flags.Changed("detector-url") {
		cfg.Monitoring.DetectorURL = detectorURL
	}
	if flags.Changed("mock-detector") {
		cfg.Monitoring.Mock = mockDetector != ""
		cfg.Monitoring.MockPattern = mockDetector
	}
	if flags.Changed("log-file") {
		cfg.UI.LogFile = logFile
	}
}

// newSource picks the detector for cfg. The mock wins over a URL.
func newSource(cfg *config.Config) detector.Source {
	switch {
	case cfg.Monitoring.Mock:
		return detector.NewMockSource(cfg.Monitoring.MockPattern, cfg.Monitoring.MockInterval, time.Now().UnixNano())
	case cfg.Monitoring.DetectorURL != "":
		return detector.NewWSSource(cfg.Monitoring.DetectorURL, cfg.Monitoring.DetectorToken)
	}
	return nil
}

// capabilitySteps lists the probes negotiated at startup, in order.
func capabilitySteps(cfg *config.Config, src detector.Source) []capability.Step {
	steps := []capability.Step{
		{Probe: capability.ModelProbe{Paths: cfg.Monitoring.ModelPaths}, Timeout: cfg.Monitoring.ModelTimeout},
	}
	if cfg.Monitoring.Camera {
		steps = append(steps, capability.Step{
			Probe:   capability.CameraProbe{Pattern: cfg.Monitoring.CameraDevice},
			Timeout: cfg.Monitoring.CameraTimeout,
		})
	}
	if src != nil {
		steps = append(steps, capability.Step{Probe: detector.Probe(src), Timeout: cfg.Monitoring.DetectorTimeout})
	}
	return steps
}

// openCue opens the audio backend lazily, on the first session start.
func openCue(backend string, bell io.Writer) func() (session.Cue, error) {
	return func() (session.Cue, error) {
		p, err := audio.Open(backend, bell)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func openLog(path string) (io.Closer, error) {
	if path == "" {
		path = config.DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := tea.LogToFile(path, "pranayama")
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return f, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(func(c *config.Config) { applyFlags(cmd, c) })
	if err != nil {
		return err
	}

	logCloser, err := openLog(cfg.UI.LogFile)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	logger := log.Default()

	out := newTerminal(os.Stdout)
	src := newSource(cfg)
	opts := app.Options{
		Config:     cfg,
		ConfigPath: path,
		Steps:      capabilitySteps(cfg, src),
		Detector:   src,
		OpenCue:    openCue(cfg.Audio.Backend, out),
		Logger:     logger,
	}

	var (
		srv         *ws.Server
		broadcaster *ws.Broadcaster
	)
	if cfg.Server.Enabled {
		token := cfg.Server.Token
		if token == "" {
			if token, err = config.GenerateToken(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "remote token: %s\n", token)
			logger.Printf("generated remote token %s", token)
		}

		broadcaster = ws.NewBroadcaster(cfg.Server.BroadcastThrottle, cfg.Server.MaxConnections)
		defer broadcaster.Stop()

		remote := app.NewRemote(cfg.Settings())
		srv = ws.NewServer(broadcaster, remote, cfg.Server.AllowedOrigins, token)
		srv.SetFrontend(frontend.Handler())
		addr, err := srv.Start(cfg.Server.Listen)
		if err != nil {
			return fmt.Errorf("remote server: %w", err)
		}
		logger.Printf("remote page at http://%s/?token=%s", addr, token)

		opts.Broadcaster = broadcaster
		opts.Remote = remote
		opts.ServerAddr = addr.String()
	}

	m := app.New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(out))
	if opts.Remote != nil {
		opts.Remote.Attach(p.Send)
	}

	_, runErr := p.Run()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Printf("remote server shutdown: %v", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}
