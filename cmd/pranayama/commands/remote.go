package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pranayama-assistant/pranayama/internal/client"
	"github.com/pranayama-assistant/pranayama/internal/session"
	"github.com/pranayama-assistant/pranayama/internal/ws"
)

var (
	remoteAddr      string
	remoteAuthToken string
	remotePace      int
	remoteVolume    float64
	remoteLimit     int
)

// NewRemoteCommand creates the remote command and its subcommands.
func NewRemoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Control a running session over its HTTP API",
	}
	cmd.PersistentFlags().StringVar(&remoteAddr, "addr", "", "server address (default server.listen from the config)")
	cmd.PersistentFlags().StringVar(&remoteAuthToken, "token", "", "bearer token (default server.token from the config)")

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			snap, err := c.Session()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSnapshot(*snap))
			return nil
		},
	})

	for _, a := range []ws.Action{ws.ActionStart, ws.ActionPause, ws.ActionStop} {
		action := a
		cmd.AddCommand(&cobra.Command{
			Use:   string(action),
			Short: actionHelp(action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newClient()
				if err != nil {
					return err
				}
				snap, err := c.Command(action)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatSnapshot(*snap))
				return nil
			},
		})
	}

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change pace, volume and practice limit",
		Args:  cobra.NoArgs,
		RunE:  runRemoteSettings,
	}
	settingsCmd.Flags().IntVar(&remotePace, "pace", 0, "seconds per breath phase")
	settingsCmd.Flags().Float64Var(&remoteVolume, "volume", 0, "cue volume (0-1)")
	settingsCmd.Flags().IntVar(&remoteLimit, "limit", 0, "practice limit in minutes, 0 for none")
	cmd.AddCommand(settingsCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Stream session events until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runRemoteWatch,
	})

	return cmd
}

func actionHelp(a ws.Action) string {
	switch a {
	case ws.ActionStart:
		return "Start a session"
	case ws.ActionPause:
		return "Pause or resume the session"
	default:
		return "Stop the session"
	}
}

// newClient resolves the address and token from flags, falling back to the
// local config.
func newClient() (*client.HTTPClient, error) {
	addr, token := remoteAddr, remoteAuthToken
	if addr == "" || token == "" {
		cfg, _, err := loadConfig(nil)
		if err != nil {
			return nil, err
		}
		if addr == "" {
			addr = cfg.Server.Listen
		}
		if token == "" {
			token = cfg.Server.Token
		}
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return client.NewHTTPClient(addr, token), nil
}

func runRemoteSettings(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	s, err := c.Settings()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("pace") || flags.Changed("volume") || flags.Changed("limit") {
		next := *s
		if flags.Changed("pace") {
			next.PaceSeconds = remotePace
		}
		if flags.Changed("volume") {
			next.Volume = remoteVolume
		}
		if flags.Changed("limit") {
			next.PracticeLimitMinutes = remoteLimit
		}
		if s, err = c.UpdateSettings(next); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatSettings(*s))
	return nil
}

func runRemoteWatch(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	return c.Watch(ctx, func(msg client.Message) error {
		return printMessage(out, msg)
	})
}

func printMessage(w io.Writer, msg client.Message) error {
	switch msg.Type {
	case ws.MsgSnapshot:
		var p ws.SnapshotPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		prefix := "snapshot"
		if p.Event != "" {
			prefix = p.Event
		}
		fmt.Fprintf(w, "%-10s %s\n", prefix, formatSnapshot(p.Session))
	case ws.MsgFeedback:
		var p ws.FeedbackPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode feedback: %w", err)
		}
		fmt.Fprintf(w, "%-10s [%s] %s\n", "feedback", p.Kind, p.Text)
	case ws.MsgSummary:
		var p ws.SummaryPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode summary: %w", err)
		}
		fmt.Fprintf(w, "%-10s %s\n", "summary", p.Message)
	case ws.MsgCapabilities:
		var p ws.CapabilitiesPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode capabilities: %w", err)
		}
		fmt.Fprintf(w, "%-10s %s basic=%t\n", "caps", p.Status, p.BasicMode)
	case ws.MsgError:
		fmt.Fprintf(w, "%-10s %s\n", "error", string(msg.Payload))
	}
	return nil
}

func formatSnapshot(s session.Snapshot) string {
	if !s.Active {
		return fmt.Sprintf("%s (cycles %d, eye alerts %d)", s.PhaseLabel, s.CyclesCompleted, s.EyeAlertCount)
	}
	state := ""
	if s.Paused {
		state = " paused"
	}
	return fmt.Sprintf("%s %ds%s | elapsed %s | cycles %d | eye alerts %d",
		s.PhaseLabel, s.SecondsRemaining, state, s.Elapsed, s.CyclesCompleted, s.EyeAlertCount)
}

func formatSettings(s session.Settings) string {
	limit := "none"
	if s.PracticeLimitMinutes > 0 {
		limit = fmt.Sprintf("%d min", s.PracticeLimitMinutes)
	}
	return fmt.Sprintf("pace %ds | volume %.0f%% | limit %s", s.PaceSeconds, s.Volume*100, limit)
}
