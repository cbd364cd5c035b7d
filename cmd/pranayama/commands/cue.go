package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pranayama-assistant/pranayama/internal/audio"
	"github.com/pranayama-assistant/pranayama/internal/session"
)

var (
	cueVolume float64
	cuePlay   bool
)

// NewCueCommand creates the cue command.
func NewCueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cue [file.wav]",
		Short: "Write or play the phase-change tone",
		Long: `Write the phase-change tone as a WAV file, or play it with --play
to check the audio backend.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCue,
	}
	cmd.Flags().Float64Var(&cueVolume, "volume", session.DefaultVolume, "cue volume (0-1)")
	cmd.Flags().BoolVar(&cuePlay, "play", false, "play the tone through the configured backend")
	return cmd
}

func runCue(cmd *cobra.Command, args []string) error {
	if cuePlay {
		cfg, _, err := loadConfig(nil)
		if err != nil {
			return err
		}
		p, err := audio.Open(cfg.Audio.Backend, cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("open audio: %w", err)
		}
		if err := p.Play(cueVolume); err != nil {
			p.Close()
			return fmt.Errorf("play cue: %w", err)
		}
		// The player runs in the background and its file goes on Close.
		time.Sleep(audio.Cue.Duration + 200*time.Millisecond)
		return p.Close()
	}

	path := "cue.wav"
	if len(args) == 1 {
		path = args[0]
	}
	if err := audio.Cue.WriteFile(path, cueVolume, 0o644); err != nil {
		return fmt.Errorf("write cue: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
