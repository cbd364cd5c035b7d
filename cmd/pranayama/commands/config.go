package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var showSecrets bool

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after layering the config file, .env,
and PRANAYAMA_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: runConfig,
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print tokens instead of masking them")
	return cmd
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if !showSecrets {
		if cfg.Server.Token != "" {
			cfg.Server.Token = "********"
		}
		if cfg.Monitoring.DetectorToken != "" {
			cfg.Monitoring.DetectorToken = "********"
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", path)
	_, err = out.Write(data)
	return err
}
