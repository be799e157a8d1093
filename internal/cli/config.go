package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect codefox configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		root, err := repoRoot(ctx)
		if err != nil {
			fail(cmd, err)
			return nil
		}
		cfg, err := loadConfig(root, nil)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, string(data))
		fmt.Fprintf(out, "api_key: %s\n", maskKey(cfg.APIKey))
		return nil
	},
}

// maskKey keeps the last four characters of key.
func maskKey(key string) string {
	switch {
	case key == "" || key == "null":
		return "(not set)"
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
