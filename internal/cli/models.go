package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codefox/internal/config"
	"github.com/dshills/codefox/internal/providers"
)

var modelsProvider string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Provider and model management",
}

// modelsConfig loads the configuration, switching to modelsProvider and its
// default model when set.
func modelsConfig(ctx context.Context) (config.Config, error) {
	root, err := repoRoot(ctx)
	if err != nil {
		return config.Config{}, err
	}
	overrides := map[string]string{}
	if modelsProvider != "" {
		overrides["provider"] = modelsProvider
		if def := config.DefaultModel(modelsProvider); def != "" {
			overrides["model.name"] = def
		}
	}
	return loadConfig(root, overrides)
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the models offered by the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cfg, err := modelsConfig(ctx)
		if err != nil {
			return err
		}
		models, err := providers.ListModels(ctx, cfg, providers.Deps{Logger: newLogger(cmd)})
		if err != nil {
			fail(cmd, err)
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s:\n", cfg.Provider)
		for _, m := range models {
			marker := " "
			if m == cfg.Model.Name {
				marker = "*"
			}
			fmt.Fprintf(out, " %s %s\n", marker, m)
		}
		return nil
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate provider credentials and model availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cfg, err := modelsConfig(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Checking %s (%s)...\n", cfg.Provider, cfg.Model.Name)

		p, err := providers.New(ctx, cfg, providers.Deps{Logger: newLogger(cmd)})
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %v\n", err)
			exitCode = exitCodeFor(err)
			return nil
		}
		if err := p.CheckConnection(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %v\n", err)
			exitCode = exitCodeFor(err)
			return nil
		}

		fmt.Fprintf(out, "OK: %s is configured and %s is available\n", p.Name(), p.Model())
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	modelsCmd.PersistentFlags().StringVar(&modelsProvider, "provider", "", "Provider to use instead of the configured one")
}
