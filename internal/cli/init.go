package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codefox/internal/config"
)

var (
	initProvider string
	initModel    string
	initAPIKey   string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .codefox.yml, .codefoxenv and .codefoxignore",
	Long: `Create the CodeFox configuration in the repository root.

Missing values are asked for on stdin. Existing files are kept unless
--force is given; .codefoxignore is never overwritten.`,
	Args: cobra.NoArgs,
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

		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()
		provider := initProvider
		if provider == "" {
			provider = ask(in, out, fmt.Sprintf("Provider (%s)", strings.Join(config.KnownProviders, ", ")), config.ProviderGemini)
		}
		key := initAPIKey
		if key == "" && strings.ToLower(provider) != config.ProviderOllama {
			key = ask(in, out, "API key", "")
		}

		res, err := config.Init(config.InitOptions{
			Dir:      root,
			Provider: provider,
			Model:    initModel,
			APIKey:   key,
			Force:    initForce,
		})
		if err != nil {
			return err
		}
		for _, name := range res.Written {
			fmt.Fprintf(out, "Wrote %s\n", name)
		}
		for _, name := range res.Skipped {
			fmt.Fprintf(out, "Kept existing %s (use --force to overwrite)\n", name)
		}
		return nil
	},
}

// ask prompts for a value on out and reads one line from in. An empty answer
// or a read error yields def.
func ask(in *bufio.Reader, out io.Writer, prompt, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(out, "%s: ", prompt)
	}
	line, err := in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" || (err != nil && err != io.EOF) {
		return def
	}
	return line
}

func init() {
	initCmd.Flags().StringVar(&initProvider, "provider", "", "Model provider (gemini, qwen, ollama)")
	initCmd.Flags().StringVar(&initModel, "model", "", "Model name (default: the provider's default)")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key written to .codefoxenv")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing .codefox.yml and .codefoxenv")
}
