// Command idpgo is the CLI entry point for the FO(.) inference
// engine: it reads a textfmt document (internal/textfmt) and runs one
// of spec §6's three top-level operations against it.
//
// Grounded on cmd/nerd/main.go's root-command layout in the teacher
// repo: one rootCmd carrying persistent flags (--config, --verbose),
// a PersistentPreRunE that initializes logging once, and one
// subcommand per operation defined in its own file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"idpgo/internal/config"
	"idpgo/internal/logging"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "idpgo",
	Short: "FO(.) knowledge base inference engine",
	Long: `idpgo grounds and solves finite first-order theories against a
three-valued structure: propagate bounds, ground to ECNF, or search
for models, over a vocabulary/structure/theory read from one textfmt
document (see internal/textfmt).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			return fmt.Errorf("idpgo: init logging: %w", err)
		}
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		} else {
			cfg = config.DefaultConfig()
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML options file (defaults used if omitted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(groundCmd, propagateCmd, modelExpandCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
