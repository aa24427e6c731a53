package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"idpgo/internal/ecnf"
	"idpgo/internal/inference"
)

var groundOutPath string

var groundCmd = &cobra.Command{
	Use:   "ground <file>",
	Short: "Ground a theory against its structure, emitting ECNF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		theory, err := inference.Ground(cfg.Options, doc.Theory, doc.Structure)
		if err != nil {
			return fmt.Errorf("idpgo: ground: %w", err)
		}

		out := os.Stdout
		if groundOutPath != "" {
			f, err := os.Create(groundOutPath)
			if err != nil {
				return fmt.Errorf("idpgo: create %s: %w", groundOutPath, err)
			}
			defer f.Close()
			out = f
		}
		return ecnf.Write(out, theory)
	},
}

func init() {
	groundCmd.Flags().StringVarP(&groundOutPath, "out", "o", "", "write ECNF to this file instead of stdout")
}
