package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	iast "idpgo/internal/ast"
	"idpgo/internal/inference"
)

var propagateCmd = &cobra.Command{
	Use:   "propagate <file>",
	Short: "Run bounds propagation and print the derived ct/cf tuples",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}
		if err := inference.Propagate(cfg.Options, doc.Theory, doc.Structure); err != nil {
			return fmt.Errorf("idpgo: propagate: %w", err)
		}

		preds := doc.Vocabulary.Predicates()
		sort.Slice(preds, func(i, j int) bool { return preds[i].Name < preds[j].Name })
		for _, p := range preds {
			pi, ok := doc.Structure.Predicate(p.Name)
			if !ok {
				continue
			}
			pi.CTFacts(func(tuple []iast.DomainElement) { fmt.Printf("ct_%s%s\n", p.Name, tupleString(tuple)) })
			pi.CFFacts(func(tuple []iast.DomainElement) { fmt.Printf("cf_%s%s\n", p.Name, tupleString(tuple)) })
		}
		return nil
	},
}

func tupleString(tuple []iast.DomainElement) string {
	if len(tuple) == 0 {
		return ""
	}
	s := "("
	for i, e := range tuple {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + ")"
}
