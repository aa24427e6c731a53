package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"idpgo/internal/ecnf"
	"idpgo/internal/inference"
)

var (
	meOutputVoc   []string
	meAssumptions []string
	meMinimizeSet int
	meMinimizeAgg string
)

func init() {
	modelExpandCmd.Flags().StringSliceVar(&meOutputVoc, "output-voc", nil,
		"predicate names restricting which atoms distinguish one reported model from another (spec §6's output-voc)")
	modelExpandCmd.Flags().StringSliceVar(&meAssumptions, "assume", nil,
		"predicate names (optionally prefixed with ~ to negate) forced true/false before search")
	modelExpandCmd.Flags().IntVar(&meMinimizeSet, "minimize-set", 0,
		"weighted-set id to minimize (0 disables optimisation)")
	modelExpandCmd.Flags().StringVar(&meMinimizeAgg, "minimize-agg", "sum",
		"aggregate kind to minimize over --minimize-set: card|sum|prod|min|max")
}

var modelExpandCmd = &cobra.Command{
	Use:   "modelexpand <file>",
	Short: "Ground a theory and search for models with the in-tree brute-force solver",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}

		// Ground once up front purely for the atom-id -> name map that
		// --output-voc/--assume resolve predicate names against, and
		// that the final printer uses; grounding is deterministic over
		// the same theory/structure pair, so ModelExpand's own internal
		// grounding pass below re-derives the identical ground theory.
		named, err := inference.Ground(cfg.Options, doc.Theory, doc.Structure)
		var names map[int]string
		if err == nil {
			names = named.AtomNames
		}

		req := inference.ModelExpandRequest{
			OutputVoc:   atomsMatchingNames(names, meOutputVoc),
			Assumptions: assumptionLiterals(names, meAssumptions),
		}
		if meMinimizeSet != 0 {
			kind, err := parseAggKind(meMinimizeAgg)
			if err != nil {
				return fmt.Errorf("idpgo: modelexpand: %w", err)
			}
			req.Minimize = &ecnf.Objective{Kind: ecnf.ObjMinimizeAgg, SetID: meMinimizeSet, AggKind: kind}
		}

		models, unsat, optimum, err := inference.ModelExpand(context.Background(), cfg.Options, doc.Theory, doc.Structure, inference.NewBruteForce(), req)
		if err != nil {
			return fmt.Errorf("idpgo: modelexpand: %w", err)
		}
		if unsat {
			fmt.Println("UNSAT")
			return nil
		}

		for i, m := range models {
			fmt.Printf("=== model %d ===\n", i+1)
			printModel(m, names)
		}
		if optimum != nil {
			fmt.Printf("optimum = %g\n", *optimum)
		}
		if len(models) == 0 {
			fmt.Println("no models found within the configured search bound")
		}
		return nil
	},
}

// atomsMatchingNames returns the atom ids of names whose recorded
// name starts with one of voc's entries followed by "(", i.e. any
// tuple of that predicate — spec §6's output-voc is a set of symbols,
// not individual atoms.
func atomsMatchingNames(names map[int]string, voc []string) map[int]bool {
	if len(voc) == 0 {
		return nil
	}
	out := make(map[int]bool)
	for id, name := range names {
		for _, v := range voc {
			if strings.HasPrefix(name, v+"(") || name == v {
				out[id] = true
			}
		}
	}
	return out
}

// assumptionLiterals resolves --assume predicate names (with an
// optional leading ~ for negation) against the grounded atom-name
// table, forcing every matching atom to the requested sign.
func assumptionLiterals(names map[int]string, assume []string) []ecnf.Literal {
	var out []ecnf.Literal
	for _, a := range assume {
		neg := strings.HasPrefix(a, "~")
		name := strings.TrimPrefix(a, "~")
		for id, n := range names {
			if strings.HasPrefix(n, name+"(") || n == name {
				lit := ecnf.Literal(id)
				if neg {
					lit = lit.Negate()
				}
				out = append(out, lit)
			}
		}
	}
	return out
}

func parseAggKind(s string) (ecnf.AggKind, error) {
	switch strings.ToLower(s) {
	case "card":
		return ecnf.AggCard, nil
	case "sum":
		return ecnf.AggSum, nil
	case "prod":
		return ecnf.AggProd, nil
	case "min":
		return ecnf.AggMin, nil
	case "max":
		return ecnf.AggMax, nil
	default:
		return 0, fmt.Errorf("unknown --minimize-agg %q (want card|sum|prod|min|max)", s)
	}
}

func printModel(m inference.Model, names map[int]string) {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = fmt.Sprintf("atom(%d)", id)
		}
		fmt.Printf("  %s = %v\n", name, m[id])
	}
}
