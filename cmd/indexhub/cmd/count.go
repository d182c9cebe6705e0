package cmd

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/spf13/cobra"
)

// newCountCmd creates the count command: run a counting query over one or
// more indexes.
func newCountCmd() *cobra.Command {
	var indexes []string
	var terms []string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count documents matching field:term restrictions",
		Long: `Count the documents matching every field:term restriction, across one
index or a merged view over several. No restriction counts all documents.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close(cmd.Context()) }()
			for _, id := range indexes {
				if err := a.register(id); err != nil {
					return err
				}
			}

			q, err := buildQuery(terms)
			if err != nil {
				return err
			}

			ml, err := a.manager.GrabMultiReader(cmd.Context(), indexes)
			if err != nil {
				return err
			}
			defer func() { _ = a.manager.ReleaseMulti(ml) }()

			n, err := ml.Searcher().Count(cmd.Context(), q)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&indexes, "index", "i", []string{"default"}, "Index id(s) to count over")
	cmd.Flags().StringSliceVarP(&terms, "term", "t", nil, "field:term restriction (repeatable)")
	return cmd
}

// buildQuery conjoins field:term restrictions; none means match-all.
func buildQuery(terms []string) (query.Query, error) {
	if len(terms) == 0 {
		return query.NewMatchAllQuery(), nil
	}
	conjuncts := make([]query.Query, 0, len(terms))
	for _, spec := range terms {
		field, term, ok := strings.Cut(spec, ":")
		if !ok || field == "" || term == "" {
			return nil, fmt.Errorf("invalid restriction %q, want field:term", spec)
		}
		tq := query.NewTermQuery(term)
		tq.SetField(field)
		conjuncts = append(conjuncts, tq)
	}
	if len(conjuncts) == 1 {
		return conjuncts[0], nil
	}
	return query.NewConjunctionQuery(conjuncts), nil
}
