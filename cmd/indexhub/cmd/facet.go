package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/indexhub/internal/facet"
)

// newFacetCmd creates the facet command: compute a term facet over leased
// searchers.
func newFacetCmd() *cobra.Command {
	var indexes []string
	var field string
	var filterSpecs []string
	var size int
	var maxTerms int

	cmd := &cobra.Command{
		Use:   "facet",
		Short: "Compute a term facet on a field",
		Long: `Enumerate the distinct values of a field and count the documents per
value, optionally narrowed by field:term filters. Filters on the faceted
field itself are left out of the narrowing, so alternative values keep
their counts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if field == "" {
				return fmt.Errorf("--field is required")
			}

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

			filters := make([]facet.Filter, 0, len(filterSpecs))
			for _, spec := range filterSpecs {
				f, term, ok := strings.Cut(spec, ":")
				if !ok || f == "" || term == "" {
					return fmt.Errorf("invalid filter %q, want field:term", spec)
				}
				filters = append(filters, facet.NewTermFilter(f, term))
			}

			ml, err := a.manager.GrabMultiReader(cmd.Context(), indexes)
			if err != nil {
				return err
			}
			defer func() { _ = a.manager.ReleaseMulti(ml) }()

			start := time.Now()
			res, err := facet.NewFieldFacet(field, maxTerms).
				Compute(cmd.Context(), ml.Searcher(), nil, filters, size)
			if err != nil {
				return err
			}
			a.metrics.FacetLatency.WithLabelValues("term").Observe(time.Since(start).Seconds())

			out := cmd.OutOrStdout()
			for term, count := range res.Terms.Entries() {
				fmt.Fprintf(out, "%s\t%d\n", term, count)
			}
			if res.Flexible {
				fmt.Fprintf(out, "total\t%d\n", res.TotalResults)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&indexes, "index", "i", []string{"default"}, "Index id(s) to facet over")
	cmd.Flags().StringVarP(&field, "field", "f", "", "Field to facet on")
	cmd.Flags().StringSliceVar(&filterSpecs, "filter", nil, "field:term filter (repeatable)")
	cmd.Flags().IntVarP(&size, "size", "n", 20, "Number of top values to keep")
	cmd.Flags().IntVar(&maxTerms, "max-terms", 0, "Cap on enumerated distinct values")
	return cmd
}
