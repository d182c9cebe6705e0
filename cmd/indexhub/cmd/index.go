package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/indexhub/internal/ingest"
	"github.com/Aman-CERP/indexhub/internal/manager"
	"github.com/Aman-CERP/indexhub/internal/store"
)

// newIndexCmd creates the index command: parse document XML files and
// submit their documents as indexing jobs.
func newIndexCmd() *cobra.Command {
	var index string
	var deleteIDs []string

	cmd := &cobra.Command{
		Use:   "index [files...]",
		Short: "Index document XML files",
		Long: `Parse document XML files and submit one update job per document to
the target index. Jobs commit asynchronously; the command waits for
every submitted job to settle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(deleteIDs) == 0 {
				return fmt.Errorf("nothing to do: pass files or --delete ids")
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close(cmd.Context()) }()
			if err := a.register(index); err != nil {
				return err
			}

			parser := ingest.NewParser(log)
			var jobs []*manager.Job

			for _, path := range args {
				docs, err := parser.ParseFile(path)
				if err != nil {
					return err
				}
				for _, doc := range docs {
					job, err := a.manager.Submit(index, &store.Job{
						Kind: store.UpdateDocument,
						Doc:  doc,
					})
					if err != nil {
						return err
					}
					jobs = append(jobs, job)
				}
			}
			for _, id := range deleteIDs {
				job, err := a.manager.Submit(index, &store.Job{
					Kind:  store.DeleteDocument,
					DocID: id,
				})
				if err != nil {
					return err
				}
				jobs = append(jobs, job)
			}

			failed := 0
			for _, job := range jobs {
				select {
				case <-job.Done():
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
				if job.State() != manager.JobCommitted {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "job %s: %s (%v)\n",
						job.ID, job.State(), job.Err())
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d job(s) committed, %d failed\n",
				len(jobs)-failed, failed)
			if failed > 0 {
				return fmt.Errorf("%d job(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&index, "index", "i", "default", "Target index id")
	cmd.Flags().StringSliceVar(&deleteIDs, "delete", nil, "Document ids to delete")
	return cmd
}
