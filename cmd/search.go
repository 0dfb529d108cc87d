package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmercier/upc-harvester/internal/index"
)

func newSearchCmd() *cobra.Command {
	var (
		query string
		start string
		end   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Queries the full-text index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			startDt, err := parseFlagDate(start, "start")
			if err != nil {
				return err
			}
			endDt, err := parseFlagDate(end, "end")
			if err != nil {
				return err
			}

			idx, err := index.Open(cfg.Index.Dir)
			if err != nil {
				return err
			}
			defer idx.Close()

			hits, err := idx.Search(cmd.Context(), query, startDt, endDt, limit)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(hits, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "text query")
	cmd.Flags().StringVar(&start, "start", "", "start date DD/MM/YYYY")
	cmd.Flags().StringVar(&end, "end", "", "end date DD/MM/YYYY")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of results")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func parseFlagDate(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	dt, err := time.Parse("02/01/2006", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be DD/MM/YYYY: %w", name, err)
	}
	return dt, nil
}
