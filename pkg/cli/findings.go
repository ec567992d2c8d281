package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/store"
)

func newFindingsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
		show   string
	)
	cmd := &cobra.Command{
		Use:   "findings",
		Short: "List the failures recorded by 'run --db'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath, config.Version)
			if err != nil {
				return err
			}
			defer st.Close()
			if show != "" {
				limit = 0
			}
			fs, err := st.Findings(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if show != "" {
				for _, f := range fs {
					if f.ID == show || f.Seed == show {
						src := f.ReducedSource
						if src == "" {
							src = f.Source
						}
						_, err := fmt.Fprint(cmd.OutOrStdout(), src)
						return err
					}
				}
				return fmt.Errorf("no finding %q", show)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tSEED\tKIND\tDETAIL\tSIZE")
			for _, f := range fs {
				size := fmt.Sprint(f.OriginalSize)
				if f.ReducedSize > 0 {
					size = fmt.Sprintf("%d -> %d", f.OriginalSize, f.ReducedSize)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", f.ID[:8], f.Created.Format("2006-01-02 15:04:05"), f.Seed, f.Kind, f.Detail, size)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", env.Str(config.EnvDatabase, config.DefaultDBFile), "SQLite findings database")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of findings to list; 0 lists all")
	cmd.Flags().StringVar(&show, "show", "", "print the program of the finding with this id or seed")
	return cmd
}
