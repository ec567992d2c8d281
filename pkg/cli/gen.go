package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/diffsmith/internal/generator"
	"github.com/funvibe/diffsmith/internal/pipeline"
)

func newGenCmd(g *globals) *cobra.Command {
	var (
		seed        string
		output      string
		dumpOptions bool
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Print the program synthesized from a seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}
			if dumpOptions {
				data, err := yaml.Marshal(opts)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if seed == "" {
				seed = generator.NewSeedSource(0, 0, 0).Next().String()
			}

			pc := pipeline.New(generator.Processor{}).WithLogger(g.logger).
				Run(cmd.Context(), pipeline.NewContext(seed, opts))
			if err := pc.Err(); err != nil {
				return err
			}
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), pc.Source)
				return err
			}
			return os.WriteFile(output, []byte(pc.Source), 0o644)
		},
	}
	cmd.Flags().StringVarP(&seed, "seed", "s", "", "seed, optionally with tags (e.g. 42-vectors,unsafe); random when empty")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the program to a file")
	cmd.Flags().BoolVar(&dumpOptions, "dump-options", false, "print the effective generation profile as YAML")
	return cmd
}
