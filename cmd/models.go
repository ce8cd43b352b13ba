package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dataqual-cli/internal/ai"
	"github.com/KaramelBytes/dataqual-cli/internal/utils"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show known models, context windows and pricing used for estimates",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		cat := ai.Catalog()
		if modelsJSON {
			b, err := utils.PrettyJSON(cat)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(b))
			return err
		}
		for _, p := range ai.Providers() {
			fmt.Fprintf(w, "default for %s: %s\n", p, ai.DefaultModel(p))
		}
		fmt.Fprintln(w)
		for _, mi := range cat {
			fmt.Fprintf(w, "- %-36s context %7d  in $%.5f/1K  out $%.5f/1K\n", mi.Name, mi.ContextTokens, mi.InputPerK, mi.OutputPerK)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "emit JSON")
}
