package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dataqual-cli/internal/suggest"
	"github.com/KaramelBytes/dataqual-cli/internal/utils"
)

var (
	sugIngest     ingestFlags
	sugTable      string
	sugJSON       bool
	sugOutputPath string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <file>",
	Short: "Print SQL cleanup suggestions for a dataset",
	Example: `  dataqual suggest customers.csv --table customers
  dataqual suggest customers.csv --json -o fixes.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		_, rep, err := loadDataset(args[0], &sugIngest, c)
		if err != nil {
			return err
		}
		table := tableName(c, sugTable)
		suggestions := suggest.Generate(rep, table)

		var data []byte
		if sugJSON {
			b, err := utils.PrettyJSON(map[string]any{"table": table, "suggestions": suggestions})
			if err != nil {
				return err
			}
			data = append(b, '\n')
		} else {
			var b strings.Builder
			fmt.Fprintf(&b, "# Cleanup suggestions for %s\n\n", args[0])
			b.WriteString(suggest.Markdown(suggestions))
			data = []byte(b.String())
		}
		if err := utils.WriteOutput(cmd.OutOrStdout(), sugOutputPath, data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		if sugOutputPath != "" && sugOutputPath != "-" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d suggestion(s) to %s\n", len(suggestions), sugOutputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	sugIngest.bind(suggestCmd.Flags())
	suggestCmd.Flags().StringVar(&sugTable, "table", "", "table name used in the SQL (default from config)")
	suggestCmd.Flags().BoolVar(&sugJSON, "json", false, "emit JSON instead of markdown")
	suggestCmd.Flags().StringVarP(&sugOutputPath, "output", "o", "", "write suggestions to this file instead of stdout")
}
