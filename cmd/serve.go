package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dataqual-cli/internal/ai"
	"github.com/KaramelBytes/dataqual-cli/internal/server"
)

var (
	srvAddr       string
	srvIngest     ingestFlags
	srvNoInsights bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Example: `  dataqual serve
  dataqual serve --addr 127.0.0.1:9000
  curl -F file=@sales.csv http://localhost:8080/api/analyze`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		ingestOpt, err := srvIngest.options()
		if err != nil {
			return err
		}
		store, closeFn, err := openHistory(c)
		if err != nil {
			return err
		}
		defer closeFn()

		var in *ai.Insighter
		if !srvNoInsights {
			in, _, err = newInsighter(c, runtimeOptions{})
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: insights disabled: %v\n", err)
				in = nil
			}
		}

		addr := srvAddr
		if addr == "" {
			addr = c.ServerAddr
		}
		if addr == "" {
			addr = ":8080"
		}
		srv := server.New(server.Options{
			Policy:         c.Policy,
			Ingest:         ingestOpt,
			History:        store,
			Insighter:      in,
			Logger:         log,
			MaxUploadBytes: int64(c.MaxUploadMB) << 20,
			CORSOrigins:    c.CORSOrigins,
			InsightsPerMin: c.InsightsRatePerMin,
			SampleRows:     c.InsightsSampleRows,
			DefaultTable:   tableName(c, ""),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on %s (history: %s)\n", addr, c.HistoryBackend)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	srvIngest.bind(serveCmd.Flags())
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&srvNoInsights, "no-insights", false, "disable the insights endpoint")
}
