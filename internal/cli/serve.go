package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saeedalam/radscribe/internal/mcp"
	"github.com/saeedalam/radscribe/internal/storage"
)

var serveNoStore bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stdio JSON-RPC server for editor integration",
	Long: `Start the JSON-RPC 2.0 server on stdin/stdout.

Editors and dictation front-ends call the detect and expand tools as the
report is typed. One server session keeps one detection context, so an
expand call uses the body part from the latest detect call.

Macros come from the project's macro database. Outside a project, or with
--no-store, only inline macros passed to expand are used.

Examples:
  radscribe serve
  radscribe serve --auto-detect`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "Do not open the macro database")
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(false)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	var store *storage.MacroStore
	if !serveNoStore && e.dir != "" {
		store, err = e.openStore()
		if err != nil {
			return err
		}
		defer store.Close()
	}

	server, err := mcp.NewServer(mcp.Options{
		Tables:        e.tables,
		AutoDetect:    e.cfg.AutoDetect,
		Store:         store,
		Owner:         e.cfg.User,
		ReportBaseURL: e.cfg.Report.BaseURL,
		Version:       buildVersion,
		Log:           e.log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.log.Info("Serving on stdio", zap.String("user", e.cfg.User), zap.Bool("store", store != nil))

	// Blocks until stdin closes
	return server.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}
