package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saeedalam/radscribe/internal/bridge"
	"github.com/saeedalam/radscribe/internal/expand"
	"github.com/saeedalam/radscribe/internal/registry"
	"github.com/saeedalam/radscribe/internal/worker"
)

var watchExpandTo string

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-detect context every time a dictation file changes",
	Long: `Watch a dictation buffer file and re-run detection on every save.

Each change prints the detected body part (and modality with auto-detect).
With --expand-to, the expanded buffer is written to another file after
every change, using the body part detected from that same text.

Example:
  radscribe watch dictation.txt
  radscribe watch dictation.txt --expand-to report.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchExpandTo, "expand-to", "", "Write the expanded buffer to this file after each change")
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(watchExpandTo != "")
	if err != nil {
		return err
	}
	defer e.log.Sync()

	modality, bodyPart, err := e.classifiers()
	if err != nil {
		return err
	}
	b := bridge.New(modality, bodyPart, e.cfg.AutoDetect)

	var src registry.Source
	if watchExpandTo != "" {
		store, err := e.openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		src = registry.New(store, e.cfg.User)
	}
	engine := expand.NewEngine(e.log)

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := worker.NewWatcher(args[0], b, e.log, worker.WatcherConfig{Debounce: e.cfg.Watch.Debounce})
	out := cmd.OutOrStdout()
	w.OnDetection(func(text string, snap bridge.Snapshot) {
		if snap.AutoDetect {
			fmt.Fprintf(out, "Modality: %-18s ", labelOr(snap.ModalityLabel()))
		}
		fmt.Fprintf(out, "Body part: %s\n", labelOr(snap.BodyPartLabel()))

		if src == nil {
			return
		}
		if err := writeExpansion(ctx, b, src, engine, text, watchExpandTo); err != nil {
			e.log.Warn("Expansion failed", zap.String("path", watchExpandTo), zap.Error(err))
		}
	})

	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	<-ctx.Done()

	stats := w.GetStats()
	e.log.Info("Watcher stopped", zap.Int("updates", stats.Updates), zap.Int("errors", stats.ErrorCount))
	return nil
}

// writeExpansion expands text with the bridge's current context into path
func writeExpansion(ctx context.Context, b *bridge.Bridge, src registry.Source, engine *expand.Engine, text, path string) error {
	res, err := b.Expand(ctx, text, src, engine)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(res.Text), 0644)
}

func labelOr(label string) string {
	if label == "" {
		return "(none)"
	}
	return label
}
