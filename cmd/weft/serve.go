package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/weft-ui/weft/pkg/memhost"
	"github.com/weft-ui/weft/pkg/metrics"
	"github.com/weft-ui/weft/pkg/serve"
	"github.com/weft-ui/weft/pkg/weft"
)

func serveCmd() *cobra.Command {
	var addr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo counter app over WebSocket",
		Long: `Serve a minimal counter application: one session per client,
committed host mutations streamed as binary frames. Endpoints:

  /ws       WebSocket transport
  /metrics  Prometheus metrics
  /healthz  health check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
				weft.DebugMode = true
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			observer := metrics.NewPromObserver()
			server := serve.NewServer(counterApp(observer), serve.WithLogger(logger))

			logger.Info("listening", "addr", addr)
			return http.ListenAndServe(addr, server.Router())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8420", "Listen address")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging and runtime checks")

	return cmd
}

var counterTemplate = &memhost.Template{
	Tag:         "div",
	StaticAttrs: map[string]string{"class": "counter"},
	EventHoles:  []string{"click"},
	ChildHoles:  1,
}

// counterApp builds one counter session: a component with reducer state and
// a click handler dispatching at the event's lane.
func counterApp(observer weft.Observer) serve.App {
	counter := func(rc *weft.RenderContext) any {
		count, setCount := weft.UseState(rc, 0)

		onClick := weft.UseCallback(rc, func(memhost.Event) {
			setCount(count + 1)
		}, []any{count})

		return counterTemplate.Bind(onClick, fmt.Sprintf("count: %d", count))
	}

	return func(doc *memhost.Document, backend *memhost.Backend) (*weft.Root, error) {
		root := weft.NewRoot(
			weft.Component(counter, nil),
			doc.Body(),
			backend,
			weft.WithObserver(observer),
		)
		root.Scope().SetErrorHandler(func(err error, rethrow func()) {
			slog.Error("counter failed", "err", err)
		})
		return root, nil
	}
}
