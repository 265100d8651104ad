package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/alphas/policyrag-go/internal/embedder"
	"github.com/alphas/policyrag-go/internal/logging"
	"github.com/alphas/policyrag-go/internal/server"
	"github.com/alphas/policyrag-go/internal/tracing"
)

// NewServeCmd constructs the `policyrag serve` command, which starts the
// HTTP server exposing the question-answering API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the policyrag HTTP server",
		Long: `Start the policyrag HTTP server on localhost.

The server exposes the question-answering API (/api/ask), document management
(/api/documents), corpus loading (/api/load), and health, readiness, and
Prometheus metrics endpoints.

Examples:
  policyrag serve
  policyrag serve --port 9090
  MODEL_PROVIDER=azure policyrag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting",
				slog.String("embedding_provider", embedder.ResolveBackend()),
				slog.String("model_provider", os.Getenv("MODEL_PROVIDER")),
			)

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer comps.close()

			pingers := []server.Pinger{server.NewIndexPinger(comps.index)}
			if embedder.ResolveBackend() == "ollama" {
				ollamaHost := os.Getenv("EMBEDDING_ENDPOINT")
				if ollamaHost == "" {
					ollamaHost = os.Getenv("OLLAMA_HOST")
				}
				if ollamaHost == "" {
					ollamaHost = "http://localhost:11434"
				}
				pingers = append(pingers, server.NewOllamaPinger(ollamaHost, "ollama"))
			}

			srv, err := server.New(comps.svc, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("POLICYRAG_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
