package cli

import (
	"context"
	"errors"
	"os"

	"github.com/akolanti/PortfolioChat/internal/bootstrap"
	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/rag"
	"github.com/akolanti/PortfolioChat/internal/rag/ingest"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/spf13/cobra"
)

// Portfolio is the part of the RAG service the commands drive.
type Portfolio interface {
	Chat(ctx context.Context, req rag.ChatRequest) (rag.ChatResponse, error)
	IngestDocument(ctx context.Context, in ingest.FileInput) (ingest.Result, error)
	ListDocuments(ctx context.Context) ([]commonModels.IndexedDocument, error)
	DeleteDocument(ctx context.Context, name string) (bool, error)
	ClearDocuments(ctx context.Context) error
	Health(ctx context.Context) rag.Health
}

var (
	configPath string
	verbose    bool

	portfolio Portfolio
	closeApp  = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Administer the portfolio knowledge base",
	Long: `ragctl ingests documents into the vector store, lists and deletes them,
and asks the assistant questions, using the same configuration as the API server.`,
	SilenceUsage:      true,
	PersistentPreRunE: connect,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { closeApp() },
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// SetPortfolio replaces the bootstrapped service. Used by tests.
func SetPortfolio(p Portfolio) {
	portfolio = p
}

// connect builds the service once per process. Only ask and health need completion providers.
func connect(cmd *cobra.Command, args []string) error {
	if portfolio != nil || cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger_i.InitCLI(verbose)

	ctx, cancel := context.WithCancel(context.Background())
	app, err := bootstrap.Build(ctx, settings, bootstrap.Options{SkipProviders: cmd != askCmd && cmd != healthCmd})
	if err != nil {
		cancel()
		return err
	}
	portfolio = app.Rag
	closeApp = func() {
		app.Close()
		cancel()
	}
	return nil
}

func Execute() error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

var errNotConfigured = errors.New("portfolio service not configured")
