package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/rag"
	"github.com/spf13/cobra"
)

var askShowSource bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the portfolio assistant a question",
	Long:  `Runs one question through the guardrails, retrieval and the provider chain and prints the reply.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show document count and configured providers",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	askCmd.Flags().BoolVarP(&askShowSource, "source", "s", false, "print which layer produced the reply")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(healthCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if portfolio == nil {
		return errNotConfigured
	}
	question := strings.TrimSpace(strings.Join(args, " "))
	reply, err := portfolio.Chat(context.Background(), rag.ChatRequest{
		SessionID: "ragctl",
		Messages:  []commonModels.ChatMessage{{Role: commonModels.RoleUser, Content: question}},
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	cmd.Println(reply.Text())
	if askShowSource {
		cmd.Printf("\n[source: %s]\n", reply.Source)
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	if portfolio == nil {
		return errNotConfigured
	}
	h := portfolio.Health(context.Background())
	cmd.Printf("Status:            %s\n", h.Status)
	cmd.Printf("Documents:         %d\n", h.Documents)
	cmd.Printf("Keyword passages:  %d\n", h.KeywordPassages)
	providers := "none"
	if len(h.Providers) > 0 {
		providers = strings.Join(h.Providers, " -> ")
	}
	cmd.Printf("Providers:         %s\n", providers)
	return nil
}
