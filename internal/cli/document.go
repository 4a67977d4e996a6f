package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage indexed documents",
	Long:    `List, delete, or clear the documents in the vector store.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete one document and all of its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every indexed document",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsClear,
}

var (
	documentsJSON bool
	clearConfirm  bool
)

func init() {
	documentsListCmd.Flags().BoolVar(&documentsJSON, "json", false, "output documents as JSON")
	documentsClearCmd.Flags().BoolVarP(&clearConfirm, "yes", "y", false, "confirm deleting every document")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsClearCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	if portfolio == nil {
		return errNotConfigured
	}
	docs, err := portfolio.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentsJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed")
		return nil
	}
	total := 0
	for _, d := range docs {
		cmd.Printf("  %-40s %4d chunks  %s\n", d.Name, d.ChunkCount, d.CreatedAt.Format("2006-01-02 15:04"))
		total += d.ChunkCount
	}
	cmd.Printf("\nTotal: %d documents, %d chunks\n", len(docs), total)
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if portfolio == nil {
		return errNotConfigured
	}
	deleted, err := portfolio.DeleteDocument(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !deleted {
		cmd.Printf("No document named %s\n", args[0])
		return nil
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}

func runDocumentsClear(cmd *cobra.Command, args []string) error {
	if !clearConfirm {
		return fmt.Errorf("refusing to delete every document without --yes")
	}
	if portfolio == nil {
		return errNotConfigured
	}
	if err := portfolio.ClearDocuments(context.Background()); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	cmd.Println("All documents deleted")
	return nil
}
