package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/PortfolioChat/internal/rag/ingest"
	"github.com/spf13/cobra"
)

var ingestName string

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest files or directories",
	Long: `Extracts, chunks, embeds and stores each file. Directories are walked
recursively and hidden entries are skipped. A failed file does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "document name to index under (single file only)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if portfolio == nil {
		return errNotConfigured
	}
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if ingestName != "" && len(files) != 1 {
		return fmt.Errorf("--name needs exactly one file, got %d", len(files))
	}
	if len(files) == 0 {
		cmd.Println("No files to ingest")
		return nil
	}

	ctx := context.Background()
	failed := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("  FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		name := filepath.Base(path)
		if ingestName != "" {
			name = ingestName
		}
		res, err := portfolio.IngestDocument(ctx, ingest.FileInput{Name: name, Data: data})
		if err != nil {
			cmd.PrintErrf("  FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		cmd.Printf("  OK   %s (%s, %d chunks, %d pages)\n", res.DocumentName, res.DocType, res.Stats.Chunks, res.Stats.Pages)
	}

	cmd.Printf("\nIngested %d of %d files\n", len(files)-failed, len(files))
	if failed > 0 {
		return fmt.Errorf("%d files failed", failed)
	}
	return nil
}

// collectFiles expands directories into the regular files below them, in walk order.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			hidden := path != root && strings.HasPrefix(d.Name(), ".")
			switch {
			case d.IsDir() && hidden:
				return filepath.SkipDir
			case d.IsDir(), hidden, !d.Type().IsRegular():
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
