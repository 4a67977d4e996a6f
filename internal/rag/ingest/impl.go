package ingest

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/rag/chunker"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

var wordProcessorTypes = []string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.oasis.opendocument.text",
	"text/rtf",
}

// classify sniffs the upload. The declared type only breaks ties when the content is opaque.
func classify(data []byte, declared string) (commonModels.DocType, string, string) {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/pdf"):
		return commonModels.PDF, mt.String(), mt.Extension()
	case mt.Is(wordProcessorTypes[0]), mt.Is(wordProcessorTypes[1]), mt.Is(wordProcessorTypes[2]):
		return commonModels.DOCX, mt.String(), mt.Extension()
	case strings.HasPrefix(mt.String(), "image/"):
		return commonModels.IMAGE, mt.String(), mt.Extension()
	case strings.HasPrefix(mt.String(), "text/"):
		return commonModels.TXT, mt.String(), mt.Extension()
	}

	declared = strings.ToLower(strings.TrimSpace(declared))
	if strings.HasPrefix(declared, "text/") {
		return commonModels.TXT, declared, ".txt"
	}
	return commonModels.ERR, mt.String(), ""
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// joinPages lays pages out the way the chunker normalizes text and returns the rune offset where each page starts.
func joinPages(pages []rawPage) (string, []int, []int) {
	var b strings.Builder
	var starts, numbers []int
	offset := 0
	for _, page := range pages {
		content := strings.ReplaceAll(page.Content, "\r\n", "\n")
		content = strings.TrimSpace(excessNewlines.ReplaceAllString(content, "\n\n"))
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
			offset += 2
		}
		starts = append(starts, offset)
		numbers = append(numbers, page.Number)
		b.WriteString(content)
		offset += len([]rune(content))
	}
	return b.String(), starts, numbers
}

func pageAt(offset int, starts, numbers []int) int {
	page := 0
	for i, s := range starts {
		if s > offset {
			break
		}
		page = numbers[i]
	}
	return page
}

func computeStats(text string, pages int, chunks []commonModels.Chunk) commonModels.IngestStats {
	stats := commonModels.IngestStats{
		Pages:     pages,
		Chunks:    len(chunks),
		BPETokens: chunker.CountBPETokens(text),
	}
	for _, c := range chunks {
		stats.TotalTokens += chunker.EstimateTokens(c.Text)
	}
	if len(chunks) > 0 {
		stats.AvgChunkTokens = (stats.TotalTokens + len(chunks)/2) / len(chunks)
	}
	return stats
}

func documentName(name string) string {
	return strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
}

// Outcome is one file's result inside a batch.
type Outcome struct {
	Name   string
	Result Result
	Err    error
}

// IngestBatch ingests files with bounded concurrency. A failing file never stops the others.
func (p *Pipeline) IngestBatch(ctx context.Context, files []FileInput) []Outcome {
	outcomes := make([]Outcome, len(files))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, f := range files {
		g.Go(func() error {
			res, err := p.IngestFile(ctx, f)
			outcomes[i] = Outcome{Name: f.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
