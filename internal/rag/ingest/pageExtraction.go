package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/akolanti/PortfolioChat/internal/rag/vision"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

func (p *Pipeline) extractPDF(data []byte) ([]rawPage, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []rawPage
	numPages := r.NumPage()
	p.logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := p.protectExtract(page)
		if err != nil {
			// one unreadable page should not lose the rest of the document
			p.logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		pages = append(pages, rawPage{Number: i, Content: content})
	}
	return pages, nil
}

// extractDocument reads .docx, .odt and .rtf. cat picks the parser from the file extension,
// so the upload is spooled to a temp file carrying the sniffed one.
func (p *Pipeline) extractDocument(data []byte, ext string) ([]rawPage, error) {
	f, err := os.CreateTemp("", "ingest-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	text, err := cat.File(f.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", ext, err)
	}
	//word processors do not expose page breaks here, everything lands on page 1
	return []rawPage{{Number: 1, Content: text}}, nil
}

func (p *Pipeline) extractImage(ctx context.Context, data []byte, mimeType, fileName string) ([]rawPage, *vision.ImageMetadata, error) {
	if p.describer == nil {
		return nil, nil, errors.New("image description is not configured")
	}
	meta, err := p.describer.Describe(ctx, data, mimeType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to describe image: %w", err)
	}
	return []rawPage{{Number: 1, Content: vision.FormatMetadataAsText(meta, fileName)}}, &meta, nil
}

func (p *Pipeline) protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("malformed page: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(p.pageTimeout):
		p.logger.Error("pageExtract", "timeout", p.pageTimeout)
		return "", errors.New("timeout")
	}
}
