package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
)

// pdfParser reads PDFs with the eino pdf parser. Files the library cannot
// decode, or decodes to no text, are retried with poppler's pdftotext when
// it is installed.
type pdfParser struct {
	primary  parser.Parser
	fallback string
}

func newPDFParser(ctx context.Context) (*pdfParser, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, err
	}
	return &pdfParser{primary: p, fallback: "pdftotext"}, nil
}

func (p *pdfParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	docs, err := p.primary.Parse(ctx, bytes.NewReader(data), opts...)
	if err == nil && hasText(docs) {
		return docs, nil
	}
	path, lookErr := exec.LookPath(p.fallback)
	if lookErr != nil {
		if err != nil {
			return nil, err
		}
		return docs, nil
	}
	log.Printf("pdf library gave no text (err=%v), retrying with %s", err, path)
	return pdfToText(ctx, path, data, opts...)
}

func hasText(docs []*schema.Document) bool {
	for _, d := range docs {
		if d != nil && strings.TrimSpace(d.Content) != "" {
			return true
		}
	}
	return false
}

func pdfToText(ctx context.Context, bin string, data []byte, opts ...parser.Option) ([]*schema.Document, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-layout", "-enc", "UTF-8", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	common := parser.GetCommonOptions(&parser.Options{}, opts...)
	doc := &schema.Document{
		Content:  stdout.String(),
		MetaData: map[string]any{},
	}
	for k, v := range common.ExtraMeta {
		doc.MetaData[k] = v
	}
	return []*schema.Document{doc}, nil
}
