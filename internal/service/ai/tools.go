package ai

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"docchat/internal/models"
)

// ChunkReader gives the model access to neighbouring chunks of a document.
type ChunkReader interface {
	Chunk(documentID int64, index int) (models.Chunk, int, bool)
}

func InitToolsChain(reader ChunkReader) []tool.BaseTool {
	var tools []tool.BaseTool
	if dr := initDocumentReader(reader); dr != nil {
		tools = append(tools, dr)
	}
	return tools
}

type documentReader struct {
	reader  ChunkReader
	limiter *toolRateLimiter
}

type documentReaderParams struct {
	DocumentID int64 `json:"document_id"`
	ChunkIndex int   `json:"chunk_index,omitempty"`
}

func initDocumentReader(reader ChunkReader) tool.InvokableTool {
	if reader == nil {
		return nil
	}
	dr := &documentReader{
		reader:  reader,
		limiter: newToolRateLimiter(ReaderRateLimit, ReaderRateWindow),
	}
	info := &schema.ToolInfo{
		Name: "document_reader",
		Desc: "Read one chunk of an uploaded document. Provide the document_id shown next to a context passage and a zero-based chunk_index.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"document_id": {
				Desc:     "ID of the document, as shown in the context.",
				Type:     schema.Integer,
				Required: true,
			},
			"chunk_index": {
				Desc:     "Zero-based chunk index to read, default 0.",
				Type:     schema.Integer,
				Required: false,
			},
		}),
	}
	return utils.NewTool(info, dr.run)
}

func (d *documentReader) run(ctx context.Context, params *documentReaderParams) (string, error) {
	if params == nil || params.DocumentID <= 0 {
		return "", errors.New("document_id is required")
	}
	if !d.limiter.Allow(fmt.Sprintf("doc:%d", params.DocumentID)) {
		return "", errors.New("document reader rate limit exceeded, please retry in a minute")
	}
	idx := params.ChunkIndex
	if idx < 0 {
		idx = 0
	}
	chunk, total, ok := d.reader.Chunk(params.DocumentID, idx)
	if !ok {
		if total == 0 {
			return "", fmt.Errorf("document %d is not indexed", params.DocumentID)
		}
		log.Printf("document_reader: chunk %d of document %d out of range", idx, params.DocumentID)
		chunk, _, _ = d.reader.Chunk(params.DocumentID, total-1)
		idx = total - 1
	}
	return fmt.Sprintf("File: %s\nChunk %d/%d\n\n%s", chunk.FileName, idx+1, total, chunk.Text), nil
}
