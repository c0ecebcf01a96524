package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"pdf-chat/internal/chunker"
	"pdf-chat/internal/parser"
)

// Adder is the write side of the vector store.
type Adder interface {
	AddTexts(ctx context.Context, texts []string) error
}

// Pipeline extracts, chunks and stores uploaded PDFs.
type Pipeline struct {
	extractor parser.Extractor
	chunker   *chunker.Chunker
	store     Adder
}

type Report struct {
	Documents int
	Chunks    int
	Failed    []string
}

func NewPipeline(extractor parser.Extractor, c *chunker.Chunker, store Adder) *Pipeline {
	return &Pipeline{extractor: extractor, chunker: c, store: store}
}

// Ingest adds the chunks of every parseable upload to the store as one batch.
// Uploads that fail to parse are skipped and listed in the report.
func (p *Pipeline) Ingest(ctx context.Context, uploads []parser.Upload) (Report, error) {
	start := time.Now()
	defer func() {
		log.Info().Dur("duration", time.Since(start)).Int("uploads", len(uploads)).Msg("Ingestion finished")
	}()

	texts, failed := parser.ExtractTexts(p.extractor, uploads)
	report := Report{Documents: len(texts), Failed: failed}
	if len(texts) == 0 {
		return report, nil
	}

	chunks, err := p.chunker.ChunkDocuments(texts)
	if err != nil {
		return report, err
	}
	if len(chunks) == 0 {
		return report, nil
	}

	log.Info().Int("documents", len(texts)).Int("chunks", len(chunks)).Msg("Adding chunks to vector store")
	if err := p.store.AddTexts(ctx, chunks); err != nil {
		return report, fmt.Errorf("failed to store chunks: %w", err)
	}
	report.Chunks = len(chunks)
	return report, nil
}

// ReadUploads loads files from disk as uploads, keeping the given order.
func ReadUploads(paths []string) ([]parser.Upload, error) {
	uploads := make([]parser.Upload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		uploads = append(uploads, parser.Upload{Name: filepath.Base(path), Data: data})
	}
	return uploads, nil
}
