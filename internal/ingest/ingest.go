// Package ingest builds a new retriever from an uploaded document and
// installs it as the active one.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/embed"
	"docqa/internal/extract"
	"docqa/internal/llm"
	"docqa/internal/log"
	"docqa/internal/models"
	"docqa/internal/retrieval"
	"docqa/internal/store"
)

// Pipeline wires extraction, chunking, batched embedding and index
// construction into one synchronous ingest operation.
type Pipeline struct {
	cfg *config.Config
	emb llm.Embedder
	mgr *retrieval.Manager
	st  store.Store
	lg  *log.Logger
}

func NewPipeline(cfg *config.Config, emb llm.Embedder, mgr *retrieval.Manager, st store.Store, lg *log.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, emb: emb, mgr: mgr, st: st, lg: lg}
}

// Ingest processes one uploaded file. On any failure the active slot and
// the previous backing file are left untouched; only the just-written
// temp copy is removed. On success the new retriever replaces the old one
// atomically and the old backing file is deleted.
func (p *Pipeline) Ingest(ctx context.Context, filename string, data []byte) (models.UploadResult, error) {
	var zero models.UploadResult

	text, err := extract.Text(filename, data, p.cfg.MinTextChars)
	if err != nil {
		return zero, err
	}
	texts, err := chunker.Split(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return zero, err
	}
	if len(texts) == 0 {
		return zero, fmt.Errorf("%w: no chunks produced", extract.ErrNoText)
	}

	if err := os.MkdirAll(p.cfg.DataDir, 0o755); err != nil {
		return zero, err
	}
	path := filepath.Join(p.cfg.DataDir, uuid.NewString()+"_"+filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return zero, err
	}

	batcher := embed.New(p.emb, p.cfg.EmbeddingModel, p.cfg.EmbedWorkers)
	vectors, err := batcher.Embed(ctx, texts)
	if err != nil {
		_ = os.Remove(path)
		return zero, err
	}

	chunks := make([]models.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = models.Chunk{Ordinal: i, Text: t}
	}
	doc := models.DocumentInfo{
		Filename:   filepath.Base(filename),
		Size:       int64(len(data)),
		Path:       path,
		UploadedAt: time.Now().UTC(),
	}
	next, err := retrieval.New(chunks, vectors, p.emb, p.cfg.EmbeddingModel, doc)
	if err != nil {
		_ = os.Remove(path)
		return zero, err
	}

	old, hadOld := p.mgr.Replace(next)
	if err := p.st.SetDocument(next.Document()); err != nil {
		p.lg.Warn("ingest.document_record", "error", err.Error())
	}
	p.lg.Info("ingest.done",
		"filename", doc.Filename,
		"chunks", len(chunks),
		"bytes", doc.Size,
		"replaced", hadOld,
	)

	res := models.UploadResult{
		Message:     "Document processed successfully",
		ChunksCount: len(chunks),
		IsUpdate:    hadOld,
		Filename:    doc.Filename,
		FileSize:    doc.Size,
	}
	if hadOld {
		res.PreviousChunks = old.ChunkCount
	}
	return res, nil
}

// Clear empties the active slot, deletes the backing file and drops the
// current-document record. Reports whether a document was loaded.
func (p *Pipeline) Clear() (models.DocumentInfo, bool, error) {
	old, had := p.mgr.Clear()
	if err := p.st.ClearDocument(); err != nil {
		return old, had, err
	}
	if had {
		p.lg.Info("ingest.cleared", "filename", old.Filename)
	}
	return old, had, nil
}
