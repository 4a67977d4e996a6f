package sqliteDB

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	document_name TEXT    NOT NULL,
	chunk_index   INTEGER NOT NULL,
	text          TEXT    NOT NULL,
	start_char    INTEGER NOT NULL DEFAULT 0,
	end_char      INTEGER NOT NULL DEFAULT 0,
	page          INTEGER NOT NULL DEFAULT 0,
	source        TEXT    NOT NULL DEFAULT '',
	dim           INTEGER NOT NULL,
	vector        BLOB    NOT NULL,
	created_at    INTEGER NOT NULL,
	UNIQUE(document_name, chunk_index)
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_name);`

type row struct {
	DocumentName string `db:"document_name"`
	ChunkIndex   int    `db:"chunk_index"`
	Text         string `db:"text"`
	StartChar    int    `db:"start_char"`
	EndChar      int    `db:"end_char"`
	Page         int    `db:"page"`
	Source       string `db:"source"`
	Dim          int    `db:"dim"`
	Vector       []byte `db:"vector"`
	CreatedAt    int64  `db:"created_at"`
}

// Store keeps chunks in a single SQLite table. Replacing or deleting a document is one transaction.
type Store struct {
	db     *sqlx.DB
	logger *logger_i.Logger
}

func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, config.SQLiteBusyTimeoutMs)
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, ragErrors.StoreUnavailable(err)
	}
	// one writer at a time; readers share the WAL
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, ragErrors.StoreUnavailable(fmt.Errorf("create schema: %w", err))
	}
	s := &Store{db: db, logger: logger_i.NewLogger("sqlite_vector_store")}
	s.logger.Info("SQLite vector store opened", "path", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) UpsertDocument(ctx context.Context, name string, chunks []commonModels.EmbeddedChunk) (err error) {
	log := s.logger.WithContext(ctx)
	if len(chunks) > 0 {
		if err := s.checkDimension(ctx, len(chunks[0].Vector)); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ragErrors.StoreUnavailable(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_name = ?`, name); err != nil {
		return ragErrors.StoreUnavailable(err)
	}
	const insert = `INSERT INTO chunks
		(document_name, chunk_index, text, start_char, end_char, page, source, dim, vector, created_at)
		VALUES (:document_name, :chunk_index, :text, :start_char, :end_char, :page, :source, :dim, :vector, :created_at)
		ON CONFLICT(document_name, chunk_index) DO NOTHING`
	for _, c := range chunks {
		created := c.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		r := row{
			DocumentName: name,
			ChunkIndex:   c.Index,
			Text:         c.Text,
			StartChar:    c.StartChar,
			EndChar:      c.EndChar,
			Page:         c.Page,
			Source:       c.Source,
			Dim:          len(c.Vector),
			Vector:       encodeVector(c.Vector),
			CreatedAt:    created.UnixMilli(),
		}
		if _, err = tx.NamedExecContext(ctx, insert, r); err != nil {
			return ragErrors.StoreUnavailable(err)
		}
	}
	if err = tx.Commit(); err != nil {
		return ragErrors.StoreUnavailable(err)
	}
	log.Debug("Document upserted", "document", name, "chunks", len(chunks))
	return nil
}

func (s *Store) checkDimension(ctx context.Context, dim int) error {
	var existing []int
	if err := s.db.SelectContext(ctx, &existing, `SELECT dim FROM chunks LIMIT 1`); err != nil {
		return ragErrors.StoreUnavailable(err)
	}
	if len(existing) > 0 && existing[0] != dim {
		return ragErrors.Validation("vector dimension %d does not match stored dimension %d", dim, existing[0])
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]commonModels.ScoredChunk, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `SELECT document_name, chunk_index, text, dim, vector, created_at FROM chunks`); err != nil {
		return nil, ragErrors.StoreUnavailable(err)
	}
	candidates := make([]commonModels.EmbeddedChunk, 0, len(rows))
	for _, r := range rows {
		candidates = append(candidates, r.toChunk())
	}
	return vectorDB.Rank(query, candidates, topK, threshold), nil
}

func (s *Store) DeleteDocument(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_name = ?`, name)
	if err != nil {
		return false, ragErrors.StoreUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ragErrors.StoreUnavailable(err)
	}
	return n > 0, nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return ragErrors.StoreUnavailable(err)
	}
	return nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names, `SELECT DISTINCT document_name FROM chunks ORDER BY document_name`); err != nil {
		return nil, ragErrors.StoreUnavailable(err)
	}
	return names, nil
}

func (s *Store) GetDocumentDetails(ctx context.Context) ([]commonModels.IndexedDocument, error) {
	var rows []struct {
		Name       string `db:"document_name"`
		ChunkCount int    `db:"chunk_count"`
		CreatedAt  int64  `db:"created_at"`
	}
	const q = `SELECT document_name, COUNT(*) AS chunk_count, MIN(created_at) AS created_at
		FROM chunks GROUP BY document_name ORDER BY document_name`
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, ragErrors.StoreUnavailable(err)
	}
	out := make([]commonModels.IndexedDocument, 0, len(rows))
	for _, r := range rows {
		out = append(out, commonModels.IndexedDocument{
			Name:       r.Name,
			ChunkCount: r.ChunkCount,
			CreatedAt:  time.UnixMilli(r.CreatedAt),
		})
	}
	return out, nil
}

func (r row) toChunk() commonModels.EmbeddedChunk {
	return commonModels.EmbeddedChunk{
		Chunk: commonModels.Chunk{
			Text:      r.Text,
			Index:     r.ChunkIndex,
			StartChar: r.StartChar,
			EndChar:   r.EndChar,
			Page:      r.Page,
			Source:    r.Source,
		},
		Vector:       decodeVector(r.Vector, r.Dim),
		DocumentName: r.DocumentName,
		CreatedAt:    time.UnixMilli(r.CreatedAt),
	}
}
