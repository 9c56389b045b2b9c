package sink

import (
	"context"
	"fmt"
	"log"

	"metaexport/internal/ddl"
	"metaexport/internal/schema"
	"metaexport/internal/storage"
)

// DefaultBatchSize is used when DBConfig.BatchSize is not positive.
const DefaultBatchSize = 500

// DBConfig configures the database sink.
type DBConfig struct {
	// Kind is the storage kind, used to pick the DDL bootstrapper.
	Kind  string
	Table string
	// RunID stamps every row so repeated exports can share a table.
	RunID           string
	BatchSize       int
	AutoCreateTable bool
}

// DBSink mirrors the export rows into a table laid out as ddl.RowColumns.
// The header argument of Write is ignored; columns are fixed.
type DBSink struct {
	repo storage.Repository
	cfg  DBConfig
}

// NewDBSink returns a DBSink writing through repo. The caller owns repo.
func NewDBSink(repo storage.Repository, cfg DBConfig) (*DBSink, error) {
	if repo == nil {
		return nil, fmt.Errorf("db sink: repository must not be nil")
	}
	if cfg.RunID == "" {
		return nil, fmt.Errorf("db sink: run id must not be empty")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &DBSink{repo: repo, cfg: cfg}, nil
}

func (s *DBSink) Write(ctx context.Context, _ []string, rows []schema.Row) error {
	if s.cfg.AutoCreateTable {
		if err := storage.EnsureTable(ctx, s.cfg.Kind, s.repo, s.cfg.Table); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, s.cfg.BatchSize)
	go func() {
		defer close(in)
		for _, r := range rows {
			select {
			case in <- rowValues(s.cfg.RunID, r):
			case <-ctx.Done():
				return
			}
		}
	}()

	n, err := storage.LoadBatches(ctx, ddl.RowColumnNames(), in, s.cfg.BatchSize, s.repo.CopyFrom)
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}
	log.Printf("sink: db table=%s run_id=%s rows=%d", s.cfg.Table, s.cfg.RunID, n)
	return nil
}

// rowValues orders r's values like ddl.RowColumns.
func rowValues(runID string, r schema.Row) []any {
	return []any{
		runID,
		int64(r.Index),
		r.ID,
		r.Handle,
		r.Command,
		r.DisplayName,
		r.Status,
		r.UpdatedAt,
		r.DefinitionHandle,
		r.DefinitionName,
		r.TopRow,
		r.Field,
		r.Value,
	}
}
