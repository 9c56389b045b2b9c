package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"metaexport/internal/schema"
)

// FileConfig places and formats the delimited output file.
type FileConfig struct {
	Dir       string
	Name      string
	Extension string
	Delimiter rune

	// TopRowLabel is written in the Top Row column of each record's first row.
	TopRowLabel string
}

// FileSink writes rows as a delimited text file at <Dir>/<Name>.<Extension>.
type FileSink struct {
	cfg FileConfig
}

// NewFileSink validates cfg and returns a FileSink.
func NewFileSink(cfg FileConfig) (*FileSink, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("file sink: name must not be empty")
	}
	switch cfg.Delimiter {
	case 0, '"', '\r', '\n', 0xFFFD:
		return nil, fmt.Errorf("file sink: invalid delimiter %q", cfg.Delimiter)
	}
	return &FileSink{cfg: cfg}, nil
}

// Path is where Write puts the file.
func (s *FileSink) Path() string {
	name := s.cfg.Name
	if s.cfg.Extension != "" {
		name += "." + s.cfg.Extension
	}
	return filepath.Join(s.cfg.Dir, name)
}

// Write creates the output directory if needed and replaces the file with
// header followed by rows.
func (s *FileSink) Write(ctx context.Context, header []string, rows []schema.Row) (err error) {
	path := s.Path()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	w.Comma = s.cfg.Delimiter
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := w.Write(r.Strings(s.cfg.TopRowLabel)); err != nil {
			return fmt.Errorf("write row %d: %w", r.Index, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	log.Printf("sink: file path=%s rows=%d", path, len(rows))
	return nil
}
