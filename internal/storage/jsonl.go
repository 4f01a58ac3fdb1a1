package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"proposalScope/internal/model"
)

type jsonlFile struct {
	path string
	mu   sync.Mutex
}

// appendJSONL appends items to f, one JSON document per line.
func appendJSONL[T any](f *jsonlFile, items []T) error {
	if len(items) == 0 {
		return nil
	}

	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return file.Sync()
}

// JsonlStorage writes proposal records to a JSONL file.
type JsonlStorage struct {
	file jsonlFile
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{file: jsonlFile{path: path}}
}

// PutProposalBatch appends a batch of proposal records as JSON lines.
func (s *JsonlStorage) PutProposalBatch(records []model.ProposalRecord) error {
	return appendJSONL(&s.file, records)
}

// JsonlErrorSink writes decode errors to a JSONL file.
type JsonlErrorSink struct {
	file jsonlFile
}

func NewJsonlErrorSink(path string) *JsonlErrorSink {
	return &JsonlErrorSink{file: jsonlFile{path: path}}
}

// PutDecodeErrors appends decode errors as JSON lines.
func (s *JsonlErrorSink) PutDecodeErrors(errs []model.DecodeError) error {
	return appendJSONL(&s.file, errs)
}
