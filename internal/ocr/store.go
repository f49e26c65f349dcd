package ocr

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Record is one entry of the results file. Text is nil when nothing was recognized.
type Record struct {
	File string  `json:"file"`
	Text *string `json:"text"`
}

// ResultStore appends records to a JSON array file
type ResultStore struct {
	mu   sync.Mutex
	path string
}

// ResultsFile is the name of the results file inside the output directory
const ResultsFile = "ocr_results.json"

// NewResultStore creates a store writing to path
func NewResultStore(path string) *ResultStore {
	return &ResultStore{path: path}
}

// NewResultStoreIn creates a store writing ResultsFile inside dir
func NewResultStoreIn(dir string) *ResultStore {
	return NewResultStore(filepath.Join(dir, ResultsFile))
}

// Path returns the results file location
func (s *ResultStore) Path() string {
	return s.path
}

// Append adds a record for file. An empty text is stored as null.
func (s *ResultStore) Append(file, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return err
	}

	rec := Record{File: file}
	if text != "" {
		rec.Text = &text
	}
	records = append(records, rec)

	return s.writeLocked(records)
}

// Load returns every stored record
func (s *ResultStore) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *ResultStore) readLocked() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read ocr results")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", s.path)
	}
	return records, nil
}

func (s *ResultStore) writeLocked(records []Record) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create ocr results directory")
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return errors.Wrap(err, "failed to encode ocr results")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(err, "failed to write ocr results")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "failed to replace ocr results")
}
