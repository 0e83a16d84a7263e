// Package memory provides in-process record and blob stores for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shoplens/extractor/internal/product"
)

// RecordStore keeps assembled records in a map keyed by payload signature.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]product.Record
}

// NewRecordStore creates an empty RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]product.Record)}
}

// SaveRecord stores the record. A record with the same payload signature
// already present is kept as-is.
func (s *RecordStore) SaveRecord(_ context.Context, record product.Record) error {
	if record.PayloadSignature == "" {
		return fmt.Errorf("payload signature is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.PayloadSignature]; !exists {
		s.records[record.PayloadSignature] = record
	}
	return nil
}

// GetRecord returns the record for the signature.
func (s *RecordStore) GetRecord(_ context.Context, signature string) (product.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[signature]
	if !ok {
		return product.Record{}, product.ErrRecordNotFound
	}
	return record, nil
}

// Len reports the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// BlobStore keeps encoded image bytes in memory and hands out pseudo URIs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates an empty BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// PutObject stores a copy of data and returns a mem:// URI.
func (s *BlobStore) PutObject(_ context.Context, path, _ string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), data...)
	return "mem://" + path, nil
}

// GetObject returns the stored bytes for path.
func (s *BlobStore) GetObject(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	return data, ok
}
