package telemetry

import (
	"encoding/json"
	"os"
)

// FileWriter appends telemetry records to a JSONL file.
type FileWriter struct {
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates (truncates) the target file.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write logs a single telemetry record.
func (f *FileWriter) Write(rec Record) error {
	return f.enc.Encode(rec)
}

// WriteBatch logs multiple telemetry records.
func (f *FileWriter) WriteBatch(recs []Record) error {
	for _, r := range recs {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	return f.file.Close()
}
