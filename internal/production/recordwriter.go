package production

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/comalice/vertexfsm"
)

// Format selects the encoding of a RecordWriter.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// RecordWriter is a Publisher that appends every transition record to a writer,
// one JSON object per line or one YAML document per record.
type RecordWriter struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
	closer io.Closer
}

// NewRecordWriter writes records to w in the given format.
func NewRecordWriter(w io.Writer, format Format) (*RecordWriter, error) {
	switch format {
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown record format %q", format)
	}
	return &RecordWriter{w: w, format: format}, nil
}

// NewFileRecordWriter appends records to <dir>/<machineID>.<format>, creating
// the directory if needed.
func NewFileRecordWriter(dir, machineID string, format Format) (*RecordWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	fn := filepath.Join(dir, machineID+"."+string(format))
	f, err := os.OpenFile(fn, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fn, err)
	}
	rw, err := NewRecordWriter(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	rw.closer = f
	return rw, nil
}

func (r *RecordWriter) Publish(_ context.Context, record vertexfsm.TransitionRecord) error {
	var (
		data []byte
		err  error
	)
	switch r.format {
	case FormatYAML:
		data, err = yaml.Marshal(record)
		if err != nil {
			return fmt.Errorf("yaml marshal: %w", err)
		}
		data = append([]byte("---\n"), data...)
	default:
		data, err = json.Marshal(record)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		data = append(data, '\n')
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the writer owns one.
func (r *RecordWriter) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadRecords decodes everything a RecordWriter wrote to rd.
func ReadRecords(rd io.Reader, format Format) ([]vertexfsm.TransitionRecord, error) {
	var records []vertexfsm.TransitionRecord
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(rd)
		for {
			var rec vertexfsm.TransitionRecord
			if err := dec.Decode(&rec); err != nil {
				if err == io.EOF {
					return records, nil
				}
				return nil, fmt.Errorf("yaml decode: %w", err)
			}
			records = append(records, rec)
		}
	case FormatJSON:
		dec := json.NewDecoder(rd)
		for dec.More() {
			var rec vertexfsm.TransitionRecord
			if err := dec.Decode(&rec); err != nil {
				return nil, fmt.Errorf("json decode: %w", err)
			}
			records = append(records, rec)
		}
		return records, nil
	}
	return nil, fmt.Errorf("unknown record format %q", format)
}
