package destination

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rlch/broadcaster/model"
)

// JSONLinesFile streams every event to a file as one compact JSON object per
// line. Each event is written straight to the file so readers can tail it
// while the session runs.
type JSONLinesFile struct {
	path string
	f    *os.File
}

var (
	_ Destination = (*JSONLinesFile)(nil)
	_ Opener      = (*JSONLinesFile)(nil)
	_ Summarizer  = (*JSONLinesFile)(nil)
)

// NewJSONLinesFile creates a JSON Lines destination writing to path.
func NewJSONLinesFile(path string) *JSONLinesFile {
	return &JSONLinesFile{path: path}
}

// Open creates the file, truncating any previous content.
func (j *JSONLinesFile) Open(_ context.Context) error {
	if j.f != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, j.path)
	}

	f, err := create(j.path)
	if err != nil {
		return err
	}

	j.f = f

	return nil
}

// WriteEvent appends one line to the file.
func (j *JSONLinesFile) WriteEvent(_ context.Context, event model.Event) error {
	if j.f == nil {
		return fmt.Errorf("%w: %s", ErrNotOpen, j.path)
	}

	return model.EncodeEvent(j.f, event)
}

// WriteResult is a no-op: the stream already holds every event.
func (j *JSONLinesFile) WriteResult(_ context.Context, _ *model.SessionResult) error {
	return nil
}

// Summary implements Summarizer.
func (j *JSONLinesFile) Summary() string {
	return "generated report log file: " + j.path
}

// Close closes the file. Closing a destination that is not open is a no-op.
func (j *JSONLinesFile) Close() error {
	if j.f == nil {
		return nil
	}

	err := j.f.Close()
	j.f = nil

	return err
}

// JSONFile writes the session result as one indented JSON document.
type JSONFile struct {
	path string
	f    *os.File
}

var (
	_ Destination = (*JSONFile)(nil)
	_ Opener      = (*JSONFile)(nil)
	_ Summarizer  = (*JSONFile)(nil)
)

// NewJSONFile creates a whole-document destination writing to path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Open creates the file up front so a bad path fails before the session starts.
func (j *JSONFile) Open(_ context.Context) error {
	if j.f != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, j.path)
	}

	f, err := create(j.path)
	if err != nil {
		return err
	}

	j.f = f

	return nil
}

// WriteEvent is a no-op: the document is written once, at close.
func (j *JSONFile) WriteEvent(_ context.Context, _ model.Event) error {
	return nil
}

// WriteResult writes the document.
func (j *JSONFile) WriteResult(_ context.Context, result *model.SessionResult) error {
	if j.f == nil {
		return fmt.Errorf("%w: %s", ErrNotOpen, j.path)
	}

	return model.EncodeResult(j.f, result)
}

// Summary implements Summarizer.
func (j *JSONFile) Summary() string {
	return "generated report file: " + j.path
}

// Close closes the file. Closing a destination that is not open is a no-op.
func (j *JSONFile) Close() error {
	if j.f == nil {
		return nil
	}

	err := j.f.Close()
	j.f = nil

	return err
}

// create opens path for writing, creating missing parent directories.
func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	return f, nil
}
