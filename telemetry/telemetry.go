// Package telemetry exports host lifecycle records (drained exit actions,
// time source switches, fatal errors) as JSON events and OpenTelemetry spans.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Exporter is the interface for telemetry exporters.
type Exporter interface {
	// LogEvent logs an event with the given name and data.
	LogEvent(name string, data map[string]interface{})
	// LogExit records a drained exit action.
	LogExit(rec ExitRecord)
	// Flush sends any buffered data.
	Flush() error
	// Close closes the exporter.
	Close() error
}

// ExitRecord describes one exit action handled during a drain.
type ExitRecord struct {
	RunID     string        `json:"run_id"`
	Action    string        `json:"action"`
	Priority  string        `json:"priority"`
	Code      int           `json:"code"`
	Skipped   bool          `json:"skipped,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Event represents a telemetry event.
type Event struct {
	Name      string                 `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewExporter creates a new exporter based on protocol.
func NewExporter(protocol, endpoint string) (Exporter, error) {
	switch protocol {
	case "http":
		if endpoint == "" {
			return nil, fmt.Errorf("http telemetry requires an endpoint")
		}
		return NewHTTPExporter(endpoint), nil
	case "file":
		if endpoint == "" {
			return nil, fmt.Errorf("file telemetry requires a path")
		}
		return NewFileExporter(endpoint)
	case "stderr":
		return NewJSONLExporter(nopCloser{os.Stderr}), nil
	case "noop", "none", "":
		return NewNoopExporter(), nil
	default:
		return nil, fmt.Errorf("unknown telemetry protocol: %s", protocol)
	}
}

// nopCloser keeps Close from closing a shared stream.
type nopCloser struct{ io.Writer }

// --- HTTP Exporter ---

// httpBatchSize is the number of buffered records that triggers a send.
const httpBatchSize = 100

// HTTPExporter sends telemetry to an HTTP endpoint.
type HTTPExporter struct {
	endpoint string
	client   *http.Client
	buffer   []interface{}
	mu       sync.Mutex
}

// NewHTTPExporter creates a new HTTP exporter.
func NewHTTPExporter(endpoint string) *HTTPExporter {
	return &HTTPExporter{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		buffer: make([]interface{}, 0, httpBatchSize),
	}
}

func (e *HTTPExporter) LogEvent(name string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = append(e.buffer, Event{
		Name:      name,
		Timestamp: time.Now(),
		Data:      data,
	})
	if len(e.buffer) >= httpBatchSize {
		e.flush()
	}
}

func (e *HTTPExporter) LogExit(rec ExitRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = append(e.buffer, rec)
	if len(e.buffer) >= httpBatchSize {
		e.flush()
	}
}

func (e *HTTPExporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flush()
}

func (e *HTTPExporter) flush() error {
	if len(e.buffer) == 0 {
		return nil
	}

	data, err := json.Marshal(e.buffer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", e.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telemetry endpoint returned %d", resp.StatusCode)
	}

	e.buffer = e.buffer[:0]
	return nil
}

func (e *HTTPExporter) Close() error {
	return e.Flush()
}

// --- JSON Lines Exporters ---

// JSONLExporter writes one JSON document per line to a writer.
type JSONLExporter struct {
	w  io.Writer
	mu sync.Mutex
}

// NewJSONLExporter creates an exporter that writes to w.
// Flush syncs w when it is a file; Close closes w when it is an io.Closer.
func NewJSONLExporter(w io.Writer) *JSONLExporter {
	return &JSONLExporter{w: w}
}

func (e *JSONLExporter) LogEvent(name string, data map[string]interface{}) {
	e.write(Event{
		Name:      name,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func (e *JSONLExporter) LogExit(rec ExitRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	e.write(rec)
}

func (e *JSONLExporter) write(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	data = append(data, '\n')
	e.mu.Lock()
	defer e.mu.Unlock()
	e.w.Write(data)
}

func (e *JSONLExporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

func (e *JSONLExporter) Close() error {
	err := e.Flush()
	if c, ok := e.w.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// FileExporter appends JSON lines to a file.
type FileExporter struct {
	*JSONLExporter
	path string
}

// NewFileExporter opens path for appending, creating parent directories.
func NewFileExporter(path string) (*FileExporter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry file: %w", err)
	}
	return &FileExporter{JSONLExporter: NewJSONLExporter(file), path: path}, nil
}

// Path returns the file being written.
func (e *FileExporter) Path() string {
	return e.path
}

// --- Noop Exporter ---

// NoopExporter discards all telemetry.
type NoopExporter struct{}

// NewNoopExporter creates a new noop exporter.
func NewNoopExporter() *NoopExporter {
	return &NoopExporter{}
}

func (e *NoopExporter) LogEvent(name string, data map[string]interface{}) {}
func (e *NoopExporter) LogExit(rec ExitRecord)                            {}
func (e *NoopExporter) Flush() error                                      { return nil }
func (e *NoopExporter) Close() error                                      { return nil }
