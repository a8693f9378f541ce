// Package archive records a match to disk: every engine line in arrival order
// and every decoded turn report, each as JSON lines. A recording can be
// decoded again offline; a live match never reads one back.
package archive

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/nstehr/rampart/rampart-core/telemetry"
)

// File names inside a match directory.
const (
	LinesFile   = "engine.jsonl"
	ReportsFile = "reports.jsonl"
)

// Recorder appends one match's lines and reports under root/<match id>/.
type Recorder struct {
	fs      afero.Fs
	matchID string
	dir     string

	mu      sync.Mutex
	lines   afero.File
	reports afero.File
}

// NewRecorder creates the match directory and opens both files for appending.
func NewRecorder(fs afero.Fs, root string) (*Recorder, error) {
	id := uuid.NewString()
	dir := filepath.Join(root, id)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create match dir: %w", err)
	}
	r := &Recorder{fs: fs, matchID: id, dir: dir}
	var err error
	if r.lines, err = openAppend(fs, filepath.Join(dir, LinesFile)); err != nil {
		return nil, err
	}
	if r.reports, err = openAppend(fs, filepath.Join(dir, ReportsFile)); err != nil {
		r.lines.Close()
		return nil, err
	}
	return r, nil
}

func openAppend(fs afero.Fs, path string) (afero.File, error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

func (r *Recorder) MatchID() string { return r.matchID }
func (r *Recorder) Dir() string     { return r.dir }

// RecordLine appends one raw engine line.
func (r *Recorder) RecordLine(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	line := make([]byte, 0, len(trimmed)+1)
	line = append(append(line, trimmed...), '\n')
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.lines.Write(line); err != nil {
		return fmt.Errorf("record line: %w", err)
	}
	return nil
}

// RecordReport appends one decoded turn report.
func (r *Recorder) RecordReport(rep *telemetry.TurnReport) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	payload = append(payload, '\n')
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.reports.Write(payload); err != nil {
		return fmt.Errorf("record report: %w", err)
	}
	return nil
}

// Close flushes and closes both files.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lerr := r.lines.Close()
	rerr := r.reports.Close()
	if lerr != nil {
		return lerr
	}
	return rerr
}

// ReadLines returns the non-blank lines of a recording file.
func ReadLines(fs afero.Fs, path string) ([][]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	var lines [][]byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64<<10), 8<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, bytes.Clone(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan recording: %w", err)
	}
	return lines, nil
}

// ReadReports decodes a reports file.
func ReadReports(fs afero.Fs, path string) ([]telemetry.TurnReport, error) {
	lines, err := ReadLines(fs, path)
	if err != nil {
		return nil, err
	}
	reports := make([]telemetry.TurnReport, 0, len(lines))
	for i, line := range lines {
		var rep telemetry.TurnReport
		if err := json.Unmarshal(line, &rep); err != nil {
			return nil, fmt.Errorf("report %d: %w", i+1, err)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
