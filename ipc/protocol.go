package ipc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nstehr/rampart/rampart-core/model"
)

// Envelope is one engine line with its kind. Data is kept raw so handlers can
// defer deserialization to the concrete type.
type Envelope struct {
	Kind Kind
	Data json.RawMessage
}

// maxLine guards against a runaway line; a full-board turn state is well
// under a megabyte.
const maxLine = 8 << 20

// ReadEnvelope reads a single newline-terminated JSON line and classifies it.
// Blank lines are skipped. At end of input it returns io.EOF.
func ReadEnvelope(r *bufio.Reader) (Envelope, error) {
	for {
		line, err := readLine(r)
		if len(line) == 0 {
			if err != nil {
				return Envelope{}, err
			}
			continue
		}
		kind, cerr := Classify(line)
		if cerr != nil {
			return Envelope{}, cerr
		}
		return Envelope{Kind: kind, Data: line}, nil
	}
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > maxLine {
			return nil, fmt.Errorf("%w: line longer than %d bytes", model.ErrProtocol, maxLine)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		line := bytes.TrimSpace(buf)
		if err == io.EOF && len(line) > 0 {
			// final line without a newline
			return line, nil
		}
		return line, err
	}
}

// Classify reports what kind of engine line data is.
func Classify(data []byte) (Kind, error) {
	var peek struct {
		TurnInfo        []json.Number   `json:"turnInfo"`
		UnitInformation json.RawMessage `json:"unitInformation"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return 0, fmt.Errorf("%w: unmarshal line: %v", model.ErrProtocol, err)
	}
	if peek.UnitInformation != nil {
		return KindConfig, nil
	}
	if len(peek.TurnInfo) == 0 {
		return 0, fmt.Errorf("%w: line has neither turnInfo nor unitInformation", model.ErrProtocol)
	}
	phase, err := peek.TurnInfo[0].Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: turn phase %q: %v", model.ErrProtocol, peek.TurnInfo[0], err)
	}
	kind, ok := phaseKinds[int(phase)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown turn phase %d", model.ErrProtocol, phase)
	}
	return kind, nil
}

// WriteLine marshals v as one JSON line.
func WriteLine(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal line: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}
