package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
	"github.com/centolabs/cento-go/pkg/logging"
)

// maxRecordBytes bounds a single JSONL record.
const maxRecordBytes = 1 << 20

// LoadFragmentsJSONL reads a pre-cut fragment catalog, one fragment object
// per line.
func LoadFragmentsJSONL(path string) (*Store, error) {
	var fragments []core.Fragment
	if err := readJSONL(path, func(data []byte) error {
		var f core.Fragment
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		fragments = append(fragments, f)
		return nil
	}); err != nil {
		return nil, err
	}

	logging.GetLogger().Info(context.Background(), "loaded %d fragments from %s", len(fragments), path)
	return NewStore(fragments)
}

// LoadLinesJSONL reads a canonical line file, one line object per record,
// and expands each line into its legal fragment windows.
func LoadLinesJSONL(path string) (*Store, error) {
	var lines []Line
	if err := readJSONL(path, func(data []byte) error {
		var line Line
		if err := json.Unmarshal(data, &line); err != nil {
			return err
		}
		lines = append(lines, line)
		return nil
	}); err != nil {
		return nil, err
	}

	fragments := ExpandLines(lines)
	logging.GetLogger().Info(context.Background(),
		"expanded %d lines into %d fragments from %s", len(lines), len(fragments), path)
	return NewStore(fragments)
}

func readJSONL(path string, each func(data []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.ResourceNotFound, "failed to open corpus file"),
			errors.Fields{"path": path},
		)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := each([]byte(text)); err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.InvalidInput, "malformed corpus record"),
				errors.Fields{"path": path, "line": lineNo},
			)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, errors.InvalidInput, "failed to read corpus file")
	}
	return nil
}
