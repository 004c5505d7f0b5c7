package draft

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
)

type loadResult struct {
	path string
	data []byte
	err  error
}

// AddNotebookFiles reads the given files concurrently and adds each notebook
// as soon as its read completes, so the resulting order follows completion
// order rather than argument order. Every failure is returned; successful
// files are added regardless.
func (m *Model) AddNotebookFiles(paths []string) []error {
	results := make(chan loadResult, len(paths))
	for _, p := range paths {
		go func(path string) {
			data, err := readLimited(path, constants.MaxNotebookSize)
			results <- loadResult{path: path, data: data, err: err}
		}(p)
	}

	var errs []error
	for range paths {
		r := <-results
		if r.err != nil {
			m.logger.Error().Err(r.err).Str("file", r.path).Msg("failed to read notebook")
			errs = append(errs, r.err)
			continue
		}
		if err := m.AddNotebook(filepath.Base(r.path), r.data); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// LoadRequirementsFile reads a python requirements file into the draft.
func (m *Model) LoadRequirementsFile(path string) error {
	data, err := readLimited(path, constants.MaxNotebookSize)
	if err != nil {
		return err
	}
	m.SetRequirements(filepath.Base(path), string(data))
	return nil
}

func readLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, limit)
	}
	return data, nil
}
