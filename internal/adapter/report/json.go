package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONWriter persists the raw review result for machine consumers.
type JSONWriter struct {
	now clock
}

// NewJSONWriter creates a new JSON writer with a timestamp supplier.
func NewJSONWriter(now clock) *JSONWriter {
	return &JSONWriter{now: now}
}

// Write persists the review result as an indented JSON file and returns its
// path.
func (w *JSONWriter) Write(ctx context.Context, artifact Artifact) (string, error) {
	outputDir := filepath.Join(artifact.OutputDir,
		fmt.Sprintf("%s_%s_pr%d", sanitise(artifact.Owner), sanitise(artifact.Repo), artifact.Number),
		w.now())
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(outputDir, "review.json")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create json file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(artifact.Result); err != nil {
		return "", fmt.Errorf("encode review: %w", err)
	}

	return path, nil
}
