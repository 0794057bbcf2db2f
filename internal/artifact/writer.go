// Package artifact implements C5: renders the fixed artifact set per run
// kind (§4.5), writing everything through RunStore's atomic replace.
package artifact

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"simbench/internal/npy"
	"simbench/pkg/models"
)

// Store is the subset of runstore.Store the writer needs.
type Store interface {
	WriteAtomic(runID, relPath string, data []byte) error
}

// Writer is the concrete ArtifactWriter (§4.5).
type Writer struct {
	store    Store
	renderer Renderer
}

// New returns a Writer backed by store, using renderer for plot output (or
// DefaultRenderer if nil).
func New(store Store, renderer Renderer) *Writer {
	if renderer == nil {
		renderer = DefaultRenderer{}
	}
	return &Writer{store: store, renderer: renderer}
}

// writeJSON marshals v and writes it atomically to relPath.
func (w *Writer) writeJSON(runID, relPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: marshal %s: %w", relPath, err)
	}
	return w.store.WriteAtomic(runID, relPath, data)
}

// writePlot renders req and writes both the placeholder PNG and its data
// sidecar.
func (w *Writer) writePlot(runID, relPath string, req PlotRequest) error {
	png, err := w.renderer.Render(req)
	if err != nil {
		return fmt.Errorf("artifact: render %s: %w", relPath, err)
	}
	if err := w.store.WriteAtomic(runID, relPath, png); err != nil {
		return err
	}
	sidecar, err := sidecarJSON(req.Data)
	if err != nil {
		return fmt.Errorf("artifact: sidecar %s: %w", relPath, err)
	}
	sidecarPath := sidecarPathFor(relPath)
	return w.store.WriteAtomic(runID, sidecarPath, sidecar)
}

func sidecarPathFor(pngPath string) string {
	ext := filepath.Ext(pngPath)
	return pngPath[:len(pngPath)-len(ext)] + ".meta.json"
}

// WriteSummary writes summary.json, the durable record of a run's outcome.
func (w *Writer) WriteSummary(runID string, summary models.RunSummary) error {
	return w.writeJSON(runID, "summary.json", summary)
}

// writeNpy writes a single named float64 array to data/<name>.npy.
func (w *Writer) writeNpy(runID, name string, shape []int, values []float64) error {
	encoded, err := npy.EncodeFloat64(shape, values)
	if err != nil {
		return fmt.Errorf("artifact: encode %s: %w", name, err)
	}
	return w.store.WriteAtomic(runID, filepath.Join("data", name+".npy"), encoded)
}
