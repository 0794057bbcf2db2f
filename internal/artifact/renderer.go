package artifact

import "encoding/json"

// minimalPNG is a valid, 1x1 transparent PNG used as the placeholder image
// body. Real rasterization is out of scope (§1); the contract this package
// guarantees is that every "plots/*.png" path named in §4.5 exists and is a
// well-formed PNG, not that it depicts anything.
var minimalPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

// PlotRequest carries the well-specified arrays §4.5 promises a Renderer.
type PlotRequest struct {
	Name string
	Data any
}

// Renderer is the plot-rasterization hook (§1 out-of-scope collaborator):
// given a PlotRequest it must return PNG bytes. The default implementation
// below satisfies the "a file exists at the specified path" guarantee and
// records the real input data in an adjacent sidecar so nothing is lost.
type Renderer interface {
	Render(req PlotRequest) ([]byte, error)
}

// DefaultRenderer is used when no real plotting backend is wired in.
type DefaultRenderer struct{}

func (DefaultRenderer) Render(req PlotRequest) ([]byte, error) {
	return minimalPNG, nil
}

// sidecarJSON returns the indented JSON encoding of req.Data, written
// alongside the placeholder PNG so the real numeric content a future
// renderer would plot is not discarded.
func sidecarJSON(data any) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}
