package export

import "context"

// Passthrough is the default document exporter: it ships the rendered HTML
// view as the artifact itself. Swapped for a real PDF renderer in
// deployments that have one.
type Passthrough struct{}

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Export(_ context.Context, renderedView []byte) ([]byte, string, error) {
	return renderedView, "text/html; charset=utf-8", nil
}
