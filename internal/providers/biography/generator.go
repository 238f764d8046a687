package biography

import "context"

// Slot ids the generated document is expected to carry. Completed media jobs
// patch their asset references into these elements.
const (
	PortraitSlot = "portrait-image"
	VideoSlot    = "scene-video"
)

// Request carries the user-supplied attributes the biography is built from.
type Request struct {
	Name   string
	Job    string
	Place  string
	Locale string
}

// Generator produces the session's HTML biography document.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
