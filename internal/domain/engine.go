package domain

import "context"

// Engine runs the external extraction tool once per call and returns
// exactly one terminal Outcome. Streamed events are forwarded
// synchronously through onEvent as they arrive.
type Engine interface {
	Run(ctx context.Context, args []string, outputDir string, onEvent EventFunc) Outcome
}

// VideoInfo is the metadata probed from the engine before a download.
type VideoInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Uploader string  `json:"uploader"`
}
