// Package render prepares slide assets and reports the outcome of each slide
// activation back to the scheduler.
//
// A Renderer checks that one slide's asset can be shown: the video renderer
// confirms the file or URL exists and, when enabled, that ffprobe finds a
// video stream in it; the model renderer confirms the asset is a glTF or GLB
// document. The Host runs the matching renderer for every activation, bounds
// it with the configured safety timeout, and turns the result into exactly
// one ReportReady or ReportFailed call.
package render
