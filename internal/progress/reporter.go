// Package progress is the single sink for log events and task progress.
// Segment workers call into it concurrently; serialization happens here,
// never in the pipeline.
package progress

// TaskHandle identifies one tracked download task.
type TaskHandle int

// Reporter receives named log events and per-task completion updates.
// Rendering is entirely the implementation's concern.
type Reporter interface {
	Log(category, message string)
	StartTask(name string, totalUnits int) TaskHandle
	UpdateTask(h TaskHandle, percent float64)
	FinishTask(h TaskHandle)
}
