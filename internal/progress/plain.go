package progress

import (
	"sync"

	"hanidl/internal/logger"
)

// Plain is the UI-disabled reporter: log events go to the logger, progress
// updates are coalesced into coarse log lines so headless runs (cron,
// docker, serve mode) don't fill the log with per-segment noise.
type Plain struct {
	mu       sync.Mutex
	log      *logger.Logger
	nextID   TaskHandle
	name     string
	lastStep int
}

func NewPlain(log *logger.Logger) *Plain {
	return &Plain{log: log}
}

func (p *Plain) Log(category, message string) {
	p.log.Info("[%s] %s", category, message)
}

func (p *Plain) StartTask(name string, totalUnits int) TaskHandle {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	p.name = name
	p.lastStep = 0
	p.log.Info("starting %s (%d segments)", name, totalUnits)
	return p.nextID
}

func (p *Plain) UpdateTask(_ TaskHandle, percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// One line per 10% step.
	step := int(percent) / 10
	if step > p.lastStep {
		p.lastStep = step
		p.log.Info("%s: %d%%", p.name, step*10)
	}
}

func (p *Plain) FinishTask(_ TaskHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log.Info("%s: complete", p.name)
}
