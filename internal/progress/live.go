package progress

import (
	"fmt"
	"strings"
	"sync"

	"hanidl/internal/logger"
)

const barWidth = 20

// Live renders a single-line terminal progress bar and interleaves log
// events above it. Log events also land in the job log file.
type Live struct {
	mu     sync.Mutex
	log    *logger.Logger
	nextID TaskHandle

	activeName  string
	activeUnits int
	percent     float64
	rendering   bool
}

func NewLive(log *logger.Logger) *Live {
	return &Live{log: log}
}

func (l *Live) Log(category, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.log.Info("[%s] %s", category, message)

	// Push the event above the bar, then repaint it.
	if l.rendering {
		fmt.Printf("\r\033[K")
	}
	fmt.Printf("[%s] %s\n", category, message)
	l.renderLocked()
}

func (l *Live) StartTask(name string, totalUnits int) TaskHandle {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.activeName = name
	l.activeUnits = totalUnits
	l.percent = 0
	l.rendering = true
	l.renderLocked()
	return l.nextID
}

func (l *Live) UpdateTask(_ TaskHandle, percent float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if percent > 100 {
		percent = 100
	}
	l.percent = percent
	l.renderLocked()
}

func (l *Live) FinishTask(_ TaskHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.percent = 100
	l.renderLocked()
	fmt.Println()
	l.rendering = false
}

// renderLocked paints the bar. Callers hold l.mu.
func (l *Live) renderLocked() {
	if !l.rendering {
		return
	}

	completedWidth := int(l.percent / 100 * barWidth)
	bar := strings.Repeat("=", completedWidth)
	if completedWidth < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-completedWidth-1)
	}

	fmt.Printf("\r[%s] %5.1f%% | %s (%d segments)", bar, l.percent, l.activeName, l.activeUnits)
}
