package progress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hanidl/internal/logger"
)

func TestPlainCoalescesProgressUpdates(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "plain.log")
	log, err := logger.New(logPath, logger.LevelInfo, false)
	if err != nil {
		t.Fatal(err)
	}

	p := NewPlain(log)
	task := p.StartTask("ep-1-720p.mp4", 200)

	// 200 fine-grained updates must collapse to one line per 10% step.
	for i := 1; i <= 200; i++ {
		p.UpdateTask(task, float64(i)/200*100)
	}
	p.FinishTask(task)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}

	steps := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, "ep-1-720p.mp4: ") && strings.Contains(line, "%") {
			steps++
		}
	}
	if steps != 10 {
		t.Errorf("progress lines = %d, want 10", steps)
	}
}
