package engine

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hanidl/internal/domain"
	"hanidl/internal/logger"
	"hanidl/internal/progress"
	"hanidl/internal/segcrypt"
)

var testKey = []byte("0123456789abcdef")

// nullReporter swallows progress and records log events for assertions.
type nullReporter struct {
	mu     sync.Mutex
	events []string
}

func (r *nullReporter) Log(category, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, category)
}

func (r *nullReporter) StartTask(string, int) progress.TaskHandle { return 1 }
func (r *nullReporter) UpdateTask(progress.TaskHandle, float64)   {}
func (r *nullReporter) FinishTask(progress.TaskHandle)            {}

func (r *nullReporter) count(category string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == category {
			n++
		}
	}
	return n
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(filepath.Join(t.TempDir(), "test.log"), logger.LevelDebug, false)
	if err != nil {
		t.Fatal(err)
	}
	return log
}

func encryptCBC(t *testing.T, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}
	iv := make([]byte, block.BlockSize())
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out
}

func testCipher(t *testing.T) *segcrypt.CipherContext {
	t.Helper()
	c, err := segcrypt.New(testKey, "")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// segmentPayload builds a distinct 32-byte plaintext for index i.
func segmentPayload(i int) []byte {
	return bytes.Repeat([]byte{byte('A' + i)}, 32)
}

func TestRunReassemblesInIndexOrder(t *testing.T) {
	const total = 12

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var i int
		fmt.Sscanf(r.URL.Path, "/seg/%d.ts", &i)
		// Stagger responses so completion order differs from index order.
		time.Sleep(time.Duration((total-i)%4) * 5 * time.Millisecond)
		w.Write(encryptCBC(t, segmentPayload(i)))
	}))
	defer srv.Close()

	m := &domain.Manifest{}
	for i := 0; i < total; i++ {
		m.SegmentURIs = append(m.SegmentURIs, fmt.Sprintf("%s/seg/%d.ts", srv.URL, i))
	}

	p := NewPipeline(srv.Client(), testLogger(t), &nullReporter{}, 3, time.Millisecond)
	results, err := p.Run(context.Background(), m, testCipher(t), 4, 1)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if len(results) != total {
		t.Fatalf("Run() returned %d results, want %d", len(results), total)
	}
	for i, res := range results {
		if res.Index != i {
			t.Fatalf("result %d carries index %d", i, res.Index)
		}
		if !bytes.Equal(res.Payload, segmentPayload(i)) {
			t.Errorf("result %d payload mismatch", i)
		}
	}
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	var failures atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/seg/1.ts" && failures.Add(1) <= 2 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		w.Write(encryptCBC(t, segmentPayload(1)))
	}))
	defer srv.Close()

	m := &domain.Manifest{SegmentURIs: []string{srv.URL + "/seg/1.ts"}}

	rep := &nullReporter{}
	p := NewPipeline(srv.Client(), testLogger(t), rep, 5, time.Millisecond)
	results, err := p.Run(context.Background(), m, testCipher(t), 1, 1)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if results[0].Missing() {
		t.Fatal("segment marked missing despite eventual success")
	}
	if got := rep.count("Request error"); got != 2 {
		t.Errorf("retry events = %d, want 2", got)
	}
}

func TestRunMarksExhaustedSegmentMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/seg/1.ts" {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		var i int
		fmt.Sscanf(r.URL.Path, "/seg/%d.ts", &i)
		w.Write(encryptCBC(t, segmentPayload(i)))
	}))
	defer srv.Close()

	m := &domain.Manifest{SegmentURIs: []string{
		srv.URL + "/seg/0.ts",
		srv.URL + "/seg/1.ts",
		srv.URL + "/seg/2.ts",
	}}

	rep := &nullReporter{}
	p := NewPipeline(srv.Client(), testLogger(t), rep, 2, time.Millisecond)
	results, err := p.Run(context.Background(), m, testCipher(t), 2, 1)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if !results[1].Missing() {
		t.Error("exhausted segment not marked missing")
	}
	if results[0].Missing() || results[2].Missing() {
		t.Error("healthy segments affected by the failing one")
	}
	if got := rep.count("Failed segment download"); got != 1 {
		t.Errorf("failure events = %d, want 1", got)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var i int
		fmt.Sscanf(r.URL.Path, "/seg/%d.ts", &i)
		w.Write(encryptCBC(t, segmentPayload(i)))
	}))
	defer srv.Close()

	m := &domain.Manifest{}
	for i := 0; i < 6; i++ {
		m.SegmentURIs = append(m.SegmentURIs, fmt.Sprintf("%s/seg/%d.ts", srv.URL, i))
	}

	p := NewPipeline(srv.Client(), testLogger(t), &nullReporter{}, 3, time.Millisecond)

	flatten := func(results []domain.SegmentResult) []byte {
		var buf bytes.Buffer
		for _, r := range results {
			buf.Write(r.Payload)
		}
		return buf.Bytes()
	}

	first, err := p.Run(context.Background(), m, testCipher(t), 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Run(context.Background(), m, testCipher(t), 3, 1)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(flatten(first), flatten(second)) {
		t.Error("two runs over the same manifest produced different bytes")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	m := &domain.Manifest{SegmentURIs: []string{srv.URL + "/seg/0.ts"}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	p := NewPipeline(srv.Client(), testLogger(t), &nullReporter{}, 2, time.Millisecond)
	if _, err := p.Run(ctx, m, testCipher(t), 1, 1); err == nil {
		t.Fatal("Run() expected cancellation error")
	}
}

func TestRunCancellationLeavesNoWorkers(t *testing.T) {
	const total = 40

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	m := &domain.Manifest{}
	for i := 0; i < total; i++ {
		m.SegmentURIs = append(m.SegmentURIs, fmt.Sprintf("%s/seg/%d.ts", srv.URL, i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPipeline(srv.Client(), testLogger(t), &nullReporter{}, 2, time.Millisecond)

	errc := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx, m, testCipher(t), 4, 1)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-errc; err == nil {
		t.Fatal("Run() expected cancellation error")
	}

	// Every worker must exit even though more jobs completed than the
	// collector drained before returning.
	deadline := time.After(5 * time.Second)
	for {
		buf := make([]byte, 1<<20)
		stacks := string(buf[:runtime.Stack(buf, true)])
		if !strings.Contains(stacks, "(*Pipeline).Run.") {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("pipeline goroutines still alive after cancelled run:\n%s", stacks)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestBackoffDelayIsCappedAndNonDecreasing(t *testing.T) {
	maxDelay := 30 * time.Second

	var prevUpper time.Duration
	for attempt := 0; attempt < 12; attempt++ {
		d := backoffDelay(attempt, maxDelay)

		if d > maxDelay {
			t.Fatalf("attempt %d: delay %s exceeds cap %s", attempt, d, maxDelay)
		}

		// Below the cap, the smallest possible delay for this attempt is
		// never less than the largest possible delay of the previous one.
		lower := time.Duration((1<<(attempt+1))+1) * time.Second
		if lower > maxDelay {
			lower = maxDelay
		}
		if d < lower-time.Millisecond {
			t.Fatalf("attempt %d: delay %s below lower bound %s", attempt, d, lower)
		}
		if d < prevUpper && d != maxDelay {
			t.Fatalf("attempt %d: delay %s decreased below previous upper bound %s", attempt, d, prevUpper)
		}

		prevUpper = time.Duration((1<<(attempt+1))+3) * time.Second
		if prevUpper > maxDelay {
			prevUpper = maxDelay
		}
	}
}
