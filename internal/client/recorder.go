package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Recorder collects audio chunks in arrival order. Each Write is one chunk.
type Recorder struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

// Write implements io.Writer.
func (r *Recorder) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	chunk := append([]byte(nil), p...)

	r.mu.Lock()
	r.chunks = append(r.chunks, chunk)
	r.size += len(chunk)
	r.mu.Unlock()
	return len(p), nil
}

// Chunks returns the number of chunks received.
func (r *Recorder) Chunks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

// Bytes concatenates every chunk in order.
func (r *Recorder) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := bytes.NewBuffer(make([]byte, 0, r.size))
	for _, c := range r.chunks {
		buf.Write(c)
	}
	return buf.Bytes()
}

// Reset discards all chunks.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.chunks = nil
	r.size = 0
	r.mu.Unlock()
}

// AudioSource captures microphone audio into w until ctx is cancelled.
type AudioSource interface {
	Record(ctx context.Context, w io.Writer) error
}

// CommandSource records by running an external command that writes audio to
// stdout, e.g. "arecord -q -f cd -t wav".
type CommandSource struct {
	Command string
}

// Record implements AudioSource.
func (s CommandSource) Record(ctx context.Context, w io.Writer) error {
	fields := strings.Fields(s.Command)
	if len(fields) == 0 {
		return errors.New("no record command configured")
	}

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Stdout = w
	// Let the recorder flush its header on stop.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}

	if err := cmd.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}
