package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/zhouzirui/voice-assistant/internal/model/chat"
)

// Player plays a local audio file. Play blocks until playback ends or ctx is
// cancelled.
type Player interface {
	Play(ctx context.Context, path string) error
}

// CommandPlayer plays audio through an external command such as "mpg123 -q".
type CommandPlayer struct {
	Command string
}

// Play implements Player.
func (p CommandPlayer) Play(ctx context.Context, path string) error {
	fields := strings.Fields(p.Command)
	if len(fields) == 0 {
		return errors.New("no play command configured")
	}

	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], path)...)
	if err := cmd.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("play %s: %w", filepath.Base(path), err)
	}
	return nil
}

// AudioStore keeps synthesised speech as local files for the lifetime of
// the client.
type AudioStore struct {
	dir string
}

// NewAudioStore creates a store under dir, or a fresh temp directory when dir
// is empty.
func NewAudioStore(dir string) (*AudioStore, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "voice-assistant-*")
		if err != nil {
			return nil, fmt.Errorf("create audio dir: %w", err)
		}
		dir = tmp
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &AudioStore{dir: dir}, nil
}

// Save writes audio to a new file and returns it as a playable resource.
func (s *AudioStore) Save(audio []byte) (*chat.AudioResource, error) {
	path := filepath.Join(s.dir, "reply-"+uuid.NewString()+".mp3")
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}
	return &chat.AudioResource{Path: path, Size: len(audio)}, nil
}

// Close removes every stored file.
func (s *AudioStore) Close() error {
	return os.RemoveAll(s.dir)
}
