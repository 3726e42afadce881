package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/voice-assistant/internal/model/chat"
)

var (
	ErrNotReady       = errors.New("assistant is not ready")
	ErrTurnInFlight   = errors.New("a turn is already in progress")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrNotRecording   = errors.New("not recording")
	ErrEmptyRecording = errors.New("recording is empty")
	ErrNoRecordSource = errors.New("no audio source configured")
	ErrAlreadyStarted = errors.New("already initialized")
)

const (
	imageKeyword      = "create image"
	imageSuccessText  = "Here's the image you requested:"
	imageApologyText  = "Sorry, there was an error generating the image. Please try again."
	defaultRecordName = "speech"
)

// State is the orchestrator's position in a turn.
type State int32

const (
	StateUninitialized State = iota
	StateBootstrapping
	StateIdle
	StateSubmitted
	StateRouting
	StateImagePath
	StateTextPath
	StateAudioRequested
	StateRevealing
	StateRecording
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBootstrapping:
		return "connecting"
	case StateIdle:
		return "idle"
	case StateSubmitted:
		return "submitted"
	case StateRouting:
		return "routing"
	case StateImagePath:
		return "generating image"
	case StateTextPath:
		return "thinking"
	case StateAudioRequested:
		return "synthesizing"
	case StateRevealing:
		return "speaking"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// IsImageRequest reports whether text asks for an image.
func IsImageRequest(text string) bool {
	return strings.Contains(strings.ToLower(text), imageKeyword)
}

// Options configures an Orchestrator. Zero values fall back to defaults.
type Options struct {
	RevealInterval time.Duration
	RecordFormat   string

	Player Player
	Source AudioSource
	Audio  *AudioStore

	OnUpdate func([]chat.Message)
	OnState  func(State)

	Logger *zap.Logger
}

// Orchestrator drives one conversation: bootstrap, turns, reveal and
// recording. At most one turn runs at a time.
type Orchestrator struct {
	gw         Gateway
	opts       Options
	logger     *zap.Logger
	transcript *Transcript
	state      atomic.Int32
	session    chat.Session
	sleep      func(ctx context.Context, d time.Duration) error

	recMu     sync.Mutex
	recorder  *Recorder
	recCancel context.CancelFunc
	recDone   chan error
}

// NewOrchestrator creates an orchestrator over gw.
func NewOrchestrator(gw Gateway, opts Options) *Orchestrator {
	if opts.RevealInterval <= 0 {
		opts.RevealInterval = 50 * time.Millisecond
	}
	if opts.RecordFormat == "" {
		opts.RecordFormat = "wav"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		gw:         gw,
		opts:       opts,
		logger:     logger,
		transcript: NewTranscript(),
		sleep:      sleepContext,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Messages returns a copy of the transcript.
func (o *Orchestrator) Messages() []chat.Message {
	return o.transcript.Snapshot()
}

// Session returns the gateway identifiers obtained by Bootstrap.
func (o *Orchestrator) Session() chat.Session {
	return o.session
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	o.emitState(s)
}

func (o *Orchestrator) transition(from, to State) bool {
	if !o.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	o.emitState(to)
	return true
}

func (o *Orchestrator) emitState(s State) {
	if o.opts.OnState != nil {
		o.opts.OnState(s)
	}
}

func (o *Orchestrator) notify() {
	if o.opts.OnUpdate != nil {
		o.opts.OnUpdate(o.transcript.Snapshot())
	}
}

// Bootstrap creates the assistant and the thread. Both must succeed before
// any turn can run.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	if !o.transition(StateUninitialized, StateBootstrapping) {
		return ErrAlreadyStarted
	}

	assistantID, err := o.gw.InitAssistant(ctx)
	if err != nil {
		o.setState(StateUninitialized)
		return err
	}
	threadID, err := o.gw.CreateSession(ctx)
	if err != nil {
		o.setState(StateUninitialized)
		return err
	}

	o.session = chat.Session{AssistantID: assistantID, ThreadID: threadID}
	o.logger.Info("session ready",
		zap.String("assistant_id", assistantID),
		zap.String("thread_id", threadID),
	)
	o.setState(StateIdle)
	return nil
}

// Submit runs one turn for text and returns once the reveal has finished.
func (o *Orchestrator) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if !o.transition(StateIdle, StateSubmitted) {
		return o.busyError()
	}
	return o.runTurn(ctx, text)
}

func (o *Orchestrator) busyError() error {
	switch o.State() {
	case StateUninitialized, StateBootstrapping:
		return ErrNotReady
	default:
		return ErrTurnInFlight
	}
}

// runTurn expects the state to be StateSubmitted.
func (o *Orchestrator) runTurn(ctx context.Context, text string) error {
	defer o.setState(StateIdle)

	o.transcript.Append(chat.Message{Role: chat.RoleUser, Content: text})
	o.transcript.Append(chat.Message{Role: chat.RoleBot, Revealing: true})
	o.notify()

	o.setState(StateRouting)

	var reply, imageURL string
	if IsImageRequest(text) {
		o.setState(StateImagePath)
		url, err := o.gw.GenerateImage(ctx, text)
		if err != nil {
			o.logger.Warn("image generation failed", zap.Error(err))
			reply = imageApologyText
		} else {
			reply, imageURL = imageSuccessText, url
		}
	} else {
		o.setState(StateTextPath)
		resp, err := o.gw.SendMessage(ctx, o.session.ThreadID, o.session.AssistantID, text)
		if err != nil {
			o.transcript.RemoveLast()
			o.notify()
			return err
		}
		reply = resp
	}

	o.setState(StateAudioRequested)
	msg := chat.Message{Role: chat.RoleBot, ImageURL: imageURL, Revealing: true}
	o.transcript.ReplaceLast(msg)
	o.notify()

	msg.Audio = o.synthesize(ctx, reply)

	o.setState(StateRevealing)
	return o.reveal(ctx, msg, reply)
}

// synthesize returns nil when speech is unavailable; the turn goes on silently.
func (o *Orchestrator) synthesize(ctx context.Context, text string) *chat.AudioResource {
	if o.opts.Audio == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	audio, err := o.gw.SynthesizeSpeech(ctx, text)
	if err != nil {
		o.logger.Warn("speech synthesis failed, revealing without audio", zap.Error(err))
		return nil
	}

	res, err := o.opts.Audio.Save(audio)
	if err != nil {
		o.logger.Warn("failed to store speech", zap.Error(err))
		return nil
	}
	return res
}

// reveal writes prefixes of reply of length 0..L runes into the last message,
// one per interval, while the audio plays.
func (o *Orchestrator) reveal(ctx context.Context, msg chat.Message, reply string) error {
	if msg.Audio != nil && o.opts.Player != nil {
		go func(path string) {
			if err := o.opts.Player.Play(ctx, path); err != nil {
				o.logger.Warn("playback failed", zap.Error(err))
			}
		}(msg.Audio.Path)
	}

	runes := []rune(reply)
	for i := 0; i <= len(runes); i++ {
		msg.Content = string(runes[:i])
		msg.Revealing = i < len(runes)
		o.transcript.ReplaceLast(msg)
		o.notify()

		if i == len(runes) {
			break
		}
		if err := o.sleep(ctx, o.opts.RevealInterval); err != nil {
			msg.Content = reply
			msg.Revealing = false
			o.transcript.ReplaceLast(msg)
			o.notify()
			return err
		}
	}
	return nil
}

// StartRecording begins capturing audio from the configured source.
func (o *Orchestrator) StartRecording(ctx context.Context) error {
	if o.opts.Source == nil {
		return ErrNoRecordSource
	}
	if !o.transition(StateIdle, StateRecording) {
		return o.busyError()
	}

	recCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	recorder := &Recorder{}

	o.recMu.Lock()
	o.recorder, o.recCancel, o.recDone = recorder, cancel, done
	o.recMu.Unlock()

	go func() {
		done <- o.opts.Source.Record(recCtx, recorder)
	}()

	o.logger.Debug("recording started")
	return nil
}

// StopRecording ends capture, uploads the recording once and submits the
// transcript as a turn. It returns the transcript.
func (o *Orchestrator) StopRecording(ctx context.Context) (string, error) {
	if !o.transition(StateRecording, StateTranscribing) {
		return "", ErrNotRecording
	}

	o.recMu.Lock()
	recorder, cancel, done := o.recorder, o.recCancel, o.recDone
	o.recorder, o.recCancel, o.recDone = nil, nil, nil
	o.recMu.Unlock()

	cancel()
	if err := <-done; err != nil {
		o.logger.Warn("recording source failed", zap.Error(err))
	}

	audio := recorder.Bytes()
	o.logger.Debug("recording stopped", zap.Int("chunks", recorder.Chunks()), zap.Int("bytes", len(audio)))
	recorder.Reset()

	if len(audio) == 0 {
		o.setState(StateIdle)
		return "", ErrEmptyRecording
	}

	filename := defaultRecordName + "." + o.opts.RecordFormat
	text, err := o.gw.TranscribeAudio(ctx, filename, audio)
	if err != nil {
		o.logger.Warn("transcription failed", zap.Error(err))
		o.setState(StateIdle)
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		o.setState(StateIdle)
		return "", ErrEmptyMessage
	}

	if !o.transition(StateTranscribing, StateSubmitted) {
		return text, ErrTurnInFlight
	}
	return text, o.runTurn(ctx, text)
}

// Recording reports whether a recording session is active.
func (o *Orchestrator) Recording() bool {
	return o.State() == StateRecording
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
