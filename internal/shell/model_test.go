package shell

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/voice-assistant/internal/client"
	"github.com/zhouzirui/voice-assistant/internal/model/chat"
)

type fakeController struct {
	submitted  []string
	recording  bool
	starts     int
	stops      int
	submitErr  error
	bootstrapN int
}

func (f *fakeController) Bootstrap(ctx context.Context) error {
	f.bootstrapN++
	return nil
}

func (f *fakeController) Submit(ctx context.Context, text string) error {
	f.submitted = append(f.submitted, text)
	return f.submitErr
}

func (f *fakeController) StartRecording(ctx context.Context) error {
	f.starts++
	f.recording = true
	return nil
}

func (f *fakeController) StopRecording(ctx context.Context) (string, error) {
	f.stops++
	f.recording = false
	return "hello", nil
}

func (f *fakeController) Recording() bool { return f.recording }

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return model, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		if r == ' ' {
			m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
			continue
		}
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestInitBootstraps(t *testing.T) {
	ctrl := &fakeController{}
	m := New(context.Background(), ctrl)

	msg := m.Init()()
	if _, ok := msg.(bootstrapMsg); !ok {
		t.Fatalf("expected bootstrapMsg, got %T", msg)
	}
	if ctrl.bootstrapN != 1 {
		t.Fatalf("expected one bootstrap, got %d", ctrl.bootstrapN)
	}
}

func TestEnterSubmitsAndClearsInput(t *testing.T) {
	ctrl := &fakeController{}
	m := typeText(t, New(context.Background(), ctrl), "hi there")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a submit command")
	}
	if len(m.input) != 0 {
		t.Fatalf("expected input cleared, got %q", string(m.input))
	}

	cmd()
	if len(ctrl.submitted) != 1 || ctrl.submitted[0] != "hi there" {
		t.Fatalf("unexpected submissions %v", ctrl.submitted)
	}
}

func TestEnterOnBlankInputDoesNothing(t *testing.T) {
	ctrl := &fakeController{}
	m := typeText(t, New(context.Background(), ctrl), "  ")

	if _, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatal("blank input must not submit")
	}
}

func TestBackspaceRemovesLastRune(t *testing.T) {
	m := typeText(t, New(context.Background(), &fakeController{}), "héllo")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if string(m.input) != "héll" {
		t.Fatalf("unexpected input %q", string(m.input))
	}
}

func TestTranscriptShowsPrefixesAndCursor(t *testing.T) {
	m := New(context.Background(), &fakeController{})
	m, _ = update(t, m, messagesMsg{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleBot, Content: "hel", Revealing: true},
	})

	view := m.View()
	if !strings.Contains(view, "User:") || !strings.Contains(view, "hi") {
		t.Fatalf("missing user line:\n%s", view)
	}
	if !strings.Contains(view, "Bot:") || !strings.Contains(view, "hel"+revealCursor) {
		t.Fatalf("missing revealing bot line:\n%s", view)
	}
}

func TestTranscriptKeepsNewestLines(t *testing.T) {
	m := New(context.Background(), &fakeController{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 10})

	var msgs messagesMsg
	for i := 0; i < 30; i++ {
		msgs = append(msgs, chat.Message{Role: chat.RoleUser, Content: strings.Repeat("x", i%5+1)})
	}
	msgs = append(msgs, chat.Message{Role: chat.RoleBot, Content: "newest"})
	m, _ = update(t, m, msgs)

	if !strings.Contains(m.View(), "newest") {
		t.Fatal("newest message must stay visible")
	}
}

func TestImageModalOpensAndCloses(t *testing.T) {
	m := New(context.Background(), &fakeController{})
	m, _ = update(t, m, messagesMsg{
		{Role: chat.RoleUser, Content: "create image of a cat"},
		{Role: chat.RoleBot, Content: "Here's the image you requested:", ImageURL: "https://img/cat.png"},
	})

	if !strings.Contains(m.View(), "[image]") {
		t.Fatal("expected image marker in transcript")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.modalURL != "https://img/cat.png" {
		t.Fatalf("expected modal for latest image, got %q", m.modalURL)
	}
	if !strings.Contains(m.View(), "esc to close") {
		t.Fatal("expected modal view")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.modalURL != "" {
		t.Fatal("esc must close the modal")
	}
}

func TestCtrlOWithoutImageKeepsTranscript(t *testing.T) {
	m := New(context.Background(), &fakeController{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.modalURL != "" {
		t.Fatal("no image, no modal")
	}
}

func TestCtrlRTogglesRecording(t *testing.T) {
	ctrl := &fakeController{}
	m := New(context.Background(), ctrl)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	cmd()
	if ctrl.starts != 1 || !ctrl.recording {
		t.Fatalf("expected recording to start, starts=%d", ctrl.starts)
	}
	if !strings.Contains(m.View(), "recording") {
		t.Fatal("status must show recording")
	}

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	msg := cmd()
	if ctrl.stops != 1 || ctrl.recording {
		t.Fatalf("expected recording to stop, stops=%d", ctrl.stops)
	}
	if done, ok := msg.(turnDoneMsg); !ok || done.err != nil {
		t.Fatalf("unexpected stop result %#v", msg)
	}
}

func TestStatusShowsStateAndError(t *testing.T) {
	m := New(context.Background(), &fakeController{})
	m, _ = update(t, m, stateMsg(client.StateTextPath))
	m, _ = update(t, m, turnDoneMsg{err: errors.New("gateway down")})

	view := m.View()
	if !strings.Contains(view, "thinking") {
		t.Fatalf("expected state in status line:\n%s", view)
	}
	if !strings.Contains(view, "gateway down") {
		t.Fatalf("expected error in status line:\n%s", view)
	}

	m, _ = update(t, m, turnDoneMsg{})
	if strings.Contains(m.View(), "gateway down") {
		t.Fatal("successful turn clears the error")
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := New(context.Background(), &fakeController{})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}
