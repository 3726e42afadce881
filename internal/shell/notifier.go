package shell

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/voice-assistant/internal/client"
	"github.com/zhouzirui/voice-assistant/internal/model/chat"
)

// Notifier forwards orchestrator callbacks into a running program. Callbacks
// that arrive before Attach are dropped.
type Notifier struct {
	mu      sync.RWMutex
	program *tea.Program
}

// Attach sets the program that receives updates.
func (n *Notifier) Attach(p *tea.Program) {
	n.mu.Lock()
	n.program = p
	n.mu.Unlock()
}

// OnUpdate is suitable for client.Options.OnUpdate.
func (n *Notifier) OnUpdate(messages []chat.Message) {
	n.send(messagesMsg(messages))
}

// OnState is suitable for client.Options.OnState.
func (n *Notifier) OnState(state client.State) {
	n.send(stateMsg(state))
}

func (n *Notifier) send(msg tea.Msg) {
	n.mu.RLock()
	p := n.program
	n.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}
