package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

type (
	clearMsg   struct{}
	loadingMsg bool
	renderMsg  []models.ResultEntry
	alertMsg   struct{}
)

// downloadMsg is the progress of the running download.
type downloadMsg struct {
	notebookID string
	current    int64
	total      int64
}

// Bridge is the polling view of the interactive program. It forwards view
// calls made from engine goroutines into the bubbletea event loop. Calls
// before Attach or after Detach are dropped.
type Bridge struct {
	mu sync.Mutex
	p  *tea.Program
}

// NewBridge creates a detached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach connects the bridge to a running program.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.p = p
	b.mu.Unlock()
}

// Detach disconnects the bridge.
func (b *Bridge) Detach() {
	b.mu.Lock()
	b.p = nil
	b.mu.Unlock()
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (b *Bridge) Clear()       { b.send(clearMsg{}) }
func (b *Bridge) ShowLoading() { b.send(loadingMsg(true)) }
func (b *Bridge) HideLoading() { b.send(loadingMsg(false)) }

func (b *Bridge) Render(results []models.ResultEntry) {
	b.send(renderMsg(results))
}
