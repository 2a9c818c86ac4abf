package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// runLineMsg carries one progress or error line from a run.
type runLineMsg struct {
	text  string
	isErr bool
}

// programSink forwards run progress into the Bubbletea event loop.
// Messages sent before the program is attached are dropped.
type programSink struct {
	mu      sync.Mutex
	program *tea.Program
}

func (s *programSink) attach(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = p
}

func (s *programSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *programSink) Progress(msg string) { s.send(runLineMsg{text: msg}) }
func (s *programSink) Error(msg string)    { s.send(runLineMsg{text: msg, isErr: true}) }
