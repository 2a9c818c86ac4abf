package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

func TestNewStatusBarModel(t *testing.T) {
	m := newStatusBarModel()
	if m.msg != "" {
		t.Errorf("msg = %q, want empty", m.msg)
	}
	if m.tasks != 0 || m.done != 0 {
		t.Errorf("tasks/done = %d/%d, want 0/0", m.tasks, m.done)
	}
	if m.tasksRunning() {
		t.Error("new status bar should not have tasks running")
	}
}

func TestStatusBar_ShowMsg(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind statusMsgKind
	}{
		{"success", "Added vae-ft-mse.safetensors", statusSuccess},
		{"error", "HTTP 404 for https://x.test/m.bin", statusError},
		{"warning", "Not saved: remember is off", statusWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := newStatusBarModel().showMsg(tt.text, tt.kind)
			if m.msg != tt.text {
				t.Errorf("msg = %q, want %q", m.msg, tt.text)
			}
			if m.msgKind != tt.kind {
				t.Errorf("msgKind = %d, want %d", m.msgKind, tt.kind)
			}
			if cmd == nil {
				t.Error("showMsg() should return a cmd for the auto-dismiss timer")
			}
			if left := m.renderLeft(); !strings.Contains(left, tt.text) {
				t.Errorf("renderLeft() = %q, should contain message", left)
			}
		})
	}
}

func TestStatusBar_DismissMatchingID(t *testing.T) {
	m, _ := newStatusBarModel().showMsg("hello", statusSuccess)
	m, _ = m.update(statusDismissMsg{id: m.msgID})
	if m.msg != "" {
		t.Errorf("msg = %q, want empty when dismiss ID matches", m.msg)
	}
}

func TestStatusBar_DismissStaleID(t *testing.T) {
	m, _ := newStatusBarModel().showMsg("first", statusSuccess)
	staleID := m.msgID

	m, _ = m.showMsg("second", statusError)
	if m.msgID == staleID {
		t.Fatal("second message should have a different ID")
	}

	m, _ = m.update(statusDismissMsg{id: staleID})
	if m.msg != "second" {
		t.Errorf("msg = %q, want %q (stale dismiss should be ignored)", m.msg, "second")
	}
}

func TestStatusBar_TaskLifecycle(t *testing.T) {
	m := newStatusBarModel()
	m, cmd := m.update(taskStartedMsg{label: "validating link"})
	if cmd == nil {
		t.Error("first taskStartedMsg should return a spinner tick cmd")
	}
	if !m.tasksRunning() {
		t.Fatal("tasksRunning() should be true after taskStartedMsg")
	}

	m, cmd = m.update(taskStartedMsg{label: "installing"})
	if cmd != nil {
		t.Error("second taskStartedMsg should return nil cmd (spinner already ticking)")
	}
	if m.tasks != 2 {
		t.Errorf("tasks = %d, want 2", m.tasks)
	}

	m, _ = m.update(taskDoneMsg{})
	if !m.tasksRunning() {
		t.Error("tasksRunning() should be true with partial completion")
	}

	m, _ = m.update(taskDoneMsg{})
	if m.tasksRunning() {
		t.Error("tasksRunning() should be false after all tasks complete")
	}
	if m.tasks != 0 || m.done != 0 || m.label != "" {
		t.Errorf("counters not reset: tasks=%d done=%d label=%q", m.tasks, m.done, m.label)
	}
}

func TestStatusBar_SpinnerTick(t *testing.T) {
	m := newStatusBarModel()
	tick := spinner.TickMsg{Time: time.Now()}
	if _, cmd := m.update(tick); cmd != nil {
		t.Error("spinner tick with no tasks should return nil cmd")
	}

	m, _ = m.update(taskStartedMsg{label: "installing"})
	m, _ = m.update(tick)
	if !m.tasksRunning() {
		t.Error("tasks should still be running after spinner tick")
	}
}

func TestStatusBar_RenderRight(t *testing.T) {
	m := newStatusBarModel()
	if right := m.renderRight(); right != "" {
		t.Errorf("renderRight() = %q, want empty when no tasks", right)
	}

	m, _ = m.update(taskStartedMsg{label: "installing"})
	if right := m.renderRight(); !strings.Contains(right, "installing") {
		t.Errorf("renderRight() = %q, should contain the task label", right)
	}

	m, _ = m.update(taskStartedMsg{label: "validating link"})
	if right := m.renderRight(); !strings.Contains(right, "validating link 0/2") {
		t.Errorf("renderRight() = %q, should contain counter", right)
	}
}

func TestStatusBar_View(t *testing.T) {
	m := newStatusBarModel()
	m.width = 80
	if v := m.view("help text here"); !strings.Contains(v, "help text here") {
		t.Errorf("view() = %q, should contain help text", v)
	}

	m, _ = m.showMsg("Catalog saved", statusSuccess)
	v := m.view("help text here")
	if !strings.Contains(v, "Catalog saved") {
		t.Errorf("view() = %q, should contain message", v)
	}
	if strings.Contains(v, "help text here") {
		t.Error("help text should be hidden when a message is active")
	}
}
