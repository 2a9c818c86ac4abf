package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ducnote/ducnote/internal/core"
)

func testCategories() []core.Category {
	return []core.Category{
		{Key: "custom-extensions", Label: "Custom Extensions", Dir: "custom_nodes"},
		{Key: "lora-models", Label: "LoRA Models", Dir: "models/loras"},
		{Key: "vae-models", Label: "VAE Models", Dir: "models/vae"},
	}
}

func TestTabsSetCategories(t *testing.T) {
	counts := map[string]int{"custom-extensions": 2, "vae-models": 1}
	m := newTabsModel().setCategories(testCategories(), func(k string) int { return counts[k] })

	want := []string{"Custom Extensions (2)", "LoRA Models (0)", "VAE Models (1)"}
	if strings.Join(m.tabs, "|") != strings.Join(want, "|") {
		t.Errorf("tabs = %v, want %v", m.tabs, want)
	}
	if got := m.activeKey(); got != "custom-extensions" {
		t.Errorf("activeKey = %q, want custom-extensions", got)
	}
}

func TestTabsUpdate_Cycles(t *testing.T) {
	m := newTabsModel().setCategories(testCategories(), func(string) int { return 0 })

	m, cmd, consumed := m.update(tea.KeyMsg{Type: tea.KeyTab}, false)
	if !consumed || cmd == nil {
		t.Fatal("tab should be consumed and emit tabActiveMsg")
	}
	if msg := cmd(); msg != tabActiveMsg(1) {
		t.Errorf("msg = %v, want tabActiveMsg(1)", msg)
	}
	if m.activeKey() != "lora-models" {
		t.Errorf("activeKey = %q, want lora-models", m.activeKey())
	}

	m, _, _ = m.update(tea.KeyMsg{Type: tea.KeyShiftTab}, false)
	m, _, _ = m.update(tea.KeyMsg{Type: tea.KeyShiftTab}, false)
	if m.activeKey() != "vae-models" {
		t.Errorf("activeKey = %q, want vae-models after wrapping back", m.activeKey())
	}
}

func TestTabsUpdate_Blocked(t *testing.T) {
	m := newTabsModel().setCategories(testCategories(), func(string) int { return 0 })
	m, cmd, consumed := m.update(tea.KeyMsg{Type: tea.KeyTab}, true)
	if consumed || cmd != nil {
		t.Error("blocked tabs should not consume keys")
	}
	if m.activeTab != 0 {
		t.Errorf("activeTab = %d, want 0", m.activeTab)
	}
}

func TestTabsSetCategories_ClampsActive(t *testing.T) {
	m := newTabsModel().setCategories(testCategories(), func(string) int { return 0 })
	m.activeTab = 2
	m = m.setCategories(testCategories()[:1], func(string) int { return 0 })
	if m.activeTab != 0 {
		t.Errorf("activeTab = %d, want 0 after categories shrink", m.activeTab)
	}
}
