package board

import (
	"strings"
	"sync"

	"github.com/yukikurage/task-board/internal/models"
)

// Mode is the board's dialog mode. Only one dialog is open at a time.
type Mode int

const (
	ModeBrowsing Mode = iota
	ModeCreating
	ModeEditing
	ModeSettings
)

func (m Mode) String() string {
	switch m {
	case ModeCreating:
		return "creating"
	case ModeEditing:
		return "editing"
	case ModeSettings:
		return "settings"
	default:
		return "browsing"
	}
}

// ParseMode accepts a mode name as returned by Mode.String, in any case.
func ParseMode(raw string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "browsing":
		return ModeBrowsing, true
	case "creating":
		return ModeCreating, true
	case "editing":
		return ModeEditing, true
	case "settings":
		return ModeSettings, true
	}
	return ModeBrowsing, false
}

// Dialog tracks which dialog the board shows and, while editing, which task.
type Dialog struct {
	mu      sync.Mutex
	mode    Mode
	editing models.Task
}

// Current returns the mode and, in ModeEditing, the task being edited.
func (d *Dialog) Current() (Mode, *models.Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode != ModeEditing {
		return d.mode, nil
	}
	task := d.editing
	return d.mode, &task
}

func (d *Dialog) OpenCreate() {
	d.set(ModeCreating, models.Task{})
}

func (d *Dialog) OpenEdit(task models.Task) {
	d.set(ModeEditing, task)
}

func (d *Dialog) OpenSettings() {
	d.set(ModeSettings, models.Task{})
}

func (d *Dialog) Dismiss() {
	d.set(ModeBrowsing, models.Task{})
}

func (d *Dialog) set(mode Mode, task models.Task) {
	d.mu.Lock()
	d.mode = mode
	d.editing = task
	d.mu.Unlock()
}
