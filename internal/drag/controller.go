// Package drag resolves drag-and-drop gestures on the board into column moves.
package drag

import (
	"sync"

	"gioui.org/f32"
	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/task-board/internal/models"
)

// DefaultProbeInset shifts the drop probe from the card's left edge towards
// its centre.
const DefaultProbeInset float32 = 50

// MoveIntent asks for task to be moved to Target.
type MoveIntent struct {
	Task   models.Task
	Target models.TaskStatus
}

// Controller tracks at most one drag session against the latest known
// column rectangles. Drops outside every column, or back into the task's own
// column, resolve to nothing.
type Controller struct {
	probeInset  float32
	containment bool
	sink        func(MoveIntent)

	mu      sync.Mutex
	columns map[models.TaskStatus]Rect
	active  *models.Task
	offset  f32.Point
}

// Option configures a Controller.
type Option func(*Controller)

// WithProbeInset sets the horizontal distance from the dragged element's
// left edge at which the drop column is probed.
func WithProbeInset(inset float32) Option {
	return func(c *Controller) {
		c.probeInset = inset
	}
}

// WithFullContainment requires the probe point to lie inside a column's
// rectangle vertically as well, for layouts where columns do not span the
// full board height.
func WithFullContainment() Option {
	return func(c *Controller) {
		c.containment = true
	}
}

// WithSink delivers every emitted intent to fn. fn runs on the goroutine
// that ends the drag, after the session has been cleared.
func WithSink(fn func(MoveIntent)) Option {
	return func(c *Controller) {
		c.sink = fn
	}
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		probeInset: DefaultProbeInset,
		columns:    make(map[models.TaskStatus]Rect),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnColumnLayout records the latest rectangle reported for a column.
func (c *Controller) OnColumnLayout(status models.TaskStatus, rect Rect) {
	c.mu.Lock()
	c.columns[status] = rect
	c.mu.Unlock()
}

// Column returns the last rectangle reported for status.
func (c *Controller) Column(status models.TaskStatus) (Rect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rect, ok := c.columns[status]
	return rect, ok
}

// OnDragStart begins a session for task with the dragged element at origin.
// A session still in progress is discarded without emitting anything.
func (c *Controller) OnDragStart(task models.Task, origin f32.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		log.Debugf("Discarding drag of task %d in favour of task %d", c.active.ID, task.ID)
	}
	c.active = &task
	c.offset = origin
}

// OnDragDelta moves the dragged element by delta. Ignored outside a session.
func (c *Controller) OnDragDelta(delta f32.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return
	}
	c.offset = c.offset.Add(delta)
}

// OnDragEnd resolves the drop column and clears the session. It returns the
// intent and true only when the task lands in a different column.
func (c *Controller) OnDragEnd() (MoveIntent, bool) {
	c.mu.Lock()
	task := c.active
	probe := f32.Pt(c.offset.X+c.probeInset, c.offset.Y)
	target, found := c.columnAtLocked(probe)
	c.active = nil
	c.offset = f32.Point{}
	c.mu.Unlock()

	if task == nil || !found || target == task.Status {
		return MoveIntent{}, false
	}

	intent := MoveIntent{Task: *task, Target: target}
	if c.sink != nil {
		c.sink(intent)
	}
	return intent, true
}

// Active returns the task being dragged and the element's current position.
func (c *Controller) Active() (*models.Task, f32.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return nil, f32.Point{}
	}
	task := *c.active
	return &task, c.offset
}

// columnAtLocked returns the first column, in declaration order, whose
// horizontal span contains the probe.
func (c *Controller) columnAtLocked(probe f32.Point) (models.TaskStatus, bool) {
	for _, status := range models.Statuses {
		rect, ok := c.columns[status]
		if !ok {
			continue
		}
		hit := rect.SpansX(probe.X)
		if c.containment {
			hit = rect.Contains(probe)
		}
		if hit {
			return status, true
		}
	}
	return "", false
}
