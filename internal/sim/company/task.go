package company

import (
	"fmt"

	"github.com/blackrab369/Versaas-ai/internal/sim/catalogs"
)

const (
	TaskBacklog    = "backlog"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskBlocked    = "blocked"
)

const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task is one unit of backlog work. Completed tasks are retained for audit;
// progress accrues in milli-hours so no float ever touches the books.
type Task struct {
	ID                string
	Title             string
	Tag               string
	Priority          string
	RequiredSkills    map[string]int
	EstimatedHours    int
	AccruedMilliHours int64
	WorkedHours       int64
	Status            string
	AssigneeID        string
	CreatedAtHours    int64
	CompletedAtHours  int64
	Revenue           bool
	RevenueMinor      int64
	Recurring         bool
	DependsOn         string
	ThreadID          string
}

func (t *Task) done() bool {
	return t.AccruedMilliHours >= int64(t.EstimatedHours)*1000
}

// addTask registers a task, assigning the next monotonic id. Creation order
// equals id order, which the scheduler's tie-break relies on.
func (c *Company) addTask(t *Task) *Task {
	c.nextTask++
	t.ID = fmt.Sprintf("TASK-%06d", c.nextTask)
	t.ThreadID = c.threadID("task/" + t.ID)
	if t.Status == "" {
		t.Status = TaskBacklog
	}
	c.tasks[t.ID] = t
	c.taskOrder = append(c.taskOrder, t.ID)
	return t
}

func (c *Company) taskFromTemplate(tmpl catalogs.TaskTemplate) *Task {
	skills := make(map[string]int, len(tmpl.RequiredSkills))
	for k, v := range tmpl.RequiredSkills {
		skills[k] = v
	}
	return &Task{
		Title:          tmpl.Title,
		Tag:            tmpl.Tag,
		Priority:       tmpl.Priority,
		RequiredSkills: skills,
		EstimatedHours: tmpl.EstimatedHours,
		CreatedAtHours: c.simHours,
		Revenue:        tmpl.Revenue,
		RevenueMinor:   tmpl.RevenueMinor,
		Recurring:      tmpl.Recurring,
	}
}

func (c *Company) seedPhaseBacklog(phase int) int {
	tmpls := c.cats.Templates.Phases[phase]
	for _, tmpl := range tmpls {
		c.addTask(c.taskFromTemplate(tmpl))
	}
	return len(tmpls)
}

// respawn clones a completed recurring task into a fresh backlog entry.
func (c *Company) respawn(t *Task) *Task {
	skills := make(map[string]int, len(t.RequiredSkills))
	for k, v := range t.RequiredSkills {
		skills[k] = v
	}
	return c.addTask(&Task{
		Title:          t.Title,
		Tag:            t.Tag,
		Priority:       t.Priority,
		RequiredSkills: skills,
		EstimatedHours: t.EstimatedHours,
		CreatedAtHours: c.simHours,
		Revenue:        t.Revenue,
		RevenueMinor:   t.RevenueMinor,
		Recurring:      true,
	})
}

// eligible reports whether a task can be assigned right now: it must be in
// the backlog with any dependency already completed.
func (c *Company) eligible(t *Task) bool {
	if t.Status != TaskBacklog {
		return false
	}
	if t.DependsOn == "" {
		return true
	}
	dep, ok := c.tasks[t.DependsOn]
	return ok && dep.Status == TaskCompleted
}
