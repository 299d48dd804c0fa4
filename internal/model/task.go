package model

// Status is a board column. It is never stored on a task: a task's status is
// the name of the section it belongs to.
type Status string

// Board statuses, in column order. Each maps 1:1 to a section name.
const (
	StatusBacklog    Status = "Backlog"
	StatusInProgress Status = "In Progress"
	StatusInReview   Status = "In Review"
	StatusCompleted  Status = "Completed"
)

// Statuses lists every board column in display order. New projects get one
// section per entry.
var Statuses = []Status{
	StatusBacklog,
	StatusInProgress,
	StatusInReview,
	StatusCompleted,
}

// Valid reports whether s is one of the board statuses.
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Section is a named grouping inside a project; one per status.
type Section struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
}

// Membership is a task's association with a section.
type Membership struct {
	SectionID   string `json:"section_id"`
	SectionName string `json:"section_name"`
}

// Attachment is a file attached to a task. The board shows at most one.
type Attachment struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Task is a work item on the board.
type Task struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Membership  Membership   `json:"membership"`
	Tags        []Tag        `json:"tags,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Status is the projection of the task's section membership.
func (t Task) Status() Status {
	return Status(t.Membership.SectionName)
}

// Image returns the attachment shown on the card, if any.
func (t Task) Image() (Attachment, bool) {
	if len(t.Attachments) == 0 {
		return Attachment{}, false
	}
	return t.Attachments[0], true
}

// InSection returns a copy of t moved to section s. Slices are shared with
// t; callers must not mutate them.
func (t Task) InSection(s Section) Task {
	t.Membership = Membership{SectionID: s.ID, SectionName: s.Name}
	return t
}

// FilterByStatus returns the tasks whose section name equals status, in
// their original order. Over all statuses the results partition every task
// whose section name is a board status.
func FilterByStatus(tasks []Task, status Status) []Task {
	var out []Task
	for _, t := range tasks {
		if t.Status() == status {
			out = append(out, t)
		}
	}
	return out
}

// FindTask returns the task with the given id.
func FindTask(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// SectionForStatus returns the section whose name matches status. When a
// project holds several sections with the same name the first one, in the
// order the remote API listed them, wins; dup reports that case.
func SectionForStatus(sections []Section, status Status) (s Section, ok bool, dup bool) {
	for _, sec := range sections {
		if sec.Name != string(status) {
			continue
		}
		if ok {
			return s, true, true
		}
		s, ok = sec, true
	}
	return s, ok, false
}
