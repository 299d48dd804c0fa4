// Package sourcetest provides an in-memory source.Source for tests.
package sourcetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/source"
)

// Call is one recorded invocation on the fake.
type Call struct {
	Method string
	Args   []string
}

func (c Call) String() string {
	return c.Method + "(" + strings.Join(c.Args, ",") + ")"
}

type taskRecord struct {
	projectID string
	task      model.Task
}

// Fake is an in-memory source.Source. It records every call, can fail a
// method on demand, and can hold a method until released.
type Fake struct {
	mu       sync.Mutex
	projects []model.Project
	sections map[string][]model.Section
	tasks    []taskRecord
	tags     []model.Tag
	calls    []Call
	failures map[string]error
	gates    map[string]chan struct{}
	nextID   int
}

var _ source.Source = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		sections: make(map[string][]model.Section),
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
	}
}

// SeedProject adds a project with one section per board status and returns
// it together with its sections.
func (f *Fake) SeedProject(name string) (model.Project, []model.Section) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := model.Project{ID: f.id("p"), Name: name}
	f.projects = append(f.projects, p)
	for _, st := range model.Statuses {
		f.sections[p.ID] = append(f.sections[p.ID], model.Section{
			ID: f.id("s"), Name: string(st), ProjectID: p.ID,
		})
	}
	return p, append([]model.Section(nil), f.sections[p.ID]...)
}

// SeedSection appends a section to an existing project.
func (f *Fake) SeedSection(projectID, name string) model.Section {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := model.Section{ID: f.id("s"), Name: name, ProjectID: projectID}
	f.sections[projectID] = append(f.sections[projectID], s)
	return s
}

// SeedTask adds a task to the named section of a project.
func (f *Fake) SeedTask(projectID string, status model.Status, name string, tags ...model.Tag) model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := model.Task{ID: f.id("t"), Name: name, Tags: tags}
	for _, s := range f.sections[projectID] {
		if s.Name == string(status) {
			t = t.InSection(s)
			break
		}
	}
	f.tasks = append(f.tasks, taskRecord{projectID: projectID, task: t})
	return t
}

// SeedAttachment attaches an image to a task.
func (f *Fake) SeedAttachment(taskID string) model.Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()

	a := model.Attachment{ID: f.id("a"), URL: "https://files.example/" + taskID}
	if rec := f.find(taskID); rec != nil {
		rec.task.Attachments = append(rec.task.Attachments, a)
	}
	return a
}

// SeedTag adds a workspace tag.
func (f *Fake) SeedTag(name string) model.Tag {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := model.Tag{ID: f.id("g"), Name: name}
	f.tags = append(f.tags, t)
	return t
}

// FailOn makes every later call to method return err. A nil err clears it.
func (f *Fake) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, method)
		return
	}
	f.failures[method] = err
}

// Block holds calls to method (after they are recorded) until the returned
// release func is called.
func (f *Fake) Block(method string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[method] = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, method)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns every recorded call in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls to method.
func (f *Fake) CallsTo(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Task returns the stored state of a task.
func (f *Fake) Task(taskID string) (model.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec := f.find(taskID); rec != nil {
		return rec.task, true
	}
	return model.Task{}, false
}

// enter records the call, applies a gate and returns an injected failure.
func (f *Fake) enter(ctx context.Context, method string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
	gate := f.gates[method]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[method]
}

func (f *Fake) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *Fake) find(taskID string) *taskRecord {
	for i := range f.tasks {
		if f.tasks[i].task.ID == taskID {
			return &f.tasks[i]
		}
	}
	return nil
}

func notFound(method, id string) error {
	return &source.APIError{StatusCode: 404, Method: method, Path: id, Messages: []string{"Unknown object: " + id}}
}

// ListProjects implements source.Source.
func (f *Fake) ListProjects(ctx context.Context, workspaceID string) ([]model.Project, error) {
	if err := f.enter(ctx, "ListProjects", workspaceID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Project(nil), f.projects...), nil
}

// CreateProject implements source.Source.
func (f *Fake) CreateProject(ctx context.Context, workspaceID, name string) (model.Project, error) {
	if err := f.enter(ctx, "CreateProject", workspaceID, name); err != nil {
		return model.Project{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := model.Project{ID: f.id("p"), Name: name}
	f.projects = append(f.projects, p)
	return p, nil
}

// DeleteProject implements source.Source.
func (f *Fake) DeleteProject(ctx context.Context, projectID string) error {
	if err := f.enter(ctx, "DeleteProject", projectID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.projects {
		if p.ID == projectID {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			delete(f.sections, projectID)
			kept := f.tasks[:0]
			for _, rec := range f.tasks {
				if rec.projectID != projectID {
					kept = append(kept, rec)
				}
			}
			f.tasks = kept
			return nil
		}
	}
	return notFound("DeleteProject", projectID)
}

// ListSections implements source.Source.
func (f *Fake) ListSections(ctx context.Context, projectID string) ([]model.Section, error) {
	if err := f.enter(ctx, "ListSections", projectID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Section(nil), f.sections[projectID]...), nil
}

// CreateSection implements source.Source.
func (f *Fake) CreateSection(ctx context.Context, projectID, name string) (model.Section, error) {
	if err := f.enter(ctx, "CreateSection", projectID, name); err != nil {
		return model.Section{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := model.Section{ID: f.id("s"), Name: name, ProjectID: projectID}
	f.sections[projectID] = append(f.sections[projectID], s)
	return s, nil
}

// ListTasks implements source.Source.
func (f *Fake) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	if err := f.enter(ctx, "ListTasks", projectID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, rec := range f.tasks {
		if rec.projectID == projectID {
			out = append(out, rec.task)
		}
	}
	return out, nil
}

// CreateTask implements source.Source.
func (f *Fake) CreateTask(ctx context.Context, in source.TaskCreate) (model.Task, error) {
	if err := f.enter(ctx, "CreateTask", in.ProjectID, in.SectionID, in.Name); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := model.Task{ID: f.id("t"), Name: in.Name}
	for _, s := range f.sections[in.ProjectID] {
		if s.ID == in.SectionID {
			t = t.InSection(s)
		}
	}
	f.tasks = append(f.tasks, taskRecord{projectID: in.ProjectID, task: t})
	return t, nil
}

// RenameTask implements source.Source.
func (f *Fake) RenameTask(ctx context.Context, taskID, name string) error {
	if err := f.enter(ctx, "RenameTask", taskID, name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.find(taskID)
	if rec == nil {
		return notFound("RenameTask", taskID)
	}
	rec.task.Name = name
	return nil
}

// DeleteTask implements source.Source.
func (f *Fake) DeleteTask(ctx context.Context, taskID string) error {
	if err := f.enter(ctx, "DeleteTask", taskID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rec := range f.tasks {
		if rec.task.ID == taskID {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return notFound("DeleteTask", taskID)
}

// AddTaskToSection implements source.Source.
func (f *Fake) AddTaskToSection(ctx context.Context, sectionID, taskID string) error {
	if err := f.enter(ctx, "AddTaskToSection", sectionID, taskID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.find(taskID)
	if rec == nil {
		return notFound("AddTaskToSection", taskID)
	}
	for _, s := range f.sections[rec.projectID] {
		if s.ID == sectionID {
			rec.task = rec.task.InSection(s)
			return nil
		}
	}
	return notFound("AddTaskToSection", sectionID)
}

// ListTags implements source.Source.
func (f *Fake) ListTags(ctx context.Context, workspaceID string) ([]model.Tag, error) {
	if err := f.enter(ctx, "ListTags", workspaceID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Tag(nil), f.tags...), nil
}

// AddTag implements source.Source.
func (f *Fake) AddTag(ctx context.Context, taskID, tagID string) error {
	if err := f.enter(ctx, "AddTag", taskID, tagID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.find(taskID)
	if rec == nil {
		return notFound("AddTag", taskID)
	}
	for _, t := range rec.task.Tags {
		if t.ID == tagID {
			return nil
		}
	}
	tag := model.Tag{ID: tagID}
	for _, t := range f.tags {
		if t.ID == tagID {
			tag = t
		}
	}
	rec.task.Tags = append(append([]model.Tag(nil), rec.task.Tags...), tag)
	return nil
}

// RemoveTag implements source.Source.
func (f *Fake) RemoveTag(ctx context.Context, taskID, tagID string) error {
	if err := f.enter(ctx, "RemoveTag", taskID, tagID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.find(taskID)
	if rec == nil {
		return notFound("RemoveTag", taskID)
	}
	var kept []model.Tag
	for _, t := range rec.task.Tags {
		if t.ID != tagID {
			kept = append(kept, t)
		}
	}
	rec.task.Tags = kept
	return nil
}

// UploadAttachment implements source.Source.
func (f *Fake) UploadAttachment(ctx context.Context, taskID string, img model.Image) (model.Attachment, error) {
	if err := f.enter(ctx, "UploadAttachment", taskID, img.Name); err != nil {
		return model.Attachment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.find(taskID)
	if rec == nil {
		return model.Attachment{}, notFound("UploadAttachment", taskID)
	}
	a := model.Attachment{ID: f.id("a"), URL: "https://files.example/" + img.Name}
	rec.task.Attachments = append(append([]model.Attachment(nil), rec.task.Attachments...), a)
	return a, nil
}

// DeleteAttachment implements source.Source.
func (f *Fake) DeleteAttachment(ctx context.Context, attachmentID string) error {
	if err := f.enter(ctx, "DeleteAttachment", attachmentID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		atts := f.tasks[i].task.Attachments
		for j, a := range atts {
			if a.ID == attachmentID {
				kept := append([]model.Attachment(nil), atts[:j]...)
				f.tasks[i].task.Attachments = append(kept, atts[j+1:]...)
				return nil
			}
		}
	}
	return notFound("DeleteAttachment", attachmentID)
}
