package asana

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/source"
)

// taskFields are the task fields requested when listing a project's tasks.
const taskFields = "name,memberships.section.name,tags.name,attachments.download_url"

// Adapter implements source.Source for Asana.
type Adapter struct {
	client *Client
}

var _ source.Source = (*Adapter)(nil)

// NewAdapter creates a new Asana source adapter.
func NewAdapter(baseURL, token string, timeout time.Duration, maxRetries int, logger *slog.Logger) *Adapter {
	return &Adapter{
		client: NewClient(baseURL, token, timeout, maxRetries, logger),
	}
}

// ListProjects returns the workspace's projects.
func (a *Adapter) ListProjects(ctx context.Context, workspaceID string) ([]model.Project, error) {
	q := url.Values{}
	q.Set("workspace", workspaceID)
	q.Set("opt_fields", "name")

	var projects []Project
	if err := a.client.Get(ctx, "/projects?"+q.Encode(), &projects); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	out := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, model.Project{ID: p.GID, Name: p.Name})
	}
	return out, nil
}

// CreateProject creates an empty project in the workspace.
func (a *Adapter) CreateProject(ctx context.Context, workspaceID, name string) (model.Project, error) {
	var p Project
	body := createProjectRequest{Name: name, Workspace: workspaceID}
	if err := a.client.Post(ctx, "/projects", body, &p); err != nil {
		return model.Project{}, fmt.Errorf("creating project %q: %w", name, err)
	}
	return model.Project{ID: p.GID, Name: p.Name}, nil
}

// DeleteProject deletes a project along with its sections and tasks.
func (a *Adapter) DeleteProject(ctx context.Context, projectID string) error {
	if err := a.client.Delete(ctx, "/projects/"+url.PathEscape(projectID)); err != nil {
		return fmt.Errorf("deleting project %s: %w", projectID, err)
	}
	return nil
}

// ListSections returns a project's sections in board order.
func (a *Adapter) ListSections(ctx context.Context, projectID string) ([]model.Section, error) {
	path := fmt.Sprintf("/projects/%s/sections", url.PathEscape(projectID))

	var sections []Section
	if err := a.client.Get(ctx, path, &sections); err != nil {
		return nil, fmt.Errorf("listing sections of %s: %w", projectID, err)
	}

	out := make([]model.Section, 0, len(sections))
	for _, s := range sections {
		out = append(out, model.Section{ID: s.GID, Name: s.Name, ProjectID: projectID})
	}
	return out, nil
}

// CreateSection adds a section to a project.
func (a *Adapter) CreateSection(ctx context.Context, projectID, name string) (model.Section, error) {
	path := fmt.Sprintf("/projects/%s/sections", url.PathEscape(projectID))

	var s Section
	if err := a.client.Post(ctx, path, createSectionRequest{Name: name}, &s); err != nil {
		return model.Section{}, fmt.Errorf("creating section %q: %w", name, err)
	}
	return model.Section{ID: s.GID, Name: s.Name, ProjectID: projectID}, nil
}

// ListTasks returns a project's tasks with their section, tags and
// attachments.
func (a *Adapter) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	q := url.Values{}
	q.Set("opt_fields", taskFields)
	path := fmt.Sprintf("/projects/%s/tasks?%s", url.PathEscape(projectID), q.Encode())

	var tasks []Task
	if err := a.client.Get(ctx, path, &tasks); err != nil {
		return nil, fmt.Errorf("listing tasks of %s: %w", projectID, err)
	}

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTask(t, projectID))
	}
	return out, nil
}

// CreateTask creates a task placed directly in a section.
func (a *Adapter) CreateTask(ctx context.Context, in source.TaskCreate) (model.Task, error) {
	body := createTaskRequest{
		Name:     in.Name,
		Projects: []string{in.ProjectID},
	}
	if in.SectionID != "" {
		body.Memberships = []membershipRequest{{Project: in.ProjectID, Section: in.SectionID}}
	}

	var t Task
	if err := a.client.Post(ctx, "/tasks", body, &t); err != nil {
		return model.Task{}, fmt.Errorf("creating task %q: %w", in.Name, err)
	}
	return toTask(t, in.ProjectID), nil
}

// RenameTask updates the task's name.
func (a *Adapter) RenameTask(ctx context.Context, taskID, name string) error {
	path := "/tasks/" + url.PathEscape(taskID)
	if err := a.client.Put(ctx, path, updateTaskRequest{Name: name}, nil); err != nil {
		return fmt.Errorf("renaming task %s: %w", taskID, err)
	}
	return nil
}

// DeleteTask deletes a task.
func (a *Adapter) DeleteTask(ctx context.Context, taskID string) error {
	if err := a.client.Delete(ctx, "/tasks/"+url.PathEscape(taskID)); err != nil {
		return fmt.Errorf("deleting task %s: %w", taskID, err)
	}
	return nil
}

// AddTaskToSection moves a task into a section of its project.
func (a *Adapter) AddTaskToSection(ctx context.Context, sectionID, taskID string) error {
	path := fmt.Sprintf("/sections/%s/addTask", url.PathEscape(sectionID))
	if err := a.client.Post(ctx, path, addTaskRequest{Task: taskID}, nil); err != nil {
		return fmt.Errorf("moving task %s to section %s: %w", taskID, sectionID, err)
	}
	return nil
}

// ListTags returns the workspace's tags.
func (a *Adapter) ListTags(ctx context.Context, workspaceID string) ([]model.Tag, error) {
	q := url.Values{}
	q.Set("workspace", workspaceID)
	q.Set("opt_fields", "name")

	var tags []Tag
	if err := a.client.Get(ctx, "/tags?"+q.Encode(), &tags); err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	out := make([]model.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, model.Tag{ID: t.GID, Name: t.Name})
	}
	return out, nil
}

// AddTag attaches one tag to a task.
func (a *Adapter) AddTag(ctx context.Context, taskID, tagID string) error {
	path := fmt.Sprintf("/tasks/%s/addTag", url.PathEscape(taskID))
	if err := a.client.Post(ctx, path, tagRequest{Tag: tagID}, nil); err != nil {
		return fmt.Errorf("adding tag %s to task %s: %w", tagID, taskID, err)
	}
	return nil
}

// RemoveTag detaches one tag from a task.
func (a *Adapter) RemoveTag(ctx context.Context, taskID, tagID string) error {
	path := fmt.Sprintf("/tasks/%s/removeTag", url.PathEscape(taskID))
	if err := a.client.Post(ctx, path, tagRequest{Tag: tagID}, nil); err != nil {
		return fmt.Errorf("removing tag %s from task %s: %w", tagID, taskID, err)
	}
	return nil
}

// UploadAttachment uploads img and attaches it to the task.
func (a *Adapter) UploadAttachment(ctx context.Context, taskID string, img model.Image) (model.Attachment, error) {
	var att Attachment
	fields := map[string]string{"parent": taskID}
	if err := a.client.Upload(ctx, "/attachments", fields, img.Name, img.ContentType, img.Data, &att); err != nil {
		return model.Attachment{}, fmt.Errorf("uploading %s to task %s: %w", img.Name, taskID, err)
	}
	return model.Attachment{ID: att.GID, URL: att.DownloadURL}, nil
}

// DeleteAttachment deletes an attachment.
func (a *Adapter) DeleteAttachment(ctx context.Context, attachmentID string) error {
	if err := a.client.Delete(ctx, "/attachments/"+url.PathEscape(attachmentID)); err != nil {
		return fmt.Errorf("deleting attachment %s: %w", attachmentID, err)
	}
	return nil
}

// toTask converts an API task to the board's task, taking the membership
// that belongs to projectID (or the first one carrying a section).
func toTask(t Task, projectID string) model.Task {
	task := model.Task{ID: t.GID, Name: t.Name}

	for _, m := range t.Memberships {
		if m.Section == nil {
			continue
		}
		if m.Project != nil && m.Project.GID != "" && m.Project.GID != projectID {
			continue
		}
		task.Membership = model.Membership{SectionID: m.Section.GID, SectionName: m.Section.Name}
		break
	}

	for _, tg := range t.Tags {
		task.Tags = append(task.Tags, model.Tag{ID: tg.GID, Name: tg.Name})
	}
	for _, at := range t.Attachments {
		task.Attachments = append(task.Attachments, model.Attachment{ID: at.GID, URL: at.DownloadURL})
	}
	return task
}
