// Package mutation performs remote-state-changing operations against the
// source, applying optimistic cache patches where the board needs them and
// invalidating cache entries once a mutation settles.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/taskboard/internal/cache"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/source"
)

var (
	// ErrInFlight is returned when the same logical target already has a
	// mutation in flight. Callers treat it as a no-op.
	ErrInFlight = errors.New("mutation already in flight")

	// ErrSectionNotFound is returned when a project has no section for a
	// status.
	ErrSectionNotFound = errors.New("section not found")
)

// Coordinator serializes nothing beyond a per-target double-submit guard;
// unrelated mutations run concurrently.
type Coordinator struct {
	src         source.Source
	cache       *cache.Cache
	workspaceID string
	logger      *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a coordinator for one workspace.
func New(src source.Source, c *cache.Cache, workspaceID string, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		src:         src,
		cache:       c,
		workspaceID: workspaceID,
		logger:      logger,
		inflight:    make(map[string]struct{}),
	}
}

// guard claims target for the duration of a mutation.
func (c *Coordinator) guard(target string) (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[target]; busy {
		return nil, ErrInFlight
	}
	c.inflight[target] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inflight, target)
		c.mu.Unlock()
	}, nil
}

// Busy reports whether target has a mutation in flight.
func (c *Coordinator) Busy(target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[target]
	return busy
}

// Guard targets.
func createTaskTarget(projectID string) string { return "create-task:" + projectID }
func taskTarget(taskID string) string          { return "task:" + taskID }
func projectTarget(projectID string) string    { return "project:" + projectID }

// CreateProjectTarget is the guard target shared by all project creations in
// a workspace.
func CreateProjectTarget(workspaceID string) string { return "create-project:" + workspaceID }

func (c *Coordinator) op(kind string, attrs ...any) *slog.Logger {
	return c.logger.With(append([]any{"op", kind, "op_id", uuid.NewString()}, attrs...)...)
}

// Sections returns a project's sections through the cache.
func (c *Coordinator) Sections(ctx context.Context, projectID string) ([]model.Section, error) {
	key, fetch := c.loaders().Sections(projectID)
	return cache.FetchAs[[]model.Section](ctx, c.cache, key, fetch)
}

func (c *Coordinator) loaders() cache.Loaders {
	return cache.Loaders{Source: c.src, WorkspaceID: c.workspaceID}
}

// sectionFor resolves the section a status maps to. Duplicate names resolve
// to the first section listed.
func (c *Coordinator) sectionFor(ctx context.Context, log *slog.Logger, projectID string, status model.Status) (model.Section, error) {
	sections, err := c.Sections(ctx, projectID)
	if err != nil {
		return model.Section{}, fmt.Errorf("loading sections: %w", err)
	}
	s, ok, dup := model.SectionForStatus(sections, status)
	if !ok {
		return model.Section{}, fmt.Errorf("%w: %q in project %s", ErrSectionNotFound, status, projectID)
	}
	if dup {
		log.Warn("duplicate section name, using first", "status", string(status), "section", s.ID)
	}
	return s, nil
}

// cachedTask returns the cached copy of a task, if the project's task list
// is loaded.
func (c *Coordinator) cachedTask(projectID, taskID string) (model.Task, bool) {
	tasks, ok := cache.Typed[[]model.Task](c.cache.Peek(cache.TasksKey(projectID)))
	if !ok {
		return model.Task{}, false
	}
	return model.FindTask(tasks, taskID)
}

func (c *Coordinator) invalidateTasks(projectID string, taskIDs ...string) {
	c.cache.InvalidateKey(cache.TasksKey(projectID))
	tags := make([]cache.Tag, 0, len(taskIDs))
	for _, id := range taskIDs {
		tags = append(tags, cache.EntityTag(cache.ResourceTasks, id))
	}
	if len(tags) > 0 {
		c.cache.Invalidate(tags...)
	}
}

// MoveTask moves a task to the section for status. The cached task list is
// patched before the remote call and the patch is undone if the call fails.
// Moves are not guarded: a later drag simply races an earlier one.
func (c *Coordinator) MoveTask(ctx context.Context, projectID, taskID string, status model.Status) error {
	log := c.op("move_task", "project", projectID, "task", taskID, "status", string(status))

	if t, ok := c.cachedTask(projectID, taskID); ok && t.Status() == status {
		return nil
	}

	section, err := c.sectionFor(ctx, log, projectID, status)
	if err != nil {
		log.Error("move failed", "error", err)
		return err
	}

	patch := c.cache.Update(cache.TasksKey(projectID), func(old any) any {
		tasks, _ := old.([]model.Task)
		out := make([]model.Task, len(tasks))
		for i, t := range tasks {
			if t.ID == taskID {
				t = t.InSection(section)
			}
			out[i] = t
		}
		return out
	})

	if err := c.src.AddTaskToSection(ctx, section.ID, taskID); err != nil {
		patch.Undo()
		log.Error("move failed, patch undone", "error", err)
		return err
	}

	c.invalidateTasks(projectID, taskID)
	log.Info("task moved", "section", section.ID)
	return nil
}

// CreateTask creates a task in the section for in.Status, then attaches its
// tags and uploads its image. Invalid input is rejected before any remote
// call.
func (c *Coordinator) CreateTask(ctx context.Context, projectID string, in model.TaskInput) (model.Task, error) {
	if err := in.Validate(); err != nil {
		return model.Task{}, err
	}
	release, err := c.guard(createTaskTarget(projectID))
	if err != nil {
		return model.Task{}, err
	}
	defer release()

	log := c.op("create_task", "project", projectID)

	section, err := c.sectionFor(ctx, log, projectID, in.Status)
	if err != nil {
		log.Error("create failed", "error", err)
		return model.Task{}, err
	}

	task, err := c.src.CreateTask(ctx, source.TaskCreate{
		Name:      strings.TrimSpace(in.Name),
		ProjectID: projectID,
		SectionID: section.ID,
	})
	if err != nil {
		log.Error("create failed", "error", err)
		return model.Task{}, err
	}
	defer c.invalidateTasks(projectID, task.ID)
	log = log.With("task", task.ID)

	toAdd, _ := model.DiffTags(nil, in.TagIDs)
	if err := c.applyTags(ctx, task.ID, toAdd, nil); err != nil {
		log.Error("task created, tags failed", "error", err)
		return task, err
	}

	if in.Image != nil {
		if _, err := c.src.UploadAttachment(ctx, task.ID, *in.Image); err != nil {
			log.Error("task created, image upload failed", "error", err)
			return task, err
		}
	}

	log.Info("task created", "tags", len(toAdd), "image", in.Image != nil)
	return task, nil
}

// UpdateTask applies the difference between the task as it was when the
// edit session started and the submitted form. Submitting an unchanged
// form is a no-op. Steps run in order and the first failure stops the
// update; earlier steps stay applied.
func (c *Coordinator) UpdateTask(ctx context.Context, projectID string, original model.Task, in model.TaskInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if !in.Changed(original) {
		return nil
	}
	release, err := c.guard(taskTarget(original.ID))
	if err != nil {
		return err
	}
	defer release()

	log := c.op("update_task", "project", projectID, "task", original.ID)
	defer c.invalidateTasks(projectID, original.ID)

	if name := strings.TrimSpace(in.Name); name != original.Name {
		if err := c.src.RenameTask(ctx, original.ID, name); err != nil {
			log.Error("rename failed", "error", err)
			return err
		}
	}

	if in.Status != original.Status() {
		section, err := c.sectionFor(ctx, log, projectID, in.Status)
		if err != nil {
			log.Error("status change failed", "error", err)
			return err
		}
		if err := c.src.AddTaskToSection(ctx, section.ID, original.ID); err != nil {
			log.Error("status change failed", "error", err)
			return err
		}
	}

	toAdd, toRemove := model.DiffTags(model.TagIDs(original.Tags), in.TagIDs)
	if err := c.applyTags(ctx, original.ID, toAdd, toRemove); err != nil {
		log.Error("tag update failed", "error", err)
		return err
	}

	if err := c.replaceImage(ctx, original, in); err != nil {
		log.Error("image update failed", "error", err)
		return err
	}

	log.Info("task updated", "tags_added", len(toAdd), "tags_removed", len(toRemove))
	return nil
}

// applyTags issues one add call per tag in toAdd and one remove call per
// tag in toRemove, concurrently. The first failure is returned once every
// call has finished; calls that succeeded are not reverted.
func (c *Coordinator) applyTags(ctx context.Context, taskID string, toAdd, toRemove []string) error {
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}
	var g errgroup.Group
	for _, id := range toAdd {
		g.Go(func() error { return c.src.AddTag(ctx, taskID, id) })
	}
	for _, id := range toRemove {
		g.Go(func() error { return c.src.RemoveTag(ctx, taskID, id) })
	}
	return g.Wait()
}

// replaceImage removes the existing attachment before uploading the new
// one. With RemoveImage and no new image only the removal is issued.
func (c *Coordinator) replaceImage(ctx context.Context, original model.Task, in model.TaskInput) error {
	if in.Image == nil && !in.RemoveImage {
		return nil
	}
	if old, ok := original.Image(); ok {
		if err := c.src.DeleteAttachment(ctx, old.ID); err != nil {
			return err
		}
	}
	if in.Image != nil {
		if _, err := c.src.UploadAttachment(ctx, original.ID, *in.Image); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTask deletes a task and invalidates its project's task list.
func (c *Coordinator) DeleteTask(ctx context.Context, projectID, taskID string) error {
	release, err := c.guard(taskTarget(taskID))
	if err != nil {
		return err
	}
	defer release()

	log := c.op("delete_task", "project", projectID, "task", taskID)
	if err := c.src.DeleteTask(ctx, taskID); err != nil {
		log.Error("delete failed", "error", err)
		return err
	}
	c.invalidateTasks(projectID, taskID)
	log.Info("task deleted")
	return nil
}

// CreateProject creates a project and then one section per board status,
// concurrently. A section failure does not remove the project.
func (c *Coordinator) CreateProject(ctx context.Context, in model.ProjectInput) (model.Project, error) {
	if err := in.Validate(); err != nil {
		return model.Project{}, err
	}
	release, err := c.guard(CreateProjectTarget(c.workspaceID))
	if err != nil {
		return model.Project{}, err
	}
	defer release()

	log := c.op("create_project", "workspace", c.workspaceID)

	p, err := c.src.CreateProject(ctx, c.workspaceID, in.DisplayName())
	if err != nil {
		log.Error("create failed", "error", err)
		return model.Project{}, err
	}
	defer c.cache.Invalidate(cache.ListTag(cache.ResourceProjects))
	log = log.With("project", p.ID)

	var g errgroup.Group
	for _, st := range model.Statuses {
		g.Go(func() error {
			_, err := c.src.CreateSection(ctx, p.ID, string(st))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		c.cache.InvalidateKey(cache.SectionsKey(p.ID))
		log.Error("project created, sections failed", "error", err)
		return p, err
	}

	log.Info("project created", "name", p.Name)
	return p, nil
}

// DeleteProject deletes a project and drops its cached tasks and sections.
func (c *Coordinator) DeleteProject(ctx context.Context, projectID string) error {
	release, err := c.guard(projectTarget(projectID))
	if err != nil {
		return err
	}
	defer release()

	log := c.op("delete_project", "project", projectID)
	if err := c.src.DeleteProject(ctx, projectID); err != nil {
		log.Error("delete failed", "error", err)
		return err
	}

	c.cache.Drop(cache.TasksKey(projectID))
	c.cache.Drop(cache.SectionsKey(projectID))
	c.cache.Invalidate(cache.ListTag(cache.ResourceProjects))
	log.Info("project deleted")
	return nil
}
