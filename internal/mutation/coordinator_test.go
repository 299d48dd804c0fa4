package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/cache"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/source/sourcetest"
)

const workspace = "ws1"

type fixture struct {
	src      *sourcetest.Fake
	cache    *cache.Cache
	coord    *Coordinator
	project  model.Project
	sections []model.Section
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	src := sourcetest.New()
	c := cache.New(nil)
	p, sections := src.SeedProject("🚀 Launch")
	return &fixture{
		src:      src,
		cache:    c,
		coord:    New(src, c, workspace, nil),
		project:  p,
		sections: sections,
	}
}

// loadTasks primes the task list cache the way the board does.
func (f *fixture) loadTasks(t *testing.T) []model.Task {
	t.Helper()
	v, err := f.cache.Fetch(context.Background(), cache.TasksKey(f.project.ID), func(ctx context.Context) (any, []cache.Tag, error) {
		tasks, err := f.src.ListTasks(ctx, f.project.ID)
		return tasks, cache.TaskTags(tasks), err
	})
	require.NoError(t, err)
	return v.([]model.Task)
}

func cachedStatus(t *testing.T, c *cache.Cache, projectID, taskID string) model.Status {
	t.Helper()
	tasks, ok := cache.Typed[[]model.Task](c.Peek(cache.TasksKey(projectID)))
	require.True(t, ok)
	task, ok := model.FindTask(tasks, taskID)
	require.True(t, ok)
	return task.Status()
}

func TestMoveTaskRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	task := f.src.SeedTask(f.project.ID, model.StatusBacklog, "Draft")
	f.loadTasks(t)

	release := f.src.Block("AddTaskToSection")
	f.src.FailOn("AddTaskToSection", errors.New("server said no"))

	done := make(chan error, 1)
	go func() {
		done <- f.coord.MoveTask(context.Background(), f.project.ID, task.ID, model.StatusInReview)
	}()

	require.Eventually(t, func() bool {
		return len(f.src.CallsTo("AddTaskToSection")) == 1
	}, time.Second, 5*time.Millisecond)

	// The patch is visible while the remote call is outstanding.
	assert.Equal(t, model.StatusInReview, cachedStatus(t, f.cache, f.project.ID, task.ID))

	release()
	require.Error(t, <-done)

	assert.Equal(t, model.StatusBacklog, cachedStatus(t, f.cache, f.project.ID, task.ID))
	assert.False(t, f.cache.Peek(cache.TasksKey(f.project.ID)).Stale)
}

func TestMoveTaskSuccessInvalidates(t *testing.T) {
	f := newFixture(t)
	task := f.src.SeedTask(f.project.ID, model.StatusBacklog, "Draft")
	f.loadTasks(t)

	require.NoError(t, f.coord.MoveTask(context.Background(), f.project.ID, task.ID, model.StatusCompleted))

	snap := f.cache.Peek(cache.TasksKey(f.project.ID))
	assert.True(t, snap.Stale)
	assert.Equal(t, model.StatusCompleted, cachedStatus(t, f.cache, f.project.ID, task.ID))

	stored, _ := f.src.Task(task.ID)
	assert.Equal(t, model.StatusCompleted, stored.Status())
}

func TestMoveTaskToSameSectionIsNoop(t *testing.T) {
	f := newFixture(t)
	task := f.src.SeedTask(f.project.ID, model.StatusInProgress, "Doing")
	f.loadTasks(t)

	require.NoError(t, f.coord.MoveTask(context.Background(), f.project.ID, task.ID, model.StatusInProgress))
	assert.Empty(t, f.src.CallsTo("AddTaskToSection"))
}

func TestMoveTaskUsesFirstDuplicateSection(t *testing.T) {
	f := newFixture(t)
	task := f.src.SeedTask(f.project.ID, model.StatusBacklog, "Draft")
	f.src.SeedSection(f.project.ID, string(model.StatusCompleted))

	require.NoError(t, f.coord.MoveTask(context.Background(), f.project.ID, task.ID, model.StatusCompleted))

	calls := f.src.CallsTo("AddTaskToSection")
	require.Len(t, calls, 1)
	assert.Equal(t, f.sections[3].ID, calls[0].Args[0])
}

func TestCreateTaskEmptyNameMakesNoCall(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.CreateTask(context.Background(), f.project.ID, model.TaskInput{
		Name:   "   ",
		Status: model.StatusBacklog,
	})

	var verr model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Task name is required", verr["taskName"])
	assert.Empty(t, f.src.Calls())
}

func TestCreateTaskAddsTagsThenUploadsImage(t *testing.T) {
	f := newFixture(t)
	design := f.src.SeedTag("Design")
	devops := f.src.SeedTag("DevOps")
	f.loadTasks(t)

	task, err := f.coord.CreateTask(context.Background(), f.project.ID, model.TaskInput{
		Name:   "  Landing page ",
		Status: model.StatusBacklog,
		TagIDs: []string{devops.ID, design.ID},
		Image:  &model.Image{Name: "hero.png", ContentType: "image/png", Data: []byte("png")},
	})
	require.NoError(t, err)

	stored, ok := f.src.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, "Landing page", stored.Name)
	assert.Equal(t, model.StatusBacklog, stored.Status())
	assert.ElementsMatch(t, []string{design.ID, devops.ID}, model.TagIDs(stored.Tags))
	_, hasImage := stored.Image()
	assert.True(t, hasImage)

	var methods []string
	for _, c := range f.src.Calls() {
		methods = append(methods, c.Method)
	}
	assert.Equal(t, []string{
		"ListTasks", "ListSections", "CreateTask", "AddTag", "AddTag", "UploadAttachment",
	}, methods)

	assert.True(t, f.cache.Peek(cache.TasksKey(f.project.ID)).Stale)
}

func TestCreateTaskDoubleSubmitIsIgnored(t *testing.T) {
	f := newFixture(t)
	release := f.src.Block("CreateTask")
	in := model.TaskInput{Name: "Once", Status: model.StatusBacklog}

	done := make(chan error, 1)
	go func() {
		_, err := f.coord.CreateTask(context.Background(), f.project.ID, in)
		done <- err
	}()
	require.Eventually(t, func() bool {
		return len(f.src.CallsTo("CreateTask")) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := f.coord.CreateTask(context.Background(), f.project.ID, in)
	assert.ErrorIs(t, err, ErrInFlight)

	release()
	require.NoError(t, <-done)
	assert.Len(t, f.src.CallsTo("CreateTask"), 1)

	// Once settled, the target is free again.
	_, err = f.coord.CreateTask(context.Background(), f.project.ID, in)
	require.NoError(t, err)
}

func TestUpdateTaskTagDiff(t *testing.T) {
	f := newFixture(t)
	x := f.src.SeedTag("Concept")
	y := f.src.SeedTag("Technical")
	z := f.src.SeedTag("Database")
	task := f.src.SeedTask(f.project.ID, model.StatusBacklog, "Schema", x, y)

	err := f.coord.UpdateTask(context.Background(), f.project.ID, task, model.TaskInput{
		Name:   task.Name,
		Status: model.StatusBacklog,
		TagIDs: []string{y.ID, z.ID},
	})
	require.NoError(t, err)

	adds := f.src.CallsTo("AddTag")
	removes := f.src.CallsTo("RemoveTag")
	require.Len(t, adds, 1)
	require.Len(t, removes, 1)
	assert.Equal(t, []string{task.ID, z.ID}, adds[0].Args)
	assert.Equal(t, []string{task.ID, x.ID}, removes[0].Args)
	assert.Empty(t, f.src.CallsTo("RenameTask"))
	assert.Empty(t, f.src.CallsTo("AddTaskToSection"))
}

func TestUpdateTaskTagFailurePropagates(t *testing.T) {
	f := newFixture(t)
	x := f.src.SeedTag("Concept")
	task := f.src.SeedTask(f.project.ID, model.StatusBacklog, "Schema")
	f.src.FailOn("AddTag", errors.New("tag rejected"))

	err := f.coord.UpdateTask(context.Background(), f.project.ID, task, model.TaskInput{
		Name:   "Schema v2",
		Status: model.StatusBacklog,
		TagIDs: []string{x.ID},
	})
	require.EqualError(t, err, "tag rejected")

	// The rename that ran first stays applied.
	stored, _ := f.src.Task(task.ID)
	assert.Equal(t, "Schema v2", stored.Name)
}

func TestUpdateTaskReplacesImageSequentially(t *testing.T) {
	f := newFixture(t)
	task := f.src.SeedTask(f.project.ID, model.StatusInReview, "Mockups")
	old := f.src.SeedAttachment(task.ID)
	task, _ = f.src.Task(task.ID)

	err := f.coord.UpdateTask(context.Background(), f.project.ID, task, model.TaskInput{
		Name:   task.Name,
		Status: model.StatusInReview,
		Image:  &model.Image{Name: "v2.jpg", ContentType: "image/jpeg", Data: []byte("jpg")},
	})
	require.NoError(t, err)

	var methods []string
	for _, c := range f.src.Calls() {
		if c.Method == "DeleteAttachment" || c.Method == "UploadAttachment" {
			methods = append(methods, c.Method)
		}
	}
	assert.Equal(t, []string{"DeleteAttachment", "UploadAttachment"}, methods)
	assert.Equal(t, []string{old.ID}, f.src.CallsTo("DeleteAttachment")[0].Args)

	stored, _ := f.src.Task(task.ID)
	require.Len(t, stored.Attachments, 1)
	assert.NotEqual(t, old.ID, stored.Attachments[0].ID)
}

func TestUpdateTaskRemoveImageOnly(t *testing.T) {
	f := newFixture(t)
	task := f.src.SeedTask(f.project.ID, model.StatusInReview, "Mockups")
	f.src.SeedAttachment(task.ID)
	task, _ = f.src.Task(task.ID)

	err := f.coord.UpdateTask(context.Background(), f.project.ID, task, model.TaskInput{
		Name:        task.Name,
		Status:      model.StatusInReview,
		RemoveImage: true,
	})
	require.NoError(t, err)
	assert.Len(t, f.src.CallsTo("DeleteAttachment"), 1)
	assert.Empty(t, f.src.CallsTo("UploadAttachment"))
}

func TestUpdateTaskUnchangedIsNoop(t *testing.T) {
	f := newFixture(t)
	tag := f.src.SeedTag("Design")
	task := f.src.SeedTask(f.project.ID, model.StatusBacklog, "Same", tag)

	err := f.coord.UpdateTask(context.Background(), f.project.ID, task, model.TaskInput{
		Name:   task.Name,
		Status: model.StatusBacklog,
		TagIDs: []string{tag.ID},
	})
	require.NoError(t, err)
	assert.Empty(t, f.src.Calls())
}

func TestUpdateTaskStatusChange(t *testing.T) {
	f := newFixture(t)
	task := f.src.SeedTask(f.project.ID, model.StatusBacklog, "Ship")

	err := f.coord.UpdateTask(context.Background(), f.project.ID, task, model.TaskInput{
		Name:   task.Name,
		Status: model.StatusInProgress,
	})
	require.NoError(t, err)

	stored, _ := f.src.Task(task.ID)
	assert.Equal(t, model.StatusInProgress, stored.Status())
}

func TestDeleteTaskInvalidatesList(t *testing.T) {
	f := newFixture(t)
	task := f.src.SeedTask(f.project.ID, model.StatusBacklog, "Gone")
	f.loadTasks(t)

	require.NoError(t, f.coord.DeleteTask(context.Background(), f.project.ID, task.ID))
	assert.True(t, f.cache.Peek(cache.TasksKey(f.project.ID)).Stale)

	tasks := f.loadTasks(t)
	assert.Empty(t, tasks)
}

func TestDeleteTaskFailureReported(t *testing.T) {
	f := newFixture(t)
	task := f.src.SeedTask(f.project.ID, model.StatusBacklog, "Sticky")
	f.loadTasks(t)
	f.src.FailOn("DeleteTask", errors.New("nope"))

	require.Error(t, f.coord.DeleteTask(context.Background(), f.project.ID, task.ID))
	assert.False(t, f.cache.Peek(cache.TasksKey(f.project.ID)).Stale)
}

func TestCreateProjectCreatesFourSections(t *testing.T) {
	f := newFixture(t)
	f.cache.Set(cache.ProjectsKey(workspace), []model.Project{f.project})

	p, err := f.coord.CreateProject(context.Background(), model.ProjectInput{Name: "Roadmap", LogoIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, "🚀 Roadmap", p.Name)

	calls := f.src.CallsTo("CreateSection")
	require.Len(t, calls, 4)
	var names []string
	for _, c := range calls {
		assert.Equal(t, p.ID, c.Args[0])
		names = append(names, c.Args[1])
	}
	assert.ElementsMatch(t, []string{"Backlog", "In Progress", "In Review", "Completed"}, names)
	assert.True(t, f.cache.Peek(cache.ProjectsKey(workspace)).Stale)
}

func TestCreateProjectSectionFailureKeepsProject(t *testing.T) {
	f := newFixture(t)
	f.src.FailOn("CreateSection", errors.New("quota"))

	p, err := f.coord.CreateProject(context.Background(), model.ProjectInput{Name: "Roadmap"})
	require.Error(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Empty(t, f.src.CallsTo("DeleteProject"))
}

func TestCreateProjectInvalidNameMakesNoCall(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.CreateProject(context.Background(), model.ProjectInput{Name: "abc"})

	var verr model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr["projectName"], "at least 5")
	assert.Empty(t, f.src.Calls())
}

func TestCreateProjectDoubleSubmitMakesOneCall(t *testing.T) {
	f := newFixture(t)
	release := f.src.Block("CreateProject")
	in := model.ProjectInput{Name: "Roadmap"}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.coord.CreateProject(context.Background(), in)
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool {
		return f.coord.Busy(CreateProjectTarget(workspace)) && len(f.src.CallsTo("CreateProject")) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := f.coord.CreateProject(context.Background(), in)
	assert.ErrorIs(t, err, ErrInFlight)

	release()
	wg.Wait()
	assert.Len(t, f.src.CallsTo("CreateProject"), 1)
}

func TestDeleteProjectDropsEntries(t *testing.T) {
	f := newFixture(t)
	f.loadTasks(t)
	f.cache.Set(cache.ProjectsKey(workspace), []model.Project{f.project})

	require.NoError(t, f.coord.DeleteProject(context.Background(), f.project.ID))
	assert.False(t, f.cache.Peek(cache.TasksKey(f.project.ID)).Loaded)
	assert.True(t, f.cache.Peek(cache.ProjectsKey(workspace)).Stale)
}
