package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/cache"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/source"
)

// SyncState represents the current state of a cache load.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the load state for one cache key.
type SyncStatus struct {
	Key      cache.Key
	State    SyncState
	LastSync time.Time
	Error    error
}

// ProjectsLoadedMsg is a tea.Msg sent when the project list load settles.
type ProjectsLoadedMsg struct {
	Projects []model.Project
	Err      error
}

// TasksLoadedMsg is a tea.Msg sent when a project's task list load settles.
type TasksLoadedMsg struct {
	ProjectID string
	Tasks     []model.Task
	Err       error
}

// SectionsLoadedMsg is a tea.Msg sent when a project's sections load
// settles.
type SectionsLoadedMsg struct {
	ProjectID string
	Sections  []model.Section
	Err       error
}

// TagsLoadedMsg is a tea.Msg sent when the tag list load settles.
type TagsLoadedMsg struct {
	Tags []model.Tag
	Err  error
}

// CacheChangedMsg is a tea.Msg sent when a cache entry changed.
type CacheChangedMsg struct {
	Key cache.Key
}

// defaultFetchTimeout is the maximum time allowed for a single load.
const defaultFetchTimeout = 30 * time.Second

// Refresher turns cache loads into tea.Cmds and reports cache changes back
// to the Bubble Tea runtime.
type Refresher struct {
	cache   *cache.Cache
	loaders cache.Loaders
	timeout time.Duration

	mu       gosync.Mutex
	statuses map[cache.Key]*SyncStatus
}

// New creates a Refresher for one workspace.
func New(src source.Source, c *cache.Cache, workspaceID string, timeout time.Duration) *Refresher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Refresher{
		cache:    c,
		loaders:  cache.Loaders{Source: src, WorkspaceID: workspaceID},
		timeout:  timeout,
		statuses: make(map[cache.Key]*SyncStatus),
	}
}

// WorkspaceID returns the workspace the refresher loads.
func (r *Refresher) WorkspaceID() string { return r.loaders.WorkspaceID }

// load fetches key through the cache with a bounded context and records
// its status.
func (r *Refresher) load(key cache.Key, fetch cache.Fetcher) (any, error) {
	r.setStatus(key, SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	v, err := r.cache.Fetch(ctx, key, fetch)
	if err != nil {
		r.setStatus(key, SyncError, err)
		return nil, err
	}
	r.setStatus(key, SyncIdle, nil)
	return v, nil
}

// LoadProjects returns a tea.Cmd that loads the project list.
func (r *Refresher) LoadProjects() tea.Cmd {
	key, fetch := r.loaders.Projects()
	return func() tea.Msg {
		v, err := r.load(key, fetch)
		projects, _ := v.([]model.Project)
		return ProjectsLoadedMsg{Projects: projects, Err: err}
	}
}

// LoadTasks returns a tea.Cmd that loads a project's task list.
func (r *Refresher) LoadTasks(projectID string) tea.Cmd {
	key, fetch := r.loaders.Tasks(projectID)
	return func() tea.Msg {
		v, err := r.load(key, fetch)
		tasks, _ := v.([]model.Task)
		return TasksLoadedMsg{ProjectID: projectID, Tasks: tasks, Err: err}
	}
}

// LoadSections returns a tea.Cmd that loads a project's sections.
func (r *Refresher) LoadSections(projectID string) tea.Cmd {
	key, fetch := r.loaders.Sections(projectID)
	return func() tea.Msg {
		v, err := r.load(key, fetch)
		sections, _ := v.([]model.Section)
		return SectionsLoadedMsg{ProjectID: projectID, Sections: sections, Err: err}
	}
}

// LoadTags returns a tea.Cmd that loads the workspace's tags.
func (r *Refresher) LoadTags() tea.Cmd {
	key, fetch := r.loaders.Tags()
	return func() tea.Msg {
		v, err := r.load(key, fetch)
		tags, _ := v.([]model.Tag)
		return TagsLoadedMsg{Tags: tags, Err: err}
	}
}

// Reload returns the load command for key, or nil for keys the board does
// not display.
func (r *Refresher) Reload(key cache.Key) tea.Cmd {
	switch key.Resource {
	case cache.ResourceProjects:
		return r.LoadProjects()
	case cache.ResourceTasks:
		return r.LoadTasks(key.Param)
	case cache.ResourceSections:
		return r.LoadSections(key.Param)
	case cache.ResourceTags:
		return r.LoadTags()
	}
	return nil
}

// NeedsReload reports whether a change notification for key should be
// answered with a reload. Entries that are loading, or that settled with an
// error and were not invalidated since, are left alone.
func (r *Refresher) NeedsReload(key cache.Key) bool {
	s := r.cache.Peek(key)
	if s.Loading {
		return false
	}
	return s.Stale || s.Err == nil
}

// WaitForChange returns a tea.Cmd that waits for the next cache change.
// It should be issued again after each CacheChangedMsg to keep listening.
func (r *Refresher) WaitForChange() tea.Cmd {
	return func() tea.Msg {
		key, ok := <-r.cache.Changes()
		if !ok {
			return nil
		}
		return CacheChangedMsg{Key: key}
	}
}

// Status returns the load status of key.
func (r *Refresher) Status(key cache.Key) SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.statuses[key]; ok {
		return *s
	}
	return SyncStatus{Key: key}
}

// LastSync returns the most recent successful load of any key.
func (r *Refresher) LastSync() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last time.Time
	for _, s := range r.statuses {
		if s.LastSync.After(last) {
			last = s.LastSync
		}
	}
	return last
}

// setStatus updates the load status for key.
func (r *Refresher) setStatus(key cache.Key, state SyncState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[key]
	if !ok {
		status = &SyncStatus{Key: key}
		r.statuses[key] = status
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
	}
}
