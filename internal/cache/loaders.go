package cache

import (
	"context"

	"github.com/nhle/taskboard/internal/source"
)

// Loaders builds the Fetcher for each query the board makes.
type Loaders struct {
	Source      source.Source
	WorkspaceID string
}

// Projects loads the workspace's project list.
func (l Loaders) Projects() (Key, Fetcher) {
	return ProjectsKey(l.WorkspaceID), func(ctx context.Context) (any, []Tag, error) {
		projects, err := l.Source.ListProjects(ctx, l.WorkspaceID)
		if err != nil {
			return nil, nil, err
		}
		return projects, ProjectTags(projects), nil
	}
}

// Tasks loads a project's tasks. The entry provides one tag per task plus
// the project's tag.
func (l Loaders) Tasks(projectID string) (Key, Fetcher) {
	return TasksKey(projectID), func(ctx context.Context) (any, []Tag, error) {
		tasks, err := l.Source.ListTasks(ctx, projectID)
		if err != nil {
			return nil, nil, err
		}
		tags := append(TaskTags(tasks), EntityTag(ResourceProjects, projectID))
		return tasks, tags, nil
	}
}

// Sections loads a project's sections.
func (l Loaders) Sections(projectID string) (Key, Fetcher) {
	return SectionsKey(projectID), func(ctx context.Context) (any, []Tag, error) {
		sections, err := l.Source.ListSections(ctx, projectID)
		if err != nil {
			return nil, nil, err
		}
		return sections, []Tag{EntityTag(ResourceProjects, projectID)}, nil
	}
}

// Tags loads the workspace's tags.
func (l Loaders) Tags() (Key, Fetcher) {
	return TagsKey(l.WorkspaceID), func(ctx context.Context) (any, []Tag, error) {
		tags, err := l.Source.ListTags(ctx, l.WorkspaceID)
		if err != nil {
			return nil, nil, err
		}
		return tags, nil, nil
	}
}

// FetchAs runs Fetch and asserts the result type.
func FetchAs[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, fetch)
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

