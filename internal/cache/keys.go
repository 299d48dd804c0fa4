package cache

import (
	"github.com/nhle/taskboard/internal/model"
)

// Resource types held in the cache.
const (
	ResourceProjects = "projects"
	ResourceTasks    = "tasks"
	ResourceSections = "sections"
	ResourceTags     = "tags"
)

// Key identifies one cached query: a resource type and its parameter.
type Key struct {
	Resource string
	Param    string
}

func (k Key) String() string {
	return k.Resource + "(" + k.Param + ")"
}

// ProjectsKey is the project list of a workspace.
func ProjectsKey(workspaceID string) Key { return Key{ResourceProjects, workspaceID} }

// TasksKey is the task list of a project.
func TasksKey(projectID string) Key { return Key{ResourceTasks, projectID} }

// SectionsKey is the section list of a project.
func SectionsKey(projectID string) Key { return Key{ResourceSections, projectID} }

// TagsKey is the tag list of a workspace.
func TagsKey(workspaceID string) Key { return Key{ResourceTags, workspaceID} }

// ListID is the tag id every entry of a resource type provides.
const ListID = "LIST"

// Tag labels data an entry provides. Type names a resource type; ID is an
// entity id or ListID.
type Tag struct {
	Type string
	ID   string
}

// ListTag is the list-wide tag for a resource type.
func ListTag(resource string) Tag { return Tag{Type: resource, ID: ListID} }

// EntityTag tags one entity of a resource type.
func EntityTag(resource, id string) Tag { return Tag{Type: resource, ID: id} }

// matches reports whether invalidating t affects an entry providing p. An
// invalidation tag with an empty ID matches every tag of its type.
func (t Tag) matches(p Tag) bool {
	if t.Type != p.Type {
		return false
	}
	return t.ID == "" || t.ID == p.ID
}

func providesAny(provided, invalidated []Tag) bool {
	for _, inv := range invalidated {
		for _, p := range provided {
			if inv.matches(p) {
				return true
			}
		}
	}
	return false
}

// TaskTags returns the tags a project's task list provides: one per task.
func TaskTags(tasks []model.Task) []Tag {
	tags := make([]Tag, 0, len(tasks))
	for _, t := range tasks {
		tags = append(tags, EntityTag(ResourceTasks, t.ID))
	}
	return tags
}

// ProjectTags returns one tag per project.
func ProjectTags(projects []model.Project) []Tag {
	tags := make([]Tag, 0, len(projects))
	for _, p := range projects {
		tags = append(tags, EntityTag(ResourceProjects, p.ID))
	}
	return tags
}

// Typed returns the snapshot data as T.
func Typed[T any](s Snapshot) (T, bool) {
	v, ok := s.Data.(T)
	return v, ok
}
