package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/taskboard/internal/model"
)

// AuthError indicates that authentication has failed or the token expired.
// It is returned by source clients when a 401 response is received.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("API error (%d) on %s %s", e.StatusCode, e.Method, e.Path)
	}
	return fmt.Sprintf("API error (%d) on %s %s: %v", e.StatusCode, e.Method, e.Path, e.Messages)
}

// IsNotFound reports whether err is a 404 from the remote API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// TaskCreate is the payload for creating a task in a section.
type TaskCreate struct {
	Name      string
	ProjectID string
	SectionID string
}

// Source is the remote project-management API as seen by the board. Every
// call is a single network round-trip; orchestration of multi-step edits
// lives in the mutation package.
type Source interface {
	ListProjects(ctx context.Context, workspaceID string) ([]model.Project, error)
	CreateProject(ctx context.Context, workspaceID, name string) (model.Project, error)
	DeleteProject(ctx context.Context, projectID string) error

	ListSections(ctx context.Context, projectID string) ([]model.Section, error)
	CreateSection(ctx context.Context, projectID, name string) (model.Section, error)

	ListTasks(ctx context.Context, projectID string) ([]model.Task, error)
	CreateTask(ctx context.Context, in TaskCreate) (model.Task, error)
	RenameTask(ctx context.Context, taskID, name string) error
	DeleteTask(ctx context.Context, taskID string) error

	// AddTaskToSection moves a task into a section, which changes its status.
	AddTaskToSection(ctx context.Context, sectionID, taskID string) error

	ListTags(ctx context.Context, workspaceID string) ([]model.Tag, error)
	AddTag(ctx context.Context, taskID, tagID string) error
	RemoveTag(ctx context.Context, taskID, tagID string) error

	UploadAttachment(ctx context.Context, taskID string, img model.Image) (model.Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID string) error
}
