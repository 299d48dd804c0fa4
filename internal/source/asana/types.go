package asana

// envelope wraps every request and response body.
type envelope struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the body of a non-2xx response.
type ErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Help    string `json:"help,omitempty"`
	} `json:"errors"`
}

// Project is a project as returned by GET /projects.
type Project struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Section is a section as returned by GET /projects/{gid}/sections.
type Section struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Tag is a workspace tag.
type Tag struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Attachment is a file attached to a task.
type Attachment struct {
	GID         string `json:"gid"`
	Name        string `json:"name,omitempty"`
	DownloadURL string `json:"download_url"`
}

// Membership links a task to a project section.
type Membership struct {
	Project *Project `json:"project,omitempty"`
	Section *Section `json:"section,omitempty"`
}

// Task is a task as returned with
// opt_fields=name,memberships.section.name,tags.name,attachments.download_url.
type Task struct {
	GID         string       `json:"gid"`
	Name        string       `json:"name"`
	Memberships []Membership `json:"memberships,omitempty"`
	Tags        []Tag        `json:"tags,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// createProjectRequest is the body of POST /projects.
type createProjectRequest struct {
	Name      string `json:"name"`
	Workspace string `json:"workspace"`
}

// createSectionRequest is the body of POST /projects/{gid}/sections.
type createSectionRequest struct {
	Name string `json:"name"`
}

// membershipRequest places a new task in a project section.
type membershipRequest struct {
	Project string `json:"project"`
	Section string `json:"section"`
}

// createTaskRequest is the body of POST /tasks.
type createTaskRequest struct {
	Name        string              `json:"name"`
	Projects    []string            `json:"projects"`
	Memberships []membershipRequest `json:"memberships,omitempty"`
}

// updateTaskRequest is the body of PUT /tasks/{gid}.
type updateTaskRequest struct {
	Name string `json:"name"`
}

// addTaskRequest is the body of POST /sections/{gid}/addTask.
type addTaskRequest struct {
	Task string `json:"task"`
}

// tagRequest is the body of POST /tasks/{gid}/addTag and removeTag.
type tagRequest struct {
	Tag string `json:"tag"`
}
