package asana

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/source"
)

const testToken = "pat-123"

func newTestAdapter(t *testing.T, r chi.Router) *Adapter {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewAdapter(srv.URL, testToken, 5*time.Second, 3, nil)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func decodeData(t *testing.T, r *http.Request, into interface{}) {
	t.Helper()
	body := struct {
		Data interface{} `json:"data"`
	}{Data: into}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
}

func TestListTasksDecodesMembershipTagsAndAttachments(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/projects/{gid}/tasks", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "p1", chi.URLParam(req, "gid"))
		assert.Equal(t, taskFields, req.URL.Query().Get("opt_fields"))
		assert.Equal(t, "Bearer "+testToken, req.Header.Get("Authorization"))
		writeData(w, http.StatusOK, []map[string]interface{}{
			{
				"gid":  "t1",
				"name": "Write docs",
				"memberships": []map[string]interface{}{
					{"section": map[string]string{"gid": "s2", "name": "In Progress"}},
				},
				"tags":        []map[string]string{{"gid": "g1", "name": "Design"}},
				"attachments": []map[string]string{{"gid": "a1", "download_url": "https://files/a1.png"}},
			},
			{"gid": "t2", "name": "Bare"},
		})
	})

	a := newTestAdapter(t, r)
	tasks, err := a.ListTasks(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, model.StatusInProgress, tasks[0].Status())
	assert.Equal(t, "s2", tasks[0].Membership.SectionID)
	assert.Equal(t, []model.Tag{{ID: "g1", Name: "Design"}}, tasks[0].Tags)
	img, ok := tasks[0].Image()
	require.True(t, ok)
	assert.Equal(t, "https://files/a1.png", img.URL)

	assert.Equal(t, model.Status(""), tasks[1].Status())
	_, ok = tasks[1].Image()
	assert.False(t, ok)
}

func TestListProjectsSendsWorkspace(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/projects", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "ws1", req.URL.Query().Get("workspace"))
		writeData(w, http.StatusOK, []map[string]string{
			{"gid": "p1", "name": "🚀 Launch"},
			{"gid": "p2", "name": "📚 Reading"},
		})
	})

	a := newTestAdapter(t, r)
	projects, err := a.ListProjects(context.Background(), "ws1")
	require.NoError(t, err)
	assert.Equal(t, []model.Project{
		{ID: "p1", Name: "🚀 Launch"},
		{ID: "p2", Name: "📚 Reading"},
	}, projects)
}

func TestCreateTaskPlacesTaskInSection(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/tasks", func(w http.ResponseWriter, req *http.Request) {
		var body createTaskRequest
		decodeData(t, req, &body)
		assert.Equal(t, "New card", body.Name)
		assert.Equal(t, []string{"p1"}, body.Projects)
		assert.Equal(t, []membershipRequest{{Project: "p1", Section: "s1"}}, body.Memberships)
		writeData(w, http.StatusCreated, map[string]interface{}{
			"gid":  "t9",
			"name": body.Name,
			"memberships": []map[string]interface{}{
				{
					"project": map[string]string{"gid": "p1"},
					"section": map[string]string{"gid": "s1", "name": "Backlog"},
				},
			},
		})
	})

	a := newTestAdapter(t, r)
	task, err := a.CreateTask(context.Background(), source.TaskCreate{
		Name: "New card", ProjectID: "p1", SectionID: "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, "t9", task.ID)
	assert.Equal(t, model.StatusBacklog, task.Status())
}

func TestAddTaskToSectionAndTags(t *testing.T) {
	var calls []string
	r := chi.NewRouter()
	r.Post("/sections/{gid}/addTask", func(w http.ResponseWriter, req *http.Request) {
		var body addTaskRequest
		decodeData(t, req, &body)
		calls = append(calls, "addTask:"+chi.URLParam(req, "gid")+":"+body.Task)
		writeData(w, http.StatusOK, map[string]string{})
	})
	r.Post("/tasks/{gid}/addTag", func(w http.ResponseWriter, req *http.Request) {
		var body tagRequest
		decodeData(t, req, &body)
		calls = append(calls, "addTag:"+chi.URLParam(req, "gid")+":"+body.Tag)
		writeData(w, http.StatusOK, map[string]string{})
	})
	r.Post("/tasks/{gid}/removeTag", func(w http.ResponseWriter, req *http.Request) {
		var body tagRequest
		decodeData(t, req, &body)
		calls = append(calls, "removeTag:"+chi.URLParam(req, "gid")+":"+body.Tag)
		writeData(w, http.StatusOK, map[string]string{})
	})

	a := newTestAdapter(t, r)
	ctx := context.Background()
	require.NoError(t, a.AddTaskToSection(ctx, "s3", "t1"))
	require.NoError(t, a.AddTag(ctx, "t1", "g1"))
	require.NoError(t, a.RemoveTag(ctx, "t1", "g2"))

	assert.Equal(t, []string{"addTask:s3:t1", "addTag:t1:g1", "removeTag:t1:g2"}, calls)
}

func TestUploadAttachmentSendsMultipart(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/attachments", func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, req.ParseMultipartForm(1<<20))
		assert.Equal(t, "t1", req.FormValue("parent"))

		f, hdr, err := req.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)

		assert.Equal(t, "cover.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		assert.Equal(t, []byte("PNGDATA"), data)

		writeData(w, http.StatusOK, map[string]string{"gid": "a7", "download_url": "https://files/a7"})
	})

	a := newTestAdapter(t, r)
	att, err := a.UploadAttachment(context.Background(), "t1", model.Image{
		Name: "cover.png", ContentType: "image/png", Data: []byte("PNGDATA"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.Attachment{ID: "a7", URL: "https://files/a7"}, att)
}

func TestRetriesOnRateLimit(t *testing.T) {
	var hits int32
	r := chi.NewRouter()
	r.Get("/tags", func(w http.ResponseWriter, req *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeData(w, http.StatusOK, []map[string]string{{"gid": "g1", "name": "DevOps"}})
	})

	a := newTestAdapter(t, r)
	tags, err := a.ListTags(context.Background(), "ws1")
	require.NoError(t, err)
	assert.Equal(t, []model.Tag{{ID: "g1", Name: "DevOps"}}, tags)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/projects", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	a := newTestAdapter(t, r)
	_, err := a.ListProjects(context.Background(), "ws1")
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))
}

func TestAPIErrorCarriesMessages(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/tasks/{gid}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{{"message": "task: Unknown object: t404"}},
		})
	})

	a := newTestAdapter(t, r)
	err := a.DeleteTask(context.Background(), "t404")
	require.Error(t, err)
	assert.True(t, source.IsNotFound(err))
	assert.Contains(t, err.Error(), "Unknown object")
}
