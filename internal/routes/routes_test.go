package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"job-portal/internal/auth"
	"job-portal/internal/pipeline"
	"job-portal/internal/storage"
	"job-portal/internal/tokenstore"
	"job-portal/internal/uploads"
	"job-portal/pkg/portal"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testEnv struct {
	t      *testing.T
	router *gin.Engine
	store  *storage.MemoryStorage
	files  *uploads.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStorage()
	files, err := uploads.NewStore(filepath.Join(t.TempDir(), "uploads"), 1024)
	require.NoError(t, err)
	manager := auth.NewManager(auth.Config{JWTSecret: "routes-secret", TokenTTL: time.Hour}, tokenstore.NewMemoryStore())

	r := gin.New()
	r.Use(pipeline.ErrorTranslator(false))
	r.Use(pipeline.Dispatch(pipeline.NewBodyDecoder(100 * 1024).Stage()))
	for _, g := range []Group{
		NewAuthRoutes(store, manager),
		NewJobRoutes(store, manager),
		NewUserRoutes(store, manager, files),
		NewApplicationRoutes(store, manager, files),
	} {
		g.Register(r.Group(g.Prefix()))
	}
	r.NoRoute(pipeline.NotFound)

	return &testEnv{t: t, router: r, store: store, files: files}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(path, token string, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("resume", filename)
		require.NoError(e.t, err)
		_, err = part.Write(content)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register creates an account and returns its token and id.
func (e *testEnv) register(email string, role portal.Role) (string, string) {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Test " + string(role), "email": email, "password": "secret123", "role": role,
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string      `json:"token"`
		User  portal.User `json:"user"`
	}
	decode(e.t, w, &resp)
	return resp.Token, resp.User.ID.Hex()
}

func (e *testEnv) postJob(token, title string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/jobs", token, gin.H{
		"title": title, "description": "Build things", "location": "Berlin", "type": "contract",
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var job portal.Job
	decode(e.t, w, &job)
	return job.ID.Hex()
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register("ada@example.com", portal.RoleEmployer)
	assert.NotEmpty(t, token)

	w := env.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Again", "email": "ADA@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email already registered")

	w = env.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Root", "email": "root@example.com", "password": "secret123", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLoginAcceptsURLEncodedForm(t *testing.T) {
	env := newTestEnv(t)
	env.register("form@example.com", portal.RoleJobSeeker)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("email=form%40example.com&password=secret123"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token, id := env.register("bye@example.com", portal.RoleJobSeeker)

	w := env.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = env.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Logged out"}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJobLifecycle(t *testing.T) {
	env := newTestEnv(t)
	employer, _ := env.register("boss@example.com", portal.RoleEmployer)
	rival, _ := env.register("rival@example.com", portal.RoleEmployer)
	seeker, _ := env.register("seeker@example.com", portal.RoleJobSeeker)

	w := env.do(http.MethodPost, "/api/jobs", seeker, gin.H{"title": "x", "description": "y"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/jobs", employer, gin.H{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := env.postJob(employer, "Go Engineer")

	w = env.do(http.MethodGet, "/api/jobs/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Go Engineer")

	w = env.do(http.MethodPut, "/api/jobs/"+id, rival, gin.H{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPut, "/api/jobs/"+id, employer, gin.H{"status": "closed"})
	require.Equal(t, http.StatusOK, w.Code)

	var jobs []portal.Job
	decode(t, env.do(http.MethodGet, "/api/jobs", "", nil), &jobs)
	assert.Empty(t, jobs)
	decode(t, env.do(http.MethodGet, "/api/jobs?status=all", "", nil), &jobs)
	assert.Len(t, jobs, 1)

	w = env.do(http.MethodDelete, "/api/jobs/"+id, employer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/jobs/"+id, "", nil).Code)
}

func TestJobListingFiltersAndPaging(t *testing.T) {
	env := newTestEnv(t)
	employer, employerID := env.register("boss@example.com", portal.RoleEmployer)
	for _, title := range []string{"Go Engineer", "Rust Engineer", "Designer"} {
		env.postJob(employer, title)
	}

	var jobs []portal.Job
	decode(t, env.do(http.MethodGet, "/api/jobs?q=engineer", "", nil), &jobs)
	assert.Len(t, jobs, 2)

	decode(t, env.do(http.MethodGet, "/api/jobs?limit=2&page=2", "", nil), &jobs)
	assert.Len(t, jobs, 1)

	decode(t, env.do(http.MethodGet, "/api/jobs?employer="+employerID, "", nil), &jobs)
	assert.Len(t, jobs, 3)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/jobs?employer=nope", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/jobs/nope", "", nil).Code)
}

func TestProfileUpdateAndPublicView(t *testing.T) {
	env := newTestEnv(t)
	token, id := env.register("me@example.com", portal.RoleJobSeeker)

	w := env.do(http.MethodPut, "/api/users/profile", token, gin.H{
		"phone": "555-0100", "bio": "Gopher", "skills": []string{"Go", " go ", "SQL", ""},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user portal.User
	decode(t, w, &user)
	assert.Equal(t, []string{"Go", "SQL"}, user.Skills)
	assert.Equal(t, "Test jobseeker", user.Name)

	w = env.do(http.MethodPut, "/api/users/profile", token, gin.H{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/users/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Gopher")
	assert.NotContains(t, w.Body.String(), "555-0100")
	assert.NotContains(t, w.Body.String(), "me@example.com")

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/users/"+primitive.NewObjectID().Hex(), "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/users/profile", "", nil).Code)
}

func TestResumeUpload(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register("cv@example.com", portal.RoleJobSeeker)

	w := env.upload("/api/users/profile/resume", token, nil, "cv.exe", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.upload("/api/users/profile/resume", token, nil, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.upload("/api/users/profile/resume", token, nil, "cv.pdf", []byte("%PDF first"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first portal.User
	decode(t, w, &first)
	require.NotEmpty(t, first.ResumeURL)

	w = env.upload("/api/users/profile/resume", token, nil, "cv.pdf", []byte("%PDF second"))
	require.Equal(t, http.StatusOK, w.Code)
	var second portal.User
	decode(t, w, &second)
	assert.NotEqual(t, first.ResumeURL, second.ResumeURL)

	_, err := env.files.Resolve(first.ResumeURL[len(uploads.URLPrefix):])
	assert.ErrorIs(t, err, uploads.ErrNotFound)
	_, err = env.files.Resolve(second.ResumeURL[len(uploads.URLPrefix):])
	assert.NoError(t, err)
}

func TestApplicationFlow(t *testing.T) {
	env := newTestEnv(t)
	employer, _ := env.register("boss@example.com", portal.RoleEmployer)
	other, _ := env.register("other@example.com", portal.RoleEmployer)
	seeker, seekerID := env.register("seeker@example.com", portal.RoleJobSeeker)
	jobID := env.postJob(employer, "Go Engineer")

	w := env.do(http.MethodPost, "/api/applications", employer, gin.H{"job_id": jobID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/applications", seeker, gin.H{"job_id": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/applications", seeker, gin.H{"job_id": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/applications", seeker, gin.H{"job_id": jobID, "cover_letter": "Hire me"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var app portal.Application
	decode(t, w, &app)
	assert.Equal(t, portal.ApplicationPending, app.Status)
	assert.Equal(t, seekerID, app.ApplicantID.Hex())

	w = env.do(http.MethodPost, "/api/applications", seeker, gin.H{"job_id": jobID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already applied")

	var mine []portal.Application
	decode(t, env.do(http.MethodGet, "/api/applications/mine", seeker, nil), &mine)
	assert.Len(t, mine, 1)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/applications/job/"+jobID, other, nil).Code)
	var forJob []portal.Application
	decode(t, env.do(http.MethodGet, "/api/applications/job/"+jobID, employer, nil), &forJob)
	assert.Len(t, forJob, 1)

	appPath := "/api/applications/" + app.ID.Hex()
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, appPath, seeker, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, appPath, employer, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, appPath, other, nil).Code)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPatch, appPath+"/status", seeker, gin.H{"status": "accepted"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPatch, appPath+"/status", employer, gin.H{"status": "hired"}).Code)
	w = env.do(http.MethodPatch, appPath+"/status", employer, gin.H{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &app)
	assert.Equal(t, portal.ApplicationAccepted, app.Status)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodDelete, appPath, employer, nil).Code)
	w = env.do(http.MethodDelete, appPath, seeker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Application withdrawn"}`, w.Body.String())
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, appPath, seeker, nil).Code)
}

func TestApplyToClosedJobWithResume(t *testing.T) {
	env := newTestEnv(t)
	employer, _ := env.register("boss@example.com", portal.RoleEmployer)
	seeker, _ := env.register("seeker@example.com", portal.RoleJobSeeker)
	open := env.postJob(employer, "Open role")
	closed := env.postJob(employer, "Closed role")
	require.Equal(t, http.StatusOK, env.do(http.MethodPut, "/api/jobs/"+closed, employer, gin.H{"status": "closed"}).Code)

	w := env.upload("/api/applications", seeker, map[string]string{"job_id": closed}, "cv.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.upload("/api/applications", seeker, map[string]string{"job_id": open}, "cv.pdf", []byte("%PDF"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var app portal.Application
	decode(t, w, &app)
	assert.Contains(t, app.ResumeURL, uploads.URLPrefix+"/")
}
