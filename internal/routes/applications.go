package routes

import (
	"errors"
	"net/http"
	"strings"

	"job-portal/internal/auth"
	"job-portal/internal/metrics"
	"job-portal/internal/storage"
	"job-portal/internal/uploads"
	"job-portal/pkg/portal"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ApplicationRoutes struct {
	apps  storage.ApplicationStore
	jobs  storage.JobStore
	users storage.UserStore
	auth  *auth.Manager
	files *uploads.Store
}

func NewApplicationRoutes(store storage.Store, manager *auth.Manager, files *uploads.Store) *ApplicationRoutes {
	return &ApplicationRoutes{
		apps:  store,
		jobs:  store,
		users: store,
		auth:  manager,
		files: files,
	}
}

func (a *ApplicationRoutes) Prefix() string {
	return "/api/applications"
}

func (a *ApplicationRoutes) Register(rg *gin.RouterGroup) {
	rg.Use(a.auth.Middleware())

	rg.POST("", auth.RequireRole(portal.RoleJobSeeker), a.create)
	rg.GET("/mine", a.mine)
	rg.GET("/job/:jobId", a.forJob)
	rg.GET("/:id", a.get)
	rg.PATCH("/:id/status", a.updateStatus)
	rg.DELETE("/:id", a.withdraw)
}

type applicationRequest struct {
	JobID       string `json:"job_id" form:"job_id" binding:"required"`
	CoverLetter string `json:"cover_letter" form:"cover_letter"`
}

type statusRequest struct {
	Status portal.ApplicationStatus `json:"status" form:"status" binding:"required"`
}

func (a *ApplicationRoutes) create(c *gin.Context) {
	var req applicationRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	jobID, err := primitive.ObjectIDFromHex(req.JobID)
	if err != nil {
		badRequest(c, "Invalid job ID")
		return
	}

	ctx := c.Request.Context()
	job, err := a.jobs.GetJob(ctx, jobID)
	if err != nil {
		storageFailure(c, err, "Job not found")
		return
	}
	if job.Status != portal.JobStatusOpen {
		badRequest(c, "Job is no longer accepting applications")
		return
	}

	applicantID, _ := auth.CurrentUserID(c)
	applicant, err := a.users.GetUser(ctx, applicantID)
	if err != nil {
		storageFailure(c, err, "User not found")
		return
	}

	app := &portal.Application{
		JobID:       jobID,
		ApplicantID: applicantID,
		CoverLetter: strings.TrimSpace(req.CoverLetter),
		ResumeURL:   applicant.ResumeURL,
	}

	// A resume attached to the application overrides the profile one.
	if fh, err := c.FormFile("resume"); err == nil {
		url, err := a.files.Save(fh)
		if err != nil {
			if errors.Is(err, uploads.ErrTooLarge) || errors.Is(err, uploads.ErrUnsupportedType) {
				badRequest(c, err.Error())
				return
			}
			_ = c.Error(err)
			return
		}
		app.ResumeURL = url
	}

	if err := a.apps.CreateApplication(ctx, app); err != nil {
		if app.ResumeURL != applicant.ResumeURL {
			_ = a.files.Delete(app.ResumeURL)
		}
		if errors.Is(err, storage.ErrDuplicate) {
			badRequest(c, "You have already applied to this job")
			return
		}
		_ = c.Error(err)
		return
	}

	metrics.RecordApplication(string(app.Status))
	c.JSON(http.StatusCreated, app)
}

func (a *ApplicationRoutes) mine(c *gin.Context) {
	applicantID, _ := auth.CurrentUserID(c)

	apps, err := a.apps.ListApplications(c.Request.Context(), storage.ApplicationFilter{ApplicantID: applicantID})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, apps)
}

func (a *ApplicationRoutes) forJob(c *gin.Context) {
	jobID, ok := objectIDParam(c, "jobId", "job")
	if !ok {
		return
	}

	job, err := a.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		storageFailure(c, err, "Job not found")
		return
	}
	if !a.ownsJob(c, job) {
		forbidden(c, "Not authorized to view these applications")
		return
	}

	filter := storage.ApplicationFilter{JobID: jobID}
	if status := portal.ApplicationStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			badRequest(c, "Invalid application status")
			return
		}
		filter.Status = status
	}

	apps, err := a.apps.ListApplications(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, apps)
}

func (a *ApplicationRoutes) get(c *gin.Context) {
	app, job, ok := a.load(c)
	if !ok {
		return
	}

	userID, _ := auth.CurrentUserID(c)
	if app.ApplicantID != userID && !a.ownsJob(c, job) {
		forbidden(c, "Not authorized to view this application")
		return
	}

	c.JSON(http.StatusOK, app)
}

func (a *ApplicationRoutes) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !req.Status.Valid() {
		badRequest(c, "Invalid application status")
		return
	}

	app, job, ok := a.load(c)
	if !ok {
		return
	}
	if !a.ownsJob(c, job) {
		forbidden(c, "Not authorized to update this application")
		return
	}

	app.Status = req.Status
	if err := a.apps.UpdateApplication(c.Request.Context(), app); err != nil {
		storageFailure(c, err, "Application not found")
		return
	}

	metrics.RecordApplication(string(app.Status))
	c.JSON(http.StatusOK, app)
}

func (a *ApplicationRoutes) withdraw(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "application")
	if !ok {
		return
	}

	app, err := a.apps.GetApplication(c.Request.Context(), id)
	if err != nil {
		storageFailure(c, err, "Application not found")
		return
	}

	userID, _ := auth.CurrentUserID(c)
	if app.ApplicantID != userID && !auth.IsAdmin(c) {
		forbidden(c, "Not authorized to withdraw this application")
		return
	}

	if err := a.apps.DeleteApplication(c.Request.Context(), id); err != nil {
		storageFailure(c, err, "Application not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application withdrawn"})
}

// load fetches the application named by :id and the job it belongs to.
// A job deleted after the application was made reads as nil.
func (a *ApplicationRoutes) load(c *gin.Context) (*portal.Application, *portal.Job, bool) {
	id, ok := objectIDParam(c, "id", "application")
	if !ok {
		return nil, nil, false
	}

	app, err := a.apps.GetApplication(c.Request.Context(), id)
	if err != nil {
		storageFailure(c, err, "Application not found")
		return nil, nil, false
	}

	job, err := a.jobs.GetJob(c.Request.Context(), app.JobID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		_ = c.Error(err)
		return nil, nil, false
	}
	return app, job, true
}

func (a *ApplicationRoutes) ownsJob(c *gin.Context, job *portal.Job) bool {
	if auth.IsAdmin(c) {
		return true
	}
	if job == nil {
		return false
	}
	userID, _ := auth.CurrentUserID(c)
	return job.OwnedBy(userID)
}
