package routes

import (
	"net/http"
	"strings"

	"job-portal/internal/auth"
	"job-portal/internal/metrics"
	"job-portal/internal/storage"
	"job-portal/pkg/portal"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type JobRoutes struct {
	jobs storage.JobStore
	auth *auth.Manager
}

func NewJobRoutes(jobs storage.JobStore, manager *auth.Manager) *JobRoutes {
	return &JobRoutes{jobs: jobs, auth: manager}
}

func (j *JobRoutes) Prefix() string {
	return "/api/jobs"
}

func (j *JobRoutes) Register(rg *gin.RouterGroup) {
	rg.GET("", j.list)
	rg.GET("/:id", j.get)

	employer := []gin.HandlerFunc{j.auth.Middleware(), auth.RequireRole(portal.RoleEmployer)}
	rg.POST("", append(employer, j.create)...)
	rg.PUT("/:id", append(employer, j.update)...)
	rg.DELETE("/:id", append(employer, j.delete)...)
}

type jobQuery struct {
	Q        string `form:"q"`
	Location string `form:"location"`
	Type     string `form:"type"`
	Employer string `form:"employer"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// jobInput carries the editable fields of a posting. Nil fields are left
// unchanged on update.
type jobInput struct {
	Title        *string           `json:"title" form:"title"`
	Description  *string           `json:"description" form:"description"`
	Company      *string           `json:"company" form:"company"`
	Location     *string           `json:"location" form:"location"`
	Type         *portal.JobType   `json:"type" form:"type"`
	SalaryMin    *int64            `json:"salary_min" form:"salary_min"`
	SalaryMax    *int64            `json:"salary_max" form:"salary_max"`
	Requirements []string          `json:"requirements" form:"requirements"`
	Status       *portal.JobStatus `json:"status" form:"status"`
}

func (in *jobInput) apply(job *portal.Job) {
	if in.Title != nil {
		job.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		job.Description = strings.TrimSpace(*in.Description)
	}
	if in.Company != nil {
		job.Company = strings.TrimSpace(*in.Company)
	}
	if in.Location != nil {
		job.Location = strings.TrimSpace(*in.Location)
	}
	if in.Type != nil {
		job.Type = *in.Type
	}
	if in.SalaryMin != nil {
		job.SalaryMin = *in.SalaryMin
	}
	if in.SalaryMax != nil {
		job.SalaryMax = *in.SalaryMax
	}
	if in.Requirements != nil {
		job.Requirements = in.Requirements
	}
	if in.Status != nil {
		job.Status = *in.Status
	}
}

func validateJob(job *portal.Job) string {
	switch {
	case job.Title == "":
		return "Title is required"
	case job.Description == "":
		return "Description is required"
	case !job.Type.Valid():
		return "Invalid job type"
	case !job.Status.Valid():
		return "Invalid job status"
	case job.SalaryMin < 0 || job.SalaryMax < 0:
		return "Salary cannot be negative"
	case job.SalaryMax > 0 && job.SalaryMin > job.SalaryMax:
		return "salary_min cannot exceed salary_max"
	}
	return ""
}

func (j *JobRoutes) list(c *gin.Context) {
	var q jobQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}

	filter := storage.JobFilter{
		Query:    strings.TrimSpace(q.Q),
		Location: strings.TrimSpace(q.Location),
		Type:     portal.JobType(q.Type),
		Status:   portal.JobStatusOpen,
		Limit:    q.Limit,
		Offset:   (q.Page - 1) * q.Limit,
	}
	switch q.Status {
	case "":
	case "all":
		filter.Status = ""
	default:
		filter.Status = portal.JobStatus(q.Status)
	}
	if q.Employer != "" {
		id, err := primitive.ObjectIDFromHex(q.Employer)
		if err != nil {
			badRequest(c, "Invalid employer ID")
			return
		}
		filter.EmployerID = id
	}

	jobs, err := j.jobs.ListJobs(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

func (j *JobRoutes) get(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "job")
	if !ok {
		return
	}

	job, err := j.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		storageFailure(c, err, "Job not found")
		return
	}

	c.JSON(http.StatusOK, job)
}

func (j *JobRoutes) create(c *gin.Context) {
	var in jobInput
	if err := c.ShouldBind(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	employerID, _ := auth.CurrentUserID(c)
	job := &portal.Job{
		Type:         portal.JobTypeFullTime,
		Status:       portal.JobStatusOpen,
		Requirements: []string{},
		EmployerID:   employerID,
	}
	in.apply(job)
	if msg := validateJob(job); msg != "" {
		badRequest(c, msg)
		return
	}

	if err := j.jobs.CreateJob(c.Request.Context(), job); err != nil {
		_ = c.Error(err)
		return
	}

	metrics.RecordJobPosted()
	c.JSON(http.StatusCreated, job)
}

// owned loads the job and checks the caller may modify it.
func (j *JobRoutes) owned(c *gin.Context) (*portal.Job, bool) {
	id, ok := objectIDParam(c, "id", "job")
	if !ok {
		return nil, false
	}

	job, err := j.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		storageFailure(c, err, "Job not found")
		return nil, false
	}

	userID, _ := auth.CurrentUserID(c)
	if !job.OwnedBy(userID) && !auth.IsAdmin(c) {
		forbidden(c, "Not authorized to modify this job")
		return nil, false
	}
	return job, true
}

func (j *JobRoutes) update(c *gin.Context) {
	job, ok := j.owned(c)
	if !ok {
		return
	}

	var in jobInput
	if err := c.ShouldBind(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	in.apply(job)
	if msg := validateJob(job); msg != "" {
		badRequest(c, msg)
		return
	}

	if err := j.jobs.UpdateJob(c.Request.Context(), job); err != nil {
		storageFailure(c, err, "Job not found")
		return
	}

	c.JSON(http.StatusOK, job)
}

func (j *JobRoutes) delete(c *gin.Context) {
	job, ok := j.owned(c)
	if !ok {
		return
	}

	if err := j.jobs.DeleteJob(c.Request.Context(), job.ID); err != nil {
		storageFailure(c, err, "Job not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Job deleted"})
}
