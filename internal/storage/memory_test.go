package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"job-portal/pkg/portal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ Store = (*MemoryStorage)(nil)
var _ Store = (*MongoStorage)(nil)

func TestMemoryUsersUniqueEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	u := &portal.User{Name: "Ada", Email: " Ada@Example.com ", Role: portal.RoleJobSeeker}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.False(t, u.ID.IsZero())
	assert.Equal(t, "ada@example.com", u.Email)

	err := s.CreateUser(ctx, &portal.User{Email: "ADA@example.com"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	found, err := s.GetUserByEmail(ctx, "ada@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = s.GetUser(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	j := &portal.Job{Title: "Go Developer"}
	require.NoError(t, s.CreateJob(ctx, j))

	got, err := s.GetJob(ctx, j.ID)
	require.NoError(t, err)
	got.Title = "changed"

	again, err := s.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go Developer", again.Title)
	assert.Equal(t, portal.JobStatusOpen, again.Status)
}

func TestMemoryListJobsFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	employer := primitive.NewObjectID()

	titles := []string{"Senior Go Engineer", "Frontend Developer", "go intern"}
	for _, title := range titles {
		j := &portal.Job{Title: title, Location: "Toronto", Type: portal.JobTypeFullTime, EmployerID: employer}
		require.NoError(t, s.CreateJob(ctx, j))
		time.Sleep(2 * time.Millisecond)
	}
	closed := &portal.Job{Title: "Go Lead", Status: portal.JobStatusClosed}
	require.NoError(t, s.CreateJob(ctx, closed))

	jobs, err := s.ListJobs(ctx, JobFilter{Query: "GO", Status: portal.JobStatusOpen})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "go intern", jobs[0].Title)

	jobs, err = s.ListJobs(ctx, JobFilter{EmployerID: employer, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Frontend Developer", jobs[0].Title)

	jobs, err = s.ListJobs(ctx, JobFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestMemoryApplicationsUniquePerJob(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	jobID, applicant := primitive.NewObjectID(), primitive.NewObjectID()

	a := &portal.Application{JobID: jobID, ApplicantID: applicant}
	require.NoError(t, s.CreateApplication(ctx, a))
	assert.Equal(t, portal.ApplicationPending, a.Status)

	err := s.CreateApplication(ctx, &portal.Application{JobID: jobID, ApplicantID: applicant})
	assert.True(t, errors.Is(err, ErrDuplicate))

	apps, err := s.ListApplications(ctx, ApplicationFilter{ApplicantID: applicant})
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestMemoryDeleteJobRemovesApplications(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	j := &portal.Job{Title: "QA"}
	require.NoError(t, s.CreateJob(ctx, j))
	a := &portal.Application{JobID: j.ID, ApplicantID: primitive.NewObjectID()}
	require.NoError(t, s.CreateApplication(ctx, a))

	require.NoError(t, s.DeleteJob(ctx, j.ID))

	_, err := s.GetApplication(ctx, a.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.DeleteJob(ctx, j.ID), ErrNotFound))
}

func TestMemoryPingAfterClose(t *testing.T) {
	s := NewMemoryStorage()
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}

func TestMongoStorageUnreachable(t *testing.T) {
	start := time.Now()
	_, err := NewMongoStorage("mongodb://127.0.0.1:1/?directConnection=true", "jobportal_test", 300*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
