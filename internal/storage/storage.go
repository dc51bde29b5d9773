package storage

import (
	"context"
	"errors"

	"job-portal/pkg/portal"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

type UserStore interface {
	CreateUser(ctx context.Context, user *portal.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*portal.User, error)
	GetUserByEmail(ctx context.Context, email string) (*portal.User, error)
	UpdateUser(ctx context.Context, user *portal.User) error
}

type JobStore interface {
	CreateJob(ctx context.Context, job *portal.Job) error
	GetJob(ctx context.Context, id primitive.ObjectID) (*portal.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*portal.Job, error)
	UpdateJob(ctx context.Context, job *portal.Job) error
	DeleteJob(ctx context.Context, id primitive.ObjectID) error
}

type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *portal.Application) error
	GetApplication(ctx context.Context, id primitive.ObjectID) (*portal.Application, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]*portal.Application, error)
	UpdateApplication(ctx context.Context, app *portal.Application) error
	DeleteApplication(ctx context.Context, id primitive.ObjectID) error
}

// Store is the shared database handle given to every route group.
type Store interface {
	UserStore
	JobStore
	ApplicationStore
	Ping(ctx context.Context) error
	Close() error
}

type JobFilter struct {
	Query      string
	Location   string
	Type       portal.JobType
	Status     portal.JobStatus
	EmployerID primitive.ObjectID
	Limit      int
	Offset     int
}

type ApplicationFilter struct {
	JobID       primitive.ObjectID
	ApplicantID primitive.ObjectID
	Status      portal.ApplicationStatus
}
