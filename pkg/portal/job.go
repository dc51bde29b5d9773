package portal

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeRemote     JobType = "remote"
)

func (t JobType) Valid() bool {
	switch t {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship, JobTypeRemote:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusOpen   JobStatus = "open"
	JobStatusClosed JobStatus = "closed"
)

func (s JobStatus) Valid() bool {
	return s == JobStatusOpen || s == JobStatusClosed
}

// Job is a posting owned by an employer account.
type Job struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title        string             `json:"title" bson:"title"`
	Description  string             `json:"description" bson:"description"`
	Company      string             `json:"company" bson:"company"`
	Location     string             `json:"location" bson:"location"`
	Type         JobType            `json:"type" bson:"type"`
	SalaryMin    int64              `json:"salary_min,omitempty" bson:"salary_min,omitempty"`
	SalaryMax    int64              `json:"salary_max,omitempty" bson:"salary_max,omitempty"`
	Requirements []string           `json:"requirements" bson:"requirements"`
	Status       JobStatus          `json:"status" bson:"status"`
	EmployerID   primitive.ObjectID `json:"employer_id" bson:"employer_id"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

func (j *Job) OwnedBy(userID primitive.ObjectID) bool {
	return j.EmployerID == userID
}
