package portal

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationReviewed ApplicationStatus = "reviewed"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationReviewed, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

type Application struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	JobID       primitive.ObjectID `json:"job_id" bson:"job_id"`
	ApplicantID primitive.ObjectID `json:"applicant_id" bson:"applicant_id"`
	CoverLetter string             `json:"cover_letter,omitempty" bson:"cover_letter,omitempty"`
	ResumeURL   string             `json:"resume_url,omitempty" bson:"resume_url,omitempty"`
	Status      ApplicationStatus  `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}
