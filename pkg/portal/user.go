package portal

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleJobSeeker Role = "jobseeker"
	RoleEmployer  Role = "employer"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r can be chosen at registration. Admin accounts are
// provisioned directly in the database.
func (r Role) Valid() bool {
	return r == RoleJobSeeker || r == RoleEmployer
}

type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"password_hash"`
	Role         Role               `json:"role" bson:"role"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Location     string             `json:"location,omitempty" bson:"location,omitempty"`
	Bio          string             `json:"bio,omitempty" bson:"bio,omitempty"`
	Skills       []string           `json:"skills,omitempty" bson:"skills,omitempty"`
	Company      string             `json:"company,omitempty" bson:"company,omitempty"`
	ResumeURL    string             `json:"resume_url,omitempty" bson:"resume_url,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// PublicProfile is what other accounts may see about a user.
type PublicProfile struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	Role      Role               `json:"role"`
	Location  string             `json:"location,omitempty"`
	Bio       string             `json:"bio,omitempty"`
	Skills    []string           `json:"skills,omitempty"`
	Company   string             `json:"company,omitempty"`
	ResumeURL string             `json:"resume_url,omitempty"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Name:      u.Name,
		Role:      u.Role,
		Location:  u.Location,
		Bio:       u.Bio,
		Skills:    u.Skills,
		Company:   u.Company,
		ResumeURL: u.ResumeURL,
	}
}
