package routes

import (
	"errors"
	"net/http"
	"strings"

	"job-portal/internal/auth"
	"job-portal/internal/logger"
	"job-portal/internal/storage"
	"job-portal/internal/uploads"
	"job-portal/pkg/portal"

	"github.com/gin-gonic/gin"
)

type UserRoutes struct {
	users storage.UserStore
	auth  *auth.Manager
	files *uploads.Store
}

func NewUserRoutes(users storage.UserStore, manager *auth.Manager, files *uploads.Store) *UserRoutes {
	return &UserRoutes{users: users, auth: manager, files: files}
}

func (u *UserRoutes) Prefix() string {
	return "/api/users"
}

func (u *UserRoutes) Register(rg *gin.RouterGroup) {
	authenticated := u.auth.Middleware()

	rg.GET("/profile", authenticated, u.profile)
	rg.PUT("/profile", authenticated, u.updateProfile)
	rg.POST("/profile/resume", authenticated, u.uploadResume)
	rg.GET("/:id", u.public)
}

type profileInput struct {
	Name     *string  `json:"name" form:"name"`
	Phone    *string  `json:"phone" form:"phone"`
	Location *string  `json:"location" form:"location"`
	Bio      *string  `json:"bio" form:"bio"`
	Company  *string  `json:"company" form:"company"`
	Skills   []string `json:"skills" form:"skills"`
}

func (in *profileInput) apply(user *portal.User) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&user.Name, in.Name)
	set(&user.Phone, in.Phone)
	set(&user.Location, in.Location)
	set(&user.Bio, in.Bio)
	set(&user.Company, in.Company)
	if in.Skills != nil {
		user.Skills = normalizeSkills(in.Skills)
	}
}

func (u *UserRoutes) profile(c *gin.Context) {
	id, _ := auth.CurrentUserID(c)

	user, err := u.users.GetUser(c.Request.Context(), id)
	if err != nil {
		storageFailure(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (u *UserRoutes) updateProfile(c *gin.Context) {
	var in profileInput
	if err := c.ShouldBind(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		badRequest(c, "Name cannot be empty")
		return
	}

	id, _ := auth.CurrentUserID(c)
	user, err := u.users.GetUser(c.Request.Context(), id)
	if err != nil {
		storageFailure(c, err, "User not found")
		return
	}

	in.apply(user)

	if err := u.users.UpdateUser(c.Request.Context(), user); err != nil {
		storageFailure(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (u *UserRoutes) uploadResume(c *gin.Context) {
	fh, err := c.FormFile("resume")
	if err != nil {
		badRequest(c, "Resume file is required")
		return
	}

	id, _ := auth.CurrentUserID(c)
	user, err := u.users.GetUser(c.Request.Context(), id)
	if err != nil {
		storageFailure(c, err, "User not found")
		return
	}

	url, err := u.files.Save(fh)
	if err != nil {
		if errors.Is(err, uploads.ErrTooLarge) || errors.Is(err, uploads.ErrUnsupportedType) {
			badRequest(c, err.Error())
			return
		}
		_ = c.Error(err)
		return
	}

	previous := user.ResumeURL
	user.ResumeURL = url
	if err := u.users.UpdateUser(c.Request.Context(), user); err != nil {
		_ = u.files.Delete(url)
		storageFailure(c, err, "User not found")
		return
	}

	if previous != "" {
		if err := u.files.Delete(previous); err != nil {
			logger.WithError(err).WithField("resume_url", previous).Warn("Failed to remove replaced resume")
		}
	}

	c.JSON(http.StatusOK, user)
}

func (u *UserRoutes) public(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "user")
	if !ok {
		return
	}

	user, err := u.users.GetUser(c.Request.Context(), id)
	if err != nil {
		storageFailure(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, user.Public())
}

// normalizeSkills trims entries and drops blanks and case-insensitive
// duplicates, keeping the first spelling.
func normalizeSkills(skills []string) []string {
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
