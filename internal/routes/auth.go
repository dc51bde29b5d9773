package routes

import (
	"errors"
	"net/http"
	"strings"

	"job-portal/internal/auth"
	"job-portal/internal/metrics"
	"job-portal/internal/storage"
	"job-portal/pkg/portal"

	"github.com/gin-gonic/gin"
)

type AuthRoutes struct {
	users storage.UserStore
	auth  *auth.Manager
}

func NewAuthRoutes(users storage.UserStore, manager *auth.Manager) *AuthRoutes {
	return &AuthRoutes{users: users, auth: manager}
}

func (a *AuthRoutes) Prefix() string {
	return "/api/auth"
}

func (a *AuthRoutes) Register(rg *gin.RouterGroup) {
	rg.POST("/register", a.register)
	rg.POST("/login", a.login)

	protected := rg.Group("", a.auth.Middleware())
	protected.GET("/me", a.me)
	protected.POST("/logout", a.logout)
}

type registerRequest struct {
	Name     string      `json:"name" form:"name" binding:"required"`
	Email    string      `json:"email" form:"email" binding:"required,email"`
	Password string      `json:"password" form:"password" binding:"required"`
	Role     portal.Role `json:"role" form:"role"`
	Company  string      `json:"company" form:"company"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *portal.User `json:"user"`
}

func (a *AuthRoutes) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if req.Role == "" {
		req.Role = portal.RoleJobSeeker
	}
	if !req.Role.Valid() {
		badRequest(c, "Invalid role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			badRequest(c, err.Error())
			return
		}
		_ = c.Error(err)
		return
	}

	user := &portal.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Company:      strings.TrimSpace(req.Company),
	}
	if err := a.users.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			badRequest(c, "Email already registered")
			return
		}
		_ = c.Error(err)
		return
	}

	token, err := a.auth.GenerateToken(user)
	if err != nil {
		_ = c.Error(err)
		return
	}

	metrics.RecordRegistration(string(user.Role))
	c.JSON(http.StatusCreated, sessionResponse{Token: token, User: user})
}

func (a *AuthRoutes) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := a.users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		_ = c.Error(err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	token, err := a.auth.GenerateToken(user)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{Token: token, User: user})
}

func (a *AuthRoutes) me(c *gin.Context) {
	id, _ := auth.CurrentUserID(c)

	user, err := a.users.GetUser(c.Request.Context(), id)
	if err != nil {
		storageFailure(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (a *AuthRoutes) logout(c *gin.Context) {
	claims, _ := auth.CurrentClaims(c)

	if err := a.auth.Revoke(c.Request.Context(), claims); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
