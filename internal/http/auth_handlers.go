package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/librarium/librarium/internal/audit"
	"github.com/librarium/librarium/internal/auth"
)

// AuthController serves login, logout and API token management.
type AuthController struct {
	service  *auth.Service
	sessions *auth.SessionManager
	audit    *audit.Service
}

func NewAuthController(service *auth.Service, sessions *auth.SessionManager, auditService *audit.Service) *AuthController {
	return &AuthController{
		service:  service,
		sessions: sessions,
		audit:    auditService,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (controller *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	user, err := controller.service.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAccountLocked) {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
			return
		}
		// Identical response for unknown user and wrong password
		if controller.audit != nil {
			controller.audit.LogAuth(0, "login", false)
		}
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}

	if controller.sessions != nil {
		if err := controller.sessions.CreateSession(c.Request, user); err != nil {
			respondInternalError(c, err, "create session")
			return
		}
	}

	if controller.audit != nil {
		controller.audit.LogAuth(user.ID, "login", true)
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
}

func (controller *AuthController) Logout(c *gin.Context) {
	if controller.sessions != nil {
		if err := controller.sessions.DestroySession(c.Request); err != nil {
			respondInternalError(c, err, "destroy session")
			return
		}
	}
	respondSuccess(c, "logged out")
}

// Me returns the authenticated identity of the current request.
func (controller *AuthController) Me(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"username":  auth.GetUsername(c),
		"role":      auth.GetUserRole(c),
		"auth_type": auth.GetAuthType(c),
	})
}

// GenerateToken issues a fresh API token for the current user. The
// plaintext is shown exactly once.
func (controller *AuthController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	token, err := controller.service.GenerateToken(userID)
	if err != nil {
		respondInternalError(c, err, "generate token")
		return
	}

	c.IndentedJSON(http.StatusCreated, gin.H{"token": token})
}

// RevokeToken invalidates the current user's API token.
func (controller *AuthController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	if err := controller.service.RevokeToken(userID); err != nil {
		respondInternalError(c, err, "revoke token")
		return
	}

	respondSuccess(c, "token revoked")
}
