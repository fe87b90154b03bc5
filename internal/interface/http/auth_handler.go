package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/application"
	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/interface/middleware"
	"github.com/participa-vecinal/participa/pkg/apperror"
	"github.com/participa-vecinal/participa/pkg/helpers"
	"github.com/participa-vecinal/participa/pkg/response"
)

type AuthHandler struct {
	Registration *application.RegistrationService
	Auth         *application.AuthService
	Cookies      *helpers.Manager
	Logger       *logrus.Logger
}

func NewAuthHandler(reg *application.RegistrationService, auth *application.AuthService, cookies *helpers.Manager, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Registration: reg, Auth: auth, Cookies: cookies, Logger: logger}
}

type registerRequest struct {
	DNI                  string   `json:"dni" binding:"required,dni"`
	Email                string   `json:"email" binding:"required,email"`
	Password             string   `json:"password" binding:"required,pwd"`
	PerfilPrivado        *bool    `json:"perfilPrivado" binding:"required"`
	MostrarNombrePublico *bool    `json:"mostrarNombrePublico" binding:"required"`
	MostrarVotosPublicos *bool    `json:"mostrarVotosPublicos" binding:"required"`
	Lat                  *float64 `json:"lat" binding:"required,latitude"`
	Lng                  *float64 `json:"lng" binding:"required,longitude"`
}

type loginRequest struct {
	DNIOrEmail string `json:"dniOrEmail" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type verifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req, false) {
		return
	}
	res, err := h.Registration.Register(c.Request.Context(), application.RegisterInput{
		DNI:      req.DNI,
		Email:    req.Email,
		Password: req.Password,
		Privacy: entity.PrivacySettings{
			ProfilePrivate:  *req.PerfilPrivado,
			ShowPublicName:  *req.MostrarNombrePublico,
			ShowPublicVotes: *req.MostrarVotosPublicos,
		},
		Lat: *req.Lat,
		Lng: *req.Lng,
		IP:  clientIP(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res.Account, res.Message, nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, false) {
		return
	}
	acc, sess, err := h.Auth.Login(c.Request.Context(), req.DNIOrEmail, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Cookies.SetSession(c, sess.Token, sess.ExpiresAt)
	response.Success(c, http.StatusOK, application.ViewAccount(*acc), "Login exitoso", map[string]any{"expires_at": sess.ExpiresAt})
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "Sesión cerrada", nil)
}

// Me GET /api/auth/me returns the session claims without touching the store.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.FromError(c, apperror.ErrUnauthorized)
		return
	}
	response.Success(c, http.StatusOK, claims, "session", nil)
}

// VerifyEmail GET /api/auth/verify-email?token= or POST with {"token": ...}
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if t := c.Query("token"); t != "" {
		req.Token = t
	} else if !bindJSON(c, &req, false) {
		return
	}
	if _, err := h.Auth.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"verified": true}, "Email verificado exitosamente", nil)
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	logFailure(c, h.Logger, err)
	response.FromError(c, err)
}
