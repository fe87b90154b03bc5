package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/application"
	"github.com/participa-vecinal/participa/internal/interface/middleware"
	"github.com/participa-vecinal/participa/pkg/helpers"
	"github.com/participa-vecinal/participa/pkg/response"
)

type UserHandler struct {
	Profiles *application.ProfileService
	Creds    *application.Credentials
	Cookies  *helpers.Manager
	Logger   *logrus.Logger
}

func NewUserHandler(profiles *application.ProfileService, creds *application.Credentials, cookies *helpers.Manager, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Profiles: profiles, Creds: creds, Cookies: cookies, Logger: logger}
}

type updatePrivacyRequest struct {
	PerfilPrivado        *bool `json:"perfilPrivado"`
	MostrarNombrePublico *bool `json:"mostrarNombrePublico"`
	MostrarVotosPublicos *bool `json:"mostrarVotosPublicos"`
}

// Get GET /api/users/:id. The viewer comes from an optional session.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.Profiles.View(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, p, "perfil", nil)
}

// Me GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	p, err := h.Profiles.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, p, "perfil", nil)
}

// UpdateMe PATCH /api/users/me. The session cookie is re-issued so the privacy
// flags it carries match the stored ones.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updatePrivacyRequest
	if !bindJSON(c, &req, true) {
		return
	}
	acc, err := h.Profiles.UpdatePrivacy(c.Request.Context(), middleware.UserID(c), application.PrivacyPatch{
		ProfilePrivate:  req.PerfilPrivado,
		ShowPublicName:  req.MostrarNombrePublico,
		ShowPublicVotes: req.MostrarVotosPublicos,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if token, exp, err := h.Creds.IssueSession(acc); err == nil {
		h.Cookies.SetSession(c, token, exp)
	} else {
		h.Logger.WithError(err).WithField("usuario_id", acc.ID).Warn("reissue session failed")
	}
	response.Success(c, http.StatusOK, application.ViewAccount(*acc), "Perfil actualizado", nil)
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	logFailure(c, h.Logger, err)
	response.FromError(c, err)
}
