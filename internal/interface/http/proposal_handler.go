package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/internal/application"
	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/internal/interface/middleware"
	"github.com/participa-vecinal/participa/pkg/response"
)

type ProposalHandler struct {
	Proposals  *application.ProposalService
	Voting     *application.VotingService
	Moderation *application.ModerationService
	Logger     *logrus.Logger
}

func NewProposalHandler(p *application.ProposalService, v *application.VotingService, m *application.ModerationService, logger *logrus.Logger) *ProposalHandler {
	return &ProposalHandler{Proposals: p, Voting: v, Moderation: m, Logger: logger}
}

type createProposalRequest struct {
	Titulo      string `json:"titulo" binding:"required,max=200"`
	Descripcion string `json:"descripcion" binding:"required,max=5000"`
}

type updateProposalRequest struct {
	Titulo      *string `json:"titulo" binding:"omitempty,max=200"`
	Descripcion *string `json:"descripcion" binding:"omitempty,max=5000"`
}

type voteRequest struct {
	Valor *int `json:"valor" binding:"required,vote"`
}

type reportRequest struct {
	Motivo string `json:"motivo" binding:"max=1000"`
}

type voteView struct {
	ID          int64 `json:"id"`
	UsuarioID   int64 `json:"usuarioId"`
	PropuestaID int64 `json:"propuestaId"`
	Valor       int   `json:"valor"`
}

type voteResponse struct {
	Transition application.Transition `json:"transition"`
	Voto       *voteView              `json:"voto"`
	Tally      entity.Tally           `json:"tally"`
}

// List GET /api/proposals
func (h *ProposalHandler) List(c *gin.Context) {
	list, err := h.Proposals.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, list, "propuestas", map[string]any{"total": len(list)})
}

// Create POST /api/proposals
func (h *ProposalHandler) Create(c *gin.Context) {
	var req createProposalRequest
	if !bindJSON(c, &req, false) {
		return
	}
	v, err := h.Proposals.Create(c.Request.Context(), middleware.UserID(c), application.CreateProposalInput{
		Titulo:      req.Titulo,
		Descripcion: req.Descripcion,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, v, "Propuesta creada", nil)
}

// Get GET /api/proposals/:id
func (h *ProposalHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.Proposals.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, v, "propuesta", nil)
}

// Update PATCH /api/proposals/:id
func (h *ProposalHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateProposalRequest
	if !bindJSON(c, &req, true) {
		return
	}
	v, err := h.Proposals.Update(c.Request.Context(), middleware.UserID(c), id, application.ProposalPatch{
		Titulo:      req.Titulo,
		Descripcion: req.Descripcion,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, v, "Propuesta actualizada", nil)
}

// Delete DELETE /api/proposals/:id
func (h *ProposalHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Proposals.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "Propuesta eliminada", nil)
}

// Vote POST /api/proposals/:id/vote
func (h *ProposalHandler) Vote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req voteRequest
	if !bindJSON(c, &req, false) {
		return
	}
	res, err := h.Voting.Cast(c.Request.Context(), middleware.UserID(c), id, *req.Valor)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := voteResponse{Transition: res.Transition, Tally: res.Tally}
	if res.Vote != nil {
		out.Voto = &voteView{ID: res.Vote.ID, UsuarioID: res.Vote.UsuarioID, PropuestaID: res.Vote.PropuestaID, Valor: int(res.Vote.Valor)}
	}
	status, msg := http.StatusOK, "Voto actualizado"
	switch res.Transition {
	case application.TransitionCreated:
		status, msg = http.StatusCreated, "Voto registrado"
	case application.TransitionWithdrawn:
		msg = "Voto removido"
	}
	response.Success(c, status, out, msg, nil)
}

// Report POST /api/proposals/:id/report
func (h *ProposalHandler) Report(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reportRequest
	if !bindJSON(c, &req, true) {
		return
	}
	r, err := h.Moderation.FileReport(c.Request.Context(), middleware.UserID(c), id, req.Motivo)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, r, "Reporte registrado", nil)
}

// Tally GET /api/proposals/:id/tally
func (h *ProposalHandler) Tally(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.Proposals.Tally(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, t, "tally", nil)
}

// Search GET /api/proposals/search?q=&size=
func (h *ProposalHandler) Search(c *gin.Context) {
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size <= 0 {
		response.FromError(c, errInvalidSize)
		return
	}
	list, err := h.Proposals.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, list, "resultados", map[string]any{"total": len(list)})
}

func (h *ProposalHandler) fail(c *gin.Context, err error) {
	logFailure(c, h.Logger, err)
	response.FromError(c, err)
}
