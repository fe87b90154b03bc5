package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/participa-vecinal/participa/internal/interface/http"
	"github.com/participa-vecinal/participa/internal/interface/middleware"
)

// ProposalModule wires proposal, vote and report routes.
// Public: GET /api/proposals, GET /api/proposals/search, GET /api/proposals/:id,
// GET /api/proposals/:id/tally
// Protected: everything that writes
type ProposalModule struct {
	Handler  *handlers.ProposalHandler
	Sessions middleware.SessionVerifier
}

func NewProposalModule(h *handlers.ProposalHandler, sessions middleware.SessionVerifier) *ProposalModule {
	return &ProposalModule{Handler: h, Sessions: sessions}
}

func (m *ProposalModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/proposals")
	g.GET("", m.Handler.List)
	g.GET("/search", m.Handler.Search)
	g.GET("/:id", m.Handler.Get)
	g.GET("/:id/tally", m.Handler.Tally)

	auth := g.Group("")
	auth.Use(middleware.Auth(m.Sessions))
	{
		auth.POST("", m.Handler.Create)
		auth.PATCH("/:id", m.Handler.Update)
		auth.DELETE("/:id", m.Handler.Delete)
		auth.POST("/:id/vote", m.Handler.Vote)
		auth.POST("/:id/report", m.Handler.Report)
	}
}
