package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/participa-vecinal/participa/pkg/metrics"
)

// MetricsModule exposes Prometheus metrics at /api/metrics.
type MetricsModule struct {
	Metrics *metrics.Metrics
}

func NewMetricsModule(m *metrics.Metrics) *MetricsModule { return &MetricsModule{Metrics: m} }

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	rg.GET("/metrics", gin.WrapH(m.Metrics.Handler()))
}
