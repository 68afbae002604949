package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetRetentionDashboard(c *gin.Context) {
	dashboard, err := s.retentionSvc.Dashboard(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dashboard})
}

type anonymizeRequest struct {
	DryRun bool `json:"dry_run"`
}

func (s *Server) AnonymizeExpiredInvoices(c *gin.Context) {
	var req anonymizeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	result, err := s.retentionSvc.AnonymizeExpired(c.Request.Context(), req.DryRun)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
