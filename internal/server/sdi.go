package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
)

type sdiNotificationRequest struct {
	TransmissionID string `json:"transmission_id" binding:"required"`
	Status         string `json:"status" binding:"required"`
	Message        string `json:"message"`
}

// ApplySDINotification lands an asynchronous gateway outcome on the matching
// invoice. The channel adapter forwards the tenant alongside the payload, so
// the route sits behind TenantRequired like every other tenant-scoped one.
func (s *Server) ApplySDINotification(c *gin.Context) {
	var req sdiNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.invoiceSvc.ApplyGatewayStatus(
		c.Request.Context(),
		req.TransmissionID,
		invoicedomain.SDIStatus(req.Status),
		req.Message,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
