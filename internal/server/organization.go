package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	organizationdomain "github.com/smallbiznis/fattura/internal/organization/domain"
)

func (s *Server) CreateOrganization(c *gin.Context) {
	var input organizationdomain.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Slug) == "" {
		AbortWithError(c, newValidationError("name", "invalid_request", "name and slug are required"))
		return
	}

	org, err := s.organizationSvc.Create(c.Request.Context(), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": org})
}

func (s *Server) ListOrganizations(c *gin.Context) {
	orgs, err := s.organizationSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orgs})
}

func (s *Server) GetOrganizationByID(c *gin.Context) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	org, err := s.organizationSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org})
}

// CheckVATRegistration answers whether a VAT number is registered in VIES.
// Checksum validity is a different question and is enforced at registration.
func (s *Server) CheckVATRegistration(c *gin.Context) {
	country := strings.ToUpper(strings.TrimSpace(c.Param("country")))
	number := strings.TrimSpace(c.Param("number"))
	if len(country) != 2 || number == "" {
		AbortWithError(c, newValidationError("country", "invalid_request", "invalid country or number"))
		return
	}

	result, err := s.viesChecker.Check(c.Request.Context(), country, number)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
