package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
)

type generateInvoiceRequest struct {
	SaleID          string                   `json:"sale_id" binding:"required"`
	Status          string                   `json:"status" binding:"required"`
	DocumentNumber  string                   `json:"document_number" binding:"required"`
	DocumentDate    string                   `json:"document_date" binding:"required"`
	CustomerName    string                   `json:"customer_name"`
	CustomerAddress string                   `json:"customer_address"`
	CustomerEmail   string                   `json:"customer_email"`
	CustomerPhone   string                   `json:"customer_phone"`
	CustomerTaxCode string                   `json:"customer_tax_code"`
	CustomerVAT     string                   `json:"customer_vat"`
	Lines           []invoicedomain.SaleLine `json:"lines"`
}

func (s *Server) GenerateInvoice(c *gin.Context) {
	var req generateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	saleID, err := snowflake.ParseString(req.SaleID)
	if err != nil || saleID == 0 {
		AbortWithError(c, newValidationError("sale_id", "invalid_sale_id", "invalid sale id"))
		return
	}

	inv, err := s.invoiceSvc.Generate(c.Request.Context(), invoicedomain.SaleRef{
		SaleID:          saleID,
		Status:          invoicedomain.SaleStatus(req.Status),
		DocumentNumber:  req.DocumentNumber,
		DocumentDate:    req.DocumentDate,
		CustomerName:    req.CustomerName,
		CustomerAddress: req.CustomerAddress,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerTaxCode: req.CustomerTaxCode,
		CustomerVAT:     req.CustomerVAT,
		Lines:           req.Lines,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": inv})
}

func (s *Server) ListInvoices(c *gin.Context) {
	anonymized, err := parseOptionalBool(c.Query("anonymized"))
	if err != nil {
		AbortWithError(c, newValidationError("anonymized", "invalid_anonymized", "invalid anonymized"))
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	items, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListRequest{
		Status:     invoicedomain.SDIStatus(strings.TrimSpace(c.Query("status"))),
		DocType:    invoicedomain.DocType(strings.TrimSpace(c.Query("doc_type"))),
		Anonymized: anonymized,
		Limit:      limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, ok := s.invoiceIDParam(c)
	if !ok {
		return
	}

	item, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ListInvoiceAttempts(c *gin.Context) {
	id, ok := s.invoiceIDParam(c)
	if !ok {
		return
	}

	attempts, err := s.invoiceSvc.ListAttempts(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": attempts})
}

func (s *Server) SendInvoice(c *gin.Context) {
	id, ok := s.invoiceIDParam(c)
	if !ok {
		return
	}

	if err := s.invoiceSvc.Send(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) CreateCreditNote(c *gin.Context) {
	id, ok := s.invoiceIDParam(c)
	if !ok {
		return
	}

	note, err := s.invoiceSvc.GenerateCreditNote(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": note})
}

type preserveInvoiceRequest struct {
	Force bool `json:"force"`
}

func (s *Server) PreserveInvoice(c *gin.Context) {
	id, ok := s.invoiceIDParam(c)
	if !ok {
		return
	}

	var req preserveInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	preserved, err := s.preservationSvc.Preserve(c.Request.Context(), id, req.Force)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"preserved": preserved}})
}

func (s *Server) VerifyInvoiceIntegrity(c *gin.Context) {
	id, ok := s.invoiceIDParam(c)
	if !ok {
		return
	}

	report, err := s.preservationSvc.VerifyIntegrity(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report, "clean": report.Clean()})
}

func (s *Server) invoiceIDParam(c *gin.Context) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}
