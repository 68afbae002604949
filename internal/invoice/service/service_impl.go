package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fattura/internal/clock"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
	"github.com/smallbiznis/fattura/internal/invoice/guard"
	"github.com/smallbiznis/fattura/internal/invoice/sdi"
	"github.com/smallbiznis/fattura/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ServiceParam struct {
	fx.In

	Repo    invoicedomain.Repository
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Gateway sdi.Gateway
}

type service struct {
	repo    invoicedomain.Repository
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	gateway sdi.Gateway
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &service{
		repo:    p.Repo,
		log:     p.Log.Named("invoice"),
		genID:   p.GenID,
		clock:   p.Clock,
		gateway: p.Gateway,
	}
}

func orgFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return 0, invoicedomain.ErrMissingTenant
	}
	return orgID, nil
}

func (s *service) Generate(ctx context.Context, sale invoicedomain.SaleRef) (*invoicedomain.ElectronicInvoice, error) {
	orgID, err := orgFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := guard.EnsureSaleCanGenerate(sale.Status); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	transmissionID := fmt.Sprintf("TRX-%s", id.String())

	inv := &invoicedomain.ElectronicInvoice{
		ID:             id,
		OrgID:          orgID,
		SaleID:         sale.SaleID,
		DocType:        invoicedomain.DocTypeInvoice,
		Status:         invoicedomain.StatusDraft,
		TransmissionID: transmissionID,
		Snapshot:       snapshotFromSale(sale),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	xml, err := buildFatturaXML(transmissionID, sale)
	if err != nil {
		return nil, fmt.Errorf("build invoice xml: %w", err)
	}
	inv.XMLPayload = xml

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatus(ctx, orgID, inv.ID, invoicedomain.StatusDraft, invoicedomain.StatusGenerated, invoicedomain.StatusPatch{})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invoicedomain.ErrInvalidTransition
	}
	inv.Status = invoicedomain.StatusGenerated

	s.log.Info("invoice generated",
		zap.String("invoice_id", id.String()),
		zap.String("transmission_id", transmissionID),
		zap.String("sale_id", sale.SaleID.String()),
	)
	return inv, nil
}

func (s *service) Send(ctx context.Context, invoiceID snowflake.ID) error {
	orgID, err := orgFromContext(ctx)
	if err != nil {
		return err
	}

	inv, err := s.repo.FindByID(ctx, orgID, invoiceID)
	if err != nil {
		return err
	}
	if err := guard.EnsureCanSend(inv.Status); err != nil {
		return err
	}

	from := inv.Status
	claimed, err := s.repo.UpdateStatus(ctx, orgID, invoiceID, from, invoicedomain.StatusSending, invoicedomain.StatusPatch{})
	if err != nil {
		return err
	}
	if !claimed {
		// Lost the claim to a concurrent sender.
		return invoicedomain.ErrNotEligible
	}

	now := s.clock.Now()
	submission, submitErr := s.gateway.Submit(ctx, inv.TransmissionID, inv.XMLPayload)
	if submitErr != nil {
		attempt := &invoicedomain.TransmissionAttempt{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			InvoiceID:   invoiceID,
			AttemptedAt: now,
			Succeeded:   false,
			Error:       submitErr.Error(),
		}
		if err := s.repo.RecordAttempt(ctx, attempt); err != nil {
			s.log.Warn("record failed attempt", zap.Error(err))
		}
		// Roll the claim back so the state never advances on failure.
		errText := submitErr.Error()
		if _, err := s.repo.UpdateStatus(ctx, orgID, invoiceID, invoicedomain.StatusSending, from, invoicedomain.StatusPatch{LastError: &errText}); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", invoicedomain.ErrTransmission, submitErr.Error())
	}

	attempt := &invoicedomain.TransmissionAttempt{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		InvoiceID:   invoiceID,
		AttemptedAt: now,
		Succeeded:   true,
	}
	if err := s.repo.RecordAttempt(ctx, attempt); err != nil {
		s.log.Warn("record attempt", zap.Error(err))
	}

	empty := ""
	sentAt := now
	ok, err := s.repo.UpdateStatus(ctx, orgID, invoiceID, invoicedomain.StatusSending, invoicedomain.StatusSent, invoicedomain.StatusPatch{
		SentAt:     &sentAt,
		ExternalID: &submission.ExternalID,
		LastError:  &empty,
	})
	if err != nil {
		return err
	}
	if !ok {
		return invoicedomain.ErrInvalidTransition
	}

	s.log.Info("invoice sent",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("transmission_id", inv.TransmissionID),
		zap.String("external_id", submission.ExternalID),
	)
	return nil
}

func (s *service) ApplyGatewayStatus(ctx context.Context, transmissionID string, status invoicedomain.SDIStatus, errText string) error {
	orgID, err := orgFromContext(ctx)
	if err != nil {
		return err
	}

	inv, err := s.repo.FindByTransmissionID(ctx, orgID, transmissionID)
	if err != nil {
		return err
	}
	if err := guard.EnsureGatewayOutcome(inv.Status, status); err != nil {
		return err
	}

	now := s.clock.Now()
	patch := invoicedomain.StatusPatch{StatusUpdatedAt: &now}
	if status == invoicedomain.StatusRejected {
		patch.LastError = &errText
	}

	ok, err := s.repo.UpdateStatus(ctx, orgID, inv.ID, inv.Status, status, patch)
	if err != nil {
		return err
	}
	if !ok {
		return invoicedomain.ErrInvalidTransition
	}

	s.log.Info("gateway status applied",
		zap.String("transmission_id", transmissionID),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *service) GenerateCreditNote(ctx context.Context, invoiceID snowflake.ID) (*invoicedomain.ElectronicInvoice, error) {
	orgID, err := orgFromContext(ctx)
	if err != nil {
		return nil, err
	}

	original, err := s.repo.FindByID(ctx, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := guard.EnsureCanCreditNote(original); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	transmissionID := fmt.Sprintf("TRX-%s", id.String())
	originalID := original.ID

	snapshot := datatypes.JSONMap{}
	for k, v := range original.Snapshot {
		snapshot[k] = v
	}
	snapshot["credit_note_of"] = original.TransmissionID

	note := &invoicedomain.ElectronicInvoice{
		ID:             id,
		OrgID:          orgID,
		SaleID:         original.SaleID,
		DocType:        invoicedomain.DocTypeCreditNote,
		CreditNoteOfID: &originalID,
		Status:         invoicedomain.StatusDraft,
		TransmissionID: transmissionID,
		Snapshot:       snapshot,
		XMLPayload:     creditNoteXML(transmissionID, original),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatus(ctx, orgID, note.ID, invoicedomain.StatusDraft, invoicedomain.StatusGenerated, invoicedomain.StatusPatch{})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invoicedomain.ErrInvalidTransition
	}
	note.Status = invoicedomain.StatusGenerated

	s.log.Info("credit note generated",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("credit_note_id", id.String()),
	)
	return note, nil
}

func (s *service) GetByID(ctx context.Context, invoiceID snowflake.ID) (*invoicedomain.ElectronicInvoice, error) {
	orgID, err := orgFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, orgID, invoiceID)
}

func (s *service) List(ctx context.Context, req invoicedomain.ListRequest) ([]invoicedomain.ElectronicInvoice, error) {
	orgID, err := orgFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, orgID, req)
}

func (s *service) ListAttempts(ctx context.Context, invoiceID snowflake.ID) ([]invoicedomain.TransmissionAttempt, error) {
	orgID, err := orgFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAttempts(ctx, orgID, invoiceID)
}

func snapshotFromSale(sale invoicedomain.SaleRef) datatypes.JSONMap {
	lines := make([]any, 0, len(sale.Lines))
	var subtotal, vatTotal int64
	for _, line := range sale.Lines {
		subtotal += line.Amount
		vatTotal += line.VATAmount
		lines = append(lines, map[string]any{
			"description": line.Description,
			"quantity":    line.Quantity,
			"unit_amount": line.UnitAmount,
			"amount":      line.Amount,
			"vat_rate":    line.VATRate,
			"vat_amount":  line.VATAmount,
		})
	}

	return datatypes.JSONMap{
		"document_number":   sale.DocumentNumber,
		"document_date":     sale.DocumentDate,
		"customer_name":     sale.CustomerName,
		"customer_address":  sale.CustomerAddress,
		"customer_email":    sale.CustomerEmail,
		"customer_phone":    sale.CustomerPhone,
		"customer_tax_code": sale.CustomerTaxCode,
		"customer_vat":      sale.CustomerVAT,
		"lines":             lines,
		"subtotal":          subtotal,
		"vat_total":         vatTotal,
		"total":             subtotal + vatTotal,
	}
}
