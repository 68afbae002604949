package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/fattura/internal/clock"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
	"github.com/smallbiznis/fattura/internal/invoice/repository"
	"github.com/smallbiznis/fattura/internal/invoice/sdi"
	"github.com/smallbiznis/fattura/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc     invoicedomain.Service
	repo    invoicedomain.Repository
	gateway *sdi.FakeGateway
	clk     *clock.FakeClock
	node    *snowflake.Node
	ctx     context.Context
	orgID   snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&invoicedomain.ElectronicInvoice{},
		&invoicedomain.TransmissionAttempt{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	gateway := sdi.NewFakeGateway()
	repo := repository.NewRepository(db)

	svc := NewService(ServiceParam{
		Repo:    repo,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clk,
		Gateway: gateway,
	})

	orgID := node.Generate()
	return &fixture{
		svc:     svc,
		repo:    repo,
		gateway: gateway,
		clk:     clk,
		node:    node,
		ctx:     tenantctx.WithTenantID(context.Background(), orgID),
		orgID:   orgID,
	}
}

func (f *fixture) sale() invoicedomain.SaleRef {
	return invoicedomain.SaleRef{
		SaleID:          f.node.Generate(),
		Status:          invoicedomain.SaleStatusFinalized,
		DocumentNumber:  "2026/00042",
		DocumentDate:    "2026-02-01",
		CustomerName:    "Mario Rossi",
		CustomerAddress: "Via Roma 1, Milano",
		CustomerEmail:   "mario.rossi@example.it",
		CustomerTaxCode: "RSSMRA85M01H501Q",
		Lines: []invoicedomain.SaleLine{
			{Description: "Consulting", Quantity: 2, UnitAmount: 10000, Amount: 20000, VATRate: 0.22, VATAmount: 4400},
		},
	}
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Generate(f.ctx, f.sale())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusGenerated, inv.Status)
	assert.NotEmpty(t, inv.TransmissionID)
	assert.NotEmpty(t, inv.XMLPayload)
	assert.Equal(t, int64(24400), inv.Snapshot["total"])
}

func TestGenerate_SaleGuard(t *testing.T) {
	f := newFixture(t)

	for _, status := range []invoicedomain.SaleStatus{invoicedomain.SaleStatusDraft, invoicedomain.SaleStatusCanceled} {
		sale := f.sale()
		sale.Status = status
		_, err := f.svc.Generate(f.ctx, sale)
		assert.ErrorIs(t, err, invoicedomain.ErrInvalidSaleStatus)
	}
}

func TestSend(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Generate(f.ctx, f.sale())
	require.NoError(t, err)

	require.NoError(t, f.svc.Send(f.ctx, inv.ID))

	sent, err := f.svc.GetByID(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	assert.Equal(t, f.clk.Now(), sent.SentAt.UTC())
	assert.Equal(t, "ext-"+inv.TransmissionID, sent.ExternalID)

	attempts, err := f.svc.ListAttempts(f.ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Succeeded)
}

func TestSend_DraftGuard(t *testing.T) {
	f := newFixture(t)

	draft := &invoicedomain.ElectronicInvoice{
		ID:             f.node.Generate(),
		OrgID:          f.orgID,
		SaleID:         f.node.Generate(),
		DocType:        invoicedomain.DocTypeInvoice,
		Status:         invoicedomain.StatusDraft,
		TransmissionID: "TRX-draft",
		CreatedAt:      f.clk.Now(),
		UpdatedAt:      f.clk.Now(),
	}
	require.NoError(t, f.repo.Create(f.ctx, draft))

	err := f.svc.Send(f.ctx, draft.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrNotEligible)
}

func TestSend_FailureDoesNotAdvanceState(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Generate(f.ctx, f.sale())
	require.NoError(t, err)

	f.gateway.FailNext(inv.TransmissionID, errors.New("gateway unreachable"))
	err = f.svc.Send(f.ctx, inv.ID)
	require.ErrorIs(t, err, invoicedomain.ErrTransmission)

	after, err := f.svc.GetByID(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusGenerated, after.Status)
	assert.Nil(t, after.SentAt)

	attempts, err := f.svc.ListAttempts(f.ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Succeeded)
	assert.Contains(t, attempts[0].Error, "gateway unreachable")

	// A caller-initiated retry succeeds and the history keeps both attempts.
	require.NoError(t, f.svc.Send(f.ctx, inv.ID))
	attempts, err = f.svc.ListAttempts(f.ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.True(t, attempts[1].Succeeded)
}

func TestApplyGatewayStatus(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Generate(f.ctx, f.sale())
	require.NoError(t, err)
	require.NoError(t, f.svc.Send(f.ctx, inv.ID))

	f.clk.Advance(2 * time.Hour)
	require.NoError(t, f.svc.ApplyGatewayStatus(f.ctx, inv.TransmissionID, invoicedomain.StatusAccepted, ""))

	accepted, err := f.svc.GetByID(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.StatusUpdatedAt)
	assert.Equal(t, f.clk.Now(), accepted.StatusUpdatedAt.UTC())
}

func TestApplyGatewayStatus_Rejected(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Generate(f.ctx, f.sale())
	require.NoError(t, err)
	require.NoError(t, f.svc.Send(f.ctx, inv.ID))

	require.NoError(t, f.svc.ApplyGatewayStatus(f.ctx, inv.TransmissionID, invoicedomain.StatusRejected, "00305 invalid recipient code"))

	rejected, err := f.svc.GetByID(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusRejected, rejected.Status)
	assert.Contains(t, rejected.LastError, "00305")
}

func TestApplyGatewayStatus_Guards(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Generate(f.ctx, f.sale())
	require.NoError(t, err)

	// Not sent yet: the gateway cannot move it.
	err = f.svc.ApplyGatewayStatus(f.ctx, inv.TransmissionID, invoicedomain.StatusAccepted, "")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidTransition)

	err = f.svc.ApplyGatewayStatus(f.ctx, inv.TransmissionID, invoicedomain.SDIStatus("bogus"), "")
	assert.ErrorIs(t, err, invoicedomain.ErrUnknownStatus)
}

func TestGenerateCreditNote(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Generate(f.ctx, f.sale())
	require.NoError(t, err)

	// Only accepted invoices can be credit-noted.
	_, err = f.svc.GenerateCreditNote(f.ctx, inv.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrNotEligible)

	require.NoError(t, f.svc.Send(f.ctx, inv.ID))
	require.NoError(t, f.svc.ApplyGatewayStatus(f.ctx, inv.TransmissionID, invoicedomain.StatusAccepted, ""))

	note, err := f.svc.GenerateCreditNote(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.DocTypeCreditNote, note.DocType)
	assert.Equal(t, invoicedomain.StatusGenerated, note.Status)
	require.NotNil(t, note.CreditNoteOfID)
	assert.Equal(t, inv.ID, *note.CreditNoteOfID)

	// The original is left unchanged.
	original, err := f.svc.GetByID(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusAccepted, original.Status)

	// A credit note can never be credit-noted again.
	_, err = f.svc.GenerateCreditNote(f.ctx, note.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrNotCreditNotable)
}

func TestMissingTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Generate(context.Background(), f.sale())
	assert.ErrorIs(t, err, invoicedomain.ErrMissingTenant)
}
