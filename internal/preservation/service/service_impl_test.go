package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/fattura/internal/clock"
	"github.com/smallbiznis/fattura/internal/config"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
	preservationdomain "github.com/smallbiznis/fattura/internal/preservation/domain"
	"github.com/smallbiznis/fattura/internal/preservation/storage"
	"github.com/smallbiznis/fattura/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   preservationdomain.Service
	db    *gorm.DB
	store *storage.Memory
	clk   *clock.FakeClock
	node  *snowflake.Node
	ctx   context.Context
	orgID snowflake.ID
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

	clk := clock.NewFakeClock(time.Date(2020, 1, 10, 9, 0, 0, 0, time.UTC))
	store := storage.NewMemory()

	svc := NewService(ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   clk,
		Storage: store,
		Config:  config.Config{PreservationYears: 10},
	})

	orgID := node.Generate()
	return &fixture{
		svc:   svc,
		db:    db,
		store: store,
		clk:   clk,
		node:  node,
		ctx:   tenantctx.WithTenantID(context.Background(), orgID),
		orgID: orgID,
	}
}

type seedOpt func(*invoicedomain.ElectronicInvoice)

func withStatus(s invoicedomain.SDIStatus) seedOpt {
	return func(inv *invoicedomain.ElectronicInvoice) { inv.Status = s }
}

func withoutXML() seedOpt {
	return func(inv *invoicedomain.ElectronicInvoice) { inv.XMLPayload = nil }
}

func withReceipt(data []byte) seedOpt {
	return func(inv *invoicedomain.ElectronicInvoice) { inv.ReceiptPayload = data }
}

func (f *fixture) seed(t *testing.T, opts ...seedOpt) *invoicedomain.ElectronicInvoice {
	t.Helper()

	id := f.node.Generate()
	inv := &invoicedomain.ElectronicInvoice{
		ID:             id,
		OrgID:          f.orgID,
		SaleID:         f.node.Generate(),
		DocType:        invoicedomain.DocTypeInvoice,
		Status:         invoicedomain.StatusAccepted,
		TransmissionID: "TRX-" + id.String(),
		XMLPayload:     []byte(`<FatturaElettronica>` + id.String() + `</FatturaElettronica>`),
		PDFPayload:     []byte("%PDF-1.7 " + id.String()),
		CreatedAt:      f.clk.Now(),
		UpdatedAt:      f.clk.Now(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	require.NoError(t, f.db.Create(inv).Error)
	return inv
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) *invoicedomain.ElectronicInvoice {
	t.Helper()
	var inv invoicedomain.ElectronicInvoice
	require.NoError(t, f.db.Where("org_id = ? AND id = ?", f.orgID, id).First(&inv).Error)
	return &inv
}

func TestPreserve(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t)

	preserved, err := f.svc.Preserve(f.ctx, inv.ID, false)
	require.NoError(t, err)
	assert.True(t, preserved)

	after := f.reload(t, inv.ID)
	require.NotNil(t, after.PreservedAt)
	require.NotNil(t, after.PreservationExpiresAt)
	assert.Equal(t, f.clk.Now(), after.PreservedAt.UTC())
	assert.Equal(t, f.clk.Now().AddDate(10, 0, 0), after.PreservationExpiresAt.UTC())
	assert.NotEmpty(t, after.XMLHash)
	assert.NotEmpty(t, after.PDFHash)
	assert.Empty(t, after.ReceiptHash)

	for _, artifact := range []string{"xml", "pdf"} {
		ok, err := f.store.Exists(f.ctx, artifactKey(f.orgID, inv.TransmissionID, artifact))
		require.NoError(t, err)
		assert.True(t, ok, artifact)
	}
}

func TestPreserve_Idempotent(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t)

	preserved, err := f.svc.Preserve(f.ctx, inv.ID, false)
	require.NoError(t, err)
	require.True(t, preserved)
	first := f.reload(t, inv.ID)

	f.clk.Advance(24 * time.Hour)
	preserved, err = f.svc.Preserve(f.ctx, inv.ID, false)
	require.NoError(t, err)
	assert.False(t, preserved)

	second := f.reload(t, inv.ID)
	assert.Equal(t, first.PreservedAt.UTC(), second.PreservedAt.UTC())
	assert.Equal(t, first.XMLHash, second.XMLHash)
}

func TestPreserve_Force(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t)

	_, err := f.svc.Preserve(f.ctx, inv.ID, false)
	require.NoError(t, err)
	first := f.reload(t, inv.ID)

	f.clk.Advance(48 * time.Hour)
	preserved, err := f.svc.Preserve(f.ctx, inv.ID, true)
	require.NoError(t, err)
	assert.True(t, preserved)

	second := f.reload(t, inv.ID)
	assert.True(t, second.PreservedAt.After(*first.PreservedAt))
}

func TestPreserve_NotAccepted(t *testing.T) {
	f := newFixture(t)

	for _, status := range []invoicedomain.SDIStatus{
		invoicedomain.StatusGenerated,
		invoicedomain.StatusSent,
		invoicedomain.StatusRejected,
	} {
		inv := f.seed(t, withStatus(status))
		preserved, err := f.svc.Preserve(f.ctx, inv.ID, false)
		require.NoError(t, err)
		assert.False(t, preserved, status)
		assert.Nil(t, f.reload(t, inv.ID).PreservedAt)
	}
}

func TestPreserve_MissingPayload(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t, withoutXML())

	_, err := f.svc.Preserve(f.ctx, inv.ID, false)
	assert.ErrorIs(t, err, preservationdomain.ErrMissingPayload)
	assert.Nil(t, f.reload(t, inv.ID).PreservedAt)
}

func TestPreserveBatch_Isolation(t *testing.T) {
	f := newFixture(t)

	a := f.seed(t)
	broken := f.seed(t, withoutXML())
	b := f.seed(t)
	alreadySent := f.seed(t, withStatus(invoicedomain.StatusSent))

	result := f.svc.PreserveBatch(f.ctx, []snowflake.ID{a.ID, broken.ID, b.ID, alreadySent.ID}, false)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, broken.TransmissionID, result.Errors[0].TransmissionID)

	// The failure did not poison the others.
	assert.NotNil(t, f.reload(t, a.ID).PreservedAt)
	assert.NotNil(t, f.reload(t, b.ID).PreservedAt)
}

func TestVerifyIntegrity(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t, withReceipt([]byte("<RicevutaConsegna/>")))

	_, err := f.svc.Preserve(f.ctx, inv.ID, false)
	require.NoError(t, err)

	report, err := f.svc.VerifyIntegrity(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.True(t, report.XML.Checked)
	assert.True(t, report.XML.OK)
	assert.True(t, report.Receipt.Checked)
	assert.True(t, report.Receipt.OK)
}

func TestVerifyIntegrity_Tampered(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t)

	_, err := f.svc.Preserve(f.ctx, inv.ID, false)
	require.NoError(t, err)

	f.store.Tamper(artifactKey(f.orgID, inv.TransmissionID, "xml"), []byte("<Altered/>"))

	report, err := f.svc.VerifyIntegrity(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.True(t, report.XML.Checked)
	assert.False(t, report.XML.OK)
	assert.True(t, report.PDF.OK)
	assert.NotEmpty(t, report.Errors)

	// Never preserved with a receipt: the receipt is not checked and does
	// not count against the report.
	assert.False(t, report.Receipt.Checked)
}

func TestVerifyIntegrity_MissingArtifact(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t)

	_, err := f.svc.Preserve(f.ctx, inv.ID, false)
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(f.ctx, artifactKey(f.orgID, inv.TransmissionID, "pdf")))

	report, err := f.svc.VerifyIntegrity(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.True(t, report.PDF.Checked)
	assert.False(t, report.PDF.OK)
}

func TestExpiryWindow(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t)

	// Preserved 2020-01-10, so the ten-year window ends 2030-01-10.
	_, err := f.svc.Preserve(f.ctx, inv.ID, false)
	require.NoError(t, err)

	f.clk.Set(time.Date(2029, 11, 1, 9, 0, 0, 0, time.UTC))
	soon, err := f.svc.GetExpiringSoon(f.ctx, 90)
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, inv.ID, soon[0].ID)

	expired, err := f.svc.GetExpired(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)

	// A narrower window does not reach it yet.
	soon, err = f.svc.GetExpiringSoon(f.ctx, 30)
	require.NoError(t, err)
	assert.Empty(t, soon)

	f.clk.Set(time.Date(2030, 1, 11, 9, 0, 0, 0, time.UTC))
	expired, err = f.svc.GetExpired(f.ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, inv.ID, expired[0].ID)

	soon, err = f.svc.GetExpiringSoon(f.ctx, 90)
	require.NoError(t, err)
	assert.Empty(t, soon)
}

func TestListEligible(t *testing.T) {
	f := newFixture(t)

	accepted := f.seed(t)
	f.seed(t, withStatus(invoicedomain.StatusSent))
	done := f.seed(t)
	_, err := f.svc.Preserve(f.ctx, done.ID, false)
	require.NoError(t, err)

	eligible, err := f.svc.ListEligible(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, accepted.ID, eligible[0].ID)
}

func TestListAccepted_SelectsPreservedForForce(t *testing.T) {
	f := newFixture(t)

	done := f.seed(t)
	_, err := f.svc.Preserve(f.ctx, done.ID, false)
	require.NoError(t, err)
	first := f.reload(t, done.ID)
	f.seed(t, withStatus(invoicedomain.StatusSent))

	// Already preserved, so the incremental selection skips it.
	eligible, err := f.svc.ListEligible(f.ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, eligible)

	// A forced pass still has to see it.
	accepted, err := f.svc.ListAccepted(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, done.ID, accepted[0].ID)

	f.clk.Advance(72 * time.Hour)
	result := f.svc.PreserveBatch(f.ctx, []snowflake.ID{accepted[0].ID}, true)
	assert.Equal(t, 1, result.Success)
	assert.True(t, f.reload(t, done.ID).PreservedAt.After(*first.PreservedAt))
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	inv := f.seed(t)

	otherCtx := tenantctx.WithTenantID(context.Background(), f.node.Generate())
	_, err := f.svc.Preserve(otherCtx, inv.ID, false)
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)

	_, err = f.svc.Preserve(context.Background(), inv.ID, false)
	assert.ErrorIs(t, err, invoicedomain.ErrMissingTenant)
}
