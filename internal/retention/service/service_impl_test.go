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
	retentiondomain "github.com/smallbiznis/fattura/internal/retention/domain"
	"github.com/smallbiznis/fattura/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	svc   retentiondomain.Service
	impl  *service
	db    *gorm.DB
	clk   *clock.FakeClock
	node  *snowflake.Node
	ctx   context.Context
	orgID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoicedomain.ElectronicInvoice{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2030, 6, 15, 9, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Config: config.Config{
			RetentionYears:   10,
			NearExpiryMonths: 3,
			CriticalRatio:    0.5,
		},
	})

	orgID := node.Generate()
	return &fixture{
		svc:   svc,
		impl:  svc.(*service),
		db:    db,
		clk:   clk,
		node:  node,
		ctx:   tenantctx.WithTenantID(context.Background(), orgID),
		orgID: orgID,
	}
}

func (f *fixture) seed(t *testing.T, createdAt time.Time) *invoicedomain.ElectronicInvoice {
	t.Helper()

	id := f.node.Generate()
	inv := &invoicedomain.ElectronicInvoice{
		ID:             id,
		OrgID:          f.orgID,
		SaleID:         f.node.Generate(),
		DocType:        invoicedomain.DocTypeInvoice,
		Status:         invoicedomain.StatusAccepted,
		TransmissionID: "TRX-" + id.String(),
		XMLPayload:     []byte("<FatturaElettronica/>"),
		Snapshot: datatypes.JSONMap{
			"document_number":   "2020/00017",
			"document_date":     createdAt.Format("2006-01-02"),
			"customer_name":     "Mario Rossi",
			"customer_address":  "Via Roma 1, Milano",
			"customer_email":    "mario.rossi@example.it",
			"customer_phone":    "+39 333 1234567",
			"customer_tax_code": "RSSMRA85M01H501Q",
			"subtotal":          int64(20000),
			"vat_total":         int64(4400),
			"total":             int64(24400),
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
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

func TestAnonymizeExpired(t *testing.T) {
	f := newFixture(t)

	// Created 2019-05-01, so the ten-year deadline passed 2029-05-01.
	expired := f.seed(t, time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC))
	fresh := f.seed(t, time.Date(2028, 5, 1, 0, 0, 0, 0, time.UTC))

	result, err := f.svc.AnonymizeExpired(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalFound)
	assert.Equal(t, 1, result.Anonymized)
	assert.Equal(t, 0, result.Failed)

	scrubbed := f.reload(t, expired.ID)
	assert.True(t, scrubbed.Anonymized)
	require.NotNil(t, scrubbed.AnonymizedAt)
	assert.Nil(t, scrubbed.XMLPayload)

	// Customer identity is gone, fiscal content survives.
	for _, key := range piiKeys {
		_, present := scrubbed.Snapshot[key]
		assert.False(t, present, key)
	}
	assert.Equal(t, "2020/00017", scrubbed.Snapshot["document_number"])
	assert.NotNil(t, scrubbed.Snapshot["total"])
	assert.Equal(t, expired.TransmissionID, scrubbed.TransmissionID)

	untouched := f.reload(t, fresh.ID)
	assert.False(t, untouched.Anonymized)
	assert.Equal(t, "Mario Rossi", untouched.Snapshot["customer_name"])
}

func TestAnonymizeExpired_Boundary(t *testing.T) {
	f := newFixture(t)

	now := f.clk.Now()
	dayPast := f.seed(t, now.AddDate(-10, 0, -1))
	dayShort := f.seed(t, now.AddDate(-10, 0, 1))

	result, err := f.svc.AnonymizeExpired(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalFound)
	assert.Equal(t, 1, result.Anonymized)

	assert.True(t, f.reload(t, dayPast.ID).Anonymized)
	assert.False(t, f.reload(t, dayShort.ID).Anonymized)
}

func TestAnonymizeExpired_DryRun(t *testing.T) {
	f := newFixture(t)

	expired := f.seed(t, time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC))
	f.seed(t, time.Date(2028, 5, 1, 0, 0, 0, 0, time.UTC))

	dry, err := f.svc.AnonymizeExpired(f.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, dry.TotalFound)
	assert.Equal(t, 0, dry.Anonymized)
	assert.True(t, dry.DryRun)

	// Zero mutation: the expired row is byte-for-byte untouched.
	after := f.reload(t, expired.ID)
	assert.False(t, after.Anonymized)
	assert.Equal(t, "Mario Rossi", after.Snapshot["customer_name"])
	assert.NotNil(t, after.XMLPayload)

	// A real run finds exactly what the dry run reported.
	real, err := f.svc.AnonymizeExpired(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, dry.TotalFound, real.TotalFound)
	assert.Equal(t, dry.TotalFound, real.Anonymized)
}

func TestAnonymizeExpired_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC))

	first, err := f.svc.AnonymizeExpired(f.ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, first.Anonymized)

	second, err := f.svc.AnonymizeExpired(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.TotalFound)
	assert.Equal(t, 0, second.Anonymized)
}

func TestRetentionGuard(t *testing.T) {
	f := newFixture(t)
	young := f.seed(t, f.clk.Now().AddDate(-3, 0, 0))

	// The scrub path itself refuses, independent of selection filters.
	err := f.impl.anonymizeOne(f.ctx, f.orgID, young)
	assert.ErrorIs(t, err, retentiondomain.ErrRetentionViolation)
	assert.False(t, f.reload(t, young.ID).Anonymized)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)

	now := f.clk.Now()
	f.seed(t, now.AddDate(-11, 0, 0))     // expired, not anonymized
	f.seed(t, now.AddDate(-10, -1, 0))    // expired, not anonymized
	f.seed(t, now.AddDate(-10, 2, 15))    // expires within three months
	f.seed(t, now.AddDate(-2, 0, 0))      // well inside retention

	dash, err := f.svc.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, dash.RetentionYears)
	assert.Equal(t, int64(4), dash.Stats.Total)
	assert.Equal(t, int64(2), dash.Stats.ExpiredNotAnonymized)
	assert.Equal(t, int64(1), dash.Stats.NearExpiry)
	assert.Equal(t, int64(0), dash.Stats.AlreadyAnonymized)
	assert.Equal(t, retentiondomain.StatusCritical, dash.ComplianceStatus)

	result, err := f.svc.AnonymizeExpired(f.ctx, false)
	require.NoError(t, err)
	require.Equal(t, 2, result.Anonymized)

	dash, err = f.svc.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), dash.Stats.ExpiredNotAnonymized)
	assert.Equal(t, int64(2), dash.Stats.AlreadyAnonymized)
	assert.Equal(t, retentiondomain.StatusCompliant, dash.ComplianceStatus)
}

func TestDashboard_Warning(t *testing.T) {
	f := newFixture(t)

	now := f.clk.Now()
	a := f.seed(t, now.AddDate(-11, 0, 0))
	b := f.seed(t, now.AddDate(-11, -1, 0))
	f.seed(t, now.AddDate(-12, 0, 0))

	// Anonymize two of three expired by hand.
	for _, inv := range []*invoicedomain.ElectronicInvoice{a, b} {
		require.NoError(t, f.impl.anonymizeOne(f.ctx, f.orgID, inv))
	}

	dash, err := f.svc.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dash.Stats.ExpiredNotAnonymized)
	assert.Equal(t, int64(2), dash.Stats.AlreadyAnonymized)
	assert.Equal(t, retentiondomain.StatusWarning, dash.ComplianceStatus)
}

func TestMissingTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Dashboard(context.Background())
	assert.ErrorIs(t, err, invoicedomain.ErrMissingTenant)
	_, err = f.svc.AnonymizeExpired(context.Background(), true)
	assert.ErrorIs(t, err, invoicedomain.ErrMissingTenant)
}
