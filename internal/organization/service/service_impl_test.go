package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/fattura/internal/clock"
	"github.com/smallbiznis/fattura/internal/organization/domain"
	"github.com/smallbiznis/fattura/internal/organization/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, domain.Repository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Organization{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.NewRepository(db)
	svc := NewService(ServiceParam{
		Repo:  repo,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
	})
	return svc, repo
}

func TestCreate(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, domain.CreateInput{
		Name:          "Rossi Consulting SRL",
		Slug:          "Rossi-Consulting",
		VATNumber:     "IT12345678903",
		TaxCode:       "RSSMRA85M01H501Q",
		RecipientCode: "abc1234",
		PECEmail:      "fatture@rossiconsulting.pec.it",
	})
	require.NoError(t, err)
	assert.Equal(t, "rossi-consulting", org.Slug)
	assert.Equal(t, "12345678903", org.VATNumber)
	assert.Equal(t, "ABC1234", org.RecipientCode)
	assert.Equal(t, "IT", org.CountryCode)

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, org.ID, ids[0])
}

func TestCreate_InvalidVAT(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), domain.CreateInput{
		Name:      "Broken SRL",
		Slug:      "broken",
		VATNumber: "12345678901",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidVAT)
}

func TestCreate_InvalidTaxCode(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), domain.CreateInput{
		Name:      "Broken SRL",
		Slug:      "broken",
		VATNumber: "12345678903",
		TaxCode:   "RSSMRA85M01H501X",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTaxCode)
}

func TestCreate_CompanyTaxCode(t *testing.T) {
	svc, _ := newService(t)

	// Companies use their VAT number as tax code.
	org, err := svc.Create(context.Background(), domain.CreateInput{
		Name:      "Acme SPA",
		Slug:      "acme",
		VATNumber: "12345678903",
		TaxCode:   "12345678903",
	})
	require.NoError(t, err)
	assert.Equal(t, "12345678903", org.TaxCode)
}

func TestCreate_SlugTaken(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	input := domain.CreateInput{Name: "Acme SPA", Slug: "acme", VATNumber: "12345678903"}
	_, err := svc.Create(ctx, input)
	require.NoError(t, err)

	_, err = svc.Create(ctx, input)
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}
