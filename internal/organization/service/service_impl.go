package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fattura/internal/clock"
	"github.com/smallbiznis/fattura/internal/fiscalcode"
	"github.com/smallbiznis/fattura/internal/organization/domain"
	"github.com/smallbiznis/fattura/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Repo  domain.Repository
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type service struct {
	repo  domain.Repository
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) domain.Service {
	return &service{
		repo:  p.Repo,
		log:   p.Log.Named("organization"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *service) Create(ctx context.Context, input domain.CreateInput) (*domain.Organization, error) {
	vat := fiscalcode.Normalize(input.VATNumber)
	if !fiscalcode.ValidateVAT(vat) {
		return nil, domain.ErrInvalidVAT
	}
	taxCode := fiscalcode.Normalize(input.TaxCode)
	if taxCode != "" && !fiscalcode.ValidateTaxCode(taxCode) && !fiscalcode.ValidateVAT(taxCode) {
		return nil, domain.ErrInvalidTaxCode
	}

	now := s.clock.Now()
	org := &domain.Organization{
		ID:            s.genID.Generate(),
		Name:          strings.TrimSpace(input.Name),
		Slug:          strings.ToLower(strings.TrimSpace(input.Slug)),
		VATNumber:     vat,
		TaxCode:       taxCode,
		RecipientCode: strings.ToUpper(strings.TrimSpace(input.RecipientCode)),
		PECEmail:      strings.TrimSpace(input.PECEmail),
		CountryCode:   "IT",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, org); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	s.log.Info("organization registered",
		zap.String("org_id", org.ID.String()),
		zap.String("slug", org.Slug),
		zap.String("vat_number", org.VATNumber),
	)
	return org, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]domain.Organization, error) {
	return s.repo.List(ctx)
}
