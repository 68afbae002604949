package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	List(ctx context.Context) ([]Organization, error)
	// ListIDs returns every tenant ID in creation order. The scheduler
	// iterates tenants sequentially off this list.
	ListIDs(ctx context.Context) ([]snowflake.ID, error)
}
