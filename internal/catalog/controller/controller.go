// Package controller implements the catalog business rules (service layer):
// parent resolution by code, uniqueness pre-checks, full-update and patch
// semantics, and the unit-of-work commit boundary, for companies, stores and
// products.
package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/storemanagement/internal/catalog/events"
	"github.com/gartstein/storemanagement/internal/catalog/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, entityID uuid.UUID, payload interface{})
}

type noopProducer struct{}

func (noopProducer) Produce(events.EventType, uuid.UUID, interface{}) {}

// UnitOfWork is the commit boundary shared by the repositories of a session.
type UnitOfWork interface {
	Commit(ctx context.Context) (int64, error)
	Rollback()
}

// CompanyRepository defines the storage interface for companies. Reads
// return nil without error when nothing matches.
type CompanyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetByCode(ctx context.Context, code int) (*models.Company, error)
	GetWithStores(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetWithStoresByCode(ctx context.Context, code int) (*models.Company, error)
	GetAll(ctx context.Context) ([]models.Company, error)
	GetActive(ctx context.Context) ([]models.Company, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByCode(ctx context.Context, code int) (bool, error)
	Add(ctx context.Context, company *models.Company) error
	Update(ctx context.Context, company *models.Company) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// StoreRepository defines the storage interface for stores.
type StoreRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	GetByCode(ctx context.Context, code int) (*models.Store, error)
	GetByCodes(ctx context.Context, companyCode, code int) (*models.Store, error)
	GetWithProducts(ctx context.Context, id uuid.UUID) (*models.Store, error)
	GetAll(ctx context.Context) ([]models.Store, error)
	GetActive(ctx context.Context) ([]models.Store, error)
	GetByCompanyID(ctx context.Context, companyID uuid.UUID) ([]models.Store, error)
	GetActiveByCompanyID(ctx context.Context, companyID uuid.UUID) ([]models.Store, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByCodes(ctx context.Context, companyID uuid.UUID, code int) (bool, error)
	Add(ctx context.Context, store *models.Store) error
	Update(ctx context.Context, store *models.Store) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductRepository defines the storage interface for products.
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByCodes(ctx context.Context, storeID uuid.UUID, code int) (*models.Product, error)
	GetAll(ctx context.Context) ([]models.Product, error)
	GetActive(ctx context.Context) ([]models.Product, error)
	GetByStoreID(ctx context.Context, storeID uuid.UUID) ([]models.Product, error)
	GetByCompanyID(ctx context.Context, companyID uuid.UUID) ([]models.Product, error)
	Count(ctx context.Context) (int64, error)
	CountByStoreID(ctx context.Context, storeID uuid.UUID) (int64, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByCodes(ctx context.Context, storeID uuid.UUID, code int) (bool, error)
	Add(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// commit flushes the unit of work. A failed commit is rolled back so the
// session can keep serving, and the error is returned unchanged in kind.
func commit(ctx context.Context, uow UnitOfWork, logger *zap.Logger, op string) error {
	if _, err := uow.Commit(ctx); err != nil {
		uow.Rollback()
		logger.Error("commit failed", zap.String("operation", op), zap.Error(err))
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

func activeOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
