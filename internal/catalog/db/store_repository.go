package db

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/storemanagement/internal/catalog/errors"
	"github.com/gartstein/storemanagement/internal/catalog/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StoreRepository reads stores, always with their company, and stages store
// changes in a UnitOfWork.
type StoreRepository struct {
	db  *gorm.DB
	uow *UnitOfWork
}

func NewStoreRepository(uow *UnitOfWork) *StoreRepository {
	return &StoreRepository{db: uow.db, uow: uow}
}

func (r *StoreRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return r.first(r.withCompany(ctx), "id = ?", id)
}

// GetByCode resolves a store by its code alone. Store codes are only unique
// per company, so a code shared by several companies is rejected with
// ErrInvalidInput.
func (r *StoreRepository) GetByCode(ctx context.Context, code int) (*models.Store, error) {
	var stores []models.Store
	err := r.withCompany(ctx).
		Where("code = ?", code).
		Limit(2).
		Find(&stores).Error
	if err != nil {
		return nil, translateError(err)
	}
	switch len(stores) {
	case 0:
		return nil, nil
	case 1:
		return track(r.uow, storesTable, &stores[0], stateUnchanged), nil
	default:
		return nil, fmt.Errorf("%w: store code %d is used by more than one company, company code required", e.ErrInvalidInput, code)
	}
}

// GetByCodes resolves a store by company code and store code.
func (r *StoreRepository) GetByCodes(ctx context.Context, companyCode, code int) (*models.Store, error) {
	return r.first(r.withCompany(ctx), "code = ? AND company_id IN (?)", code, r.companyIDs(ctx, companyCode))
}

// GetWithProducts loads the store, its company and its products ordered by
// code.
func (r *StoreRepository) GetWithProducts(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	q := r.withCompany(ctx).Preload("Products", func(db *gorm.DB) *gorm.DB {
		return db.Order("code")
	})
	return r.first(q, "id = ?", id)
}

func (r *StoreRepository) GetAll(ctx context.Context) ([]models.Store, error) {
	return r.find(r.withCompany(ctx))
}

func (r *StoreRepository) GetActive(ctx context.Context) ([]models.Store, error) {
	return r.find(r.withCompany(ctx).Where("is_active = ?", true))
}

func (r *StoreRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID) ([]models.Store, error) {
	return r.find(r.withCompany(ctx).Where("company_id = ?", companyID))
}

func (r *StoreRepository) GetActiveByCompanyID(ctx context.Context, companyID uuid.UUID) ([]models.Store, error) {
	return r.find(r.withCompany(ctx).Where("company_id = ? AND is_active = ?", companyID, true))
}

func (r *StoreRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Store{}).
		Where("id = ?", id).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// ExistsByCodes reports whether the company already has a store with code.
func (r *StoreRepository) ExistsByCodes(ctx context.Context, companyID uuid.UUID, code int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Store{}).
		Where("company_id = ? AND code = ?", companyID, code).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

func (r *StoreRepository) Add(_ context.Context, store *models.Store) error {
	track(r.uow, storesTable, store, stateAdded)
	return nil
}

func (r *StoreRepository) Update(_ context.Context, store *models.Store) error {
	track(r.uow, storesTable, store, stateModified)
	return nil
}

// Delete stages the store for deletion; its products go with it.
func (r *StoreRepository) Delete(_ context.Context, id uuid.UUID) error {
	track(r.uow, storesTable, &models.Store{Base: models.Base{ID: id}}, stateDeleted)
	return nil
}

func (r *StoreRepository) withCompany(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Company")
}

func (r *StoreRepository) companyIDs(ctx context.Context, companyCode int) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Company{}).Select("id").Where("code = ?", companyCode)
}

func (r *StoreRepository) first(q *gorm.DB, query string, args ...interface{}) (*models.Store, error) {
	var store models.Store
	if err := q.Where(query, args...).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return track(r.uow, storesTable, &store, stateUnchanged), nil
}

func (r *StoreRepository) find(q *gorm.DB) ([]models.Store, error) {
	var stores []models.Store
	if err := q.Order("code").Find(&stores).Error; err != nil {
		return nil, translateError(err)
	}
	return stores, nil
}
