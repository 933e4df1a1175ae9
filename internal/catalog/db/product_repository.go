package db

import (
	"context"
	"errors"

	"github.com/gartstein/storemanagement/internal/catalog/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository reads products, always with their store, and stages
// product changes in a UnitOfWork.
type ProductRepository struct {
	db  *gorm.DB
	uow *UnitOfWork
}

func NewProductRepository(uow *UnitOfWork) *ProductRepository {
	return &ProductRepository{db: uow.db, uow: uow}
}

func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return r.first(r.withStore(ctx), "id = ?", id)
}

// GetByCodes resolves a product by its code within a store.
func (r *ProductRepository) GetByCodes(ctx context.Context, storeID uuid.UUID, code int) (*models.Product, error) {
	return r.first(r.withStore(ctx), "store_id = ? AND code = ?", storeID, code)
}

func (r *ProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	return r.find(r.withStore(ctx))
}

func (r *ProductRepository) GetActive(ctx context.Context) ([]models.Product, error) {
	return r.find(r.withStore(ctx).Where("is_active = ?", true))
}

func (r *ProductRepository) GetByStoreID(ctx context.Context, storeID uuid.UUID) ([]models.Product, error) {
	return r.find(r.withStore(ctx).Where("store_id = ?", storeID))
}

func (r *ProductRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID) ([]models.Product, error) {
	return r.find(r.withStore(ctx).Where("store_id IN (?)", r.storeIDs(ctx, companyID)))
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	return r.count(r.db.WithContext(ctx).Model(&models.Product{}))
}

func (r *ProductRepository) CountByStoreID(ctx context.Context, storeID uuid.UUID) (int64, error) {
	return r.count(r.db.WithContext(ctx).Model(&models.Product{}).Where("store_id = ?", storeID))
}

func (r *ProductRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.count(r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Limit(1))
	return n > 0, err
}

// ExistsByCodes reports whether the store already has a product with code.
func (r *ProductRepository) ExistsByCodes(ctx context.Context, storeID uuid.UUID, code int) (bool, error) {
	n, err := r.count(r.db.WithContext(ctx).Model(&models.Product{}).Where("store_id = ? AND code = ?", storeID, code).Limit(1))
	return n > 0, err
}

func (r *ProductRepository) Add(_ context.Context, product *models.Product) error {
	track(r.uow, productsTable, product, stateAdded)
	return nil
}

func (r *ProductRepository) Update(_ context.Context, product *models.Product) error {
	track(r.uow, productsTable, product, stateModified)
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id uuid.UUID) error {
	track(r.uow, productsTable, &models.Product{Base: models.Base{ID: id}}, stateDeleted)
	return nil
}

func (r *ProductRepository) withStore(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Store").Preload("Store.Company")
}

func (r *ProductRepository) storeIDs(ctx context.Context, companyID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Store{}).Select("id").Where("company_id = ?", companyID)
}

func (r *ProductRepository) first(q *gorm.DB, query string, args ...interface{}) (*models.Product, error) {
	var product models.Product
	if err := q.Where(query, args...).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return track(r.uow, productsTable, &product, stateUnchanged), nil
}

func (r *ProductRepository) find(q *gorm.DB) ([]models.Product, error) {
	var products []models.Product
	if err := q.Order("code").Find(&products).Error; err != nil {
		return nil, translateError(err)
	}
	return products, nil
}

func (r *ProductRepository) count(q *gorm.DB) (int64, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, translateError(err)
	}
	return n, nil
}
