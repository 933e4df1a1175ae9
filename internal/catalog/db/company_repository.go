package db

import (
	"context"
	"errors"

	"github.com/gartstein/storemanagement/internal/catalog/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyRepository reads companies and stages company changes in a
// UnitOfWork. Single-entity reads are tracked; list reads are not.
type CompanyRepository struct {
	db  *gorm.DB
	uow *UnitOfWork
}

func NewCompanyRepository(uow *UnitOfWork) *CompanyRepository {
	return &CompanyRepository{db: uow.db, uow: uow}
}

func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

func (r *CompanyRepository) GetByCode(ctx context.Context, code int) (*models.Company, error) {
	return r.first(r.db.WithContext(ctx), "code = ?", code)
}

// GetWithStores loads the company and its stores ordered by code.
func (r *CompanyRepository) GetWithStores(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return r.first(r.withStores(ctx), "id = ?", id)
}

func (r *CompanyRepository) GetWithStoresByCode(ctx context.Context, code int) (*models.Company, error) {
	return r.first(r.withStores(ctx), "code = ?", code)
}

func (r *CompanyRepository) GetAll(ctx context.Context) ([]models.Company, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *CompanyRepository) GetActive(ctx context.Context) ([]models.Company, error) {
	return r.find(r.db.WithContext(ctx).Where("is_active = ?", true))
}

func (r *CompanyRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "id = ?", id)
}

func (r *CompanyRepository) ExistsByCode(ctx context.Context, code int) (bool, error) {
	return r.exists(ctx, "code = ?", code)
}

// Add stages company for insertion.
func (r *CompanyRepository) Add(_ context.Context, company *models.Company) error {
	track(r.uow, companiesTable, company, stateAdded)
	return nil
}

// Update stages company for a full-row update.
func (r *CompanyRepository) Update(_ context.Context, company *models.Company) error {
	track(r.uow, companiesTable, company, stateModified)
	return nil
}

// Delete stages the company for deletion. Its stores and their products are
// removed by the ON DELETE CASCADE foreign keys.
func (r *CompanyRepository) Delete(_ context.Context, id uuid.UUID) error {
	track(r.uow, companiesTable, &models.Company{Base: models.Base{ID: id}}, stateDeleted)
	return nil
}

func (r *CompanyRepository) withStores(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Stores", func(db *gorm.DB) *gorm.DB {
		return db.Order("code")
	})
}

func (r *CompanyRepository) first(q *gorm.DB, query string, args ...interface{}) (*models.Company, error) {
	var company models.Company
	if err := q.Where(query, args...).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return track(r.uow, companiesTable, &company, stateUnchanged), nil
}

func (r *CompanyRepository) find(q *gorm.DB) ([]models.Company, error) {
	var companies []models.Company
	if err := q.Order("code").Find(&companies).Error; err != nil {
		return nil, translateError(err)
	}
	return companies, nil
}

func (r *CompanyRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Company{}).
		Where(query, args...).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}
