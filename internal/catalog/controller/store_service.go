package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/storemanagement/internal/catalog/dto"
	e "github.com/gartstein/storemanagement/internal/catalog/errors"
	"github.com/gartstein/storemanagement/internal/catalog/events"
	"github.com/gartstein/storemanagement/internal/catalog/mapper"
	"github.com/gartstein/storemanagement/internal/catalog/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoreService manages stores. A store is addressed by its company's code
// and its own code, which is unique within the company.
type StoreService struct {
	stores    StoreRepository
	companies CompanyRepository
	uow       UnitOfWork
	producer  EventProducer
	logger    *zap.Logger
}

func NewStoreService(stores StoreRepository, companies CompanyRepository, uow UnitOfWork, producer EventProducer, logger *zap.Logger) *StoreService {
	if producer == nil {
		producer = noopProducer{}
	}
	return &StoreService{
		stores:    stores,
		companies: companies,
		uow:       uow,
		producer:  producer,
		logger:    logger.Named("store_service"),
	}
}

func (s *StoreService) GetAll(ctx context.Context) ([]dto.StoreDTO, error) {
	stores, err := s.stores.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return mapper.StoresToDTO(stores), nil
}

func (s *StoreService) GetActive(ctx context.Context) ([]dto.StoreDTO, error) {
	stores, err := s.stores.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active stores: %w", err)
	}
	return mapper.StoresToDTO(stores), nil
}

func (s *StoreService) GetByID(ctx context.Context, id uuid.UUID) (*dto.StoreDTO, error) {
	store, err := s.stores.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return mapper.StoreToDTO(store), nil
}

// GetByCode looks a store up by its code alone; it fails with
// ErrInvalidInput when several companies use that code.
func (s *StoreService) GetByCode(ctx context.Context, code int) (*dto.StoreDTO, error) {
	store, err := s.stores.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return mapper.StoreToDTO(store), nil
}

func (s *StoreService) GetByCodes(ctx context.Context, companyCode, code int) (*dto.StoreDTO, error) {
	store, err := s.stores.GetByCodes(ctx, companyCode, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return mapper.StoreToDTO(store), nil
}

func (s *StoreService) GetWithProducts(ctx context.Context, id uuid.UUID) (*dto.StoreDTO, error) {
	store, err := s.stores.GetWithProducts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get store with products: %w", err)
	}
	return mapper.StoreToDTO(store), nil
}

func (s *StoreService) GetWithProductsByCodes(ctx context.Context, companyCode, code int) (*dto.StoreDTO, error) {
	store, err := s.stores.GetByCodes(ctx, companyCode, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	if store == nil {
		return nil, nil
	}
	return s.GetWithProducts(ctx, store.ID)
}

func (s *StoreService) GetByCompany(ctx context.Context, companyID uuid.UUID) ([]dto.StoreDTO, error) {
	stores, err := s.stores.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return mapper.StoresToDTO(stores), nil
}

func (s *StoreService) GetActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]dto.StoreDTO, error) {
	stores, err := s.stores.GetActiveByCompanyID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active stores: %w", err)
	}
	return mapper.StoresToDTO(stores), nil
}

// GetByCompanyCode lists the stores of a company, failing with ErrNotFound
// when the company does not exist.
func (s *StoreService) GetByCompanyCode(ctx context.Context, companyCode int) ([]dto.StoreDTO, error) {
	company, err := s.companies.GetByCode(ctx, companyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("%w: company with code %d", e.ErrNotFound, companyCode)
	}
	return s.GetByCompany(ctx, company.ID)
}

// Create adds a store to the company addressed by in.CompanyCode. Nothing is
// staged when the company cannot be resolved.
func (s *StoreService) Create(ctx context.Context, in dto.CreateStoreInput) (*dto.StoreDTO, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	company, err := s.resolveCompany(ctx, in.CompanyCode)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, company, in.Code); err != nil {
		return nil, err
	}

	store := &models.Store{
		Base:      models.Base{IsActive: activeOrDefault(in.IsActive)},
		Name:      in.Name,
		Code:      in.Code,
		Address:   in.Address,
		CompanyID: company.ID,
		Company:   company,
	}
	if err := s.stores.Add(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := commit(ctx, s.uow, s.logger, "create store"); err != nil {
		return nil, err
	}

	out := mapper.StoreToDTO(store)
	s.logger.Info("store created",
		zap.String("store_id", store.ID.String()),
		zap.Int("code", store.Code),
		zap.Int("company_code", company.Code),
	)
	s.producer.Produce(events.StoreCreated, store.ID, out)
	return out, nil
}

// Update overwrites every mutable field of the store, re-resolving its
// company from in.CompanyCode.
func (s *StoreService) Update(ctx context.Context, id uuid.UUID, in dto.UpdateStoreInput) (*dto.StoreDTO, error) {
	store, err := s.loadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, store, in)
}

func (s *StoreService) UpdateByCodes(ctx context.Context, companyCode, code int, in dto.UpdateStoreInput) (*dto.StoreDTO, error) {
	store, err := s.loadByCodes(ctx, companyCode, code)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, store, in)
}

// Patch overwrites only the fields set in the patch. A set CompanyCode moves
// the store, after resolving the company exactly as Update does.
func (s *StoreService) Patch(ctx context.Context, id uuid.UUID, in dto.PatchStoreInput) (*dto.StoreDTO, error) {
	store, err := s.loadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.patch(ctx, store, in)
}

func (s *StoreService) PatchByCodes(ctx context.Context, companyCode, code int, in dto.PatchStoreInput) (*dto.StoreDTO, error) {
	store, err := s.loadByCodes(ctx, companyCode, code)
	if err != nil {
		return nil, err
	}
	return s.patch(ctx, store, in)
}

// Delete removes the store and its products.
func (s *StoreService) Delete(ctx context.Context, id uuid.UUID) error {
	store, err := s.loadByID(ctx, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, store)
}

func (s *StoreService) DeleteByCodes(ctx context.Context, companyCode, code int) error {
	store, err := s.loadByCodes(ctx, companyCode, code)
	if err != nil {
		return err
	}
	return s.delete(ctx, store)
}

func (s *StoreService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.stores.Exists(ctx, id)
}

func (s *StoreService) ExistsByCodes(ctx context.Context, companyCode, code int) (bool, error) {
	store, err := s.stores.GetByCodes(ctx, companyCode, code)
	if err != nil {
		return false, err
	}
	return store != nil, nil
}

func (s *StoreService) update(ctx context.Context, store *models.Store, in dto.UpdateStoreInput) (*dto.StoreDTO, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	company, err := s.resolveCompany(ctx, in.CompanyCode)
	if err != nil {
		return nil, err
	}
	if in.Code != store.Code || company.ID != store.CompanyID {
		if err := s.ensureCodeFree(ctx, company, in.Code); err != nil {
			return nil, err
		}
	}

	store.Name = in.Name
	store.Code = in.Code
	store.Address = in.Address
	store.IsActive = in.IsActive
	store.CompanyID = company.ID
	store.Company = company
	return s.save(ctx, store)
}

func (s *StoreService) patch(ctx context.Context, store *models.Store, in dto.PatchStoreInput) (*dto.StoreDTO, error) {
	if in.IsEmpty() {
		return nil, fmt.Errorf("%w: at least one field must be provided", e.ErrInvalidInput)
	}
	if err := rejectNull(
		nonNull{"name", in.Name},
		nonNull{"code", in.Code},
		nonNull{"isActive", in.IsActive},
		nonNull{"companyCode", in.CompanyCode},
	); err != nil {
		return nil, err
	}
	if name, ok := in.Name.Get(); ok {
		if err := validateName(name); err != nil {
			return nil, err
		}
	}
	if address, ok := in.Address.Get(); ok {
		if err := validateText("address", address, addressRules); err != nil {
			return nil, err
		}
	}

	code := store.Code
	if c, ok := in.Code.Get(); ok {
		if err := validateCode(c); err != nil {
			return nil, err
		}
		code = c
	}
	company := store.Company
	if companyCode, ok := in.CompanyCode.Get(); ok {
		resolved, err := s.resolveCompany(ctx, companyCode)
		if err != nil {
			return nil, err
		}
		company = resolved
	}
	companyID := store.CompanyID
	if company != nil {
		companyID = company.ID
	}
	if code != store.Code || companyID != store.CompanyID {
		if err := s.ensureCodeFreeIn(ctx, companyID, code); err != nil {
			return nil, err
		}
	}

	if name, ok := in.Name.Get(); ok {
		store.Name = name
	}
	if address, ok := in.Address.Get(); ok {
		store.Address = address
	}
	if active, ok := in.IsActive.Get(); ok {
		store.IsActive = active
	}
	store.Code = code
	store.CompanyID = companyID
	store.Company = company
	return s.save(ctx, store)
}

func (s *StoreService) save(ctx context.Context, store *models.Store) (*dto.StoreDTO, error) {
	if err := s.stores.Update(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to update store: %w", err)
	}
	if err := commit(ctx, s.uow, s.logger, "update store"); err != nil {
		return nil, err
	}

	out := mapper.StoreToDTO(store)
	s.producer.Produce(events.StoreUpdated, store.ID, out)
	return out, nil
}

func (s *StoreService) delete(ctx context.Context, store *models.Store) error {
	out := mapper.StoreToDTO(store)
	if err := s.stores.Delete(ctx, store.ID); err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	if err := commit(ctx, s.uow, s.logger, "delete store"); err != nil {
		return err
	}

	s.logger.Info("store deleted", zap.String("store_id", store.ID.String()))
	s.producer.Produce(events.StoreDeleted, store.ID, out)
	return nil
}

func (s *StoreService) loadByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	store, err := s.stores.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store with ID %s", e.ErrNotFound, id)
	}
	return store, nil
}

func (s *StoreService) loadByCodes(ctx context.Context, companyCode, code int) (*models.Store, error) {
	store, err := s.stores.GetByCodes(ctx, companyCode, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store with code %d in company %d", e.ErrNotFound, code, companyCode)
	}
	return store, nil
}

// resolveCompany turns a company code into the company, failing with
// ErrInvalidInput when it does not exist.
func (s *StoreService) resolveCompany(ctx context.Context, companyCode int) (*models.Company, error) {
	company, err := s.companies.GetByCode(ctx, companyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("%w: company with code %d not found", e.ErrInvalidInput, companyCode)
	}
	return company, nil
}

func (s *StoreService) ensureCodeFree(ctx context.Context, company *models.Company, code int) error {
	return s.ensureCodeFreeIn(ctx, company.ID, code)
}

func (s *StoreService) ensureCodeFreeIn(ctx context.Context, companyID uuid.UUID, code int) error {
	exists, err := s.stores.ExistsByCodes(ctx, companyID, code)
	if err != nil {
		return fmt.Errorf("failed to check code existence: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: store code %d already exists in company", e.ErrDuplicateCode, code)
	}
	return nil
}
