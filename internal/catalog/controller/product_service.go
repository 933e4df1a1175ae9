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

// ProductService manages products. A product is addressed by its store and
// its own code, which is unique within the store.
type ProductService struct {
	products ProductRepository
	stores   StoreRepository
	uow      UnitOfWork
	producer EventProducer
	logger   *zap.Logger
}

func NewProductService(products ProductRepository, stores StoreRepository, uow UnitOfWork, producer EventProducer, logger *zap.Logger) *ProductService {
	if producer == nil {
		producer = noopProducer{}
	}
	return &ProductService{
		products: products,
		stores:   stores,
		uow:      uow,
		producer: producer,
		logger:   logger.Named("product_service"),
	}
}

func (s *ProductService) GetAll(ctx context.Context) ([]dto.ProductDTO, error) {
	products, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return mapper.ProductsToDTO(products), nil
}

func (s *ProductService) GetActive(ctx context.Context) ([]dto.ProductDTO, error) {
	products, err := s.products.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active products: %w", err)
	}
	return mapper.ProductsToDTO(products), nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductDTO, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return mapper.ProductToDTO(product), nil
}

// GetByCodes returns the product with code in the referenced store, or nil
// when either does not exist.
func (s *ProductService) GetByCodes(ctx context.Context, ref dto.StoreRef, code int) (*dto.ProductDTO, error) {
	store, err := s.findStore(ctx, ref)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, nil
	}
	product, err := s.products.GetByCodes(ctx, store.ID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return mapper.ProductToDTO(product), nil
}

func (s *ProductService) GetByStore(ctx context.Context, storeID uuid.UUID) ([]dto.ProductDTO, error) {
	products, err := s.products.GetByStoreID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return mapper.ProductsToDTO(products), nil
}

// GetByStoreCode lists the products of the referenced store, failing with
// ErrNotFound when the store does not exist.
func (s *ProductService) GetByStoreCode(ctx context.Context, ref dto.StoreRef) ([]dto.ProductDTO, error) {
	store, err := s.findStore(ctx, ref)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store with code %d", e.ErrNotFound, ref.StoreCode)
	}
	return s.GetByStore(ctx, store.ID)
}

func (s *ProductService) GetByCompany(ctx context.Context, companyID uuid.UUID) ([]dto.ProductDTO, error) {
	products, err := s.products.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return mapper.ProductsToDTO(products), nil
}

func (s *ProductService) Count(ctx context.Context) (int64, error) {
	return s.products.Count(ctx)
}

func (s *ProductService) CountByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	return s.products.CountByStoreID(ctx, storeID)
}

// Create adds a product to the referenced store. Nothing is staged when the
// store cannot be resolved.
func (s *ProductService) Create(ctx context.Context, in dto.CreateProductInput) (*dto.ProductDTO, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	store, err := s.resolveStore(ctx, in.StoreCode, in.CompanyCode)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, store.ID, in.Code); err != nil {
		return nil, err
	}

	product := &models.Product{
		Base:        models.Base{IsActive: activeOrDefault(in.IsActive)},
		Name:        in.Name,
		Code:        in.Code,
		Description: in.Description,
		Price:       in.Price,
		StoreID:     store.ID,
		Store:       store,
	}
	if err := s.products.Add(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	if err := commit(ctx, s.uow, s.logger, "create product"); err != nil {
		return nil, err
	}

	out := mapper.ProductToDTO(product)
	s.logger.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.Int("code", product.Code),
		zap.Int("store_code", store.Code),
	)
	s.producer.Produce(events.ProductCreated, product.ID, out)
	return out, nil
}

// Update overwrites every mutable field of the product, re-resolving its
// store from the input.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, in dto.UpdateProductInput) (*dto.ProductDTO, error) {
	product, err := s.loadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, product, in)
}

func (s *ProductService) UpdateByCodes(ctx context.Context, ref dto.StoreRef, code int, in dto.UpdateProductInput) (*dto.ProductDTO, error) {
	product, err := s.loadByCodes(ctx, ref, code)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, product, in)
}

// Patch overwrites only the fields set in the patch. A set StoreCode moves
// the product to that store.
func (s *ProductService) Patch(ctx context.Context, id uuid.UUID, in dto.PatchProductInput) (*dto.ProductDTO, error) {
	product, err := s.loadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.patch(ctx, product, in)
}

func (s *ProductService) PatchByCodes(ctx context.Context, ref dto.StoreRef, code int, in dto.PatchProductInput) (*dto.ProductDTO, error) {
	product, err := s.loadByCodes(ctx, ref, code)
	if err != nil {
		return nil, err
	}
	return s.patch(ctx, product, in)
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.loadByID(ctx, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, product)
}

func (s *ProductService) DeleteByCodes(ctx context.Context, ref dto.StoreRef, code int) error {
	product, err := s.loadByCodes(ctx, ref, code)
	if err != nil {
		return err
	}
	return s.delete(ctx, product)
}

func (s *ProductService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.products.Exists(ctx, id)
}

func (s *ProductService) ExistsByCodes(ctx context.Context, ref dto.StoreRef, code int) (bool, error) {
	store, err := s.findStore(ctx, ref)
	if err != nil || store == nil {
		return false, err
	}
	return s.products.ExistsByCodes(ctx, store.ID, code)
}

func (s *ProductService) update(ctx context.Context, product *models.Product, in dto.UpdateProductInput) (*dto.ProductDTO, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	store, err := s.resolveStore(ctx, in.StoreCode, in.CompanyCode)
	if err != nil {
		return nil, err
	}
	if in.Code != product.Code || store.ID != product.StoreID {
		if err := s.ensureCodeFree(ctx, store.ID, in.Code); err != nil {
			return nil, err
		}
	}

	product.Name = in.Name
	product.Code = in.Code
	product.Description = in.Description
	product.Price = in.Price
	product.IsActive = in.IsActive
	product.StoreID = store.ID
	product.Store = store
	return s.save(ctx, product)
}

func (s *ProductService) patch(ctx context.Context, product *models.Product, in dto.PatchProductInput) (*dto.ProductDTO, error) {
	if in.IsEmpty() {
		return nil, fmt.Errorf("%w: at least one field must be provided", e.ErrInvalidInput)
	}
	if err := rejectNull(
		nonNull{"name", in.Name},
		nonNull{"code", in.Code},
		nonNull{"price", in.Price},
		nonNull{"isActive", in.IsActive},
		nonNull{"storeCode", in.StoreCode},
		nonNull{"companyCode", in.CompanyCode},
	); err != nil {
		return nil, err
	}
	if name, ok := in.Name.Get(); ok {
		if err := validateName(name); err != nil {
			return nil, err
		}
	}
	if description, ok := in.Description.Get(); ok {
		if err := validateText("description", description, descriptionRules); err != nil {
			return nil, err
		}
	}
	if price, ok := in.Price.Get(); ok {
		if err := validatePrice(price); err != nil {
			return nil, err
		}
	}

	code := product.Code
	if c, ok := in.Code.Get(); ok {
		if err := validateCode(c); err != nil {
			return nil, err
		}
		code = c
	}
	store := product.Store
	if storeCode, ok := in.StoreCode.Get(); ok {
		var companyCode *int
		if c, ok := in.CompanyCode.Get(); ok {
			companyCode = &c
		}
		resolved, err := s.resolveStore(ctx, storeCode, companyCode)
		if err != nil {
			return nil, err
		}
		store = resolved
	}
	storeID := product.StoreID
	if store != nil {
		storeID = store.ID
	}
	if code != product.Code || storeID != product.StoreID {
		if err := s.ensureCodeFree(ctx, storeID, code); err != nil {
			return nil, err
		}
	}

	if name, ok := in.Name.Get(); ok {
		product.Name = name
	}
	if description, ok := in.Description.Get(); ok {
		product.Description = description
	}
	if price, ok := in.Price.Get(); ok {
		product.Price = price
	}
	if active, ok := in.IsActive.Get(); ok {
		product.IsActive = active
	}
	product.Code = code
	product.StoreID = storeID
	product.Store = store
	return s.save(ctx, product)
}

func (s *ProductService) save(ctx context.Context, product *models.Product) (*dto.ProductDTO, error) {
	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if err := commit(ctx, s.uow, s.logger, "update product"); err != nil {
		return nil, err
	}

	out := mapper.ProductToDTO(product)
	s.producer.Produce(events.ProductUpdated, product.ID, out)
	return out, nil
}

func (s *ProductService) delete(ctx context.Context, product *models.Product) error {
	out := mapper.ProductToDTO(product)
	if err := s.products.Delete(ctx, product.ID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if err := commit(ctx, s.uow, s.logger, "delete product"); err != nil {
		return err
	}

	s.logger.Info("product deleted", zap.String("product_id", product.ID.String()))
	s.producer.Produce(events.ProductDeleted, product.ID, out)
	return nil
}

func (s *ProductService) loadByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: product with ID %s", e.ErrNotFound, id)
	}
	return product, nil
}

func (s *ProductService) loadByCodes(ctx context.Context, ref dto.StoreRef, code int) (*models.Product, error) {
	store, err := s.findStore(ctx, ref)
	if err != nil {
		return nil, err
	}
	var product *models.Product
	if store != nil {
		product, err = s.products.GetByCodes(ctx, store.ID, code)
		if err != nil {
			return nil, fmt.Errorf("failed to get product: %w", err)
		}
	}
	if product == nil {
		return nil, fmt.Errorf("%w: product with code %d in store %d", e.ErrNotFound, code, ref.StoreCode)
	}
	return product, nil
}

// findStore looks the referenced store up, returning nil when it does not
// exist. Without a company code the store code must be unambiguous.
func (s *ProductService) findStore(ctx context.Context, ref dto.StoreRef) (*models.Store, error) {
	var (
		store *models.Store
		err   error
	)
	if ref.CompanyCode != nil {
		store, err = s.stores.GetByCodes(ctx, *ref.CompanyCode, ref.StoreCode)
	} else {
		store, err = s.stores.GetByCode(ctx, ref.StoreCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store: %w", err)
	}
	return store, nil
}

// resolveStore is findStore for writes: a missing store is invalid input.
func (s *ProductService) resolveStore(ctx context.Context, storeCode int, companyCode *int) (*models.Store, error) {
	store, err := s.findStore(ctx, dto.StoreRef{StoreCode: storeCode, CompanyCode: companyCode})
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store with code %d not found", e.ErrInvalidInput, storeCode)
	}
	return store, nil
}

func (s *ProductService) ensureCodeFree(ctx context.Context, storeID uuid.UUID, code int) error {
	exists, err := s.products.ExistsByCodes(ctx, storeID, code)
	if err != nil {
		return fmt.Errorf("failed to check code existence: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: product code %d already exists in store", e.ErrDuplicateCode, code)
	}
	return nil
}
