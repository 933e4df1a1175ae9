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

// CompanyService manages companies. Company codes are globally unique.
type CompanyService struct {
	companies CompanyRepository
	uow       UnitOfWork
	producer  EventProducer
	logger    *zap.Logger
}

func NewCompanyService(companies CompanyRepository, uow UnitOfWork, producer EventProducer, logger *zap.Logger) *CompanyService {
	if producer == nil {
		producer = noopProducer{}
	}
	return &CompanyService{
		companies: companies,
		uow:       uow,
		producer:  producer,
		logger:    logger.Named("company_service"),
	}
}

func (s *CompanyService) GetAll(ctx context.Context) ([]dto.CompanyDTO, error) {
	companies, err := s.companies.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return mapper.CompaniesToDTO(companies), nil
}

func (s *CompanyService) GetActive(ctx context.Context) ([]dto.CompanyDTO, error) {
	companies, err := s.companies.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active companies: %w", err)
	}
	return mapper.CompaniesToDTO(companies), nil
}

// GetByID returns nil without error when the company does not exist.
func (s *CompanyService) GetByID(ctx context.Context, id uuid.UUID) (*dto.CompanyDTO, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return mapper.CompanyToDTO(company), nil
}

func (s *CompanyService) GetByCode(ctx context.Context, code int) (*dto.CompanyDTO, error) {
	company, err := s.companies.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return mapper.CompanyToDTO(company), nil
}

func (s *CompanyService) GetWithStores(ctx context.Context, id uuid.UUID) (*dto.CompanyDTO, error) {
	company, err := s.companies.GetWithStores(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company with stores: %w", err)
	}
	return mapper.CompanyToDTO(company), nil
}

func (s *CompanyService) GetWithStoresByCode(ctx context.Context, code int) (*dto.CompanyDTO, error) {
	company, err := s.companies.GetWithStoresByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get company with stores: %w", err)
	}
	return mapper.CompanyToDTO(company), nil
}

// Create adds a new company after validating input and checking that the
// code is free. The unique index still has the final word under concurrent
// creates.
func (s *CompanyService) Create(ctx context.Context, in dto.CreateCompanyInput) (*dto.CompanyDTO, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, in.Code); err != nil {
		return nil, err
	}

	company := &models.Company{
		Base: models.Base{IsActive: activeOrDefault(in.IsActive)},
		Name: in.Name,
		Code: in.Code,
	}
	if err := s.companies.Add(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	if err := commit(ctx, s.uow, s.logger, "create company"); err != nil {
		return nil, err
	}

	out := mapper.CompanyToDTO(company)
	s.logger.Info("company created",
		zap.String("company_id", company.ID.String()),
		zap.Int("code", company.Code),
	)
	s.producer.Produce(events.CompanyCreated, company.ID, out)
	return out, nil
}

// Update overwrites every mutable field of the company.
func (s *CompanyService) Update(ctx context.Context, id uuid.UUID, in dto.UpdateCompanyInput) (*dto.CompanyDTO, error) {
	company, err := s.loadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, company, in)
}

func (s *CompanyService) UpdateByCode(ctx context.Context, code int, in dto.UpdateCompanyInput) (*dto.CompanyDTO, error) {
	company, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, company, in)
}

// Patch overwrites only the fields set in the patch.
func (s *CompanyService) Patch(ctx context.Context, id uuid.UUID, in dto.PatchCompanyInput) (*dto.CompanyDTO, error) {
	company, err := s.loadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.patch(ctx, company, in)
}

func (s *CompanyService) PatchByCode(ctx context.Context, code int, in dto.PatchCompanyInput) (*dto.CompanyDTO, error) {
	company, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.patch(ctx, company, in)
}

// Delete removes the company together with its stores and their products.
func (s *CompanyService) Delete(ctx context.Context, id uuid.UUID) error {
	company, err := s.loadByID(ctx, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, company)
}

func (s *CompanyService) DeleteByCode(ctx context.Context, code int) error {
	company, err := s.loadByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.delete(ctx, company)
}

func (s *CompanyService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.companies.Exists(ctx, id)
}

func (s *CompanyService) ExistsByCode(ctx context.Context, code int) (bool, error) {
	return s.companies.ExistsByCode(ctx, code)
}

func (s *CompanyService) update(ctx context.Context, company *models.Company, in dto.UpdateCompanyInput) (*dto.CompanyDTO, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Code != company.Code {
		if err := s.ensureCodeFree(ctx, in.Code); err != nil {
			return nil, err
		}
	}

	company.Name = in.Name
	company.Code = in.Code
	company.IsActive = in.IsActive
	return s.save(ctx, company)
}

func (s *CompanyService) patch(ctx context.Context, company *models.Company, in dto.PatchCompanyInput) (*dto.CompanyDTO, error) {
	if in.IsEmpty() {
		return nil, fmt.Errorf("%w: at least one field must be provided", e.ErrInvalidInput)
	}
	if err := rejectNull(
		nonNull{"name", in.Name},
		nonNull{"code", in.Code},
		nonNull{"isActive", in.IsActive},
	); err != nil {
		return nil, err
	}
	if name, ok := in.Name.Get(); ok {
		if err := validateName(name); err != nil {
			return nil, err
		}
	}
	if code, ok := in.Code.Get(); ok {
		if err := validateCode(code); err != nil {
			return nil, err
		}
		if code != company.Code {
			if err := s.ensureCodeFree(ctx, code); err != nil {
				return nil, err
			}
		}
	}

	if name, ok := in.Name.Get(); ok {
		company.Name = name
	}
	if code, ok := in.Code.Get(); ok {
		company.Code = code
	}
	if active, ok := in.IsActive.Get(); ok {
		company.IsActive = active
	}
	return s.save(ctx, company)
}

func (s *CompanyService) save(ctx context.Context, company *models.Company) (*dto.CompanyDTO, error) {
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	if err := commit(ctx, s.uow, s.logger, "update company"); err != nil {
		return nil, err
	}

	out := mapper.CompanyToDTO(company)
	s.producer.Produce(events.CompanyUpdated, company.ID, out)
	return out, nil
}

func (s *CompanyService) delete(ctx context.Context, company *models.Company) error {
	out := mapper.CompanyToDTO(company)
	if err := s.companies.Delete(ctx, company.ID); err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	if err := commit(ctx, s.uow, s.logger, "delete company"); err != nil {
		return err
	}

	s.logger.Info("company deleted", zap.String("company_id", company.ID.String()))
	s.producer.Produce(events.CompanyDeleted, company.ID, out)
	return nil
}

func (s *CompanyService) loadByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("%w: company with ID %s", e.ErrNotFound, id)
	}
	return company, nil
}

func (s *CompanyService) loadByCode(ctx context.Context, code int) (*models.Company, error) {
	company, err := s.companies.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("%w: company with code %d", e.ErrNotFound, code)
	}
	return company, nil
}

func (s *CompanyService) ensureCodeFree(ctx context.Context, code int) error {
	exists, err := s.companies.ExistsByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to check code existence: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: company code %d already exists", e.ErrDuplicateCode, code)
	}
	return nil
}
