// Package seed loads a catalog described in YAML through the catalog
// services, so seeded data passes the same validation as any other write.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/gartstein/storemanagement/internal/catalog/controller"
	"github.com/gartstein/storemanagement/internal/catalog/dto"
	e "github.com/gartstein/storemanagement/internal/catalog/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type File struct {
	Companies []Company `yaml:"companies"`
}

type Company struct {
	Name     string  `yaml:"name"`
	Code     int     `yaml:"code"`
	Inactive bool    `yaml:"inactive"`
	Stores   []Store `yaml:"stores"`
}

type Store struct {
	Name     string    `yaml:"name"`
	Code     int       `yaml:"code"`
	Address  *string   `yaml:"address"`
	Inactive bool      `yaml:"inactive"`
	Products []Product `yaml:"products"`
}

type Product struct {
	Name        string  `yaml:"name"`
	Code        int     `yaml:"code"`
	Description *string `yaml:"description"`
	// Price is kept as text so no precision is lost to float parsing.
	Price    string `yaml:"price"`
	Inactive bool   `yaml:"inactive"`
}

// Result counts what a seeding run created and skipped.
type Result struct {
	Created int
	Skipped int
}

func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read file %s: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("seed: parse yaml: %w", err)
	}
	return &f, nil
}

// Seeder writes seed files through a catalog. Entities whose code already
// exists under the same parent are skipped, so seeding is repeatable.
type Seeder struct {
	catalog *controller.Catalog
	logger  *zap.Logger
}

func NewSeeder(catalog *controller.Catalog, logger *zap.Logger) *Seeder {
	return &Seeder{catalog: catalog, logger: logger.Named("seed")}
}

// Seed loads every company of f. Each company is written in its own session;
// the first failure stops the run.
func (s *Seeder) Seed(ctx context.Context, f *File) (Result, error) {
	var res Result
	for _, c := range f.Companies {
		if err := s.seedCompany(ctx, s.catalog.Session(), c, &res); err != nil {
			return res, fmt.Errorf("seed company %d: %w", c.Code, err)
		}
	}
	s.logger.Info("seeding finished", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
	return res, nil
}

func (s *Seeder) seedCompany(ctx context.Context, session *controller.Session, c Company, res *Result) error {
	exists, err := session.Companies.ExistsByCode(ctx, c.Code)
	if err != nil {
		return err
	}
	if exists {
		res.Skipped++
	} else {
		active := !c.Inactive
		if _, err := session.Companies.Create(ctx, dto.CreateCompanyInput{Name: c.Name, Code: c.Code, IsActive: &active}); err != nil {
			return err
		}
		res.Created++
	}

	for _, st := range c.Stores {
		if err := s.seedStore(ctx, session, c.Code, st, res); err != nil {
			return fmt.Errorf("store %d: %w", st.Code, err)
		}
	}
	return nil
}

func (s *Seeder) seedStore(ctx context.Context, session *controller.Session, companyCode int, st Store, res *Result) error {
	exists, err := session.Stores.ExistsByCodes(ctx, companyCode, st.Code)
	if err != nil {
		return err
	}
	if exists {
		res.Skipped++
	} else {
		active := !st.Inactive
		_, err := session.Stores.Create(ctx, dto.CreateStoreInput{
			Name:        st.Name,
			Code:        st.Code,
			Address:     st.Address,
			IsActive:    &active,
			CompanyCode: companyCode,
		})
		if err != nil {
			return err
		}
		res.Created++
	}

	ref := dto.StoreRef{StoreCode: st.Code, CompanyCode: &companyCode}
	for _, p := range st.Products {
		if err := s.seedProduct(ctx, session, ref, p, res); err != nil {
			return fmt.Errorf("product %d: %w", p.Code, err)
		}
	}
	return nil
}

func (s *Seeder) seedProduct(ctx context.Context, session *controller.Session, ref dto.StoreRef, p Product, res *Result) error {
	exists, err := session.Products.ExistsByCodes(ctx, ref, p.Code)
	if err != nil {
		return err
	}
	if exists {
		res.Skipped++
		return nil
	}

	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return fmt.Errorf("%w: product %d has invalid price %q: %v", e.ErrInvalidInput, p.Code, p.Price, err)
	}
	active := !p.Inactive
	_, err = session.Products.Create(ctx, dto.CreateProductInput{
		Name:        p.Name,
		Code:        p.Code,
		Description: p.Description,
		Price:       price,
		IsActive:    &active,
		StoreRef:    ref,
	})
	if err != nil {
		return err
	}
	res.Created++
	return nil
}
