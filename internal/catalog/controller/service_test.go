package controller

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gartstein/storemanagement/internal/catalog/db"
	"github.com/gartstein/storemanagement/internal/catalog/dto"
	e "github.com/gartstein/storemanagement/internal/catalog/errors"
	"github.com/gartstein/storemanagement/internal/catalog/events"
	"github.com/gartstein/storemanagement/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingProducer is a test double for the Kafka producer.
type recordingProducer struct {
	mu     sync.Mutex
	events []events.EventType
}

func (p *recordingProducer) Produce(eventType events.EventType, _ uuid.UUID, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recordingProducer) recorded() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.EventType(nil), p.events...)
}

func setupCatalog(t *testing.T) (*Catalog, *recordingProducer) {
	t.Helper()
	database, err := db.Open(&db.Config{Driver: db.DriverSQLite, DSN: ":memory:"}, zaptest.NewLogger(t))
	require.NoError(t, err, "failed to open test database")
	require.NoError(t, db.Migrate(database), "failed to migrate test database")
	t.Cleanup(func() { _ = db.Close(database) })

	producer := &recordingProducer{}
	return NewCatalog(database, producer, zaptest.NewLogger(t)), producer
}

// seedAcme creates company 100, store 200 and product 300 ("Widget", 9.99).
func seedAcme(t *testing.T, s *Session) (*dto.CompanyDTO, *dto.StoreDTO, *dto.ProductDTO) {
	t.Helper()
	ctx := context.Background()

	company, err := s.Companies.Create(ctx, dto.CreateCompanyInput{Name: "Acme", Code: 100})
	require.NoError(t, err)
	store, err := s.Stores.Create(ctx, dto.CreateStoreInput{Name: "Acme Store", Code: 200, CompanyCode: 100})
	require.NoError(t, err)
	product, err := s.Products.Create(ctx, dto.CreateProductInput{
		Name:     "Widget",
		Code:     300,
		Price:    decimal.RequireFromString("9.99"),
		StoreRef: dto.StoreRef{StoreCode: 200},
	})
	require.NoError(t, err)
	return company, store, product
}

func TestCatalog_CreateAndResolveByCode(t *testing.T) {
	catalog, producer := setupCatalog(t)
	ctx := context.Background()
	before := time.Now().UTC()

	company, store, product := seedAcme(t, catalog.Session())

	assert.True(t, company.IsActive, "IsActive defaults to true")
	assert.Nil(t, company.UpdatedAt)
	assert.WithinDuration(t, before, company.CreatedAt, 5*time.Second)
	assert.Equal(t, "Acme", store.CompanyName)
	assert.Equal(t, 100, store.CompanyCode)
	assert.Equal(t, "Acme Store", product.StoreName)
	assert.Equal(t, 200, product.StoreCode)

	// A fresh session reads from the database, not from tracked state.
	got, err := catalog.Session().Products.GetByCodes(ctx, dto.StoreRef{StoreCode: 200}, 300)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Widget", got.Name)
	assert.True(t, decimal.RequireFromString("9.99").Equal(got.Price), "price is exact")

	assert.Equal(t, []events.EventType{events.CompanyCreated, events.StoreCreated, events.ProductCreated}, producer.recorded())
}

func TestCompanyService_UpdateCode(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	company, _, _ := seedAcme(t, catalog.Session())

	s := catalog.Session()
	updated, err := s.Companies.Update(ctx, company.ID, dto.UpdateCompanyInput{Name: "Acme", Code: 101, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, 101, updated.Code)
	require.NotNil(t, updated.UpdatedAt, "UpdatedAt is set by the first mutation")

	s = catalog.Session()
	old, err := s.Companies.GetByCode(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, old)
	renamed, err := s.Companies.GetByCode(ctx, 101)
	require.NoError(t, err)
	require.NotNil(t, renamed)
	assert.Equal(t, company.ID, renamed.ID)
}

func TestStoreService_CreateWithUnknownCompany(t *testing.T) {
	catalog, producer := setupCatalog(t)
	ctx := context.Background()
	s := catalog.Session()

	_, err := s.Stores.Create(ctx, dto.CreateStoreInput{Name: "Nowhere", Code: 200, CompanyCode: 9999})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
	assert.False(t, s.UnitOfWork.HasChanges(), "nothing is staged")

	all, err := catalog.Session().Stores.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, producer.recorded())
}

func TestProductService_CreateWithUnknownStore(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	seedAcme(t, catalog.Session())

	_, err := catalog.Session().Products.Create(ctx, dto.CreateProductInput{
		Name:     "Gadget",
		Code:     301,
		Price:    decimal.NewFromInt(1),
		StoreRef: dto.StoreRef{StoreCode: 9999},
	})
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	n, err := catalog.Session().Products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDuplicateCodes(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	seedAcme(t, catalog.Session())
	s := catalog.Session()

	_, err := s.Companies.Create(ctx, dto.CreateCompanyInput{Name: "Acme Again", Code: 100})
	assert.ErrorIs(t, err, e.ErrDuplicateCode)
	assert.Equal(t, 409, e.StatusCode(err))

	_, err = s.Stores.Create(ctx, dto.CreateStoreInput{Name: "Second", Code: 200, CompanyCode: 100})
	assert.ErrorIs(t, err, e.ErrDuplicateCode)

	_, err = s.Products.Create(ctx, dto.CreateProductInput{
		Name:     "Widget Again",
		Code:     300,
		Price:    decimal.NewFromInt(1),
		StoreRef: dto.StoreRef{StoreCode: 200},
	})
	assert.ErrorIs(t, err, e.ErrDuplicateCode)

	// The same codes under a different parent are fine.
	_, err = s.Companies.Create(ctx, dto.CreateCompanyInput{Name: "Globex", Code: 101})
	require.NoError(t, err)
	_, err = s.Stores.Create(ctx, dto.CreateStoreInput{Name: "Globex Store", Code: 200, CompanyCode: 101})
	require.NoError(t, err)
	_, err = s.Products.Create(ctx, dto.CreateProductInput{
		Name:     "Globex Widget",
		Code:     300,
		Price:    decimal.NewFromInt(5),
		StoreRef: dto.StoreRef{StoreCode: 200, CompanyCode: utils.Ptr(101)},
	})
	require.NoError(t, err)

	// Store 200 is now ambiguous without a company code.
	_, err = s.Products.GetByCodes(ctx, dto.StoreRef{StoreCode: 200}, 300)
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestStoreService_Patch(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	_, store, _ := seedAcme(t, catalog.Session())

	s := catalog.Session()
	_, err := s.Stores.Patch(ctx, store.ID, dto.PatchStoreInput{Address: dto.Some(utils.Ptr("1 Main St"))})
	require.NoError(t, err)

	patched, err := catalog.Session().Stores.Patch(ctx, store.ID, dto.PatchStoreInput{
		Name:     dto.Some("Acme Flagship"),
		IsActive: dto.Some(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Flagship", patched.Name)
	assert.False(t, patched.IsActive)
	assert.Equal(t, 200, patched.Code, "absent fields are kept")
	if assert.NotNil(t, patched.Address) {
		assert.Equal(t, "1 Main St", *patched.Address)
	}

	cleared, err := catalog.Session().Stores.Patch(ctx, store.ID, dto.PatchStoreInput{Address: dto.Some[*string](nil)})
	require.NoError(t, err)
	assert.Nil(t, cleared.Address, "an explicit null clears the address")

	_, err = catalog.Session().Stores.Patch(ctx, store.ID, dto.PatchStoreInput{})
	assert.ErrorIs(t, err, e.ErrInvalidInput, "an empty patch is rejected")

	_, err = catalog.Session().Stores.Patch(ctx, uuid.New(), dto.PatchStoreInput{Name: dto.Some("x")})
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestStoreService_PatchMovesToOtherCompany(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	_, store, _ := seedAcme(t, catalog.Session())
	s := catalog.Session()
	_, err := s.Companies.Create(ctx, dto.CreateCompanyInput{Name: "Globex", Code: 101})
	require.NoError(t, err)

	_, err = s.Stores.PatchByCodes(ctx, 100, 200, dto.PatchStoreInput{CompanyCode: dto.Some(9999)})
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	moved, err := catalog.Session().Stores.PatchByCodes(ctx, 100, 200, dto.PatchStoreInput{CompanyCode: dto.Some(101)})
	require.NoError(t, err)
	assert.Equal(t, store.ID, moved.ID)
	assert.Equal(t, 101, moved.CompanyCode)
	assert.Equal(t, "Globex", moved.CompanyName)

	stores, err := catalog.Session().Stores.GetByCompanyCode(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, stores)

	_, err = catalog.Session().Stores.GetByCompanyCode(ctx, 9999)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestProductService_PatchDescription(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	_, _, product := seedAcme(t, catalog.Session())

	withDesc, err := catalog.Session().Products.Patch(ctx, product.ID, dto.PatchProductInput{
		Description: dto.Some(utils.Ptr("Blue")),
		Price:       dto.Some(decimal.RequireFromString("12.50")),
	})
	require.NoError(t, err)
	require.NotNil(t, withDesc.Description)
	assert.Equal(t, "Blue", *withDesc.Description)
	assert.True(t, decimal.RequireFromString("12.5").Equal(withDesc.Price))

	kept, err := catalog.Session().Products.Patch(ctx, product.ID, dto.PatchProductInput{Name: dto.Some("Widget XL")})
	require.NoError(t, err)
	require.NotNil(t, kept.Description, "an absent description is kept")
	assert.Equal(t, "Blue", *kept.Description)

	cleared, err := catalog.Session().Products.Patch(ctx, product.ID, dto.PatchProductInput{Description: dto.Some[*string](nil)})
	require.NoError(t, err)
	assert.Nil(t, cleared.Description)

	_, err = catalog.Session().Products.Patch(ctx, product.ID, dto.PatchProductInput{CompanyCode: dto.Some(100)})
	assert.ErrorIs(t, err, e.ErrInvalidInput, "a company code alone is not a change")
}

func TestProductService_UpdateByCodes(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	_, _, product := seedAcme(t, catalog.Session())
	s := catalog.Session()
	_, err := s.Stores.Create(ctx, dto.CreateStoreInput{Name: "Outlet", Code: 201, CompanyCode: 100})
	require.NoError(t, err)

	updated, err := s.Products.UpdateByCodes(ctx, dto.StoreRef{StoreCode: 200}, 300, dto.UpdateProductInput{
		Name:     "Widget",
		Code:     310,
		Price:    decimal.RequireFromString("8.00"),
		IsActive: false,
		StoreRef: dto.StoreRef{StoreCode: 201, CompanyCode: utils.Ptr(100)},
	})
	require.NoError(t, err)
	assert.Equal(t, product.ID, updated.ID)
	assert.Equal(t, 201, updated.StoreCode)
	assert.Equal(t, 310, updated.Code)
	assert.False(t, updated.IsActive)
	assert.NotNil(t, updated.UpdatedAt)

	exists, err := catalog.Session().Products.ExistsByCodes(ctx, dto.StoreRef{StoreCode: 201}, 310)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = catalog.Session().Products.ExistsByCodes(ctx, dto.StoreRef{StoreCode: 200}, 300)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPatch_NullOnRequiredFieldIsRejected(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	company, store, product := seedAcme(t, catalog.Session())

	productPayloads := []string{
		`{"price": null, "isActive": null}`,
		`{"price": null}`,
		`{"isActive": null}`,
		`{"name": null}`,
		`{"storeCode": null}`,
		`{"description": "Blue", "companyCode": null}`,
	}
	for _, payload := range productPayloads {
		t.Run("product "+payload, func(t *testing.T) {
			var in dto.PatchProductInput
			require.NoError(t, json.Unmarshal([]byte(payload), &in))

			s := catalog.Session()
			_, err := s.Products.Patch(ctx, product.ID, in)
			assert.ErrorIs(t, err, e.ErrInvalidInput)
			assert.False(t, s.UnitOfWork.HasChanges())

			got, err := catalog.Session().Products.GetByID(ctx, product.ID)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString("9.99").Equal(got.Price), "price is unchanged")
			assert.True(t, got.IsActive, "product stays active")
			assert.Nil(t, got.Description)
		})
	}

	t.Run("store", func(t *testing.T) {
		var in dto.PatchStoreInput
		require.NoError(t, json.Unmarshal([]byte(`{"isActive": null}`), &in))
		_, err := catalog.Session().Stores.Patch(ctx, store.ID, in)
		assert.ErrorIs(t, err, e.ErrInvalidInput)

		got, err := catalog.Session().Stores.GetByID(ctx, store.ID)
		require.NoError(t, err)
		assert.True(t, got.IsActive)
	})

	t.Run("company", func(t *testing.T) {
		var in dto.PatchCompanyInput
		require.NoError(t, json.Unmarshal([]byte(`{"code": null, "isActive": null}`), &in))
		_, err := catalog.Session().Companies.Patch(ctx, company.ID, in)
		assert.ErrorIs(t, err, e.ErrInvalidInput)

		got, err := catalog.Session().Companies.GetByID(ctx, company.ID)
		require.NoError(t, err)
		assert.True(t, got.IsActive)
		assert.Equal(t, 100, got.Code)
	})

	t.Run("null description still clears", func(t *testing.T) {
		_, err := catalog.Session().Products.Patch(ctx, product.ID, dto.PatchProductInput{Description: dto.Some(utils.Ptr("Blue"))})
		require.NoError(t, err)

		var in dto.PatchProductInput
		require.NoError(t, json.Unmarshal([]byte(`{"description": null}`), &in))
		cleared, err := catalog.Session().Products.Patch(ctx, product.ID, in)
		require.NoError(t, err)
		assert.Nil(t, cleared.Description)
	})
}

func TestValidation(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	seedAcme(t, catalog.Session())
	s := catalog.Session()

	tests := []struct {
		name string
		run  func() error
	}{
		{"blank company name", func() error {
			_, err := s.Companies.Create(ctx, dto.CreateCompanyInput{Name: "  ", Code: 1})
			return err
		}},
		{"blank patched store name", func() error {
			_, err := s.Stores.PatchByCodes(ctx, 100, 200, dto.PatchStoreInput{Name: dto.Some(" ")})
			return err
		}},
		{"long description", func() error {
			long := string(make([]rune, 1001))
			_, err := s.Products.UpdateByCodes(ctx, dto.StoreRef{StoreCode: 200}, 300, dto.UpdateProductInput{
				Name: "Widget", Code: 300, Description: &long, Price: decimal.NewFromInt(1), IsActive: true, StoreRef: dto.StoreRef{StoreCode: 200},
			})
			return err
		}},
		{"non-positive code", func() error {
			_, err := s.Companies.Create(ctx, dto.CreateCompanyInput{Name: "Zero", Code: 0})
			return err
		}},
		{"long address", func() error {
			long := string(make([]rune, 501))
			_, err := s.Stores.Create(ctx, dto.CreateStoreInput{Name: "S", Code: 1, CompanyCode: 100, Address: &long})
			return err
		}},
		{"negative price", func() error {
			_, err := s.Products.Create(ctx, dto.CreateProductInput{Name: "P", Code: 1, Price: decimal.NewFromInt(-1), StoreRef: dto.StoreRef{StoreCode: 200}})
			return err
		}},
		{"three fractional digits", func() error {
			_, err := s.Products.Create(ctx, dto.CreateProductInput{Name: "P", Code: 1, Price: decimal.RequireFromString("1.005"), StoreRef: dto.StoreRef{StoreCode: 200}})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.ErrorIs(t, err, e.ErrInvalidInput)
			assert.Equal(t, 400, e.StatusCode(err))
		})
	}
	assert.False(t, s.UnitOfWork.HasChanges())
}

func TestCompanyService_DeleteCascades(t *testing.T) {
	catalog, producer := setupCatalog(t)
	ctx := context.Background()
	seedAcme(t, catalog.Session())

	s := catalog.Session()
	require.NoError(t, s.Companies.DeleteByCode(ctx, 100))

	s = catalog.Session()
	stores, err := s.Stores.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stores)
	n, err := s.Products.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, s.Companies.DeleteByCode(ctx, 100), e.ErrNotFound)
	assert.Contains(t, producer.recorded(), events.CompanyDeleted)
}

func TestStoreService_DeleteByCodes(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	company, _, _ := seedAcme(t, catalog.Session())

	require.NoError(t, catalog.Session().Stores.DeleteByCodes(ctx, 100, 200))

	s := catalog.Session()
	exists, err := s.Companies.Exists(ctx, company.ID)
	require.NoError(t, err)
	assert.True(t, exists, "deleting a store keeps its company")
	n, err := s.Products.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompanyService_GetWithStores(t *testing.T) {
	catalog, _ := setupCatalog(t)
	ctx := context.Background()
	seedAcme(t, catalog.Session())

	got, err := catalog.Session().Companies.GetWithStoresByCode(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got.Stores, 1)
	assert.Equal(t, "Acme", got.Stores[0].CompanyName)

	store, err := catalog.Session().Stores.GetWithProductsByCodes(ctx, 100, 200)
	require.NoError(t, err)
	require.Len(t, store.Products, 1)
	assert.Equal(t, "Acme Store", store.Products[0].StoreName)
}
