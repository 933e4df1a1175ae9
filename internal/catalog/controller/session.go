package controller

import (
	"github.com/gartstein/storemanagement/internal/catalog/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Session wires one unit of work, its repositories and the services for a
// single logical request. A Session must not be shared between goroutines.
type Session struct {
	UnitOfWork *db.UnitOfWork
	Companies  *CompanyService
	Stores     *StoreService
	Products   *ProductService
}

func NewSession(database *gorm.DB, producer EventProducer, logger *zap.Logger, opts ...db.Option) *Session {
	uow := db.NewUnitOfWork(database, logger, opts...)
	companies := db.NewCompanyRepository(uow)
	stores := db.NewStoreRepository(uow)
	products := db.NewProductRepository(uow)

	return &Session{
		UnitOfWork: uow,
		Companies:  NewCompanyService(companies, uow, producer, logger),
		Stores:     NewStoreService(stores, companies, uow, producer, logger),
		Products:   NewProductService(products, stores, uow, producer, logger),
	}
}

// Catalog is the long-lived factory for sessions.
type Catalog struct {
	db       *gorm.DB
	producer EventProducer
	logger   *zap.Logger
	opts     []db.Option
}

func NewCatalog(database *gorm.DB, producer EventProducer, logger *zap.Logger, opts ...db.Option) *Catalog {
	return &Catalog{db: database, producer: producer, logger: logger, opts: opts}
}

// Session starts a fresh session with an empty unit of work.
func (c *Catalog) Session() *Session {
	return NewSession(c.db, c.producer, c.logger, c.opts...)
}
