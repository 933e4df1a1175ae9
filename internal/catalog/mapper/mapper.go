// Package mapper projects catalog entities onto transfer objects, filling
// the denormalized parent fields from whatever relations were loaded.
package mapper

import (
	"github.com/gartstein/storemanagement/internal/catalog/dto"
	"github.com/gartstein/storemanagement/internal/catalog/models"
)

// CompanyToDTO maps a company. Stores are included when they were loaded.
func CompanyToDTO(company *models.Company) *dto.CompanyDTO {
	if company == nil {
		return nil
	}
	out := &dto.CompanyDTO{
		ID:        company.ID,
		Name:      company.Name,
		Code:      company.Code,
		IsActive:  company.IsActive,
		CreatedAt: company.CreatedAt,
		UpdatedAt: company.UpdatedAt,
	}
	if len(company.Stores) > 0 {
		out.Stores = make([]dto.StoreDTO, 0, len(company.Stores))
		for i := range company.Stores {
			store := company.Stores[i]
			if store.Company == nil {
				store.Company = company
			}
			out.Stores = append(out.Stores, *StoreToDTO(&store))
		}
	}
	return out
}

func CompaniesToDTO(companies []models.Company) []dto.CompanyDTO {
	out := make([]dto.CompanyDTO, 0, len(companies))
	for i := range companies {
		out = append(out, *CompanyToDTO(&companies[i]))
	}
	return out
}

// StoreToDTO maps a store, taking CompanyName and CompanyCode from the loaded
// company. Products are included when they were loaded.
func StoreToDTO(store *models.Store) *dto.StoreDTO {
	if store == nil {
		return nil
	}
	out := &dto.StoreDTO{
		ID:        store.ID,
		Name:      store.Name,
		Code:      store.Code,
		Address:   store.Address,
		IsActive:  store.IsActive,
		CreatedAt: store.CreatedAt,
		UpdatedAt: store.UpdatedAt,
		CompanyID: store.CompanyID,
	}
	if store.Company != nil {
		out.CompanyName = store.Company.Name
		out.CompanyCode = store.Company.Code
	}
	if len(store.Products) > 0 {
		out.Products = make([]dto.ProductDTO, 0, len(store.Products))
		for i := range store.Products {
			product := store.Products[i]
			if product.Store == nil {
				product.Store = store
			}
			out.Products = append(out.Products, *ProductToDTO(&product))
		}
	}
	return out
}

func StoresToDTO(stores []models.Store) []dto.StoreDTO {
	out := make([]dto.StoreDTO, 0, len(stores))
	for i := range stores {
		out = append(out, *StoreToDTO(&stores[i]))
	}
	return out
}

// ProductToDTO maps a product, taking StoreName and StoreCode from the loaded
// store, and CompanyCode from the store's company when that is loaded too.
func ProductToDTO(product *models.Product) *dto.ProductDTO {
	if product == nil {
		return nil
	}
	out := &dto.ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Code:        product.Code,
		Description: product.Description,
		Price:       product.Price,
		IsActive:    product.IsActive,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
		StoreID:     product.StoreID,
	}
	if product.Store != nil {
		out.StoreName = product.Store.Name
		out.StoreCode = product.Store.Code
		if product.Store.Company != nil {
			out.CompanyCode = product.Store.Company.Code
		}
	}
	return out
}

func ProductsToDTO(products []models.Product) []dto.ProductDTO {
	out := make([]dto.ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *ProductToDTO(&products[i]))
	}
	return out
}
