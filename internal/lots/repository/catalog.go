package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pharmadisti/pharmadisti-backend/pkg/database"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Product is a catalog reference owned by the product service.
// This service only reads it.
type Product struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Unit          string          `db:"unit" json:"unit"`
	VolumePerUnit decimal.Decimal `db:"volume_per_unit" json:"volume_per_unit"`
}

// LotBatch is the physical batch registry entry a product lot points at
type LotBatch struct {
	ID      string `db:"id" json:"id"`
	LotCode string `db:"lot_code" json:"lot_code"`
}

// CatalogRepository reads catalog references (products, lot batches)
type CatalogRepository struct {
	db *database.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetProductByID gets a product by ID
func (r *CatalogRepository) GetProductByID(ctx context.Context, id string) (*Product, error) {
	var product Product
	query := `SELECT id, name, unit, volume_per_unit FROM products WHERE id = $1`
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("product %s", id))
		}
		return nil, err
	}
	return &product, nil
}

// GetLotBatchByID gets a lot batch by ID
func (r *CatalogRepository) GetLotBatchByID(ctx context.Context, id string) (*LotBatch, error) {
	var batch LotBatch
	query := `SELECT id, lot_code FROM lot_batches WHERE id = $1`
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("lot batch %s", id))
		}
		return nil, err
	}
	return &batch, nil
}
