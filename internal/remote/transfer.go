package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/shopspring/decimal"
)

// TransferRequest moves stock of one product from a warehouse to a store
// location.
type TransferRequest struct {
	CompanyID         string
	ProductID         string
	Quantity          decimal.Decimal
	FromWarehouseID   string
	ToStoreLocationID string
}

type transferStockParams struct {
	CompanyID         string      `json:"p_company_id"`
	ProductID         string      `json:"p_product_id"`
	Quantity          json.Number `json:"p_quantity"`
	FromWarehouseID   string      `json:"p_from_warehouse_id"`
	ToStoreLocationID string      `json:"p_to_store_location_id"`
}

// TransferStock calls the transfer_stock RPC.
func (c *Client) TransferStock(ctx context.Context, req TransferRequest) error {
	params := transferStockParams{
		CompanyID:         req.CompanyID,
		ProductID:         req.ProductID,
		Quantity:          number(req.Quantity),
		FromWarehouseID:   req.FromWarehouseID,
		ToStoreLocationID: req.ToStoreLocationID,
	}
	if err := c.do(ctx, http.MethodPost, c.rpcURL("transfer_stock"), params, nil); err != nil {
		var serr *statusError
		if errors.As(err, &serr) && serr.StatusCode < 500 {
			return sale.RemoteRejection("", serr.Message)
		}
		return sale.NetworkError("transfer stock", err)
	}
	return nil
}

// StockTransferer is the part of Client used by TransferStockStep.
type StockTransferer interface {
	TransferStock(ctx context.Context, req TransferRequest) error
}

// TransferStockStep replenishes a store location after a confirmed sale by
// moving the sold quantity of every item from a warehouse.
//
// It is meant to run as a best-effort step: a failure never changes the
// outcome of the sale it follows.
type TransferStockStep struct {
	Transferer  StockTransferer
	WarehouseID string
}

// Name identifies the step in logs.
func (s *TransferStockStep) Name() string { return "transfer_stock" }

// Run transfers every item of the intent. It attempts all items and
// returns the joined errors of those that failed.
func (s *TransferStockStep) Run(ctx context.Context, in sale.Intent, remoteID string) error {
	if s.WarehouseID == "" || in.StoreLocationID == "" {
		return nil
	}

	var errs []error
	for _, it := range in.Items {
		err := s.Transferer.TransferStock(ctx, TransferRequest{
			CompanyID:         in.CompanyID,
			ProductID:         it.ProductID,
			Quantity:          it.Quantity,
			FromWarehouseID:   s.WarehouseID,
			ToStoreLocationID: in.StoreLocationID,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", it.ProductID, err))
		}
	}
	return errors.Join(errs...)
}
