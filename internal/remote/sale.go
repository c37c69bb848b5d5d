package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/shopspring/decimal"
)

type processSaleItem struct {
	ProductID string      `json:"product_id"`
	Quantity  json.Number `json:"quantity"`
	Price     json.Number `json:"price"`
	CostPrice json.Number `json:"cost_price"`
}

type processSaleParams struct {
	CompanyID       string            `json:"p_company_id"`
	StoreLocationID *string           `json:"p_store_location_id"`
	PaymentMethod   string            `json:"p_payment_method"`
	TotalAmount     json.Number       `json:"p_total_amount"`
	CustomerID      *string           `json:"p_customer_id"`
	Comment         *string           `json:"p_comment"`
	Items           []processSaleItem `json:"p_items"`
	WarehouseID     *string           `json:"p_warehouse_id"`
	OperationAt     *string           `json:"p_operation_at"`
}

type processSaleRow struct {
	Success bool            `json:"success"`
	SaleID  json.RawMessage `json:"sale_id"`
	Message string          `json:"message"`
}

// ConfirmSale posts a sale to the process_sale RPC.
//
// A transport failure or a 5xx response is returned as a NETWORK error. A
// response the backend produced on purpose (a 4xx, success=false, or no
// rows) is returned as a Confirmation with Success=false and a nil error.
//
// The RPC is not idempotent: every call that reaches the backend may create
// a sale.
func (c *Client) ConfirmSale(ctx context.Context, req sale.ConfirmRequest) (sale.Confirmation, error) {
	params := newProcessSaleParams(req)

	var rows []processSaleRow
	err := c.do(ctx, http.MethodPost, c.rpcURL("process_sale"), params, &rows)
	if err != nil {
		var serr *statusError
		if errors.As(err, &serr) && serr.StatusCode < 500 {
			return sale.Confirmation{Success: false, Message: serr.Message}, nil
		}
		return sale.Confirmation{}, sale.NetworkError("confirm sale", err)
	}

	if len(rows) == 0 {
		return sale.Confirmation{Success: false, Message: "process_sale returned no rows"}, nil
	}

	row := rows[0]
	return sale.Confirmation{
		Success:  row.Success,
		RemoteID: rawID(row.SaleID),
		Message:  row.Message,
	}, nil
}

func newProcessSaleParams(req sale.ConfirmRequest) processSaleParams {
	items := make([]processSaleItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = processSaleItem{
			ProductID: it.ProductID,
			Quantity:  number(it.Quantity),
			Price:     number(it.Price),
			CostPrice: number(it.CostPrice),
		}
	}

	var operationAt *string
	if !req.OperationAt.IsZero() {
		s := req.OperationAt.UTC().Format(time.RFC3339Nano)
		operationAt = &s
	}

	return processSaleParams{
		CompanyID:       req.CompanyID,
		StoreLocationID: nullable(req.StoreLocationID),
		PaymentMethod:   req.PaymentMethod,
		TotalAmount:     number(req.TotalAmount),
		CustomerID:      nullable(req.CustomerID),
		Comment:         nullable(req.Comment),
		Items:           items,
		WarehouseID:     nullable(req.WarehouseID),
		OperationAt:     operationAt,
	}
}

// number encodes a decimal as a bare JSON number without float rounding.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// nullable maps "" to JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// rawID accepts sale_id as a JSON string or number.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}
