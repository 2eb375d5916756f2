package checkout

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

// StockCheck describes a requested quantity against the stock on hand.
type StockCheck struct {
	ProductID   uint
	ProductName string
	Available   int
	Requested   int
}

// StockViolationDetail is returned to callers for each short line.
type StockViolationDetail struct {
	ProductID    uint   `json:"product_id"`
	ProductName  string `json:"product_name,omitempty"`
	Available    int    `json:"available"`
	RequestedQty int    `json:"requested_qty"`
}

// ValidateStock fails with BadRequest when any line asks for more than is available.
func ValidateStock(items []StockCheck) error {
	var violations []StockViolationDetail
	for _, item := range items {
		if item.Requested <= item.Available {
			continue
		}
		violations = append(violations, StockViolationDetail{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Available:    item.Available,
			RequestedQty: item.Requested,
		})
	}
	if len(violations) == 0 {
		return nil
	}
	msg := "insufficient stock"
	if len(violations) == 1 && violations[0].ProductName != "" {
		msg = fmt.Sprintf("insufficient stock for %s", violations[0].ProductName)
	}
	return pkgerrors.New(pkgerrors.CodeBadRequest, msg).WithDetails(map[string]any{
		"violations": violations,
	})
}
