package cart

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/types"
)

// Cart keys travel between the storefront and the queue as
// "<productID>::<base64 selection json>". The selection is key-sorted before
// encoding so the same choice always produces the same key.
const keySeparator = "::"

// CreateKey encodes a product id plus its option selection into a cart key.
// An empty selection collapses to the bare product id.
func CreateKey(productID string, selection types.CartSelection) string {
	if len(selection) == 0 {
		return productID
	}

	// encoding/json already orders map keys; Sorted() takes care of the
	// list values.
	payload, err := json.Marshal(selection.Sorted())
	if err != nil {
		return productID
	}
	return productID + keySeparator + base64.StdEncoding.EncodeToString(payload)
}

// ParseKey decodes a cart key back into the product id and selection. A key
// without a selection segment, or with an undecodable one, yields an empty
// selection rather than an error; the product id is still usable.
func ParseKey(key string) (string, types.CartSelection) {
	productID, encoded, found := strings.Cut(key, keySeparator)
	if !found || encoded == "" {
		return productID, types.CartSelection{}
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return productID, types.CartSelection{}
	}

	var selection types.CartSelection
	if err := json.Unmarshal(payload, &selection); err != nil {
		return productID, types.CartSelection{}
	}
	return productID, selection
}

// ValidateItems enforces the creation-time invariants: every item total is
// unit price times quantity and the cart total is the sum of item totals.
func ValidateItems(items []types.OrderItem, totals types.CartTotals) error {
	sum := decimal.Zero
	count := 0
	for _, item := range items {
		expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !item.TotalPrice.Equal(expected) {
			return pkgerrors.New(pkgerrors.CodeValidation, "item total does not match unit price times quantity").
				WithDetails(map[string]any{"lineId": item.LineID})
		}
		sum = sum.Add(item.TotalPrice)
		count += item.Quantity
	}
	if !totals.Total.Equal(sum) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart total does not match the sum of item totals")
	}
	if totals.Count != count {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart item count does not match the items")
	}
	return nil
}
