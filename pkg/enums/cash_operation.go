package enums

import "fmt"

// CashOperation marks the direction of a cash ledger entry.
type CashOperation string

const (
	CashOperationInflow  CashOperation = "inflow"
	CashOperationOutflow CashOperation = "outflow"
)

var validCashOperations = []CashOperation{
	CashOperationInflow,
	CashOperationOutflow,
}

// String implements fmt.Stringer.
func (o CashOperation) String() string {
	return string(o)
}

// IsValid reports whether the value is a known CashOperation.
func (o CashOperation) IsValid() bool {
	for _, candidate := range validCashOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseCashOperation converts raw input into a CashOperation.
func ParseCashOperation(value string) (CashOperation, error) {
	for _, candidate := range validCashOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cash operation %q", value)
}
