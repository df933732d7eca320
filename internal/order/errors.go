package order

import (
	"errors"
	"fmt"
)

// ErrCartEmpty is the business rejection for validating an empty cart. It is
// never a transport or server failure.
var ErrCartEmpty = errors.New("order: cart is empty")

// OutOfStockError names the product that cannot cover the requested
// quantity.
type OutOfStockError struct {
	ProductName string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("order: there is a shortage of %s in stock", e.ProductName)
}
