// Package errors provides custom error types for storefront operations.
package errors

import "errors"

var ErrProductNotFound = errors.New("product not found")
var ErrOutOfStock = errors.New("product is out of stock")
var ErrBelowMinimum = errors.New("quantity is below the product minimum")
var ErrInsufficientStock = errors.New("insufficient stock")

var ErrEmptyCart = errors.New("cart is empty")
var ErrCartLineNotFound = errors.New("cart line not found")

var ErrPersistence = errors.New("store persistence failure")
