package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/grocery-shop/internal/auth"
	"github.com/example/grocery-shop/internal/cartsync"
	"github.com/example/grocery-shop/internal/domain/cart"
	"github.com/example/grocery-shop/internal/domain/inventory"
	"github.com/example/grocery-shop/internal/domain/order"
	"github.com/example/grocery-shop/internal/domain/product"
	"github.com/example/grocery-shop/internal/domain/purchase"
	"github.com/example/grocery-shop/internal/domain/user"
	"github.com/example/grocery-shop/internal/guestcart"
	"github.com/example/grocery-shop/internal/infrastructure/store"
	"github.com/example/grocery-shop/internal/query"
)

var errEmailTaken = errors.New("email already registered")

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, details map[string]string) {
	respondJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// Sentinel errors grouped by the status they map to. The first matching group wins,
// so domain errors wrapped inside ErrRemoteUnavailable keep their own status.
var errorStatuses = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{
		query.ErrNotFound, query.ErrUnitNotFound,
		product.ErrProductNotFound, product.ErrUnitNotFound,
		order.ErrOrderNotFound, purchase.ErrNotFound,
		user.ErrUserNotFound, cart.ErrItemNotFound, cartsync.ErrItemRejected,
	}},
	{http.StatusBadRequest, []error{
		product.ErrInvalidName, product.ErrInvalidPrice, product.ErrInvalidCostPrice,
		product.ErrInvalidMinStock, product.ErrNoUnits, product.ErrInvalidUnitType, product.ErrDuplicateUnit,
		cart.ErrInvalidQuantity, cart.ErrInvalidProduct, cartsync.ErrInvalidQuantity,
		inventory.ErrInvalidQuantity, inventory.ErrInvalidThreshold, inventory.ErrInvalidUnit,
		order.ErrEmptyOrder, order.ErrInvalidItem,
		purchase.ErrInvalidSupplier, purchase.ErrNoLines, purchase.ErrInvalidLine,
		user.ErrInvalidEmail, user.ErrInvalidName, user.ErrInvalidRole,
		auth.ErrPasswordTooShort, auth.ErrPasswordTooLong,
		guestcart.ErrInvalidSession,
	}},
	{http.StatusUnauthorized, []error{user.ErrInvalidCredentials}},
	{http.StatusForbidden, []error{user.ErrUserDeactivated}},
	{http.StatusConflict, []error{
		inventory.ErrInsufficientStock, inventory.ErrInsufficientReserved, inventory.ErrNegativeStock,
		order.ErrInvalidStatus, order.ErrOrderAlreadyPaid, order.ErrOrderNotPaid,
		order.ErrOrderNotShipped, order.ErrOrderShipped, order.ErrOrderCancelled,
		purchase.ErrNotOpen, errEmailTaken, store.ErrVersionConflict,
	}},
	{http.StatusBadGateway, []error{cartsync.ErrRemoteUnavailable}},
	{http.StatusServiceUnavailable, []error{cartsync.ErrLocalUnavailable}},
}

func statusFor(err error) int {
	for _, group := range errorStatuses {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// writeError maps a domain error to its HTTP status. Unknown errors are
// logged and reported without their message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	var mergeErr *cartsync.MergeError
	if errors.As(err, &mergeErr) {
		respondError(w, http.StatusBadGateway, "cart merge incomplete", map[string]string{
			"merged":    fmt.Sprint(mergeErr.Merged),
			"skipped":   fmt.Sprint(mergeErr.Skipped),
			"remaining": fmt.Sprint(mergeErr.Remaining),
			"cause":     mergeErr.Err.Error(),
		})
		return
	}

	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
		respondError(w, status, "internal server error", nil)
		return
	}
	respondError(w, status, err.Error(), nil)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeJSON decodes and validates the request body into dst. An empty body
// decodes as an empty object. On failure it writes a 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeBody(r, dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body", map[string]string{"body": err.Error()})
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			respondError(w, http.StatusBadRequest, "invalid request body", nil)
			return false
		}
		details := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			details[fieldPath(fe.Namespace())] = rule
		}
		respondError(w, http.StatusBadRequest, "validation failed", details)
		return false
	}
	return true
}

// fieldPath drops the struct name from a validator namespace, "req.units[0].price" -> "units[0].price"
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
