package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/grocart/storefront/internal/catalog"
	"github.com/grocart/storefront/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP responses. Anything
// unrecognized is a 500 with a generic body; storage details never leak.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var verr *orders.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": verr.Fields})
		return
	}

	var nf *catalog.NotFoundError
	if errors.As(err, &nf) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      nf.Error(),
			"product_id": nf.ProductID,
		})
		return
	}

	var stock *catalog.InsufficientStockError
	if errors.As(err, &stock) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      stock.Error(),
			"product_id": stock.ProductID,
			"requested":  stock.Requested,
			"available":  stock.Available,
		})
		return
	}

	var trans *orders.InvalidTransitionError
	if errors.As(err, &trans) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": trans.Error(),
			"from":  trans.From,
			"to":    trans.To,
		})
		return
	}

	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, orders.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
	default:
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
