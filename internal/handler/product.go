package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
	"github.com/sakif/marketplace-api/internal/service"
)

// ProductHandler serves /api/productos. Reads are public; writes sit behind the guard.
type ProductHandler struct {
	products *service.ProductService
	logger   *slog.Logger
}

func NewProductHandler(products *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// HandleList returns products, newest first.
//
// HTTP: GET /api/productos?usuario=<accountId>&limit=20&offset=0
// RESPONSE: {state, productos: [...], total: <count in this page>}
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"productos": products, "total": len(products)})
}

// HandleGet → GET /api/productos/{id} → {state, producto}
func (h *ProductHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"producto": product})
}

// HandleCreate stores a product owned by the caller. Any usuarioId in the
// body is ignored.
//
// HTTP: POST /api/productos
// RESPONSE: 201 {state, producto}
func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	var in model.ProductPatch
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	product, err := h.products.Create(r.Context(), caller, in)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"producto": product})
}

// HandleUpdate → PUT /api/productos/{id} → {state, producto}
func (h *ProductHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	var patch model.ProductPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	product, err := h.products.Update(r.Context(), caller, chi.URLParam(r, "id"), patch)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"producto": product})
}

// HandleDelete → DELETE /api/productos/{id} → {state, producto: deleted product}
func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	product, err := h.products.Delete(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"producto": product})
}

func parseProductFilter(r *http.Request) (repository.ProductFilter, error) {
	q := r.URL.Query()
	filter := repository.ProductFilter{OwnerID: q.Get("usuario")}

	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

// intParam parses an optional integer query parameter. Empty means 0.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
