package mockservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// TTLSeconds overrides the default token lifetime. A negative value mints
	// an already-expired token, which suites use to probe expiry handling.
	TTLSeconds int `json:"ttl_seconds"`
}

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// userPatchRequest distinguishes absent fields from empty ones.
type userPatchRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Role  *string `json:"role"`
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SKU         string  `json:"sku"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

type orderRequest struct {
	UserID int                `json:"user_id"`
	Items  []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type listData struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

type listBody struct {
	Data listData `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func writeList(w http.ResponseWriter, items any, total int) {
	writeJSON(w, http.StatusOK, listBody{Data: listData{Items: items, Total: total}})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "a JSON request body is required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return false
	}
	return true
}

// pathID parses the {id} path segment, rejecting anything that is not a plain
// non-negative integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", fmt.Sprintf("%q is not a valid id", raw))
		return 0, false
	}
	return id, true
}

func pagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	})
}

const serviceVersion = "1.4.2"

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "mock-api-service",
		"version": serviceVersion,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	users, total := s.store.listUsers(r.URL.Query().Get("role"), page, pageSize)
	writeList(w, users, total)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, found := s.store.getUser(id)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no user with id %d", id))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func validateUser(req userRequest) string {
	switch {
	case req.Name == "":
		return "name is required"
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		return "a valid email is required"
	case req.Role != "" && req.Role != "user" && req.Role != "admin":
		return "role must be user or admin"
	}
	return ""
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = sanitizeText(req.Name)
	if msg := validateUser(req); msg != "" {
		writeError(w, http.StatusBadRequest, "validation", msg)
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	user := s.store.createUser(req)
	w.Header().Set("Location", fmt.Sprintf("/users/%d", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = sanitizeText(req.Name)
	if msg := validateUser(req); msg != "" {
		writeError(w, http.StatusBadRequest, "validation", msg)
		return
	}
	user, found := s.store.updateUser(id, req)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no user with id %d", id))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req userPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil {
		clean := sanitizeText(*req.Name)
		if clean == "" {
			writeError(w, http.StatusBadRequest, "validation", "name cannot be empty")
			return
		}
		req.Name = &clean
	}
	if req.Email != nil && !strings.Contains(*req.Email, "@") {
		writeError(w, http.StatusBadRequest, "validation", "a valid email is required")
		return
	}
	if req.Role != nil && *req.Role != "user" && *req.Role != "admin" {
		writeError(w, http.StatusBadRequest, "validation", "role must be user or admin")
		return
	}
	user, found := s.store.patchUser(id, req)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no user with id %d", id))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !s.store.deleteUser(id) {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no user with id %d", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, found := s.store.getUser(id); !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no user with id %d", id))
		return
	}
	orders := s.store.ordersForUser(id)
	writeList(w, orders, len(orders))
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	products, total := s.store.listProducts(r.URL.Query().Get("category"), page, pageSize)
	writeList(w, products, total)
}

// handleProductInventory is the admin view of the catalog: every product in
// one page, with aggregate stock figures a regular caller never sees.
func (s *Server) handleProductInventory(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	products, units, value := s.store.inventory()
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"items":       products,
			"total":       len(products),
			"stock_units": units,
			"stock_value": value,
		},
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, found := s.store.getProduct(id)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no product with id %d", id))
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func validateProduct(req productRequest) string {
	switch {
	case req.Name == "":
		return "name is required"
	case req.SKU == "":
		return "sku is required"
	case req.Price <= 0:
		return "price must be positive"
	case req.Stock < 0:
		return "stock cannot be negative"
	}
	return ""
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = sanitizeText(req.Name)
	req.Description = sanitizeText(req.Description)
	if msg := validateProduct(req); msg != "" {
		writeError(w, http.StatusBadRequest, "validation", msg)
		return
	}
	product, err := s.store.createProduct(req)
	if err != nil {
		writeError(w, http.StatusConflict, "duplicate_sku", err.Error())
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/products/%d", product.ID))
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = sanitizeText(req.Name)
	req.Description = sanitizeText(req.Description)
	if msg := validateProduct(req); msg != "" {
		writeError(w, http.StatusBadRequest, "validation", msg)
		return
	}
	product, err := s.store.updateProduct(id, req)
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, errDuplicateSKU):
		writeError(w, http.StatusConflict, "duplicate_sku", err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		writeJSON(w, http.StatusOK, product)
	}
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !s.store.deleteProduct(id) {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no product with id %d", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	orders, total := s.store.listOrders(r.URL.Query().Get("status"), page, pageSize)
	writeList(w, orders, total)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, found := s.store.getOrder(id)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no order with id %d", id))
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "validation", "an order needs at least one item")
		return
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			writeError(w, http.StatusBadRequest, "validation", "item quantities must be at least 1")
			return
		}
	}
	order, err := s.store.createOrder(req.UserID, req.Items)
	switch {
	case errors.Is(err, errUnknownReference):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, errInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		w.Header().Set("Location", fmt.Sprintf("/orders/%d", order.ID))
		writeJSON(w, http.StatusCreated, order)
	}
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	order, err := s.store.setOrderStatus(id, req.Status)
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, errBadTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		writeJSON(w, http.StatusOK, order)
	}
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // body is optional
	}
	order, err := s.store.cancelOrder(id, sanitizeText(req.Reason))
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, errBadTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		writeJSON(w, http.StatusOK, order)
	}
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !s.store.deleteOrder(id) {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no order with id %d", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFlaky fails with a 503 the first N times a key is requested, then
// succeeds. N comes from the failures query parameter, default 2.
func (s *Server) handleFlaky(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	failures := 2
	if raw := r.URL.Query().Get("failures"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "validation", "failures must be a non-negative integer")
			return
		}
		failures = n
	}
	attempt := s.flaky.attempt(key)
	if attempt <= failures {
		writeError(w, http.StatusServiceUnavailable, "transient",
			fmt.Sprintf("simulated failure %d of %d", attempt, failures))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "recovered",
		"attempts": attempt,
	})
}

func (s *Server) handleFlakyReset(w http.ResponseWriter, r *http.Request) {
	s.flaky.reset(r.PathValue("key"))
	w.WriteHeader(http.StatusNoContent)
}

const maxSlowDelay = 10 * time.Second

// handleSlow waits for the requested delay before answering, honoring client
// cancellation.
func (s *Server) handleSlow(w http.ResponseWriter, r *http.Request) {
	delay := 100 * time.Millisecond
	if raw := r.URL.Query().Get("delay"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "validation", "delay must be a duration such as 250ms")
			return
		}
		delay = d
	}
	if delay > maxSlowDelay {
		delay = maxSlowDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-r.Context().Done():
		return
	case <-timer.C:
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"delayed_ms": delay.Milliseconds(),
	})
}
