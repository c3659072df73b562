package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopworks/be-repair-core/internal/errors"
	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/scheduler"
	"github.com/shopworks/be-repair-core/internal/service"
)

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	jobs      *service.JobService
	orders    *service.OrderService
	parts     *service.PartOrderService
	activity  *service.ActivityService
	scheduler *scheduler.Scheduler
	log       *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(
	jobs *service.JobService,
	orders *service.OrderService,
	parts *service.PartOrderService,
	activity *service.ActivityService,
	sched *scheduler.Scheduler,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		jobs:      jobs,
		orders:    orders,
		parts:     parts,
		activity:  activity,
		scheduler: sched,
		log:       log,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrCodeConflict:
		status = http.StatusConflict
	case errors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case errors.ErrCodeUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// requireIDs pulls the entity id and tenant id query parameters.
func requireIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id < 1 {
		http.Error(w, "ID is required", http.StatusBadRequest)
		return 0, 0, false
	}
	businessID, ok := requireBusinessID(w, r)
	if !ok {
		return 0, 0, false
	}
	return id, businessID, true
}

func requireBusinessID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	businessID, err := strconv.ParseInt(r.URL.Query().Get("business_id"), 10, 64)
	if err != nil || businessID < 1 {
		http.Error(w, "Business ID is required", http.StatusBadRequest)
		return 0, false
	}
	return businessID, true
}

func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	return page, pageSize
}

func optionalString(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

// actorID extracts the acting user from the X-User-ID header. Absent or
// malformed means a system actor.
func actorID(r *http.Request) *int64 {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return nil
	}
	return &id
}

// CreateJob handles create job HTTP requests
func (h *HTTPHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BusinessID < 1 {
		http.Error(w, "Business ID is required", http.StatusBadRequest)
		return
	}

	job, err := h.jobs.Create(r.Context(), &req, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// GetJob handles get job HTTP requests
func (h *HTTPHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.Get(r.Context(), id, businessID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ListJobs handles list jobs HTTP requests
func (h *HTTPHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	businessID, ok := requireBusinessID(w, r)
	if !ok {
		return
	}

	var assigneeID *int64
	if raw := r.URL.Query().Get("assignee_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			assigneeID = &id
		}
	}

	page, pageSize := pagination(r)
	jobs, err := h.jobs.List(r.Context(), businessID, optionalString(r, "status"), assigneeID, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":     jobs,
		"page":     page,
		"pageSize": pageSize,
	})
}

// UpdateJob handles update job HTTP requests
func (h *HTTPHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	var req service.UpdateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := h.jobs.Update(r.Context(), id, businessID, &req, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// DeleteJob handles delete job HTTP requests
func (h *HTTPHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	found, err := h.jobs.Delete(r.Context(), id, businessID, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddJobUpdate handles add job update HTTP requests
func (h *HTTPHandler) AddJobUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	var req struct {
		Body   string `json:"body"`
		Public bool   `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	upd, err := h.jobs.AddUpdate(r.Context(), id, businessID, actorID(r), req.Body, req.Public)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, upd)
}

// TrackJob handles the unauthenticated customer tracking lookup. The
// customer proves ownership with the job code plus the email on file.
func (h *HTTPHandler) TrackJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	businessID, ok := requireBusinessID(w, r)
	if !ok {
		return
	}
	code := r.URL.Query().Get("code")
	email := r.URL.Query().Get("email")
	if code == "" || email == "" {
		http.Error(w, "Job code and email are required", http.StatusBadRequest)
		return
	}

	job, updates, err := h.jobs.Track(r.Context(), businessID, code, email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":     job,
		"updates": updates,
	})
}

// CreateOrder handles create order HTTP requests
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BusinessID < 1 {
		http.Error(w, "Business ID is required", http.StatusBadRequest)
		return
	}

	order, err := h.orders.Create(r.Context(), &req, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// GetOrder handles get order HTTP requests
func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), id, businessID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ListOrders handles list orders HTTP requests
func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	businessID, ok := requireBusinessID(w, r)
	if !ok {
		return
	}

	page, pageSize := pagination(r)
	orders, err := h.orders.List(r.Context(), businessID, optionalString(r, "status"), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders":   orders,
		"page":     page,
		"pageSize": pageSize,
	})
}

// UpdateOrder handles non-status order update HTTP requests
func (h *HTTPHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	var req service.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.orders.Update(r.Context(), id, businessID, &req, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus handles order status transition HTTP requests. The
// optional notify_customer field overrides the stored arrival preference
// for this call only.
func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	var req struct {
		Status         string `json:"status"`
		NotifyCustomer *bool  `json:"notify_customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, "Status is required", http.StatusBadRequest)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, businessID, req.Status, req.NotifyCustomer, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// DeleteOrder handles delete order HTTP requests
func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	found, err := h.orders.Delete(r.Context(), id, businessID, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreatePartOrder handles create part order HTTP requests
func (h *HTTPHandler) CreatePartOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.CreatePartOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BusinessID < 1 {
		http.Error(w, "Business ID is required", http.StatusBadRequest)
		return
	}

	po, err := h.parts.Create(r.Context(), &req, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, po)
}

// GetPartOrder handles get part order HTTP requests
func (h *HTTPHandler) GetPartOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	po, err := h.parts.Get(r.Context(), id, businessID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, po)
}

// ListPartOrders handles list part orders HTTP requests
func (h *HTTPHandler) ListPartOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	businessID, ok := requireBusinessID(w, r)
	if !ok {
		return
	}

	page, pageSize := pagination(r)
	parts, err := h.parts.List(r.Context(), businessID, optionalString(r, "status"), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"part_orders": parts,
		"page":        page,
		"pageSize":    pageSize,
	})
}

// PartOrderHistory handles part order history HTTP requests
func (h *HTTPHandler) PartOrderHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	history, err := h.parts.History(r.Context(), id, businessID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

// UpdatePartOrderStatus handles part order status transition HTTP requests
func (h *HTTPHandler) UpdatePartOrderStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string  `json:"status"`
		Note   *string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, "Status is required", http.StatusBadRequest)
		return
	}

	po, err := h.parts.UpdateStatus(r.Context(), id, businessID, req.Status, req.Note, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, po)
}

// DeletePartOrder handles delete part order HTTP requests
func (h *HTTPHandler) DeletePartOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, businessID, ok := requireIDs(w, r)
	if !ok {
		return
	}

	found, err := h.parts.Delete(r.Context(), id, businessID, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "Part order not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListActivity handles activity feed HTTP requests. When entity_type and
// entity_id are present the feed is scoped to that entity, otherwise it is
// the tenant-wide feed.
func (h *HTTPHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	businessID, ok := requireBusinessID(w, r)
	if !ok {
		return
	}

	page, pageSize := pagination(r)
	entityType := r.URL.Query().Get("entity_type")
	entityID, _ := strconv.ParseInt(r.URL.Query().Get("entity_id"), 10, 64)

	var entries interface{}
	var err error
	if entityType != "" && entityID > 0 {
		entries, err = h.activity.ListForEntity(r.Context(), businessID, entityType, entityID, pageSize)
	} else {
		entries, err = h.activity.ListForBusiness(r.Context(), businessID, pageSize, (page-1)*pageSize)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":  entries,
		"page":     page,
		"pageSize": pageSize,
	})
}

// TriggerTask handles manual scheduled task trigger HTTP requests
func (h *HTTPHandler) TriggerTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Task string `json:"task"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Task == "" {
		http.Error(w, "Task name is required", http.StatusBadRequest)
		return
	}

	if err := h.scheduler.RunNow(r.Context(), req.Task); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "triggered"})
}
