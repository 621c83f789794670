package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"orderflow/internal/service/approval/application"
	"orderflow/internal/service/approval/domain"
)

// ApprovalHandler 封装了审批服务的 HTTP 处理器。
// 这里只做参数搬运和错误码映射，业务规则全部在应用层与领域层。
type ApprovalHandler struct {
	service *application.ApprovalService
	gate    *application.PaymentGate
}

// NewApprovalHandler 创建一个新的 HTTP 处理器实例
func NewApprovalHandler(service *application.ApprovalService, gate *application.PaymentGate) *ApprovalHandler {
	return &ApprovalHandler{service: service, gate: gate}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *ApprovalHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/orders/submit", h.submitHandler)
	mux.HandleFunc("/orders/decide", h.decideHandler)
	mux.HandleFunc("/orders/cancel", h.cancelHandler)
	mux.HandleFunc("/orders/payment/authorize", h.authorizePaymentHandler)
	mux.HandleFunc("/orders/payment/confirm", h.confirmPaymentHandler)
	mux.HandleFunc("/orders/get", h.getOrderHandler)
	mux.HandleFunc("/orders/payable", h.payableHandler)
	mux.HandleFunc("/orders/by_owner", h.listByOwnerHandler)
}

type submitRequest struct {
	OwnerID string  `json:"ownerId"`
	TaxRate float64 `json:"taxRate"`
	Items   []struct {
		ProductID string  `json:"productId"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unitPrice"`
	} `json:"items"`
}

func (h *ApprovalHandler) submitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}

	order, err := domain.NewOrder(req.OwnerID, items, req.TaxRate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	view, err := h.service.SubmitForApproval(ctx, order)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *ApprovalHandler) decideHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req application.DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	view, err := h.service.Decide(ctx, &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ApprovalHandler) cancelHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	view, err := h.service.CancelOrder(ctx, req.OrderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ApprovalHandler) authorizePaymentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if err := h.gate.AuthorizePaymentAttemptByID(ctx, req.OrderID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authorized": true})
}

func (h *ApprovalHandler) confirmPaymentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req application.ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	view, err := h.gate.ConfirmPayment(ctx, &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ApprovalHandler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	view, err := h.service.GetOrder(ctx, r.URL.Query().Get("order_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ApprovalHandler) payableHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	payable, err := h.service.IsPayable(ctx, r.URL.Query().Get("order_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"payable": payable})
}

func (h *ApprovalHandler) listByOwnerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeJSONError(w, http.StatusBadRequest, "owner_id is required", "")
		return
	}
	views, err := h.service.ListOwnerOrders(ctx, ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// extractTraceContext 从请求头恢复上游传来的追踪上下文
func extractTraceContext(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

// writeDomainError 把领域错误映射为 HTTP 状态码。
// 四类结构化错误都原样向上暴露，不在核心里吞掉。
func writeDomainError(w http.ResponseWriter, err error) {
	var gateErr *domain.GateError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, domain.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error(), "")
	case errors.As(err, &gateErr):
		writeJSONError(w, http.StatusConflict, gateErr.Error(), string(gateErr.Reason))
	case errors.Is(err, domain.ErrInvalidState):
		writeJSONError(w, http.StatusConflict, err.Error(), "")
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message, reason string) {
	body := map[string]string{"error": message}
	if reason != "" {
		body["reason"] = reason
	}
	writeJSON(w, status, body)
}
