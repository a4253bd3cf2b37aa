package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/dto"
	"github.com/paycore/paycore/internal/middleware"
)

// transactionHandler handles HTTP requests related to transactions.
type transactionHandler struct {
	coordinatorService portssvc.CoordinatorSvcFacade
	auditService       portssvc.AuditSvcFacade
}

func newTransactionHandler(cs portssvc.CoordinatorSvcFacade, as portssvc.AuditSvcFacade) *transactionHandler {
	return &transactionHandler{
		coordinatorService: cs,
		auditService:       as,
	}
}

// registerTransactionRoutes registers routes related to transactions.
func registerTransactionRoutes(rg *gin.RouterGroup, coordinatorService portssvc.CoordinatorSvcFacade, auditService portssvc.AuditSvcFacade) {
	h := newTransactionHandler(coordinatorService, auditService)

	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.submitTransaction)
		transactions.GET("/:id", h.getTransaction)
		transactions.GET("/:id/audit", h.getAuditTrail)
	}
}

func (h *transactionHandler) submitTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SubmitTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	// The header wins over the body so gateway-level retry plumbing can set
	// the key without rewriting the payload.
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	logger = logger.With(
		slog.String("idempotency_key", req.IdempotencyKey),
		slog.String("transaction_type", string(req.Type)))
	logger.Info("Received transaction submission")

	txn, err := h.coordinatorService.SubmitTransaction(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		writeError(c, logger, err, "Failed to submit transaction")
		return
	}

	logger.Info("Transaction accepted",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("state", string(txn.State)))
	c.JSON(http.StatusAccepted, dto.ToTransactionResponse(txn))
}

func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("id")

	txn, err := h.coordinatorService.GetTransactionByID(c.Request.Context(), transactionID)
	if err != nil {
		writeError(c, logger, err, "Failed to fetch transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

func (h *transactionHandler) getAuditTrail(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("id")

	// Make sure the transaction exists so an empty trail is distinguishable
	// from an unknown id.
	if _, err := h.coordinatorService.GetTransactionByID(c.Request.Context(), transactionID); err != nil {
		writeError(c, logger, err, "Failed to fetch transaction")
		return
	}
	events, err := h.auditService.ListByTransactionID(c.Request.Context(), transactionID)
	if err != nil {
		writeError(c, logger, err, "Failed to fetch audit trail")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactionID": transactionID, "events": events})
}
