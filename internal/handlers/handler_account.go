package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/dto"
	"github.com/paycore/paycore/internal/middleware"
)

// accountHandler handles HTTP requests related to accounts and their ledger
// history.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
	ledgerService  portssvc.LedgerSvcFacade
}

func newAccountHandler(as portssvc.AccountSvcFacade, ls portssvc.LedgerSvcFacade) *accountHandler {
	return &accountHandler{
		accountService: as,
		ledgerService:  ls,
	}
}

// registerAccountRoutes registers routes related to accounts.
func registerAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade, ledgerService portssvc.LedgerSvcFacade) {
	h := newAccountHandler(accountService, ledgerService)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:id", h.getAccount)
		accounts.GET("/:id/balance", h.getBalance)
		accounts.GET("/:id/entries", h.listEntries)
		accounts.GET("/:id/reconciliation", h.reconcile)
		accounts.DELETE("/:id", h.closeAccount)
	}
}

func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		writeError(c, logger, err, "Failed to create account")
		return
	}

	logger.Info("Account created", slog.String("account_id", account.AccountID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

func (h *accountHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	ownerUserID := c.Query("ownerUserID")
	if ownerUserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ownerUserID query parameter is required"})
		return
	}

	accounts, err := h.accountService.ListAccountsByOwner(c.Request.Context(), ownerUserID)
	if err != nil {
		writeError(c, logger, err, "Failed to list accounts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": dto.ToListAccountResponse(accounts)})
}

func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	account, err := h.accountService.GetAccountByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, logger, err, "Failed to fetch account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

func (h *accountHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, logger, err, "Failed to fetch balance")
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *accountHandler) listEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var upToSequence int64
	if raw := c.Query("upToSequence"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "upToSequence must be a non-negative integer"})
			return
		}
		upToSequence = parsed
	}

	entries, err := h.ledgerService.ListEntries(c.Request.Context(), c.Param("id"), upToSequence)
	if err != nil {
		writeError(c, logger, err, "Failed to list ledger entries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"accountID": c.Param("id"), "entries": dto.ToLedgerEntryResponses(entries)})
}

func (h *accountHandler) reconcile(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	result, err := h.ledgerService.ReconcileHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, logger, err, "Failed to reconcile ledger history")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *accountHandler) closeAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")

	if err := h.accountService.DeactivateAccount(c.Request.Context(), accountID, actorFrom(c)); err != nil {
		writeError(c, logger, err, "Failed to close account")
		return
	}

	logger.Info("Account closed", slog.String("account_id", accountID))
	c.Status(http.StatusNoContent)
}
