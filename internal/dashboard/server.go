package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/authocard/internal/notify"
	"github.com/MarkoPoloResearchLab/authocard/internal/wallet"
	"github.com/MarkoPoloResearchLab/authocard/pkg/cardledger"
)

const (
	serverShutdownTimeout = 5 * time.Second
	maxRPCBodyBytes       = 1 << 20
)

// Run starts the dashboard HTTP server together with the background fraud and
// hold sweep timers. It blocks until the context is cancelled or the server
// fails.
func Run(ctx context.Context, cfg Config, service *cardledger.Service, userWallet wallet.Wallet, notifier notify.Notifier) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if service == nil {
		return fmt.Errorf("card ledger service is required")
	}
	if userWallet == nil {
		return fmt.Errorf("wallet is required")
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	handler := newHTTPHandler(cfg, service, userWallet, notifier, logger)
	router := NewRouter(cfg, handler)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go runTimers(ctx, cfg, service, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard api listening", zap.String("addr", cfg.ListenAddr))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case <-ctx.Done():
	case serveErr := <-errCh:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("server shutdown", zap.Error(shutdownErr))
	}
	return nil
}

func runTimers(ctx context.Context, cfg Config, service *cardledger.Service, logger *zap.Logger) {
	fraudTicker := time.NewTicker(cfg.FraudCheckInterval)
	defer fraudTicker.Stop()
	sweepTicker := time.NewTicker(cfg.HoldSweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fraudTicker.C:
			result, fraudErr := service.SimulateFraudCheck(ctx)
			if fraudErr != nil {
				logger.Warn("fraud sweep failed", zap.Error(fraudErr))
				continue
			}
			if len(result.Flagged) > 0 {
				logger.Info("fraud sweep flagged cards", zap.Int("flagged", len(result.Flagged)))
			}
		case <-sweepTicker.C:
			if sweepErr := service.ClearExpiredHolds(ctx); sweepErr != nil {
				logger.Warn("hold sweep failed", zap.Error(sweepErr))
			}
		}
	}
}

// NewRouter wires the dashboard routes onto a gin engine.
func NewRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/cards", handler.handleListCards)
		api.POST("/cards", handler.handleCreateCard)
		api.GET("/cards/:id", handler.handleGetCard)
		api.DELETE("/cards/:id", handler.handleDeleteCard)
		api.POST("/cards/:id/freeze", handler.handleFreeze)
		api.PATCH("/cards/:id/limits", handler.handleUpdateLimits)
		api.POST("/cards/:id/deposits", handler.handleDeposit)
		api.GET("/cards/:id/processing", handler.handleProcessing)

		api.GET("/transactions", handler.handleListTransactions)
		api.POST("/transactions/demo", handler.handleDemoTransactions)
		api.GET("/activity", handler.handleActivityLog)

		api.POST("/fraud-check", handler.handleFraudCheck)
		api.GET("/fraud-alert", handler.handleFraudAlert)
		api.POST("/fraud-alert/dismiss", handler.handleDismissFraudAlert)

		api.GET("/wallet", handler.handleWalletStatus)
		api.POST("/wallet/connect", handler.handleWalletConnect)
		api.POST("/wallet/disconnect", handler.handleWalletDisconnect)

		api.POST("/send-card-email", handler.handleSendCardEmail)
		api.POST("/solana/rpc", handler.handleRPCProxy)
	}
	return router
}

type httpHandler struct {
	cfg         Config
	service     *cardledger.Service
	userWallet  wallet.Wallet
	notifier    notify.Notifier
	logger      *zap.Logger
	rpcUpstream string
	rpcClient   *http.Client
}

func newHTTPHandler(cfg Config, service *cardledger.Service, userWallet wallet.Wallet, notifier notify.Notifier, logger *zap.Logger) *httpHandler {
	return &httpHandler{
		cfg:         cfg,
		service:     service,
		userWallet:  userWallet,
		notifier:    notifier,
		logger:      logger,
		rpcUpstream: ResolveRPCUpstream(cfg.RPCUpstream),
		rpcClient:   &http.Client{Timeout: cfg.RPCTimeout},
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

func (handler *httpHandler) handleHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createCardRequest struct {
	Name                      string          `json:"name"`
	Type                      string          `json:"type"`
	ExpiryDate                string          `json:"expiryDate"`
	DailyLimit                decimal.Decimal `json:"dailyLimit"`
	PerTransactionLimit       decimal.Decimal `json:"perTransactionLimit"`
	Categories                []string        `json:"categories"`
	AutoFreezeAfterInactivity bool            `json:"autoFreezeAfterInactivity"`
	TwoFactorAuth             bool            `json:"twoFactorAuth"`
	InstantNotifications      bool            `json:"instantNotifications"`
	ActiveFrom                int64           `json:"activeFrom"`
	ActiveUntil               int64           `json:"activeUntil"`
	NotifyEmail               string          `json:"notifyEmail"`
}

func (handler *httpHandler) handleCreateCard(ctx *gin.Context) {
	var request createCardRequest
	if bindErr := ctx.ShouldBindJSON(&request); bindErr != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", bindErr.Error()))
		return
	}

	categories := make([]cardledger.CardCategory, 0, len(request.Categories))
	for _, raw := range request.Categories {
		categories = append(categories, cardledger.CardCategory(raw))
	}

	config := cardledger.CardConfig{
		Name:                      request.Name,
		Type:                      cardledger.CardType(request.Type),
		ExpiryDate:                request.ExpiryDate,
		DailyLimit:                request.DailyLimit,
		PerTransactionLimit:       request.PerTransactionLimit,
		Categories:                categories,
		AutoFreeze:                request.AutoFreezeAfterInactivity,
		TwoFactorAuth:             request.TwoFactorAuth,
		InstantNotify:             request.InstantNotifications,
		ActiveFromUnixUTC:         request.ActiveFrom,
		ActiveUntilUnixUTC:        request.ActiveUntil,
	}

	card, createErr := handler.service.CreateCard(ctx.Request.Context(), config)
	if createErr != nil {
		if errors.Is(createErr, cardledger.ErrInvalidConfiguration) {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_configuration", createErr.Error()))
			return
		}
		ctx.JSON(http.StatusInternalServerError, errorResponse("store_error", createErr.Error()))
		return
	}

	if request.NotifyEmail != "" {
		if notifyErr := handler.notifier.SendCardCreated(ctx.Request.Context(), request.NotifyEmail, card.Name); notifyErr != nil {
			handler.logger.Warn("card created notification failed", zap.String("card_id", card.ID), zap.Error(notifyErr))
		}
	}

	ctx.JSON(http.StatusCreated, gin.H{"card": card})
}

func (handler *httpHandler) handleListCards(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"cards": handler.service.Cards()})
}

func (handler *httpHandler) handleGetCard(ctx *gin.Context) {
	card, found := handler.service.Card(ctx.Param("id"))
	if !found {
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_card", "card not found"))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"card": card})
}

func (handler *httpHandler) handleDeleteCard(ctx *gin.Context) {
	deleteErr := handler.service.DeleteCard(ctx.Request.Context(), ctx.Param("id"))
	if deleteErr != nil {
		switch {
		case errors.Is(deleteErr, cardledger.ErrCardBusy):
			ctx.JSON(http.StatusConflict, errorResponse("card_busy", deleteErr.Error()))
		case errors.Is(deleteErr, cardledger.ErrCardNotDisposable):
			ctx.JSON(http.StatusForbidden, errorResponse("card_not_disposable", deleteErr.Error()))
		default:
			ctx.JSON(http.StatusInternalServerError, errorResponse("store_error", deleteErr.Error()))
		}
		return
	}
	ctx.Status(http.StatusNoContent)
}

type freezeRequest struct {
	Frozen bool `json:"frozen"`
}

func (handler *httpHandler) handleFreeze(ctx *gin.Context) {
	var request freezeRequest
	if bindErr := ctx.ShouldBindJSON(&request); bindErr != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", bindErr.Error()))
		return
	}

	cardID := ctx.Param("id")
	if _, found := handler.service.Card(cardID); !found {
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_card", "card not found"))
		return
	}

	if freezeErr := handler.service.SetFreeze(ctx.Request.Context(), cardID, request.Frozen); freezeErr != nil {
		if errors.Is(freezeErr, cardledger.ErrCardBusy) {
			ctx.JSON(http.StatusConflict, errorResponse("card_busy", freezeErr.Error()))
			return
		}
		ctx.JSON(http.StatusInternalServerError, errorResponse("store_error", freezeErr.Error()))
		return
	}

	card, _ := handler.service.Card(cardID)
	ctx.JSON(http.StatusOK, gin.H{"card": card})
}

type updateLimitsRequest struct {
	DailyLimit          decimal.Decimal `json:"dailyLimit"`
	PerTransactionLimit decimal.Decimal `json:"perTransactionLimit"`
}

func (handler *httpHandler) handleUpdateLimits(ctx *gin.Context) {
	var request updateLimitsRequest
	if bindErr := ctx.ShouldBindJSON(&request); bindErr != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", bindErr.Error()))
		return
	}

	cardID := ctx.Param("id")
	if _, found := handler.service.Card(cardID); !found {
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_card", "card not found"))
		return
	}

	if updateErr := handler.service.UpdateLimits(ctx.Request.Context(), cardID, request.DailyLimit, request.PerTransactionLimit); updateErr != nil {
		if errors.Is(updateErr, cardledger.ErrInvalidLimit) {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_limit", updateErr.Error()))
			return
		}
		ctx.JSON(http.StatusInternalServerError, errorResponse("store_error", updateErr.Error()))
		return
	}

	card, _ := handler.service.Card(cardID)
	ctx.JSON(http.StatusOK, gin.H{"card": card})
}

type depositRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	DepositAddress string          `json:"depositAddress"`
}

func (handler *httpHandler) handleDeposit(ctx *gin.Context) {
	var request depositRequest
	if bindErr := ctx.ShouldBindJSON(&request); bindErr != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", bindErr.Error()))
		return
	}
	if !request.Amount.IsPositive() {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_amount", "deposit amount must be positive"))
		return
	}

	cardID := ctx.Param("id")
	card, found := handler.service.Card(cardID)
	if !found {
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_card", "card not found"))
		return
	}

	destination := request.DepositAddress
	if destination == "" {
		destination = card.ID
	}

	signature, transferErr := handler.userWallet.Transfer(ctx.Request.Context(), destination, request.Amount)
	if transferErr != nil {
		wrapped := fmt.Errorf("%w: %v", cardledger.ErrTransferFailed, transferErr)
		handler.logger.Warn("wallet transfer failed", zap.String("card_id", cardID), zap.Error(wrapped))
		ctx.JSON(http.StatusBadGateway, errorResponse("transfer_failed", wrapped.Error()))
		return
	}

	if depositErr := handler.service.RecordDeposit(ctx.Request.Context(), cardID, request.Amount, signature); depositErr != nil {
		switch {
		case errors.Is(depositErr, cardledger.ErrInvalidAmount):
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_amount", depositErr.Error()))
		case errors.Is(depositErr, cardledger.ErrUnknownCard):
			ctx.JSON(http.StatusNotFound, errorResponse("unknown_card", depositErr.Error()))
		default:
			ctx.JSON(http.StatusInternalServerError, errorResponse("store_error", depositErr.Error()))
		}
		return
	}

	updated, _ := handler.service.Card(cardID)
	ctx.JSON(http.StatusOK, gin.H{"card": updated, "txSignature": signature})
}

func (handler *httpHandler) handleProcessing(ctx *gin.Context) {
	cardID := ctx.Param("id")
	card, found := handler.service.Card(cardID)
	if !found {
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_card", "card not found"))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"processing":      handler.service.IsProcessing(cardID),
		"processingUntil": card.ProcessingUntilUnixUTC,
	})
}

func (handler *httpHandler) handleListTransactions(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"transactions": handler.service.Transactions()})
}

func (handler *httpHandler) handleDemoTransactions(ctx *gin.Context) {
	batch, generateErr := handler.service.GenerateDemoTransactions(ctx.Request.Context())
	if generateErr != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("store_error", generateErr.Error()))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": batch})
}

func (handler *httpHandler) handleActivityLog(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"activity": handler.service.ActivityLog()})
}

func (handler *httpHandler) handleFraudCheck(ctx *gin.Context) {
	result, checkErr := handler.service.SimulateFraudCheck(ctx.Request.Context())
	if checkErr != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("store_error", checkErr.Error()))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"evaluated": result.Evaluated, "flagged": result.Flagged})
}

func (handler *httpHandler) handleFraudAlert(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"dismissed":     handler.service.FraudAlertDismissed(),
		"highRiskCards": handler.service.HighRiskCards(),
	})
}

func (handler *httpHandler) handleDismissFraudAlert(ctx *gin.Context) {
	handler.service.DismissFraudAlert()
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleWalletStatus(ctx *gin.Context) {
	if !handler.userWallet.Connected() {
		ctx.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	balance, balanceErr := handler.userWallet.Balance(ctx.Request.Context())
	if balanceErr != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("wallet_error", balanceErr.Error()))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"connected": true,
		"address":   handler.userWallet.CurrentAddress(),
		"balance":   balance,
	})
}

func (handler *httpHandler) handleWalletConnect(ctx *gin.Context) {
	address, connectErr := handler.userWallet.Connect(ctx.Request.Context())
	if connectErr != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("wallet_error", connectErr.Error()))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"connected": true, "address": address})
}

func (handler *httpHandler) handleWalletDisconnect(ctx *gin.Context) {
	handler.userWallet.Disconnect()
	ctx.JSON(http.StatusOK, gin.H{"connected": false})
}

type sendCardEmailRequest struct {
	Email    string `json:"email"`
	CardName string `json:"cardName"`
}

func (handler *httpHandler) handleSendCardEmail(ctx *gin.Context) {
	var request sendCardEmailRequest
	if bindErr := ctx.ShouldBindJSON(&request); bindErr != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", bindErr.Error()))
		return
	}
	if request.Email == "" || request.CardName == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", "email and cardName are required"))
		return
	}
	if sendErr := handler.notifier.SendCardCreated(ctx.Request.Context(), request.Email, request.CardName); sendErr != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("notify_error", sendErr.Error()))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sent": true})
}

func (handler *httpHandler) handleRPCProxy(ctx *gin.Context) {
	if handler.rpcUpstream == "" {
		ctx.JSON(http.StatusServiceUnavailable, errorResponse("rpc_unconfigured", "rpc upstream is not configured"))
		return
	}

	body, readErr := io.ReadAll(io.LimitReader(ctx.Request.Body, maxRPCBodyBytes))
	if readErr != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", readErr.Error()))
		return
	}

	upstreamRequest, requestErr := http.NewRequestWithContext(ctx.Request.Context(), http.MethodPost, handler.rpcUpstream, bytes.NewReader(body))
	if requestErr != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("rpc_error", requestErr.Error()))
		return
	}
	upstreamRequest.Header.Set("Content-Type", "application/json")

	upstreamResponse, doErr := handler.rpcClient.Do(upstreamRequest)
	if doErr != nil {
		ctx.JSON(http.StatusBadGateway, errorResponse("rpc_error", doErr.Error()))
		return
	}
	defer func() {
		_ = upstreamResponse.Body.Close()
	}()

	payload, payloadErr := io.ReadAll(upstreamResponse.Body)
	if payloadErr != nil {
		ctx.JSON(http.StatusBadGateway, errorResponse("rpc_error", payloadErr.Error()))
		return
	}
	ctx.Data(upstreamResponse.StatusCode, "application/json", payload)
}
