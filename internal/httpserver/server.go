package httpserver

import (
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/loyalty/pkg/loyalty"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const timestampLayout = "2006-01-02T15:04:05"

type httpHandler struct {
	service *loyalty.Service
	logger  *zap.Logger
}

// NewRouter builds the gin engine with all account and purchase routes.
func NewRouter(cfg Config, service *loyalty.Service, logger *zap.Logger) *gin.Engine {
	handler := &httpHandler{service: service, logger: logger}
	router := gin.New()
	router.Use(gin.Recovery())
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete}
		router.Use(cors.New(corsConfig))
	}

	api := router.Group("/api")
	api.GET("/accounts", handler.listAccounts)
	api.POST("/accounts", handler.createAccount)
	api.GET("/accounts/:accountId", handler.getAccount)
	api.PATCH("/accounts/:accountId", handler.updateAccount)
	api.PATCH("/accounts/:accountId/balance", handler.topUpBalance)
	api.DELETE("/accounts/:accountId", handler.deleteAccount)
	api.GET("/purchases", handler.listPurchases)
	api.GET("/purchases/:purchaseId", handler.getPurchase)
	api.POST("/purchases/:accountId", handler.createPurchase)
	api.PATCH("/purchases/:purchaseId/refund", handler.refundPurchase)
	return router
}

func (handler *httpHandler) listAccounts(requestContext *gin.Context) {
	accounts, err := handler.service.ListAccounts(requestContext.Request.Context())
	if err != nil {
		handler.logger.Warn("list accounts failed", zap.Error(err))
		respondDomainError(requestContext, err)
		return
	}
	if len(accounts) == 0 {
		requestContext.Status(http.StatusNoContent)
		return
	}
	views := make([]accountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, buildAccountView(account))
	}
	requestContext.JSON(http.StatusOK, views)
}

func (handler *httpHandler) createAccount(requestContext *gin.Context) {
	var request createAccountRequest
	if err := requestContext.ShouldBindJSON(&request); err != nil {
		respondBadRequest(requestContext, err)
		return
	}
	username, err := loyalty.NewUsername(request.Username)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	email, err := loyalty.NewEmail(request.Email)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	accountID, err := handler.service.CreateAccount(requestContext.Request.Context(), username, email)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	requestContext.JSON(http.StatusCreated, idResponse{ID: accountID.String()})
}

func (handler *httpHandler) getAccount(requestContext *gin.Context) {
	accountID, err := loyalty.NewAccountID(requestContext.Param("accountId"))
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	summary, err := handler.service.Summarize(requestContext.Request.Context(), accountID)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	requestContext.JSON(http.StatusOK, buildSummaryView(summary))
}

func (handler *httpHandler) updateAccount(requestContext *gin.Context) {
	accountID, err := loyalty.NewAccountID(requestContext.Param("accountId"))
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	var request updateAccountRequest
	if err := requestContext.ShouldBindJSON(&request); err != nil {
		respondBadRequest(requestContext, err)
		return
	}
	update, err := buildAccountUpdate(request)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	if err := handler.service.Rename(requestContext.Request.Context(), accountID, update); err != nil {
		respondDomainError(requestContext, err)
		return
	}
	summary, err := handler.service.Summarize(requestContext.Request.Context(), accountID)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	requestContext.JSON(http.StatusOK, buildSummaryView(summary))
}

func (handler *httpHandler) topUpBalance(requestContext *gin.Context) {
	accountID, err := loyalty.NewAccountID(requestContext.Param("accountId"))
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	var request topUpRequest
	if err := requestContext.ShouldBindJSON(&request); err != nil {
		respondBadRequest(requestContext, err)
		return
	}
	amount, err := loyalty.NewMoneyFromString(request.Balance)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	if err := handler.service.Credit(requestContext.Request.Context(), accountID, amount); err != nil {
		respondDomainError(requestContext, err)
		return
	}
	account, err := handler.service.GetAccount(requestContext.Request.Context(), accountID)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	requestContext.JSON(http.StatusOK, buildAccountView(account))
}

func (handler *httpHandler) deleteAccount(requestContext *gin.Context) {
	accountID, err := loyalty.NewAccountID(requestContext.Param("accountId"))
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	if err := handler.service.RemoveAccount(requestContext.Request.Context(), accountID); err != nil {
		respondDomainError(requestContext, err)
		return
	}
	requestContext.Status(http.StatusNoContent)
}

func (handler *httpHandler) listPurchases(requestContext *gin.Context) {
	purchases, err := handler.service.ListPurchases(requestContext.Request.Context())
	if err != nil {
		handler.logger.Warn("list purchases failed", zap.Error(err))
		respondDomainError(requestContext, err)
		return
	}
	if len(purchases) == 0 {
		requestContext.Status(http.StatusNoContent)
		return
	}
	views := make([]purchaseView, 0, len(purchases))
	for _, purchase := range purchases {
		views = append(views, buildPurchaseView(purchase))
	}
	requestContext.JSON(http.StatusOK, views)
}

func (handler *httpHandler) getPurchase(requestContext *gin.Context) {
	transactionID, err := loyalty.NewTransactionID(requestContext.Param("purchaseId"))
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	purchase, err := handler.service.GetPurchase(requestContext.Request.Context(), transactionID)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	requestContext.JSON(http.StatusOK, buildPurchaseView(purchase))
}

func (handler *httpHandler) createPurchase(requestContext *gin.Context) {
	accountID, err := loyalty.NewAccountID(requestContext.Param("accountId"))
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	var request createPurchaseRequest
	if err := requestContext.ShouldBindJSON(&request); err != nil {
		respondBadRequest(requestContext, err)
		return
	}
	itemName, err := loyalty.NewItemName(request.Name)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	price, err := loyalty.NewPriceFromString(request.Price)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	transactionID, err := handler.service.RecordPurchase(requestContext.Request.Context(), accountID, itemName, price)
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	requestContext.JSON(http.StatusCreated, idResponse{ID: transactionID.String()})
}

func (handler *httpHandler) refundPurchase(requestContext *gin.Context) {
	transactionID, err := loyalty.NewTransactionID(requestContext.Param("purchaseId"))
	if err != nil {
		respondDomainError(requestContext, err)
		return
	}
	if err := handler.service.Refund(requestContext.Request.Context(), transactionID); err != nil {
		respondDomainError(requestContext, err)
		return
	}
	requestContext.Status(http.StatusOK)
}

func buildAccountUpdate(request updateAccountRequest) (loyalty.AccountUpdate, error) {
	var update loyalty.AccountUpdate
	if request.Username != "" {
		username, err := loyalty.NewUsername(request.Username)
		if err != nil {
			return loyalty.AccountUpdate{}, err
		}
		update.Username = &username
	}
	if request.Email != "" {
		email, err := loyalty.NewEmail(request.Email)
		if err != nil {
			return loyalty.AccountUpdate{}, err
		}
		update.Email = &email
	}
	return update, nil
}

func formatTimestamp(unixUTC int64) string {
	return time.Unix(unixUTC, 0).UTC().Format(timestampLayout)
}
