package httpserver

import (
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/loyalty/pkg/loyalty"
	"github.com/gin-gonic/gin"
)

const (
	errorAccountNotFound     = "account not found"
	errorTransactionNotFound = "transaction not found"
	errorDuplicateUsername   = "username already taken"
	errorDuplicateEmail      = "email already taken"
	errorAlreadyRefunded     = "purchase already refunded"
	errorInsufficientFunds   = "not enough balance"
	errorInvalidRequest      = "invalid request"
	errorInternal            = "internal server error"
)

func respondDomainError(requestContext *gin.Context, err error) {
	status, title := mapDomainError(err)
	requestContext.AbortWithStatusJSON(status, errorResponse{
		Status:  status,
		Error:   title,
		Message: err.Error(),
	})
}

func respondBadRequest(requestContext *gin.Context, err error) {
	requestContext.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Status:  http.StatusBadRequest,
		Error:   errorInvalidRequest,
		Message: err.Error(),
	})
}

func mapDomainError(source error) (int, string) {
	switch {
	case errors.Is(source, loyalty.ErrAccountNotFound):
		return http.StatusNotFound, errorAccountNotFound
	case errors.Is(source, loyalty.ErrTransactionNotFound):
		return http.StatusNotFound, errorTransactionNotFound
	case errors.Is(source, loyalty.ErrDuplicateUsername):
		return http.StatusConflict, errorDuplicateUsername
	case errors.Is(source, loyalty.ErrDuplicateEmail):
		return http.StatusConflict, errorDuplicateEmail
	case errors.Is(source, loyalty.ErrAlreadyRefunded):
		return http.StatusConflict, errorAlreadyRefunded
	case errors.Is(source, loyalty.ErrInsufficientFunds):
		return http.StatusPaymentRequired, errorInsufficientFunds
	case errors.Is(source, loyalty.ErrInvalidUsername),
		errors.Is(source, loyalty.ErrInvalidEmail),
		errors.Is(source, loyalty.ErrInvalidItemName),
		errors.Is(source, loyalty.ErrInvalidAmount),
		errors.Is(source, loyalty.ErrInvalidPrice),
		errors.Is(source, loyalty.ErrInvalidAccountID),
		errors.Is(source, loyalty.ErrInvalidTransactionID):
		return http.StatusBadRequest, errorInvalidRequest
	}
	return http.StatusInternalServerError, errorInternal
}
