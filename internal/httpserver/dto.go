package httpserver

import "github.com/MarkoPoloResearchLab/loyalty/pkg/loyalty"

type createAccountRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

type updateAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type topUpRequest struct {
	Balance string `json:"balance" binding:"required"`
}

type createPurchaseRequest struct {
	Name  string `json:"name" binding:"required"`
	Price string `json:"price" binding:"required"`
}

type idResponse struct {
	ID string `json:"id"`
}

type accountView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Balance  string `json:"balance"`
	Points   int64  `json:"points"`
	Category string `json:"category"`
}

type accountSummaryView struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Balance        string `json:"balance"`
	Points         int64  `json:"points"`
	Category       string `json:"category"`
	TotalPurchases int64  `json:"totalPurchases"`
	LastPurchase   string `json:"lastPurchase,omitempty"`
}

type purchaseView struct {
	ID           string `json:"id"`
	AccountID    string `json:"accountId"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Status       string `json:"status"`
	PurchaseDate string `json:"purchaseDate"`
}

type errorResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func buildAccountView(account loyalty.Account) accountView {
	return accountView{
		ID:       account.AccountID.String(),
		Username: account.Username.String(),
		Email:    account.Email.String(),
		Balance:  account.Balance.String(),
		Points:   account.Points,
		Category: account.Category.String(),
	}
}

func buildSummaryView(summary loyalty.AccountSummary) accountSummaryView {
	view := accountSummaryView{
		ID:             summary.AccountID.String(),
		Username:       summary.Username.String(),
		Email:          summary.Email.String(),
		Balance:        summary.Balance.String(),
		Points:         summary.Points,
		Category:       summary.Category.String(),
		TotalPurchases: summary.PurchaseCount,
	}
	if summary.LastPurchaseUnixUTC != 0 {
		view.LastPurchase = formatTimestamp(summary.LastPurchaseUnixUTC)
	}
	return view
}

func buildPurchaseView(purchase loyalty.Purchase) purchaseView {
	return purchaseView{
		ID:           purchase.TransactionID.String(),
		AccountID:    purchase.AccountID.String(),
		Name:         purchase.ItemName.String(),
		Price:        purchase.Price.String(),
		Status:       purchase.Status.String(),
		PurchaseDate: formatTimestamp(purchase.CreatedUnixUTC),
	}
}
