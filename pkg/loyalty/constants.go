package loyalty

const (
	operationCreateAccount  = "create_account"
	operationCredit         = "credit"
	operationDebit          = "debit"
	operationAdjustPoints   = "adjust_points"
	operationRename         = "rename"
	operationRemoveAccount  = "remove_account"
	operationRecordPurchase = "record_purchase"
	operationRefund         = "refund"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)
