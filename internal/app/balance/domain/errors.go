package domain

import "errors"

var (
	// ErrAccountNotFound 找不到帳戶 (身份目錄查無此人)
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAmount 金額不合法 (非正數、超過上限或精度錯誤)
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSelfTransfer 不可轉帳給自己
	ErrSelfTransfer = errors.New("unable to transfer funds to yourself")

	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTransientConflict 儲存層暫時性衝突 (鎖等待逾時、死鎖偵測)，可重試
	ErrTransientConflict = errors.New("transient conflict, safe to retry")

	// ErrTransactionAlreadyProcessed 交易已處理 (追蹤號重複)
	ErrTransactionAlreadyProcessed = errors.New("transaction already processed")

	// ErrWALWriteFailed WAL 寫入失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)
