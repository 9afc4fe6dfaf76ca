package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/domain"
)

// Store 是帳務持久層的抽象 (outbound port)
type Store interface {
	// Begin 開啟一個原子單元
	// 呼叫端必須保證最後呼叫 Commit 或 Rollback 其中之一
	Begin(ctx context.Context) (Tx, error)

	// FindAccount 無鎖讀取，供唯讀查詢使用
	// 帳戶不存在時回傳 ok=false，不算錯誤
	FindAccount(ctx context.Context, userID int64) (account *domain.Account, ok bool, err error)
}

// Tx 是一個原子單元的範圍把手，取代閉包式的交易包裝：
// 由操作開頭明確取得，任何出口 (成功、驗證失敗、panic) 都必須
// Commit 或 Rollback。所有帳戶鎖在原子單元結束時一併釋放
type Tx interface {
	// Lock 鎖定帳戶集合：去重、依升冪排序後逐一取得互斥鎖
	// 一次操作會碰到的帳戶必須在這裡一次鎖齊，不得中途加鎖
	Lock(userIDs ...int64) error

	// GetOrCreate 取得已鎖定的帳戶，不存在則以零餘額建立
	// 並發首次建立的唯一鍵碰撞視為良性競爭：記 Info log 後重讀，
	// 呼叫端不會觀察到失敗。呼叫前必須先用 Lock 鎖定該帳戶
	GetOrCreate(userID int64) (*domain.Account, error)

	// SaveBalance 回寫帳戶餘額
	SaveBalance(account *domain.Account) error

	// AppendRecord 追加一筆流水，回傳儲存層配發的紀錄 ID
	AppendRecord(record *domain.TransactionRecord) (int64, error)

	// RefSeen 檢查外部追蹤號是否已處理過
	// 未見過的追蹤號會在 Commit 時一併標記為已處理
	RefSeen(refID uuid.UUID) (bool, error)

	// Commit 提交原子單元並釋放所有鎖
	Commit() error

	// Rollback 捨棄原子單元並釋放所有鎖，Commit 之後呼叫是 no-op
	Rollback() error
}

// IdentityDirectory 外部身份目錄：使用者是否存在
// 帳務核心只在操作前確認身份，不管理使用者本身
type IdentityDirectory interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}
