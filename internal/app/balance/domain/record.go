package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordType 流水紀錄類型
type RecordType string

const (
	// 存款
	RecordTypeDeposit RecordType = "deposit"
	// 提款
	RecordTypeWithdraw RecordType = "withdraw"
	// 轉出 (來源帳戶的那一腿)
	RecordTypeTransferOut RecordType = "transfer_out"
	// 轉入 (目的帳戶的那一腿)
	RecordTypeTransferIn RecordType = "transfer_in"
)

// TransactionRecord 帳務流水，append-only，寫入後不再變動
// 一次轉帳會產生成對的 transfer_out / transfer_in 兩筆，
// 金額相同且 RelatedUserID 互指對方
type TransactionRecord struct {
	// ID 由儲存層配發，單調遞增
	ID     int64           `json:"id"`
	UserID int64           `json:"user_id"`
	Type   RecordType      `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	// Comment 可為空，上限 255 字元
	Comment string `json:"comment,omitempty"`
	// RelatedUserID 僅 transfer_out / transfer_in 使用，指向對手方
	RelatedUserID *int64 `json:"related_user_id,omitempty"`
	// RefID 外部追蹤號，uuid.Nil 表示呼叫端未提供
	RefID     uuid.UUID `json:"ref_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LockOrder 回傳操作需要鎖定的帳戶 ID：去重後依升冪排序
// 所有操作用同一個順序取鎖，transfer(A→B) 與 transfer(B→A)
// 就不可能各持一鎖互等，死鎖在結構上不會發生
func LockOrder(userIDs ...int64) []int64 {
	ids := make([]int64, 0, len(userIDs))
	seen := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
