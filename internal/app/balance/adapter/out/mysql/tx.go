package mysql

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/domain"
	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/usecase"
)

var errTxFinished = errors.New("atomic unit already finished")

// Tx 是 MySQL 版的原子單元：包一個明確 Begin 出來的資料庫交易
// 列鎖隨 Commit / Rollback 一併釋放
type Tx struct {
	db     *gorm.DB
	logger *zap.Logger
	// locked 記錄本次操作宣告過的鎖集合 (含尚不存在的帳戶)
	locked map[int64]struct{}
	// cache 是 FOR UPDATE 讀到的帳戶列
	cache map[int64]*domain.Account
	done  bool
}

var _ usecase.Tx = (*Tx)(nil)

// Lock 依正規順序對帳戶集合取得排他列鎖
// 尚不存在的帳戶沒有列可鎖，由 GetOrCreate 的 insert 補上
func (t *Tx) Lock(userIDs ...int64) error {
	if t.done {
		return errTxFinished
	}

	order := domain.LockOrder(userIDs...)

	var rows []sqlBalance
	if err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id IN ?", order).
		Order("user_id").
		Find(&rows).Error; err != nil {
		return translate(err)
	}

	for i := range rows {
		t.cache[rows[i].UserID] = &domain.Account{
			UserID:  rows[i].UserID,
			Balance: rows[i].Amount,
		}
	}
	for _, id := range order {
		t.locked[id] = struct{}{}
	}
	return nil
}

// GetOrCreate 取得已鎖定的帳戶，不存在則以零餘額插入
// 並發首次建立會撞到 user_id 主鍵：這是良性競爭，
// 記 Info log 後改為重讀對方剛建立的列 (FOR UPDATE)，呼叫端不會看到失敗
func (t *Tx) GetOrCreate(userID int64) (*domain.Account, error) {
	if t.done {
		return nil, errTxFinished
	}
	if _, ok := t.locked[userID]; !ok {
		return nil, fmt.Errorf("account %d is not locked by this atomic unit", userID)
	}

	if account, ok := t.cache[userID]; ok {
		return account, nil
	}

	row := sqlBalance{UserID: userID, Amount: decimal.Zero}
	err := t.db.Create(&row).Error
	switch {
	case err == nil:
		// insert 本身就持有新列的鎖
	case errors.Is(err, gorm.ErrDuplicatedKey):
		t.logger.Info("balance create race, rereading",
			zap.Int64("user_id", userID))
		if rerr := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&row).Error; rerr != nil {
			return nil, translate(rerr)
		}
	default:
		return nil, translate(err)
	}

	account := &domain.Account{
		UserID:  row.UserID,
		Balance: row.Amount,
	}
	t.cache[userID] = account
	return account, nil
}

// SaveBalance 回寫餘額，必須在鎖定下進行 (先讀後寫，絕不盲目加減)
func (t *Tx) SaveBalance(account *domain.Account) error {
	if t.done {
		return errTxFinished
	}
	if _, ok := t.locked[account.UserID]; !ok {
		return fmt.Errorf("account %d is not locked by this atomic unit", account.UserID)
	}

	if err := t.db.Model(&sqlBalance{}).
		Where("user_id = ?", account.UserID).
		Update("amount", account.Balance).Error; err != nil {
		return translate(err)
	}
	return nil
}

// AppendRecord 插入一筆流水，回傳 autoincrement 配發的 ID
func (t *Tx) AppendRecord(record *domain.TransactionRecord) (int64, error) {
	if t.done {
		return 0, errTxFinished
	}

	row := sqlTransaction{
		UserID:        record.UserID,
		Type:          string(record.Type),
		Amount:        record.Amount,
		Comment:       record.Comment,
		RelatedUserID: record.RelatedUserID,
	}
	if record.RefID != uuid.Nil {
		ref := record.RefID
		row.RefID = ref[:]
	}

	if err := t.db.Create(&row).Error; err != nil {
		return 0, translate(err)
	}

	record.ID = row.ID
	record.CreatedAt = row.CreatedAt
	return row.ID, nil
}

// RefSeen 檢查追蹤號是否已有對應流水
// MySQL 版不需要在 Commit 額外標記，流水本身就帶著 ref_id
func (t *Tx) RefSeen(refID uuid.UUID) (bool, error) {
	if t.done {
		return false, errTxFinished
	}

	var count int64
	if err := t.db.Model(&sqlTransaction{}).
		Where("ref_id = ?", refID[:]).
		Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

// Commit 提交資料庫交易，列鎖隨之釋放
func (t *Tx) Commit() error {
	if t.done {
		return errTxFinished
	}
	t.done = true

	if err := t.db.Commit().Error; err != nil {
		return translate(err)
	}
	return nil
}

// Rollback 回滾資料庫交易，Commit 之後呼叫是 no-op
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true

	if err := t.db.Rollback().Error; err != nil {
		return translate(err)
	}
	return nil
}
