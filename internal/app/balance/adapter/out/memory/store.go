package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/domain"
	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/usecase"
	"github.com/JoeShih716/go-balance-ledger/pkg/wal"
)

var errTxFinished = errors.New("atomic unit already finished")

// Store 是記憶體版的帳務儲存層
//
// 結構:
//
//	accounts: 帳戶資料 Map
//	locks: 每帳戶一把互斥鎖 (Lock Coordinator 的鎖表)，惰性建立、永不回收
//	processedRefs: 已處理過的外部追蹤號
//	records: append-only 流水
//	wal: Write-Ahead Log，nil 表示不落地
//
// mu 只保護上述 map/slice 的結構本身，絕不跨越帳戶鎖的等待持有，
// 否則鎖表會變成全域瓶頸
type Store struct {
	mu            sync.Mutex
	accounts      map[int64]*domain.Account
	locks         map[int64]*sync.Mutex
	processedRefs map[uuid.UUID]time.Time
	records       []domain.TransactionRecord
	nextRecordID  int64
	wal           *wal.WAL
	logger        *zap.Logger
}

// walEntry 是 WAL 裡的一個已提交原子單元
type walEntry struct {
	Accounts []walAccount               `json:"accounts"`
	Records  []domain.TransactionRecord `json:"records"`
	RefID    uuid.UUID                  `json:"ref_id,omitempty"`
}

type walAccount struct {
	UserID  int64           `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// NewStore 建立記憶體儲存層，w 非 nil 時會先重放 WAL 恢復狀態
func NewStore(w *wal.WAL, logger *zap.Logger) (*Store, error) {
	s := &Store{
		accounts:      make(map[int64]*domain.Account),
		locks:         make(map[int64]*sync.Mutex),
		processedRefs: make(map[uuid.UUID]time.Time),
		wal:           w,
		logger:        logger,
	}

	if w != nil {
		if err := s.recoverFromWAL(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// recoverFromWAL 重放 WAL，單執行緒，無需取鎖
func (s *Store) recoverFromWAL() error {
	entries := 0
	err := s.wal.ReadAll(func(raw []byte) error {
		var entry walEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		s.applyEntry(&entry)
		entries++
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("wal recovered",
		zap.Int("entries", entries),
		zap.Int("accounts", len(s.accounts)),
		zap.Int64("last_record_id", s.nextRecordID))
	return nil
}

// applyEntry 把一個已提交的原子單元套用到記憶體狀態
func (s *Store) applyEntry(entry *walEntry) {
	for _, acc := range entry.Accounts {
		s.accounts[acc.UserID] = &domain.Account{
			UserID:  acc.UserID,
			Balance: acc.Balance,
		}
	}
	for _, rec := range entry.Records {
		s.records = append(s.records, rec)
		if rec.ID > s.nextRecordID {
			s.nextRecordID = rec.ID
		}
	}
	if entry.RefID != uuid.Nil {
		s.processedRefs[entry.RefID] = time.Now()
	}
}

// lockFor 取得 (必要時建立) 某帳戶的互斥鎖
func (s *Store) lockFor(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[userID] = m
	}
	return m
}

// Begin 開啟一個原子單元
func (s *Store) Begin(ctx context.Context) (usecase.Tx, error) {
	return &Tx{
		store:  s,
		locked: make(map[int64]struct{}),
		staged: make(map[int64]*domain.Account),
		dirty:  make(map[int64]*domain.Account),
	}, nil
}

// FindAccount 無鎖讀取，回傳帳戶複本
func (s *Store) FindAccount(ctx context.Context, userID int64) (*domain.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		return nil, false, nil
	}
	return account.Clone(), true, nil
}

// Records 回傳目前所有流水的快照
func (s *Store) Records() []domain.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TransactionRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Close 關閉底層 WAL
func (s *Store) Close() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Close()
}

// Tx 是記憶體儲存層的原子單元：
// 所有異動先進暫存區，Commit 時先寫 WAL 再一次套用並釋放鎖，
// Rollback 直接丟棄暫存區
type Tx struct {
	store     *Store
	lockedIDs []int64 // 依取得順序，釋放時反向
	locked    map[int64]struct{}
	staged    map[int64]*domain.Account
	dirty     map[int64]*domain.Account
	records   []*domain.TransactionRecord
	refID     uuid.UUID
	done      bool
}

var _ usecase.Tx = (*Tx)(nil)

// Lock 依正規順序鎖定帳戶集合
func (t *Tx) Lock(userIDs ...int64) error {
	if t.done {
		return errTxFinished
	}

	for _, id := range domain.LockOrder(userIDs...) {
		if _, ok := t.locked[id]; ok {
			continue
		}
		t.store.lockFor(id).Lock()
		t.lockedIDs = append(t.lockedIDs, id)
		t.locked[id] = struct{}{}
	}
	return nil
}

// GetOrCreate 取得已鎖定帳戶的暫存複本，不存在則以零餘額建立
func (t *Tx) GetOrCreate(userID int64) (*domain.Account, error) {
	if t.done {
		return nil, errTxFinished
	}
	if _, ok := t.locked[userID]; !ok {
		return nil, fmt.Errorf("account %d is not locked by this atomic unit", userID)
	}

	if account, ok := t.staged[userID]; ok {
		return account, nil
	}

	t.store.mu.Lock()
	current, ok := t.store.accounts[userID]
	t.store.mu.Unlock()

	var account *domain.Account
	if ok {
		account = current.Clone()
	} else {
		account = domain.NewAccount(userID)
	}
	t.staged[userID] = account
	return account, nil
}

// SaveBalance 把帳戶標記為待寫回
func (t *Tx) SaveBalance(account *domain.Account) error {
	if t.done {
		return errTxFinished
	}
	if _, ok := t.locked[account.UserID]; !ok {
		return fmt.Errorf("account %d is not locked by this atomic unit", account.UserID)
	}

	t.dirty[account.UserID] = account
	return nil
}

// AppendRecord 配發紀錄 ID 並暫存流水
// ID 在這裡就先配發 (回滾會留下空號，與資料庫的 autoincrement 行為一致)
func (t *Tx) AppendRecord(record *domain.TransactionRecord) (int64, error) {
	if t.done {
		return 0, errTxFinished
	}

	t.store.mu.Lock()
	t.store.nextRecordID++
	record.ID = t.store.nextRecordID
	t.store.mu.Unlock()

	record.CreatedAt = time.Now().UTC()
	t.records = append(t.records, record)
	return record.ID, nil
}

// RefSeen 檢查外部追蹤號；未見過的會在 Commit 時標記為已處理
func (t *Tx) RefSeen(refID uuid.UUID) (bool, error) {
	if t.done {
		return false, errTxFinished
	}

	t.store.mu.Lock()
	_, seen := t.store.processedRefs[refID]
	t.store.mu.Unlock()

	if !seen {
		t.refID = refID
	}
	return seen, nil
}

// Commit 先寫 WAL 再套用暫存區，最後釋放所有鎖
// WAL 寫入失敗時整個原子單元作廢，狀態不變
func (t *Tx) Commit() error {
	if t.done {
		return errTxFinished
	}

	entry := walEntry{RefID: t.refID}
	for _, account := range t.dirty {
		entry.Accounts = append(entry.Accounts, walAccount{
			UserID:  account.UserID,
			Balance: account.Balance,
		})
	}
	for _, record := range t.records {
		entry.Records = append(entry.Records, *record)
	}

	if t.store.wal != nil {
		if err := t.store.wal.Write(&entry); err != nil {
			t.finish()
			return fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
	}

	t.store.mu.Lock()
	t.store.applyEntry(&entry)
	t.store.mu.Unlock()

	t.finish()
	return nil
}

// Rollback 丟棄暫存區並釋放所有鎖，Commit 之後呼叫是 no-op
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

// finish 依取得順序的反向釋放帳戶鎖
func (t *Tx) finish() {
	for i := len(t.lockedIDs) - 1; i >= 0; i-- {
		t.store.lockFor(t.lockedIDs[i]).Unlock()
	}
	t.lockedIDs = nil
	t.done = true
}
