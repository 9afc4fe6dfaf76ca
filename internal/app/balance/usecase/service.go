package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/domain"
)

// Service 是帳務核心的公開操作面：存款、提款、轉帳、查詢餘額
// 驗證一律在取鎖之前完成 (fail fast，無副作用)，
// 餘額異動與流水寫入永遠在同一個原子單元內
type Service struct {
	store     Store
	identity  IdentityDirectory
	logger    *zap.Logger
	maxAmount decimal.Decimal
}

// NewService 建立帳務服務
// maxAmount 為單筆操作金額上限
func NewService(store Store, identity IdentityDirectory, logger *zap.Logger, maxAmount decimal.Decimal) *Service {
	return &Service{
		store:     store,
		identity:  identity,
		logger:    logger,
		maxAmount: maxAmount,
	}
}

// OperationResult 存款 / 提款的結果
type OperationResult struct {
	Balance       decimal.Decimal
	TransactionID int64
}

// TransferResult 轉帳的結果
type TransferResult struct {
	FromBalance       decimal.Decimal
	ToBalance         decimal.Decimal
	TransferredAmount decimal.Decimal
}

// BalanceResult 餘額查詢的結果
type BalanceResult struct {
	UserID  int64
	Balance decimal.Decimal
}

// Deposit 存款
// refID 為選填的外部追蹤號，uuid.Nil 表示不追蹤
func (s *Service) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, comment string, refID uuid.UUID) (*OperationResult, error) {
	if err := s.validateAmount(amount); err != nil {
		return nil, err
	}
	if err := s.ensureIdentity(ctx, userID); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.checkRef(tx, refID); err != nil {
		return nil, err
	}

	if err := tx.Lock(userID); err != nil {
		return nil, err
	}

	account, err := tx.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	if err := account.Deposit(amount); err != nil {
		return nil, err
	}
	if err := tx.SaveBalance(account); err != nil {
		return nil, err
	}

	recordID, err := tx.AppendRecord(&domain.TransactionRecord{
		UserID:  userID,
		Type:    domain.RecordTypeDeposit,
		Amount:  amount,
		Comment: comment,
		RefID:   refID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &OperationResult{
		Balance:       account.Balance,
		TransactionID: recordID,
	}, nil
}

// Withdraw 提款 餘額不足時整個原子單元回滾，不留任何異動
func (s *Service) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, comment string, refID uuid.UUID) (*OperationResult, error) {
	if err := s.validateAmount(amount); err != nil {
		return nil, err
	}
	if err := s.ensureIdentity(ctx, userID); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.checkRef(tx, refID); err != nil {
		return nil, err
	}

	if err := tx.Lock(userID); err != nil {
		return nil, err
	}

	account, err := tx.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	if err := account.Withdraw(amount); err != nil {
		return nil, err
	}
	if err := tx.SaveBalance(account); err != nil {
		return nil, err
	}

	recordID, err := tx.AppendRecord(&domain.TransactionRecord{
		UserID:  userID,
		Type:    domain.RecordTypeWithdraw,
		Amount:  amount,
		Comment: comment,
		RefID:   refID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &OperationResult{
		Balance:       account.Balance,
		TransactionID: recordID,
	}, nil
}

// Transfer 轉帳 兩個帳戶的異動與成對的流水在同一個原子單元內完成
func (s *Service) Transfer(ctx context.Context, fromUserID, toUserID int64, amount decimal.Decimal, comment string, refID uuid.UUID) (*TransferResult, error) {
	if err := s.validateAmount(amount); err != nil {
		return nil, err
	}
	if fromUserID == toUserID {
		return nil, domain.ErrSelfTransfer
	}
	if err := s.ensureIdentity(ctx, fromUserID); err != nil {
		return nil, err
	}
	if err := s.ensureIdentity(ctx, toUserID); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.checkRef(tx, refID); err != nil {
		return nil, err
	}

	// 兩個帳戶一次鎖齊，Lock 內部會依正規順序取鎖
	if err := tx.Lock(fromUserID, toUserID); err != nil {
		return nil, err
	}

	fromAccount, err := tx.GetOrCreate(fromUserID)
	if err != nil {
		return nil, err
	}
	toAccount, err := tx.GetOrCreate(toUserID)
	if err != nil {
		return nil, err
	}

	if err := fromAccount.Withdraw(amount); err != nil {
		return nil, err
	}
	if err := toAccount.Deposit(amount); err != nil {
		return nil, err
	}
	if err := tx.SaveBalance(fromAccount); err != nil {
		return nil, err
	}
	if err := tx.SaveBalance(toAccount); err != nil {
		return nil, err
	}

	if _, err := tx.AppendRecord(&domain.TransactionRecord{
		UserID:        fromUserID,
		Type:          domain.RecordTypeTransferOut,
		Amount:        amount,
		Comment:       comment,
		RelatedUserID: &toUserID,
		RefID:         refID,
	}); err != nil {
		return nil, err
	}
	if _, err := tx.AppendRecord(&domain.TransactionRecord{
		UserID:        toUserID,
		Type:          domain.RecordTypeTransferIn,
		Amount:        amount,
		Comment:       comment,
		RelatedUserID: &fromUserID,
		RefID:         refID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &TransferResult{
		FromBalance:       fromAccount.Balance,
		ToBalance:         toAccount.Balance,
		TransferredAmount: amount,
	}, nil
}

// GetBalance 查詢餘額 唯讀、不取鎖
// 身份存在但從未交易過的帳戶回傳零餘額，不算錯誤
func (s *Service) GetBalance(ctx context.Context, userID int64) (*BalanceResult, error) {
	if err := s.ensureIdentity(ctx, userID); err != nil {
		return nil, err
	}

	account, ok, err := s.store.FindAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	balance := decimal.Zero
	if ok {
		balance = account.Balance
	}
	return &BalanceResult{
		UserID:  userID,
		Balance: balance,
	}, nil
}

// ensureIdentity 確認身份目錄裡有這個使用者
func (s *Service) ensureIdentity(ctx context.Context, userID int64) error {
	ok, err := s.identity.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAccountNotFound
	}
	return nil
}

// checkRef 檢查外部追蹤號，重複提交視為已處理
func (s *Service) checkRef(tx Tx, refID uuid.UUID) error {
	if refID == uuid.Nil {
		return nil
	}

	seen, err := tx.RefSeen(refID)
	if err != nil {
		return err
	}
	if seen {
		s.logger.Info("duplicate transaction ref",
			zap.String("ref_id", refID.String()))
		return domain.ErrTransactionAlreadyProcessed
	}
	return nil
}
