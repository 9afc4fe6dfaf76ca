package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/domain"
	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/usecase"
	"github.com/JoeShih716/go-balance-ledger/pkg/mysql"
)

// sqlBalance 對應資料庫的 balances 表
// user_id 上的主鍵就是帳戶建立競爭所依賴的唯一性約束
type sqlBalance struct {
	UserID    int64           `gorm:"primaryKey;column:user_id;autoIncrement:false"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	UpdatedAt int64           `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlBalance) TableName() string {
	return "balances"
}

// sqlTransaction 對應資料庫的 transactions 表 (append-only，不做 update/delete)
type sqlTransaction struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	UserID        int64           `gorm:"index;not null"`
	Type          string          `gorm:"type:varchar(16);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Comment       string          `gorm:"type:varchar(255)"`
	RelatedUserID *int64          // 僅 transfer_out / transfer_in 有值
	RefID         []byte          `gorm:"column:ref_id;type:binary(16);index"` // 外部追蹤號
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

// Store 是 MySQL 版的帳務儲存層
// 原子單元對應資料庫交易，帳戶鎖對應 SELECT ... FOR UPDATE 的列鎖
type Store struct {
	client *mysql.Client
	logger *zap.Logger
}

func NewStore(client *mysql.Client, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
	}
}

// AutoMigrate 建立 balances / transactions 表
func (s *Store) AutoMigrate() error {
	return s.client.DB().AutoMigrate(&sqlBalance{}, &sqlTransaction{})
}

// Begin 開啟資料庫交易作為原子單元
func (s *Store) Begin(ctx context.Context) (usecase.Tx, error) {
	db := s.client.DB().WithContext(ctx).Begin()
	if db.Error != nil {
		return nil, translate(db.Error)
	}
	return &Tx{
		db:     db,
		logger: s.logger,
		locked: make(map[int64]struct{}),
		cache:  make(map[int64]*domain.Account),
	}, nil
}

// FindAccount 無鎖讀取，供唯讀查詢
func (s *Store) FindAccount(ctx context.Context, userID int64) (*domain.Account, bool, error) {
	var row sqlBalance
	err := s.client.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, translate(err)
	}

	return &domain.Account{
		UserID:  row.UserID,
		Balance: row.Amount,
	}, true, nil
}

var _ usecase.Store = (*Store)(nil)
