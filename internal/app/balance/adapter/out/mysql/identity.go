package mysql

import (
	"context"

	"github.com/JoeShih716/go-balance-ledger/internal/app/balance/usecase"
	"github.com/JoeShih716/go-balance-ledger/pkg/mysql"
)

// sqlUser 對應 users 表，身份目錄只讀它，不負責管理
type sqlUser struct {
	ID int64 `gorm:"primaryKey"`
}

func (*sqlUser) TableName() string {
	return "users"
}

// IdentityDirectory 以 users 表作為身份目錄
type IdentityDirectory struct {
	client *mysql.Client
}

func NewIdentityDirectory(client *mysql.Client) *IdentityDirectory {
	return &IdentityDirectory{client: client}
}

// Exists 回報使用者是否存在
func (d *IdentityDirectory) Exists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := d.client.DB().WithContext(ctx).
		Model(&sqlUser{}).
		Where("id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

var _ usecase.IdentityDirectory = (*IdentityDirectory)(nil)
