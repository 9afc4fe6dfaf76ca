package memory

import (
	"context"
	"sync"
)

// IdentityDirectory 記憶體版的身份目錄，測試與單機部署用
type IdentityDirectory struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewIdentityDirectory 建立身份目錄並預載使用者 ID
func NewIdentityDirectory(userIDs ...int64) *IdentityDirectory {
	d := &IdentityDirectory{
		ids: make(map[int64]struct{}, len(userIDs)),
	}
	for _, id := range userIDs {
		d.ids[id] = struct{}{}
	}
	return d
}

// Add 註冊一個使用者
func (d *IdentityDirectory) Add(userID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids[userID] = struct{}{}
}

// Exists 回報使用者是否存在
func (d *IdentityDirectory) Exists(ctx context.Context, userID int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.ids[userID]
	return ok, nil
}
