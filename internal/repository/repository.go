package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Zone       ZoneRepository
	Assignment AssignmentRepository
	Mark       CompletionMarkRepository
	Note       AssignmentNoteRepository
	Tx         TxRunner
}

// TxRunner 在同一事务内执行多个 Repository 操作
// fn 收到的 Repository 全部绑定到事务连接；fn 返回错误时整体回滚
type TxRunner interface {
	Transaction(ctx context.Context, fn func(tx *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	r := newRepository(db)
	r.Tx = &gormTxRunner{db: db}
	return r
}

func newRepository(db *gorm.DB) *Repository {
	return &Repository{
		Zone:       NewZoneRepo(db),
		Assignment: NewAssignmentRepo(db),
		Mark:       NewCompletionMarkRepo(db),
		Note:       NewAssignmentNoteRepo(db),
	}
}

type gormTxRunner struct {
	db *gorm.DB
}

func (t *gormTxRunner) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := newRepository(tx)
		// 事务内再次调用 Transaction 时复用当前事务
		r.Tx = &nestedTxRunner{repo: r}
		return fn(r)
	})
}

type nestedTxRunner struct {
	repo *Repository
}

func (t *nestedTxRunner) Transaction(_ context.Context, fn func(tx *Repository) error) error {
	return fn(t.repo)
}
