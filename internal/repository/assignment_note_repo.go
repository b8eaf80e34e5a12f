package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cliff-simpkins/scouting-flyers/internal/model"
)

// AssignmentNoteRepository 分配留言数据访问接口
type AssignmentNoteRepository interface {
	Create(ctx context.Context, note *model.AssignmentNote) error
	GetByID(ctx context.Context, id string) (*model.AssignmentNote, error)
	// ListByAssignment 最新的在前
	ListByAssignment(ctx context.Context, assignmentID string) ([]model.AssignmentNote, error)
	// UpdateContent 只更新 content 与 updated_at；留言不存在时返回 gorm.ErrRecordNotFound
	UpdateContent(ctx context.Context, note *model.AssignmentNote) error
	Delete(ctx context.Context, id string) error
}

type assignmentNoteRepo struct {
	db *gorm.DB
}

func NewAssignmentNoteRepo(db *gorm.DB) AssignmentNoteRepository {
	return &assignmentNoteRepo{db: db}
}

func (r *assignmentNoteRepo) Create(ctx context.Context, note *model.AssignmentNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *assignmentNoteRepo) GetByID(ctx context.Context, id string) (*model.AssignmentNote, error) {
	var note model.AssignmentNote
	err := r.db.WithContext(ctx).
		Where("note_id = ?", id).
		First(&note).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *assignmentNoteRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]model.AssignmentNote, error) {
	var list []model.AssignmentNote
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *assignmentNoteRepo) UpdateContent(ctx context.Context, note *model.AssignmentNote) error {
	result := r.db.WithContext(ctx).
		Model(&model.AssignmentNote{}).
		Where("note_id = ?", note.NoteID).
		Updates(map[string]interface{}{
			"content":    note.Content,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assignmentNoteRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("note_id = ?", id).
		Delete(&model.AssignmentNote{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
