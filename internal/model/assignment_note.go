package model

import "time"

// AssignmentNote 分配留言 — 对应 assignment_notes
// 随分配级联删除；只有作者本人可修改或删除
type AssignmentNote struct {
	NoteID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"note_id"`
	AssignmentID string    `gorm:"type:uuid;not null"                             json:"assignment_id"`
	AuthorID     string    `gorm:"type:uuid;not null"                             json:"author_id"`
	Content      string    `gorm:"type:text;not null"                             json:"content"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

func (AssignmentNote) TableName() string { return "assignment_notes" }
