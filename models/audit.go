package models

import (
	"gorm.io/gorm"
)

// MutationAudit モデルの定義。ユーザー操作ごとに1行
type MutationAudit struct {
	gorm.Model
	SessionID  string `gorm:"index;not null"`
	UserID     string `gorm:"index"`
	Role       string `gorm:"not null"`
	Action     string `gorm:"index;not null"`
	Target     string
	Outcome    string `gorm:"not null"` // success, error, rejected, confirm
	Message    string
	HTTPStatus int
}
