// internal/storage/models/base.go
package models

import "time"

// BaseModel содержит общие колонки записей истории. Записи только добавляются,
// поэтому мягкого удаления нет.
type BaseModel struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
