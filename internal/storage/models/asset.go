// internal/storage/models/asset.go
package models

import "time"

type Asset struct {
	BaseModel
	Mint           string `gorm:"uniqueIndex;not null;type:varchar(44)"`
	Creator        string `gorm:"index;not null;type:varchar(44)"`
	Name           string `gorm:"type:varchar(100)"`
	Symbol         string `gorm:"type:varchar(20)"`
	URI            string `gorm:"type:text"`
	CurveAuthority string `gorm:"type:varchar(44)"`
	Graduated      bool   `gorm:"not null;default:false"`
	GraduatedAt    *time.Time
}
