// internal/storage/models/trade.go
package models

import "time"

// Trade is one settled trade as reported by the notification bus. Amounts
// are stored as numeric(20,0) so the full uint64 range fits on Postgres.
type Trade struct {
	BaseModel
	EventID       string    `gorm:"uniqueIndex;not null;type:varchar(36)"`
	Mint          string    `gorm:"index;not null;type:varchar(44)"`
	Trader        string    `gorm:"index;not null;type:varchar(44)"`
	Side          string    `gorm:"not null;type:varchar(4)"`
	NativeAmount  uint64    `gorm:"type:numeric(20,0);serializer:amount;not null"`
	TokenAmount   uint64    `gorm:"type:numeric(20,0);serializer:amount;not null"`
	PlatformFee   uint64    `gorm:"type:numeric(20,0);serializer:amount;not null;default:0"`
	ReserveFee    uint64    `gorm:"type:numeric(20,0);serializer:amount;not null;default:0"`
	ReserveTokens uint64    `gorm:"type:numeric(20,0);serializer:amount;not null;default:0"`
	VirtualNative uint64    `gorm:"type:numeric(20,0);serializer:amount;not null"`
	VirtualToken  uint64    `gorm:"type:numeric(20,0);serializer:amount;not null"`
	RealNative    uint64    `gorm:"type:numeric(20,0);serializer:amount;not null"`
	RealToken     uint64    `gorm:"type:numeric(20,0);serializer:amount;not null"`
	ExecutedAt    time.Time `gorm:"index;not null"`
}
