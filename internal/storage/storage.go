// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/coinfun/internal/storage/models"
)

var ErrNotFound = errors.New("record not found")

// TradeFilter выбирает сделки. Нулевые поля не фильтруют.
type TradeFilter struct {
	Mint   string
	Trader string
	Side   string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// AssetStats агрегирует историю сделок по одному активу.
type AssetStats struct {
	Mint         string
	TradeCount   int64
	BuyCount     int64
	SellCount    int64
	NativeVolume uint64
	PlatformFees uint64
	ReserveFees  uint64
}

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	// Сделки
	SaveTrade(ctx context.Context, trade *models.Trade) error
	ListTrades(ctx context.Context, filter TradeFilter) ([]*models.Trade, error)

	// Активы
	SaveAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, mint string) (*models.Asset, error)
	MarkGraduated(ctx context.Context, mint, curveAuthority string, at time.Time) error
	AssetStats(ctx context.Context, mint string) (*AssetStats, error)

	RunMigrations() error
	Close() error
}
