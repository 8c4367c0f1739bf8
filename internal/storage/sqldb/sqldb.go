// internal/storage/sqldb/sqldb.go
package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rovshanmuradov/coinfun/internal/storage"
	"github.com/rovshanmuradov/coinfun/internal/storage/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	migrationLockID = 101
)

// sqlStorage реализует storage.Storage поверх GORM.
type sqlStorage struct {
	db     *gorm.DB
	driver string
	logger *zap.Logger
}

// NewStorage opens a postgres or sqlite database.
func NewStorage(driver, dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if driver == DriverSQLite {
		// одно соединение: in-memory база живет, пока оно открыто
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &sqlStorage{db: db, driver: driver, logger: zapLogger}, nil
}

func (s *sqlStorage) RunMigrations() error {
	if s.driver == DriverPostgres {
		var lockObtained bool
		if err := s.db.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error; err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		if !lockObtained {
			return errors.New("another migration is in progress")
		}
		defer s.db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)
	}

	if err := s.db.AutoMigrate(&models.Trade{}, &models.Asset{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *sqlStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveTrade is idempotent on EventID.
func (s *sqlStorage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(trade).Error
}

func (s *sqlStorage) ListTrades(ctx context.Context, f storage.TradeFilter) ([]*models.Trade, error) {
	q := s.db.WithContext(ctx).Model(&models.Trade{})
	if f.Mint != "" {
		q = q.Where("mint = ?", f.Mint)
	}
	if f.Trader != "" {
		q = q.Where("trader = ?", f.Trader)
	}
	if f.Side != "" {
		q = q.Where("side = ?", f.Side)
	}
	if !f.From.IsZero() {
		q = q.Where("executed_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("executed_at <= ?", f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var trades []*models.Trade
	err := q.Order("executed_at desc").Order("id desc").Find(&trades).Error
	return trades, err
}

func (s *sqlStorage) SaveAsset(ctx context.Context, asset *models.Asset) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "mint"}}, DoNothing: true}).
		Create(asset).Error
}

func (s *sqlStorage) GetAsset(ctx context.Context, mint string) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.WithContext(ctx).Where("mint = ?", mint).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("asset %s: %w", mint, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *sqlStorage) MarkGraduated(ctx context.Context, mint, curveAuthority string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Asset{}).
		Where("mint = ?", mint).
		Updates(map[string]interface{}{
			"graduated":       true,
			"graduated_at":    at,
			"curve_authority": curveAuthority,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("asset %s: %w", mint, storage.ErrNotFound)
	}
	return nil
}

func (s *sqlStorage) AssetStats(ctx context.Context, mint string) (*storage.AssetStats, error) {
	var row struct {
		TradeCount   int64
		BuyCount     int64
		SellCount    int64
		NativeVolume uint64
		PlatformFees uint64
		ReserveFees  uint64
	}
	err := s.db.WithContext(ctx).Model(&models.Trade{}).
		Select(`COUNT(*) AS trade_count,
			COALESCE(SUM(CASE WHEN side = 'buy' THEN 1 ELSE 0 END), 0) AS buy_count,
			COALESCE(SUM(CASE WHEN side = 'sell' THEN 1 ELSE 0 END), 0) AS sell_count,
			COALESCE(SUM(native_amount), 0) AS native_volume,
			COALESCE(SUM(platform_fee), 0) AS platform_fees,
			COALESCE(SUM(reserve_fee), 0) AS reserve_fees`).
		Where("mint = ?", mint).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &storage.AssetStats{
		Mint:         mint,
		TradeCount:   row.TradeCount,
		BuyCount:     row.BuyCount,
		SellCount:    row.SellCount,
		NativeVolume: row.NativeVolume,
		PlatformFees: row.PlatformFees,
		ReserveFees:  row.ReserveFees,
	}, nil
}
