package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/storage/models"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

var ErrNoTrades = errors.New("no trades match the export criteria")

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format     ExportFormat
	StartTime  time.Time
	EndTime    time.Time
	MintFilter string
	SideFilter string // buy | sell
	OutputDir  string
}

// TradeExporter writes stored trade history to files.
type TradeExporter struct {
	logger *zap.Logger
}

func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{logger: logger.Named("export")}
}

// ExportTrades exports trades based on the provided options
func (te *TradeExporter) ExportTrades(trades []*models.Trade, options ExportOptions) (string, error) {
	if options.Format != FormatCSV && options.Format != FormatJSON {
		return "", fmt.Errorf("unsupported format: %s", options.Format)
	}

	filtered := FilterTrades(trades, options)
	if len(filtered) == 0 {
		return "", ErrNoTrades
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ExecutedAt.Before(filtered[j].ExecutedAt)
	})

	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, generateFilename(options, time.Now()))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = exportToJSON(filtered, outputPath)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// FilterTrades applies the time, mint and side filters of options.
func FilterTrades(trades []*models.Trade, options ExportOptions) []*models.Trade {
	var filtered []*models.Trade
	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.ExecutedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.ExecutedAt.After(options.EndTime) {
			continue
		}
		if options.MintFilter != "" && trade.Mint != options.MintFilter {
			continue
		}
		if options.SideFilter != "" && trade.Side != options.SideFilter {
			continue
		}
		filtered = append(filtered, trade)
	}
	return filtered
}

func generateFilename(options ExportOptions, now time.Time) string {
	prefix := "trades_all"
	if options.SideFilter != "" {
		prefix = "trades_" + options.SideFilter
	}
	if mint := options.MintFilter; mint != "" {
		if len(mint) > 8 {
			mint = mint[:8]
		}
		prefix += "_" + mint
	}
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102_150405"), options.Format)
}

// CSVHeaders are the columns written for every trade.
func CSVHeaders() []string {
	return []string{
		"executed_at", "mint", "trader", "side", "native_amount", "token_amount",
		"platform_fee", "reserve_fee", "reserve_tokens",
		"virtual_native", "virtual_token", "real_native", "real_token",
	}
}

// CSVRecord formats one trade in CSVHeaders order.
func CSVRecord(t *models.Trade) []string {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	return []string{
		t.ExecutedAt.UTC().Format(time.RFC3339Nano), t.Mint, t.Trader, t.Side,
		u(t.NativeAmount), u(t.TokenAmount),
		u(t.PlatformFee), u(t.ReserveFee), u(t.ReserveTokens),
		u(t.VirtualNative), u(t.VirtualToken), u(t.RealNative), u(t.RealToken),
	}
}

func exportToCSV(trades []*models.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(CSVRecord(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// TradeRecord is the JSON shape of an exported trade.
type TradeRecord struct {
	ExecutedAt    time.Time `json:"executed_at"`
	Mint          string    `json:"mint"`
	Trader        string    `json:"trader"`
	Side          string    `json:"side"`
	NativeAmount  uint64    `json:"native_amount"`
	TokenAmount   uint64    `json:"token_amount"`
	PlatformFee   uint64    `json:"platform_fee"`
	ReserveFee    uint64    `json:"reserve_fee"`
	ReserveTokens uint64    `json:"reserve_tokens"`
	RealNative    uint64    `json:"real_native"`
	RealToken     uint64    `json:"real_token"`
}

func toRecord(t *models.Trade) TradeRecord {
	return TradeRecord{
		ExecutedAt:    t.ExecutedAt,
		Mint:          t.Mint,
		Trader:        t.Trader,
		Side:          t.Side,
		NativeAmount:  t.NativeAmount,
		TokenAmount:   t.TokenAmount,
		PlatformFee:   t.PlatformFee,
		ReserveFee:    t.ReserveFee,
		ReserveTokens: t.ReserveTokens,
		RealNative:    t.RealNative,
		RealToken:     t.RealToken,
	}
}

func exportToJSON(trades []*models.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	records := make([]TradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, toRecord(t))
	}

	exportData := struct {
		ExportTime time.Time     `json:"export_time"`
		TradeCount int           `json:"trade_count"`
		Summary    ExportSummary `json:"summary"`
		Trades     []TradeRecord `json:"trades"`
	}{
		ExportTime: time.Now().UTC(),
		TradeCount: len(trades),
		Summary:    CalculateSummary(trades),
		Trades:     records,
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported trades
type ExportSummary struct {
	TotalTrades     int       `json:"total_trades"`
	BuyCount        int       `json:"buy_count"`
	SellCount       int       `json:"sell_count"`
	UniqueMints     int       `json:"unique_mints"`
	TotalBuyVolume  uint64    `json:"total_buy_volume"`
	TotalSellVolume uint64    `json:"total_sell_volume"`
	PlatformFees    uint64    `json:"platform_fees"`
	ReserveFees     uint64    `json:"reserve_fees"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

// CalculateSummary expects trades ordered by execution time.
func CalculateSummary(trades []*models.Trade) ExportSummary {
	summary := ExportSummary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return summary
	}
	summary.StartDate = trades[0].ExecutedAt
	summary.EndDate = trades[len(trades)-1].ExecutedAt

	mints := make(map[string]struct{})
	for _, t := range trades {
		mints[t.Mint] = struct{}{}
		summary.PlatformFees += t.PlatformFee
		summary.ReserveFees += t.ReserveFee
		switch t.Side {
		case "buy":
			summary.BuyCount++
			summary.TotalBuyVolume += t.NativeAmount
		case "sell":
			summary.SellCount++
			summary.TotalSellVolume += t.NativeAmount
		}
	}
	summary.UniqueMints = len(mints)
	return summary
}
