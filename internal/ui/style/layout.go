package style

import (
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"
)

var palette = DefaultPalette()

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 1)

	ActivePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().Foreground(palette.Accent).Bold(true)

	MutedStyle = lipgloss.NewStyle().Foreground(palette.TextMuted)
	BuyStyle   = lipgloss.NewStyle().Foreground(palette.Buy)
	SellStyle  = lipgloss.NewStyle().Foreground(palette.Sell)
	ErrorStyle = lipgloss.NewStyle().Foreground(palette.Error).Bold(true)

	CompleteBadge = lipgloss.NewStyle().
			Foreground(palette.Complete).
			Bold(true)
)

// SideStyle colors a trade by direction.
func SideStyle(side string) lipgloss.Style {
	if side == "sell" {
		return SellStyle
	}
	return BuyStyle
}

// LevelStyle colors a log line by level name.
func LevelStyle(level string) lipgloss.Style {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return MutedStyle
	}
	switch {
	case l >= zapcore.ErrorLevel:
		return ErrorStyle
	case l == zapcore.WarnLevel:
		return lipgloss.NewStyle().Foreground(palette.Warning)
	case l == zapcore.InfoLevel:
		return lipgloss.NewStyle().Foreground(palette.Info)
	default:
		return MutedStyle
	}
}
