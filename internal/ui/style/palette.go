package style

import "github.com/charmbracelet/lipgloss"

var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")
	Blue    = lipgloss.Color("#3B82F6")

	Base03 = lipgloss.Color("#1B1D23") // фон
	Base01 = lipgloss.Color("#6C7280") // приглушённый текст
	Base2  = lipgloss.Color("#ECEFF4") // основной текст
)

// Palette groups the colors the dashboard uses.
type Palette struct {
	Primary   lipgloss.Color
	Accent    lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Info      lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color

	Buy      lipgloss.Color
	Sell     lipgloss.Color
	Complete lipgloss.Color
}

func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Accent:    Magenta,
		Warning:   Yellow,
		Error:     Red,
		Info:      Blue,
		Text:      Base2,
		TextMuted: Base01,

		Buy:      Green,
		Sell:     Red,
		Complete: Magenta,
	}
}
