package shell

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#0284c7"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#8c8c8c", Dark: "#9e9e9e"}

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(primaryColor).
			Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"})

	backStyle     = lipgloss.NewStyle().Foreground(primaryColor)
	backOffStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	indexStyle    = lipgloss.NewStyle().Foreground(mutedColor).Width(5).Align(lipgloss.Right).PaddingRight(1)
	sizeStyle     = lipgloss.NewStyle().Width(12).Align(lipgloss.Right).PaddingRight(2)
	dateStyle     = lipgloss.NewStyle().Foreground(mutedColor).Width(21)
	folderStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	fileStyle     = lipgloss.NewStyle()
	emptyStyle    = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	promptStyle   = lipgloss.NewStyle().Foreground(primaryColor)
	helpKeyStyle  = lipgloss.NewStyle().Bold(true).Width(22)
	transferStyle = lipgloss.NewStyle().Foreground(mutedColor)

	modalStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 2)

	modalHintStyle = lipgloss.NewStyle().Foreground(mutedColor)
)
