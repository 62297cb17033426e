package tui

import "github.com/charmbracelet/lipgloss"

// One Dark Pro color palette
var (
	ColorBgPrimary   = lipgloss.Color("#282C34")
	ColorBgHighlight = lipgloss.Color("#2C313C")

	ColorFgPrimary   = lipgloss.Color("#ABB2BF")
	ColorFgSecondary = lipgloss.Color("#828997")
	ColorFgMuted     = lipgloss.Color("#636B78")

	ColorRed     = lipgloss.Color("#E06C75")
	ColorGreen   = lipgloss.Color("#98C379")
	ColorYellow  = lipgloss.Color("#E5C07B")
	ColorBlue    = lipgloss.Color("#61AFEF")
	ColorMagenta = lipgloss.Color("#C678DD")
	ColorCyan    = lipgloss.Color("#56B6C2")

	ColorBorder = lipgloss.Color("#3F4451")
)

// Screen styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	// Welcome screens are one large centered line
	WelcomeStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary).
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorMagenta)

	WelcomeFadingStyle = WelcomeStyle.
				Foreground(ColorFgMuted).
				BorderForeground(ColorBorder)

	PromptStyle = lipgloss.NewStyle().
			Foreground(ColorFgSecondary)

	// Identity form
	DigitBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBlue).
			Foreground(ColorFgPrimary).
			Bold(true).
			Width(3).
			Align(lipgloss.Center)

	DigitEmptyStyle = DigitBoxStyle.
			BorderForeground(ColorBorder)

	// Student card shown on camera and result screens
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 2)

	CardNameStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	CardMetaStyle = lipgloss.NewStyle().
			Foreground(ColorFgSecondary)

	// Camera
	CameraLiveStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	CameraIdleStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	AnalyzingStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	// Result markdown
	ResultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBlue).
			Padding(0, 1)

	ThanksStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGreen)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			PaddingLeft(1).
			PaddingRight(1)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)
)
