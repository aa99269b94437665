package chatstream

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values. A negative
// index means no color.
type Theme struct {
	UserMsg   int // User message accent
	Assistant int // Assistant message label
	Error     int // Failure text
	Warning   int // Timeouts, cancellations, usage-limit hints
	Success   int // Completion indicators
	Muted     int // Status bar, placeholders
	UserBg    int // User message background
	Accent    int // Streaming cursor, key hints
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg:   4,
		Assistant: 6,
		Error:     1,
		Warning:   3,
		Success:   2,
		Muted:     8,
		UserBg:    0,
		Accent:    5,
	}
}
