package domain

// Theme values accepted by the presentation layer.
const (
	ThemeSystem = "System"
	ThemeLight  = "Light"
	ThemeDark   = "Dark"
)

// LanguageSystem resolves the language from the environment.
const LanguageSystem = "System"

// Settings is the process-wide user configuration.
// It is loaded once at startup and handed to the components that need it.
type Settings struct {
	Theme        string `json:"theme"`
	AutoRestart  bool   `json:"auto_restart"`
	Language     string `json:"language"`
	AnimatedBG   bool   `json:"animated_bg"`
	Transparency string `json:"transparency"`
}

// DarkPreview reports whether previews should be drawn with a light
// foreground. System is treated as light.
func (s Settings) DarkPreview() bool {
	return s.Theme == ThemeDark
}
