package config

// ValidThemes lists the accepted UI themes.
var ValidThemes = []string{"dark", "light"}

// UIConfig holds user interface configuration.
type UIConfig struct {
	// Theme selects the colour palette: dark or light.
	Theme string `json:"theme" yaml:"theme"`

	// Width caps rendered tables and patient cards (0 = terminal width)
	Width int `json:"width,omitempty" yaml:"width,omitempty"`

	// WatchFiles shows a notice in the menu when a data file changes on disk
	WatchFiles bool `json:"watch_files" yaml:"watch_files"`
}

// DefaultUIConfig returns sensible UI defaults.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Theme:      "dark",
		Width:      0,
		WatchFiles: true,
	}
}
