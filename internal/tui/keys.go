package tui

// Keybinding constants
const (
	KeyTab       = "tab"
	KeyShiftTab  = "shift+tab"
	KeyQuit      = "q"
	KeyCtrlC     = "ctrl+c"
	KeyRecompute = "r"
	KeyMode      = "o"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyJ         = "j"
	KeyK         = "k"
)

// HelpView returns a one-line help bar with common keybindings.
func HelpView() string {
	return StyleHelp.Render("Tab: switch pane | j/k: scroll | r: recompute | o: cycle mode | q: quit")
}
