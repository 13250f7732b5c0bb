package terminal

import (
	"strings"
	"unicode/utf8"

	rl "github.com/gen2brain/raylib-go/raylib"

	"ragdoll-engine/internal/commands"
	"ragdoll-engine/internal/logger"
)

const (
	BarHeight = 40
	// When windowed, move bar up by this many pixels so it stays visible.
	WindowedBarOffset = 56
	prompt            = "> "
	fontSize          = 20
	padding           = 8
	// Number of log lines drawn above the input bar when terminal is open.
	maxLinesOnScreen = 14
	lineHeight       = fontSize + 4
	maxLineLen       = 200
)

var (
	// Reused every frame when drawing the terminal bar to avoid per-frame color allocations.
	termBarColor    = rl.NewColor(40, 40, 40, 255)
	termLineColor   = rl.NewColor(80, 80, 80, 255)
	termChatBgColor = rl.NewColor(24, 24, 24, 240)
	termWarnColor   = rl.NewColor(240, 200, 90, 255)
)

// Terminal is the console bar at the bottom of the screen. It is shown/hidden with ESC.
// When open, it handles typing and drawing and the viewer ignores its own key bindings.
// Lines starting with "cmd " are parsed as subcommand + flags and executed via the command
// registry; anything else is echoed to the log with a hint.
type Terminal struct {
	log      *logger.Logger
	reg      *commands.Registry
	inputBuf string
	open     bool
}

// New returns a Terminal that logs lines and runs "cmd ..." through reg. It also registers
// "cmd help". It starts closed; press ESC to open.
func New(log *logger.Logger, reg *commands.Registry) *Terminal {
	t := &Terminal{log: log, reg: reg}
	reg.Register("help", "list commands", nil, func() error {
		for _, line := range reg.Help() {
			log.Infof("  %s", line)
		}
		return nil
	})
	return t
}

// IsOpen returns true when the terminal is visible and capturing input.
func (t *Terminal) IsOpen() bool {
	return t.open
}

// Submit runs one input line as if it had been typed and entered.
func (t *Terminal) Submit(line string) {
	if line == "" {
		return
	}
	t.log.Log(prompt + line)
	ran, err := t.reg.ExecuteLine(line)
	switch {
	case err != nil:
		t.log.Errorf("%v", err)
	case !ran:
		t.log.Warnf("not a command, try: cmd help")
	}
}

// Update handles ESC (toggle open/closed), and when open: typing, paste, backspace, enter.
// Call once per frame.
func (t *Terminal) Update() {
	if rl.IsKeyPressed(rl.KeyEscape) {
		t.open = !t.open
	}
	if !t.open {
		return
	}
	// Paste: Ctrl+V (Windows/Linux) or Cmd+V (macOS)
	if rl.IsKeyPressed(rl.KeyV) && (rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl) || rl.IsKeyDown(rl.KeyLeftSuper) || rl.IsKeyDown(rl.KeyRightSuper)) {
		if pasted := rl.GetClipboardText(); pasted != "" {
			t.inputBuf += pasted
		}
	} else {
		for c := rl.GetCharPressed(); c != 0; c = rl.GetCharPressed() {
			t.inputBuf += string(rune(c))
		}
	}
	if rl.IsKeyPressed(rl.KeyBackspace) && len(t.inputBuf) > 0 {
		_, size := utf8.DecodeLastRuneInString(t.inputBuf)
		t.inputBuf = t.inputBuf[:len(t.inputBuf)-size]
	}
	if rl.IsKeyPressed(rl.KeyEnter) || rl.IsKeyPressed(rl.KeyKpEnter) {
		line := t.inputBuf
		t.inputBuf = ""
		t.Submit(line)
	}
}

// Draw draws the terminal bar at the bottom when open, and the recent log lines above it.
func (t *Terminal) Draw() {
	if !t.open {
		return
	}
	screenW := int32(rl.GetScreenWidth())
	screenH := int32(rl.GetScreenHeight())
	barY := screenH - BarHeight
	if !rl.IsWindowFullscreen() {
		barY -= WindowedBarOffset
	}

	chatHeight := int32(maxLinesOnScreen * lineHeight)
	chatY := barY - chatHeight
	if chatY < 0 {
		chatHeight = barY
		chatY = 0
	}
	if chatHeight > 0 {
		rl.DrawRectangle(0, chatY, screenW, chatHeight, termChatBgColor)
	}
	for i, line := range t.log.Tail(maxLinesOnScreen) {
		if len(line) > maxLineLen {
			line = line[:maxLineLen-3] + "..."
		}
		col := rl.LightGray
		if isAlert(line) {
			col = termWarnColor
		}
		rl.DrawText(line, padding, chatY+int32(i)*lineHeight+padding, fontSize, col)
	}

	rl.DrawRectangle(0, barY, screenW, BarHeight, termBarColor)
	rl.DrawRectangle(0, barY, screenW, 1, termLineColor)
	rl.DrawText(prompt+t.inputBuf+"|", padding, barY+padding, fontSize, rl.White)
}

// isAlert reports whether a stamped log line is a warning or an error.
func isAlert(line string) bool {
	return strings.Contains(line, "] "+string(logger.LevelWarn)+" ") ||
		strings.Contains(line, "] "+string(logger.LevelError)+" ")
}
