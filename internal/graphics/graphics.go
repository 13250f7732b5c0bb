package graphics

import rl "github.com/gen2brain/raylib-go/raylib"

// WindowOptions configures the window opened by Run.
type WindowOptions struct {
	Title      string
	Width      int32
	Height     int32
	Fullscreen bool
	TargetFPS  int32
	// OnClose runs after the last frame while the GL context still exists, so GPU resources
	// can be released.
	OnClose func()
}

// DefaultWindowOptions returns a resizable 1280x720 window at 60 FPS.
func DefaultWindowOptions() WindowOptions {
	return WindowOptions{Title: "ragdoll", Width: 1280, Height: 720, TargetFPS: 60}
}

// Run opens the window and runs the main loop until it is closed. Each frame it calls update
// with the frame time in seconds (e.g. input and simulation), then clears the screen and calls
// draw. This keeps the graphics layer separate from the simulation and the terminal.
// ESC toggles the terminal, so the window closes only through the window button.
func Run(opts WindowOptions, update func(dt float32), draw func()) {
	flags := uint32(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	width, height := opts.Width, opts.Height
	if opts.Fullscreen {
		flags |= rl.FlagFullscreenMode
		width, height = int32(rl.GetMonitorWidth(0)), int32(rl.GetMonitorHeight(0))
	}
	rl.SetConfigFlags(flags)
	rl.InitWindow(width, height, opts.Title)
	defer rl.CloseWindow()

	rl.SetExitKey(rl.KeyNull)
	rl.SetTargetFPS(opts.TargetFPS)

	for !rl.WindowShouldClose() {
		update(rl.GetFrameTime())

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(28, 30, 36, 255))
		draw()
		rl.EndDrawing()
	}
	if opts.OnClose != nil {
		opts.OnClose()
	}
}
