package main

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"ragdoll-engine/internal/debug"
	"ragdoll-engine/internal/engineconfig"
	"ragdoll-engine/internal/graphics"
	"ragdoll-engine/internal/logger"
	"ragdoll-engine/internal/primitives"
	"ragdoll-engine/internal/scene"
	"ragdoll-engine/internal/sim"
	"ragdoll-engine/internal/terminal"
)

// keyImpact is the force Space applies to the hips, pushing the ragdoll away from the camera.
const keyImpact = 1200.0

// runViewer opens the window and drives s from the keyboard until the window is closed.
//
//	Space  push the ragdoll        R    stand back up
//	G      toggle grid             C    toggle constraint wires
//	F1     toggle FPS              Tab  toggle free camera
//	ESC    toggle the terminal
func runViewer(s *sim.Sim, log *logger.Logger, opts options) {
	prefs := s.Config.Viewer
	term := terminal.New(log, s.Commands)
	scn := scene.New()
	scn.SetGridVisible(prefs.GridVisible)
	scn.SetTerrain(s.Terrain)
	dbg := debug.New()
	dbg.SetShowFPS(prefs.ShowFPS)
	dbg.SetShowMemAlloc(prefs.ShowMemAlloc)
	dbg.ShowState = true
	prims := primitives.NewRegistry()
	showConstraints := prefs.ShowConstraints

	var changes <-chan string
	if opts.watch {
		if w, err := engineconfig.Watch(opts.configPath); err != nil {
			log.Warnf("config: not watching %s: %v", opts.configPath, err)
		} else {
			defer w.Close()
			changes = w.Events
		}
	}
	reload := func() {
		cfg, err := opts.load()
		if err == nil {
			err = s.Reload(cfg)
		}
		if err != nil {
			log.Errorf("config: reload: %v", err)
			return
		}
		scn.SetTerrain(s.Terrain)
		log.Infof("config: reloaded %s", opts.configPath)
	}

	update := func(dt float32) {
		select {
		case <-changes:
			reload()
		default:
		}
		term.Update()
		if !term.IsOpen() {
			switch {
			case rl.IsKeyPressed(rl.KeySpace):
				s.Controller.ApplyImpact(pushAway(scn.Camera).Mul(keyImpact), nil)
			case rl.IsKeyPressed(rl.KeyR):
				s.Reset()
			case rl.IsKeyPressed(rl.KeyG):
				scn.SetGridVisible(!scn.GridVisible)
			case rl.IsKeyPressed(rl.KeyC):
				showConstraints = !showConstraints
			case rl.IsKeyPressed(rl.KeyF1):
				dbg.SetShowFPS(!dbg.ShowFPS)
			case rl.IsKeyPressed(rl.KeyTab):
				scn.FreeCamera = !scn.FreeCamera
			}
		}
		s.Update(float64(dt))
		scn.Follow(s.Focus())
		scn.Update(dt)
	}
	draw := func() {
		cam := scn.Camera.Position
		prims.SetView([3]float32{cam.X, cam.Y, cam.Z}, [3]float32{0.5, 1, 0.5})
		scn.Draw(func() {
			debug.DrawBody(s.Controller, prims)
			if showConstraints {
				debug.DebugDraw(s.Controller)
			}
		})
		dbg.Draw(s.Controller)
		term.Draw()
	}

	win := graphics.DefaultWindowOptions()
	win.Fullscreen = opts.fullscreen
	win.OnClose = func() {
		prims.Unload()
		scn.Unload()
	}
	graphics.Run(win, update, draw)
}

// pushAway returns the horizontal unit direction from the camera to its target.
func pushAway(cam rl.Camera3D) mgl64.Vec3 {
	d := mgl64.Vec3{float64(cam.Target.X - cam.Position.X), 0, float64(cam.Target.Z - cam.Position.Z)}
	if d.Len() < 1e-6 {
		return mgl64.Vec3{0, 0, -1}
	}
	return d.Normalize()
}
