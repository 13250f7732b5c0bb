// Command ragdoll runs the ragdoll simulation, either in a window or headless for a fixed time.
//
//	ragdoll                          open the viewer with config/engine.yaml
//	ragdoll -seed 42                 fall onto noise terrain
//	ragdoll -headless 5 -impact 0,0,1200
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"

	"ragdoll-engine/internal/commands"
	"ragdoll-engine/internal/engineconfig"
	"ragdoll-engine/internal/logger"
	"ragdoll-engine/internal/sim"
)

type options struct {
	configPath   string
	logPath      string
	seed         int64
	slope        float64
	terrainImage string
	headless     float64
	impact       string
	saveConfig   bool
	fullscreen   bool
	watch        bool
	set          map[string]bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log := logger.New(opts.logPath)
	cfg, err := opts.load()
	if err != nil {
		log.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if opts.saveConfig {
		if err := engineconfig.Save(opts.configPath, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		log.Infof("saved config to %s", opts.configPath)
	}

	s, err := sim.New(cfg, log)
	if err != nil {
		log.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer s.Dispose()

	if opts.headless > 0 {
		impact := mgl64.Vec3{}
		if opts.impact != "" {
			if impact, err = commands.ParseVec3(opts.impact); err != nil {
				fmt.Fprintln(os.Stderr, "-impact:", err)
				return 2
			}
		}
		sum := s.RunHeadless(opts.headless, impact)
		fmt.Println(sum)
		if !sum.Finite {
			return 1
		}
		return 0
	}

	runViewer(s, log, opts)
	return 0
}

// load reads the config file and applies the terrain flags on top.
func (o options) load() (engineconfig.Config, error) {
	cfg, err := engineconfig.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	return o.apply(cfg), nil
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("ragdoll", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", engineconfig.DefaultPath, "engine config file")
	fs.StringVar(&o.logPath, "log", logger.DefaultPath, "log file, empty to keep logs in memory")
	fs.Int64Var(&o.seed, "seed", 0, "generate noise terrain with this seed")
	fs.Float64Var(&o.slope, "slope", 0, "use a plane tilted by this many degrees")
	fs.StringVar(&o.terrainImage, "terrain-image", "", "use a grayscale height image as terrain")
	fs.Float64Var(&o.headless, "headless", 0, "simulate this many seconds without a window and print a summary")
	fs.StringVar(&o.impact, "impact", "", "headless impact force on the hips as x,y,z")
	fs.BoolVar(&o.saveConfig, "save-config", false, "write the effective config back to -config")
	fs.BoolVar(&o.fullscreen, "fullscreen", false, "open the viewer fullscreen")
	fs.BoolVar(&o.watch, "watch", true, "rebuild the viewer simulation when the config file changes")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// apply overrides the terrain in cfg with the terrain flags that were given. An image beats a
// seed, and a seed beats a slope.
func (o options) apply(cfg engineconfig.Config) engineconfig.Config {
	t := &cfg.Viewer.Terrain
	if o.set["slope"] {
		t.Kind = engineconfig.TerrainSlope
		t.SlopeDegrees = o.slope
	}
	if o.set["seed"] {
		t.Kind = engineconfig.TerrainNoise
		t.Noise.Seed = o.seed
	}
	if o.set["terrain-image"] {
		t.Kind = engineconfig.TerrainImage
		t.ImagePath = o.terrainImage
	}
	return cfg
}
