// Package config implements the Config record (component Q): the
// validated settings every other component is wired up from. Defaults are
// built in code, an optional TOML file overlays them, and CLI flags
// overlay the TOML file — flags > TOML > defaults, matching spec.md §6's
// CLI flag table one field at a time.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/scinthd/engine/core"
)

// Config is the server's fully-resolved configuration.
type Config struct {
	BindAddress string `toml:"bind_address"`
	UDPPort     int    `toml:"udp_port"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	// FrameRate: 0 means manual/non-realtime advance, -1 means free-run
	// with late-frame tracking, >0 is a fixed target frame rate.
	FrameRate int `toml:"frame_rate"`
	// NumImages: Offscreen engine's image-ring depth; must be >= 2.
	NumImages int `toml:"num_images"`
	Offscreen bool `toml:"offscreen"`
	// LogLevel: 0 (most verbose) .. 6 (silent).
	LogLevel     int    `toml:"log_level"`
	ScinthDefDir string `toml:"scinth_def_dir"`
	VGenDir      string `toml:"vgen_dir"`
	GlslcPath    string `toml:"glslc_path"`
}

// Default returns the built-in configuration defaults, applied before any
// TOML file or CLI flag overlay.
func Default() Config {
	return Config{
		BindAddress:  "0.0.0.0",
		UDPPort:      5511,
		Width:        640,
		Height:       480,
		FrameRate:    60,
		NumImages:    3,
		Offscreen:    false,
		LogLevel:     2,
		ScinthDefDir: "scinthdefs",
		VGenDir:      "vgens",
		GlslcPath:    "",
	}
}

// LoadTOML overlays cfg with whatever fields path's TOML document sets,
// leaving any field the document omits untouched. A missing file is not an
// error (the file is optional); a malformed one is a Parse-kind error.
func LoadTOML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return core.NewError(core.KindRuntime, fmt.Errorf("config: reading %s: %w", path, err))
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return core.NewError(core.KindParse, fmt.Errorf("config: parsing %s: %w", path, err))
	}
	return nil
}

// ParseFlags overlays cfg with whatever flags the caller actually passed on
// args, leaving fields the caller didn't mention untouched. name is the
// program name used in usage output.
func ParseFlags(cfg *Config, name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	bindAddress := fs.String("bind_address", cfg.BindAddress, "address to bind the UDP control socket to")
	udpPort := fs.Int("udp_port", cfg.UDPPort, "UDP port to listen on")
	width := fs.Int("width", cfg.Width, "render target width in pixels")
	height := fs.Int("height", cfg.Height, "render target height in pixels")
	frameRate := fs.Int("frame_rate", cfg.FrameRate, "target frame rate (0=manual, -1=free-run)")
	numImages := fs.Int("num_images", cfg.NumImages, "offscreen image ring depth (>= 2)")
	offscreen := fs.Bool("offscreen", cfg.Offscreen, "run without a window, rendering to the offscreen engine")
	logLevel := fs.Int("log_level", cfg.LogLevel, "log verbosity, 0 (most verbose) .. 6 (silent)")
	scinthDefDir := fs.String("scinth_def_dir", cfg.ScinthDefDir, "directory of ScinthDef YAML documents")
	vgenDir := fs.String("vgen_dir", cfg.VGenDir, "directory of AbstractVGen YAML documents")
	configPath := fs.String("config", "", "path to a scinthd.toml configuration file")
	glslcPath := fs.String("glslc_path", cfg.GlslcPath, "path to the glslc binary (default: resolved from $PATH)")

	if err := fs.Parse(args); err != nil {
		return core.NewError(core.KindParse, err)
	}

	if *configPath != "" {
		if err := LoadTOML(cfg, *configPath); err != nil {
			return err
		}
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["bind_address"] {
		cfg.BindAddress = *bindAddress
	}
	if set["udp_port"] {
		cfg.UDPPort = *udpPort
	}
	if set["width"] {
		cfg.Width = *width
	}
	if set["height"] {
		cfg.Height = *height
	}
	if set["frame_rate"] {
		cfg.FrameRate = *frameRate
	}
	if set["num_images"] {
		cfg.NumImages = *numImages
	}
	if set["offscreen"] {
		cfg.Offscreen = *offscreen
	}
	if set["log_level"] {
		cfg.LogLevel = *logLevel
	}
	if set["scinth_def_dir"] {
		cfg.ScinthDefDir = *scinthDefDir
	}
	if set["vgen_dir"] {
		cfg.VGenDir = *vgenDir
	}
	if set["glslc_path"] {
		cfg.GlslcPath = *glslcPath
	}

	return cfg.Validate()
}

// Validate reports the first structural violation found in cfg, if any.
func (c *Config) Validate() error {
	if c.NumImages < 2 {
		return core.NewError(core.KindValidation, fmt.Errorf("config: num_images %d, want >= 2", c.NumImages))
	}
	if c.Width <= 0 || c.Height <= 0 {
		return core.NewError(core.KindValidation, fmt.Errorf("config: width/height must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.UDPPort <= 0 || c.UDPPort > 65535 {
		return core.NewError(core.KindValidation, fmt.Errorf("config: udp_port %d out of range", c.UDPPort))
	}
	if c.LogLevel < 0 || c.LogLevel > 6 {
		return core.NewError(core.KindValidation, fmt.Errorf("config: log_level %d out of range 0..6", c.LogLevel))
	}
	return nil
}

// LogLevelValue maps the resolved 0..6 verbosity onto a charmbracelet/log level.
func (c *Config) LogLevelValue() log.Level {
	return core.LevelFromVerbosity(c.LogLevel)
}
