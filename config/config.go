// Package config holds the compiled-in settings of the bitmap program and the
// command-line overrides for them.
package config

import (
	"flag"
	"io"
	"time"

	"github.com/cockroachdb/errors"
)

const maxFramesInFlight = 8

type WindowConfiguration struct {
	Title  string
	Width  int
	Height int
}

type RendererConfiguration struct {
	FramesInFlight int
	// Validation enables the Khronos validation layer and the debug
	// messenger.
	Validation bool
	// TransferQueue runs the texture copy on the transfer queue instead of
	// the graphics queue.
	TransferQueue bool
	Texture       bool
	// VertexBuffer draws the quad from a vertex buffer instead of deriving
	// positions in the vertex shader.
	VertexBuffer bool
}

type ShaderConfiguration struct {
	Vertex       string
	VertexBuffer string
	Fragment     string
}

type Config struct {
	Window   WindowConfiguration
	Renderer RendererConfiguration
	Shaders  ShaderConfiguration

	StatsInterval time.Duration
	Verbose       bool
}

func Default() Config {
	return Config{
		Window: WindowConfiguration{
			Title:  "Affinity",
			Width:  1920,
			Height: 1440,
		},
		Renderer: RendererConfiguration{
			FramesInFlight: 2,
			Validation:     true,
			TransferQueue:  true,
			Texture:        true,
		},
		Shaders: ShaderConfiguration{
			Vertex:       "shaders/quad.vert.spv",
			VertexBuffer: "shaders/quad_vertex.vert.spv",
			Fragment:     "shaders/quad.frag.spv",
		},
		StatsInterval: 5 * time.Second,
	}
}

// Parse applies command-line overrides to the defaults and validates the
// result. args excludes the program name.
func Parse(args []string, output io.Writer) (Config, error) {
	cfg := Default()

	var noValidation, noTransferQueue, noTexture bool

	flags := flag.NewFlagSet("bitmap", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.BoolVar(&noValidation, "no-validation", false, "Do not load the Vulkan validation layer")
	flags.BoolVar(&noTransferQueue, "no-transfer-queue", false, "Upload the bitmap on the graphics queue")
	flags.BoolVar(&noTexture, "no-texture", false, "Skip the bitmap upload")
	flags.BoolVar(&cfg.Renderer.VertexBuffer, "vertex-buffer", cfg.Renderer.VertexBuffer, "Draw the quad from a vertex buffer")
	flags.IntVar(&cfg.Renderer.FramesInFlight, "frames-in-flight", cfg.Renderer.FramesInFlight, "Number of frames recorded ahead of the GPU")
	flags.IntVar(&cfg.Window.Width, "width", cfg.Window.Width, "Window width")
	flags.IntVar(&cfg.Window.Height, "height", cfg.Window.Height, "Window height")
	flags.DurationVar(&cfg.StatsInterval, "stats-interval", cfg.StatsInterval, "How often to log the frame rate, 0 to disable")
	flags.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Log at debug level")

	err := flags.Parse(args)
	if err != nil {
		return cfg, errors.Wrap(err, "parse flags")
	}
	if flags.NArg() > 0 {
		return cfg, errors.Newf("config: unexpected arguments %v", flags.Args())
	}

	cfg.Renderer.Validation = !noValidation
	cfg.Renderer.TransferQueue = !noTransferQueue
	cfg.Renderer.Texture = !noTexture

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("config: window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 1 || c.Renderer.FramesInFlight > maxFramesInFlight {
		return errors.Newf("config: frames in flight %d outside 1..%d", c.Renderer.FramesInFlight, maxFramesInFlight)
	}
	if c.StatsInterval < 0 {
		return errors.Newf("config: negative stats interval %s", c.StatsInterval)
	}
	return nil
}

// VertexShader is the vertex shader matching the configured draw mode.
func (c Config) VertexShader() string {
	if c.Renderer.VertexBuffer {
		return c.Shaders.VertexBuffer
	}
	return c.Shaders.Vertex
}
