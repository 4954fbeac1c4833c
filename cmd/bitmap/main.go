// Command bitmap opens a window and presents a flat gray quad every frame
// through Vulkan, rebuilding the swapchain whenever the window changes.
package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/bitmap/bitmap"
	"github.com/vkngwrapper/bitmap/config"
	"github.com/vkngwrapper/bitmap/frame"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/bitmap/swapchain"
	"github.com/vkngwrapper/bitmap/vulkan"
)

type application struct {
	cfg config.Config
	log *logrus.Logger

	window  *window
	context *vulkan.Context

	vertexShader   gpu.ShaderModule
	fragmentShader gpu.ShaderModule
	vertexBuffer   gpu.Buffer
	texture        *bitmap.Texture

	loop *frame.Loop
}

func (app *application) Run() error {
	err := app.init()
	if err != nil {
		return err
	}

	return app.loop.Run()
}

func (app *application) init() error {
	var err error
	app.window, err = openWindow(app.cfg.Window)
	if err != nil {
		return err
	}

	app.context, err = vulkan.New(app.window.Window, vulkan.Options{
		ApplicationName: app.cfg.Window.Title,
		Validation:      app.cfg.Renderer.Validation,
		Logger:          app.log,
	})
	if err != nil {
		return err
	}

	app.vertexShader, err = vulkan.LoadShader(app.context, app.cfg.VertexShader())
	if err != nil {
		return err
	}
	app.fragmentShader, err = vulkan.LoadShader(app.context, app.cfg.Shaders.Fragment)
	if err != nil {
		return err
	}

	opts := swapchain.Options{
		Draw:           swapchain.DrawStrip,
		VertexShader:   app.vertexShader,
		FragmentShader: app.fragmentShader,
	}
	if app.cfg.Renderer.VertexBuffer {
		app.vertexBuffer, err = swapchain.NewQuadBuffer(app.context)
		if err != nil {
			return err
		}
		opts.Draw = swapchain.DrawVertexBuffer
		opts.VertexBuffer = app.vertexBuffer
	}

	builder, err := swapchain.NewBuilder(app.context, app.window, opts)
	if err != nil {
		return err
	}

	app.loop, err = frame.New(app.context, app.window, builder, frame.Options{
		FramesInFlight: app.cfg.Renderer.FramesInFlight,
		StatsInterval:  app.cfg.StatsInterval,
		Logger:         app.log,
	})
	if err != nil {
		return err
	}

	if app.cfg.Renderer.Texture {
		queue := gpu.QueueGraphics
		if app.cfg.Renderer.TransferQueue {
			queue = gpu.QueueTransfer
		}

		app.texture, err = bitmap.Upload(app.context, bitmap.Gray(bitmap.DefaultWidth, bitmap.DefaultHeight, bitmap.DefaultLevel), queue)
		if err != nil {
			return errors.Wrap(err, "upload bitmap")
		}
		app.log.WithFields(logrus.Fields{
			"queue":  queue,
			"width":  app.texture.Width,
			"height": app.texture.Height,
		}).Debug("bitmap uploaded")
	}

	return nil
}

// cleanup tears down whatever init managed to create, newest first.
func (app *application) cleanup() {
	if app.loop != nil {
		err := app.loop.Close()
		if err != nil {
			app.log.WithError(err).Error("close frame loop")
		}
	}

	if app.context != nil {
		app.texture.Destroy(app.context)
		if app.vertexBuffer.Initialized() {
			app.context.DestroyBuffer(app.vertexBuffer)
		}
		if app.fragmentShader.Initialized() {
			app.context.DestroyShaderModule(app.fragmentShader)
		}
		if app.vertexShader.Initialized() {
			app.context.DestroyShaderModule(app.vertexShader)
		}
		app.context.Close()
	}

	if app.window != nil {
		app.window.Close()
	}
}

func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func main() {
	runtime.LockOSThread()

	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logrus.Fatalf("%+v", err)
	}

	app := &application{cfg: cfg, log: newLogger(cfg.Verbose)}
	err = app.Run()
	app.cleanup()
	if err != nil {
		app.log.Errorf("%+v", err)
		os.Exit(1)
	}
}
