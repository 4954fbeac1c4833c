package main

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/bitmap/config"
	"github.com/vkngwrapper/bitmap/frame"
)

type window struct {
	*sdl.Window
}

func openWindow(cfg config.WindowConfiguration) (*window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, errors.Wrap(err, "initialize sdl")
	}

	w, err := sdl.CreateWindow(cfg.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(cfg.Width), int32(cfg.Height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	return &window{Window: w}, nil
}

// PollEvents drains the SDL event queue.
func (w *window) PollEvents() frame.Events {
	var events frame.Events
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			events.Quit = true
		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_RESTORED:
				events.Resized = true
			}
		}
	}
	return events
}

// DrawableSize is zero while the window is minimized.
func (w *window) DrawableSize() (int, int) {
	if w.GetFlags()&sdl.WINDOW_MINIMIZED != 0 {
		return 0, 0
	}
	width, height := w.VulkanGetDrawableSize()
	return int(width), int(height)
}

func (w *window) Close() {
	w.Destroy()
	sdl.Quit()
}
