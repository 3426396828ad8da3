package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/instanced/engine/core"
)

func init() {
	// GLFW event handling and the GL context must stay on the main OS thread
	runtime.LockOSThread()
}

type WindowConfig struct {
	Title  string `toml:"title"`
	PosX   int    `toml:"pos_x"`
	PosY   int    `toml:"pos_y"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
	// Hide and capture the cursor for mouse look.
	CaptureCursor bool `toml:"capture_cursor"`
}

// ResizeFunc is called with the new framebuffer size in pixels.
type ResizeFunc func(width, height int)

type Platform struct {
	Window *glfw.Window
	input  *core.InputState
	logger core.Logger

	onResize ResizeFunc
}

func New(input *core.InputState, logger core.Logger) *Platform {
	return &Platform{
		input:  input,
		logger: core.OrNop(logger),
	}
}

// Startup opens the window and makes its OpenGL 4.6 core context current.
func (p *Platform) Startup(config WindowConfig) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(config.Width, config.Height, config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create window: %w", err)
	}
	window.MakeContextCurrent()
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	if config.CaptureCursor {
		p.Window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	}
	p.Window.SetPos(config.PosX, config.PosY)
	p.Window.Show()

	p.logger.Infof("Window %q created (%dx%d)", config.Title, config.Width, config.Height)
	return nil
}

// OnResize registers fn for framebuffer size changes and calls it once with
// the current size.
func (p *Platform) OnResize(fn ResizeFunc) {
	p.onResize = fn
	if p.Window != nil && fn != nil {
		fn(p.Window.GetFramebufferSize())
	}
}

func (p *Platform) FramebufferSize() (int, int) {
	if p.Window == nil {
		return 0, 0
	}
	return p.Window.GetFramebufferSize()
}

// PumpMessages polls window events. Returns false once the window should close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

func (p *Platform) SwapBuffers() {
	p.Window.SwapBuffers()
}

func (p *Platform) RequestClose() {
	if p.Window != nil {
		p.Window.SetShouldClose(true)
	}
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

func GetAbsoluteTime() float64 {
	return glfw.GetTime()
}

var keyMap = map[glfw.Key]core.KeyCode{
	glfw.KeyW:         core.KEY_W,
	glfw.KeyA:         core.KEY_A,
	glfw.KeyS:         core.KEY_S,
	glfw.KeyD:         core.KEY_D,
	glfw.KeySpace:     core.KEY_SPACE,
	glfw.KeyLeftShift: core.KEY_LSHIFT,
	glfw.KeyEscape:    core.KEY_ESCAPE,
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := keyMap[key]
	if !ok || action == glfw.Repeat {
		return
	}
	p.input.ProcessKey(code, action == glfw.Press)
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	var b core.Button
	switch button {
	case glfw.MouseButtonLeft:
		b = core.BUTTON_LEFT
	case glfw.MouseButtonRight:
		b = core.BUTTON_RIGHT
	case glfw.MouseButtonMiddle:
		b = core.BUTTON_MIDDLE
	default:
		return
	}
	p.input.ProcessButton(b, action == glfw.Press)
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	p.input.ProcessMouseMove(xpos, ypos)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if p.onResize != nil {
		p.onResize(width, height)
	}
}
