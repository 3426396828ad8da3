package core

type Button uint8

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// KeyCode covers the keys the frame loop reacts to.
type KeyCode uint8

const (
	KEY_W KeyCode = iota
	KEY_A
	KEY_S
	KEY_D
	KEY_SPACE
	KEY_LSHIFT
	KEY_ESCAPE
	KEYS_MAX_KEYS
)

type MouseState struct {
	X       float64
	Y       float64
	Buttons [BUTTON_MAX_BUTTONS]bool
}

type KeyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

// InputState holds current and previous keyboard/mouse states. The platform
// layer writes into it from window callbacks, the frame loop reads it.
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	MouseCurrent     MouseState
	MousePrevious    MouseState

	hasMouse bool
}

func NewInputState() *InputState {
	return &InputState{}
}

// Update rolls current state into previous. Call once per frame after reading.
func (is *InputState) Update() {
	is.KeyboardPrevious = is.KeyboardCurrent
	is.MousePrevious = is.MouseCurrent
}

func (is *InputState) IsKeyDown(key KeyCode) bool {
	return is.KeyboardCurrent.Keys[key]
}

func (is *InputState) WasKeyDown(key KeyCode) bool {
	return is.KeyboardPrevious.Keys[key]
}

func (is *InputState) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS {
		return
	}
	is.KeyboardCurrent.Keys[key] = pressed
}

func (is *InputState) IsButtonDown(button Button) bool {
	return is.MouseCurrent.Buttons[button]
}

func (is *InputState) ProcessButton(button Button, pressed bool) {
	if button >= BUTTON_MAX_BUTTONS {
		return
	}
	is.MouseCurrent.Buttons[button] = pressed
}

func (is *InputState) ProcessMouseMove(x, y float64) {
	if !is.hasMouse {
		// First sample: no delta against the zero position.
		is.MousePrevious.X, is.MousePrevious.Y = x, y
		is.hasMouse = true
	}
	is.MouseCurrent.X = x
	is.MouseCurrent.Y = y
}

// MouseDelta is the cursor movement since the last Update.
func (is *InputState) MouseDelta() (float64, float64) {
	return is.MouseCurrent.X - is.MousePrevious.X, is.MouseCurrent.Y - is.MousePrevious.Y
}
