package secret

import "runtime"

// Text is a one-shot container for secret text. It owns a private copy of
// the input, so destroying it never touches a caller's buffer.
type Text struct {
	b         []byte
	destroyed bool
}

// NewText copies s into a new Text.
func NewText(s string) *Text {
	return &Text{b: []byte(s)}
}

// Reveal returns the secret bytes, or nil once the Text has been destroyed.
// The returned slice aliases the container; callers that need the bytes past
// Destroy must copy them first.
func (t *Text) Reveal() []byte {
	if t.destroyed {
		return nil
	}
	return t.b
}

// Destroy zeroizes the secret. Safe to call more than once.
func (t *Text) Destroy() {
	if t.destroyed {
		return
	}
	Zero(t.b)
	t.b = nil
	t.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (t *Text) Destroyed() bool {
	return t.destroyed
}

// Zero overwrites b with zeros to clear sensitive data from memory.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b) // Prevent dead code elimination
}
