package tier

// Capability is an opaque token standing in for a caller identity. The
// engine never interprets the token; it only compares it against the
// capability configured for a surface, so the identity scheme behind it
// is entirely the caller's concern.
type Capability string

// matches reports whether the held capability grants access. An empty
// configured capability grants nothing, so a zero-value engine is closed.
func (c Capability) matches(presented Capability) bool {
	return c != "" && c == presented
}
