package model

// CustomJS is a JS callback binding attached to a model. Args values are
// either *Model references (made available by ref on the client) or
// plain values passed through as literals. Tags carry the identity of
// the link that emitted the callback so re-resolution can detect an
// existing attachment.
type CustomJS struct {
	Args map[string]any
	Code string
	Tags []string
}

// HasTag reports whether the callback carries the given identity tag.
func (c *CustomJS) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// OnChange attaches a JS callback fired when the named property changes.
func (m *Model) OnChange(prop string, cb *CustomJS) {
	m.changeCallbacks[prop] = append(m.changeCallbacks[prop], cb)
}

// OnEvent attaches a JS callback fired on the named model event.
func (m *Model) OnEvent(event string, cb *CustomJS) {
	m.eventCallbacks[event] = append(m.eventCallbacks[event], cb)
}

// ChangeCallbacks returns the property-change callbacks keyed by property.
func (m *Model) ChangeCallbacks() map[string][]*CustomJS {
	return m.changeCallbacks
}

// EventCallbacks returns the event callbacks keyed by event name.
func (m *Model) EventCallbacks() map[string][]*CustomJS {
	return m.eventCallbacks
}

// HasTaggedCallback reports whether any property-change callback on the
// model carries the given tag.
func (m *Model) HasTaggedCallback(tag string) bool {
	for prop := range m.changeCallbacks {
		if m.HasTaggedCallbackOn(prop, tag) {
			return true
		}
	}
	return false
}

// HasTaggedCallbackOn reports whether a property-change callback under
// prop carries the given tag. The dedup guard during link re-resolution
// is scoped per trigger property, so a declaration with several code
// entries attaches each of them exactly once.
func (m *Model) HasTaggedCallbackOn(prop, tag string) bool {
	for _, cb := range m.changeCallbacks[prop] {
		if cb.HasTag(tag) {
			return true
		}
	}
	return false
}

// HasTaggedEventCallbackOn is the event-table counterpart of
// HasTaggedCallbackOn.
func (m *Model) HasTaggedEventCallbackOn(event, tag string) bool {
	for _, cb := range m.eventCallbacks[event] {
		if cb.HasTag(tag) {
			return true
		}
	}
	return false
}
