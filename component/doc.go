// Package component defines lifecycle-managed parts of a mainkit container.
//
// A Component is started when its container initializes and stopped, in
// reverse registration order, when the container closes. Func adapts plain
// functions to the interface.
package component
