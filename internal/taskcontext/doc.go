// Package taskcontext answers "what task am I working on" for a scene.
// Three sources compete in strict precedence order: a manual override on the
// rig node, a globals node declaration, and the scene file path matched
// against the configured templates. A source that fails to resolve falls
// through to the next; when none resolves the context is invalid, which
// blocks publishing but never aborts menu refresh.
package taskcontext
