package value

// Context is a scope chain backing identifier resolution for the evaluator
// and for request-literal interpolation. A Context wraps a flat binding
// table plus an optional outer Context; a function call opens a fresh child
// frame of the function's closure Context so its locals never leak into the
// caller. Request dispatch opens no frame: it binds the response fields
// into the calling Context.
type Context struct {
	store map[string]Value
	outer *Context
}

// NewContext creates an empty top-level Context.
func NewContext() *Context {
	return &Context{store: make(map[string]Value)}
}

// Enclose creates a child Context whose lookups fall through to ctx when a
// name isn't found locally, the mechanism behind closures and call frames.
func (ctx *Context) Enclose() *Context {
	return &Context{store: make(map[string]Value), outer: ctx}
}

// Get resolves name against this frame, then its outer chain.
func (ctx *Context) Get(name string) (Value, bool) {
	if ctx == nil {
		return Value{}, false
	}
	if v, ok := ctx.store[name]; ok {
		return v, true
	}
	return ctx.outer.Get(name)
}

// Set binds name in the current frame only (let-bindings never mutate an
// outer frame).
func (ctx *Context) Set(name string, v Value) {
	ctx.store[name] = v
}
