package store

import (
	"assetstore.evalgo.org/identity"
	"assetstore.evalgo.org/permission"
)

// identityFrame is one (user, group) pair on an UpdateContext's setuid-like
// stack.
type identityFrame struct {
	user  string
	group string
}

// UpdateContext carries everything an acquire/update call needs: the store
// and identity registry it runs against, the caller's asserted identity,
// and a push/pop stack of identity frames for setuid-style impersonation.
// It implements action.Context.
type UpdateContext struct {
	store    *Store
	registry *identity.Registry
	frames   []identityFrame

	// Mimetype lets an action override the HTTP gateway's default
	// JSON response type by writing to it, per the gateway contract.
	Mimetype string

	// extra carries free-form request-scoped data (inner-access markers
	// like _inner_get/_inner_set/inner_value/_inner_del, or anything an
	// action wants to stash for the duration of one update call).
	extra map[string]interface{}
}

// NewUpdateContext returns an UpdateContext seeded with one identity frame
// (user, group).
func NewUpdateContext(st *Store, reg *identity.Registry, user, group string) *UpdateContext {
	return &UpdateContext{
		store:    st,
		registry: reg,
		frames:   []identityFrame{{user: user, group: group}},
		extra:    map[string]interface{}{},
	}
}

// Store returns the asset store this context operates against.
func (c *UpdateContext) Store() *Store { return c.store }

// Registry implements action.Context.
func (c *UpdateContext) Registry() *identity.Registry { return c.registry }

// GetUser implements action.Context: the top identity frame's user.
func (c *UpdateContext) GetUser() string {
	return c.frames[len(c.frames)-1].user
}

// GetGroup implements action.Context: the top identity frame's group.
func (c *UpdateContext) GetGroup() string {
	return c.frames[len(c.frames)-1].group
}

// PushIdentity implements action.Context, pushing a new (user, group) frame
// for the duration of a setuid-style impersonation.
func (c *UpdateContext) PushIdentity(user, group string) {
	c.frames = append(c.frames, identityFrame{user: user, group: group})
}

// PopIdentity implements action.Context, restoring the previous identity
// frame. Popping the last frame is a no-op: a context always has at least
// one frame.
func (c *UpdateContext) PopIdentity() {
	if len(c.frames) > 1 {
		c.frames = c.frames[:len(c.frames)-1]
	}
}

// PermissionGranted implements action.Context: does the context's current
// user hold right against p, per the registry?
func (c *UpdateContext) PermissionGranted(p *permission.Permissions, right permission.Right) bool {
	return permission.IsRightGranted(c.registry, c.GetUser(), right, p)
}

// Set stashes a request-scoped value (e.g. "_inner_get") for the duration
// of one update call.
func (c *UpdateContext) Set(key string, value interface{}) {
	c.extra[key] = value
}

// Get retrieves a request-scoped value previously stashed with Set.
func (c *UpdateContext) Get(key string) (interface{}, bool) {
	v, ok := c.extra[key]
	return v, ok
}
