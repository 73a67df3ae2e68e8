// Package conversation derives which conversation, if any, the current
// route points at.
package conversation

import (
	"sync"

	"github.com/nfrund/goby-messenger/internal/navigation"
)

// ParamKey is the route parameter holding the conversation id.
const ParamKey = "conversationId"

// Context is the derived view of the selected conversation.
type Context struct {
	ConversationID string `json:"conversationId"`
	IsOpen         bool   `json:"isOpen"`
}

// Resolve derives a Context from route parameters. A missing parameter is
// the normal "no conversation selected" state.
func Resolve(params navigation.RouteParameters) Context {
	id := params.Get(ParamKey)
	return Context{
		ConversationID: id,
		IsOpen:         id != "",
	}
}

// Resolver memoizes Resolve on the value of the conversation parameter,
// its only input. Caching never changes the result.
type Resolver struct {
	mu    sync.Mutex
	valid bool
	key   string
	last  Context
}

// Resolve returns the cached Context when the parameter is unchanged.
func (r *Resolver) Resolve(params navigation.RouteParameters) Context {
	key := params.Get(ParamKey)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.valid && r.key == key {
		return r.last
	}
	r.last = Resolve(params)
	r.key = key
	r.valid = true
	return r.last
}
