// Package script embeds a Lua runtime that drives a bridge client, so
// multi-step command sequences can be expressed as small scripts instead of
// repeated CLI invocations.
package script

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/huelink/bridge"
)

// Runtime manages one Lua VM. Execution is single-threaded: a script runs
// to completion on the caller's goroutine.
type Runtime struct {
	L       *lua.LState
	bridge  *bridge.Bridge
	limiter *rate.Limiter
	ctx     context.Context
}

// New creates a runtime bound to an authenticated bridge client. Bridge
// writes issued from Lua are rate limited to rps requests per second, so a
// runaway loop cannot flood the bridge.
func New(b *bridge.Bridge, rps float64) *Runtime {
	L := lua.NewState()
	r := &Runtime{
		L:       L,
		bridge:  b,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		ctx:     context.Background(),
	}

	L.PreloadModule("log", logLoader)
	L.PreloadModule("hue", r.hueLoader)
	return r
}

// Run executes the script at path and closes the VM afterwards.
func (r *Runtime) Run(ctx context.Context, path string) error {
	r.ctx = ctx
	r.L.SetContext(ctx)
	defer r.L.Close()

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// throttle blocks until the limiter admits one more bridge write.
func (r *Runtime) throttle(L *lua.LState) {
	if err := r.limiter.Wait(r.ctx); err != nil {
		L.RaiseError("cancelled: %v", err)
	}
}
