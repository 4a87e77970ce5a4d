package process

import (
	"nanokern/internal/capability"
	"nanokern/internal/ipc"
	"nanokern/internal/kernelerr"
)

// Waker is implemented by the scheduler. Both the router and the futex
// table call Wake after they have moved a process's state from Blocked to
// Ready, so the scheduler can get it back onto its resident core's ready
// queue. fromCoreID is the caller's own resident core, passed through so
// the scheduler can tell a same-core wake (applied immediately) from a
// cross-core one (deferred to the target core's next scheduling point).
type Waker interface {
	Wake(p *Process, fromCoreID int)
}

// Router implements the Message Router (spec 4.C): the eight-step atomic
// send. It is the only code path that moves a Message, or a capability
// grant riding along with one, between two processes' private tables.
type Router struct {
	registry *Registry
	waker    Waker
}

// NewRouter builds a Router over registry, notifying waker whenever a send
// unblocks a receiver.
func NewRouter(registry *Registry, waker Waker) *Router {
	return &Router{registry: registry, waker: waker}
}

// Send executes the eight-step send contract on behalf of sender, using
// srcHandle (which must name an Endpoint capability with write rights) to
// find the target. If msg.CapGrant is non-zero, the capability it names in
// sender's own table is transferred — not copied — into the target's table,
// narrowed to msg.CapPerms, and msg.CapGrant is rewritten to the target's
// new handle before the message is queued. Every step before the final
// queue push is either fully undone or never attempted if a later step
// would fail: a send either happens completely or leaves no trace.
//
// Failure modes, in the order they are checked:
//  1. srcHandle does not resolve in sender's table               -> ErrBadHandle
//  2. the resolved object is not an Endpoint                     -> ErrWrongKind
//  3. the resolved rights lack Write                             -> ErrMissingPermission
//  4. the Endpoint's target actor is not registered, or dead     -> ErrNoSuchTarget
//  5. msg.CapGrant names a handle sender cannot Grant             -> ErrMissingPermission
//  6. the target's capability table has no free slot for a grant -> ErrTableFull
//  7. the target's IPC queue is at capacity                      -> ErrQueueFull
func (r *Router) Send(sender *Process, srcHandle capability.Handle, msg ipc.Message) error {
	resolved, ok := sender.CapTable.Lookup(srcHandle)
	if !ok {
		return kernelerr.ErrBadHandle
	}
	if resolved.Object.Kind != capability.KindEndpoint {
		return kernelerr.ErrWrongKind
	}
	if !resolved.Rights.Has(capability.Write) {
		return kernelerr.ErrMissingPermission
	}

	target, ok := r.registry.Lookup(resolved.Object.Target)
	if !ok || target.State() == Dead {
		return kernelerr.ErrNoSuchTarget
	}

	grant := msg.CapGrant != 0
	var srcGrantHandle capability.Handle
	var grantedObject capability.Object
	var grantedRights capability.Rights
	if grant {
		srcGrantHandle = capability.Handle(msg.CapGrant)
		grantResolved, ok := sender.CapTable.Lookup(srcGrantHandle)
		if !ok {
			return kernelerr.ErrBadHandle
		}
		if !grantResolved.Rights.Has(capability.Grant) {
			return kernelerr.ErrMissingPermission
		}
		grantedObject = grantResolved.Object
		grantedRights = grantResolved.Rights.Narrow(capability.Rights(msg.CapPerms))
	}

	var newHandle capability.Handle
	if grant {
		h, err := target.CapTable.Insert(grantedObject, grantedRights)
		if err != nil {
			return err // ErrTableFull
		}
		newHandle = h
		msg.CapGrant = uint64(newHandle)
	}

	if err := target.Queue.Push(msg); err != nil {
		if grant {
			target.CapTable.Remove(newHandle)
		}
		return err // ErrQueueFull
	}

	if grant {
		sender.CapTable.Remove(srcGrantHandle)
	}

	if target.CompareAndSwapState(Blocked, Ready) && r.waker != nil {
		r.waker.Wake(target, sender.CoreID)
	}
	return nil
}
