package viewmodel

import (
	"context"

	"github.com/matheus3301/apurimac/internal/apperr"
	"github.com/matheus3301/apurimac/internal/backend"
	"github.com/matheus3301/apurimac/internal/phase"
	"go.uber.org/zap"
)

const msgFillAllFields = "Please fill in all fields"

// Restore picks up a session persisted by the auth service and starts the
// mirrors. It reports whether a session was found.
func (vm *ViewModel) Restore() bool {
	id, ok := vm.auth.CurrentIdentity()
	if !ok {
		return false
	}
	vm.user.Set(&id)
	vm.transition(phase.Syncing)
	vm.logger.Info("session restored", zap.String("user_id", id.UserID))
	vm.startSession()
	return true
}

// SignUp creates an account and its profile. The phone number must not be
// registered to another user.
func (vm *ViewModel) SignUp(ctx context.Context, name, phoneNumber, email, password string) error {
	if name == "" || phoneNumber == "" || email == "" || password == "" {
		return vm.handleError(AreaAuth, apperr.Validation(msgFillAllFields))
	}

	vm.setLoading(AreaAuth, true)
	vm.transition(phase.Authenticating)

	snap, err := vm.docs.Query(ctx, backend.Users, backend.Eq("phoneNumber", phoneNumber))
	if err != nil {
		vm.abortAuth()
		return vm.handleError(AreaAuth, apperr.Backend("", err))
	}
	if !snap.Empty() {
		vm.abortAuth()
		return vm.handleError(AreaAuth, apperr.Validation("number already exists"))
	}

	id, err := vm.auth.SignUp(ctx, email, password)
	if err != nil {
		vm.abortAuth()
		return vm.handleError(AreaAuth, apperr.Backend("Signup failed", err))
	}
	vm.enter(id)
	vm.logger.Info("signed up", zap.String("user_id", id.UserID))

	if err := vm.upsertProfile(ctx, ptr(name), ptr(phoneNumber), nil); err != nil {
		vm.setLoading(AreaAuth, false)
		return err
	}
	vm.startSession()
	vm.setLoading(AreaAuth, false)
	return nil
}

// SignIn authenticates and starts the mirrors.
func (vm *ViewModel) SignIn(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return vm.handleError(AreaAuth, apperr.Validation(msgFillAllFields))
	}

	vm.setLoading(AreaAuth, true)
	vm.transition(phase.Authenticating)

	id, err := vm.auth.SignIn(ctx, email, password)
	if err != nil {
		vm.abortAuth()
		return vm.handleError(AreaAuth, apperr.Backend("Login failed", err))
	}
	vm.enter(id)
	vm.logger.Info("signed in", zap.String("user_id", id.UserID))

	vm.startSession()
	vm.setLoading(AreaAuth, false)
	return nil
}

// SignOut ends the session, stops every live subscription and clears the
// mirrors. Local teardown happens even when the auth service fails.
func (vm *ViewModel) SignOut(ctx context.Context) error {
	err := vm.auth.SignOut(ctx)

	vm.teardown()
	vm.user.Set(nil)
	for _, a := range Areas {
		vm.setLoading(a, false)
	}
	vm.phase.Reset()

	if err != nil {
		return vm.handleError("", apperr.Backend("Logout failed", err))
	}
	vm.logger.Info("signed out")
	vm.notify("Logged out")
	return nil
}

// enter makes id the current user. Signing in as someone else first tears
// down the previous user's mirrors.
func (vm *ViewModel) enter(id backend.Identity) {
	if prev := vm.user.Get(); prev != nil && prev.UserID != id.UserID {
		vm.teardown()
	}
	vm.user.Set(&id)
	vm.transition(phase.Syncing)
}

// abortAuth leaves AUTHENTICATING after a failed attempt. A user who was
// already signed in stays signed in.
func (vm *ViewModel) abortAuth() {
	if vm.user.Get() == nil {
		vm.phase.Reset()
	}
}

// teardown stops every mirror and clears what they hold.
func (vm *ViewModel) teardown() {
	vm.StopMessageSync()
	vm.stopSession()
	vm.profile.Set(nil)
	vm.chats.Set(nil)
	vm.statuses.Set(StatusView{})
}

// startSession starts the profile, chat list and status mirrors.
func (vm *ViewModel) startSession() {
	if err := vm.startProfileSync(); err != nil {
		return
	}
	if err := vm.StartChatListSync(); err != nil {
		return
	}
	_ = vm.StartStatusSync()
}

// stopSession stops the session mirrors and invalidates callbacks still in
// flight.
func (vm *ViewModel) stopSession() {
	vm.sessMu.Lock()
	defer vm.sessMu.Unlock()
	vm.sessGen++
	for _, sub := range []backend.Subscription{vm.profileSub, vm.chatSub, vm.statusSub} {
		if sub != nil {
			sub.Stop()
		}
	}
	vm.profileSub, vm.chatSub, vm.statusSub = nil, nil, nil

	vm.statusMu.Lock()
	vm.allStatus = nil
	vm.statusMu.Unlock()
}

// subscribe replaces *slot with a fresh live query bound to the view-model
// lifetime. fn runs only while the session generation that started it is
// current, under the session read lock.
func (vm *ViewModel) subscribe(slot *backend.Subscription, collection string, f backend.Filter, fn backend.SnapshotFunc) error {
	vm.sessMu.Lock()
	defer vm.sessMu.Unlock()

	if *slot != nil {
		(*slot).Stop()
		*slot = nil
	}
	gen := vm.sessGen
	var self backend.Subscription
	guarded := func(s backend.Snapshot, err error) {
		vm.sessMu.RLock()
		defer vm.sessMu.RUnlock()
		if vm.sessGen != gen || *slot != self {
			return
		}
		fn(s, err)
	}
	// Callbacks block on sessMu until self is assigned below.
	sub, err := vm.docs.Subscribe(vm.ctx, collection, f, guarded)
	if err != nil {
		return err
	}
	self = sub
	*slot = sub
	return nil
}
