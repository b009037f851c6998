package viewmodel

import (
	"context"

	"github.com/matheus3301/apurimac/internal/apperr"
	"github.com/matheus3301/apurimac/internal/backend"
)

// UpdateProfile sets the current user's name and phone number.
func (vm *ViewModel) UpdateProfile(ctx context.Context, name, phoneNumber string) error {
	if name == "" || phoneNumber == "" {
		return vm.handleError(AreaProfile, apperr.Validation(msgFillAllFields))
	}
	return vm.upsertProfile(ctx, ptr(name), ptr(phoneNumber), nil)
}

// upsertProfile creates or updates users/{uid}. Fields left nil fall back to
// the cached profile, then to absent. It is a no-op when nobody is signed in.
// Concurrent upserts are last-write-wins.
func (vm *ViewModel) upsertProfile(ctx context.Context, name, phoneNumber, imageURL *string) error {
	uid, ok := vm.uid()
	if !ok {
		return nil
	}
	cached := vm.profile.Get()
	merged := UserProfile{
		UserID:      uid,
		Name:        fallback(name, cached, func(p *UserProfile) *string { return p.Name }),
		PhoneNumber: fallback(phoneNumber, cached, func(p *UserProfile) *string { return p.PhoneNumber }),
		ImageURL:    fallback(imageURL, cached, func(p *UserProfile) *string { return p.ImageURL }),
	}

	vm.setLoading(AreaProfile, true)

	_, exists, err := vm.docs.Get(ctx, backend.Users, uid)
	if err != nil {
		return vm.handleError(AreaProfile, apperr.Backend("Cannot retrieve user", err))
	}
	if exists {
		err = vm.docs.Update(ctx, backend.Users, uid, map[string]any{
			"userId":      uid,
			"name":        nullable(merged.Name),
			"phoneNumber": nullable(merged.PhoneNumber),
			"imageUrl":    nullable(merged.ImageURL),
		})
		if err != nil {
			return vm.handleError(AreaProfile, apperr.Backend("Cannot update user", err))
		}
	} else {
		if err := vm.docs.Set(ctx, backend.Users, uid, merged); err != nil {
			return vm.handleError(AreaProfile, apperr.Backend("Cannot create user", err))
		}
	}

	if err := vm.fetchProfile(ctx, uid); err != nil {
		return vm.handleError(AreaProfile, apperr.Backend("Cannot retrieve user", err))
	}
	vm.setLoading(AreaProfile, false)
	return nil
}

func (vm *ViewModel) fetchProfile(ctx context.Context, uid string) error {
	doc, exists, err := vm.docs.Get(ctx, backend.Users, uid)
	if err != nil || !exists {
		return err
	}
	p, err := decodeProfile(doc)
	if err != nil {
		return err
	}
	vm.profile.Set(&p)
	return nil
}

// ownProfile returns the current user's record, reading users/{uid} when the
// mirror has not delivered it yet.
func (vm *ViewModel) ownProfile(ctx context.Context, uid string) (UserProfile, error) {
	if p := vm.profile.Get(); p != nil && p.UserID == uid {
		return *p, nil
	}
	doc, exists, err := vm.docs.Get(ctx, backend.Users, uid)
	if err != nil {
		return UserProfile{}, apperr.Backend("Cannot retrieve user", err)
	}
	if !exists {
		return UserProfile{}, apperr.NotFound("Cannot retrieve user")
	}
	p, err := decodeProfile(doc)
	if err != nil {
		return UserProfile{}, apperr.Backend("Cannot retrieve user", err)
	}
	p.UserID = uid
	return p, nil
}

// startProfileSync mirrors the current user's own record.
func (vm *ViewModel) startProfileSync() error {
	uid, ok := vm.uid()
	if !ok {
		return nil
	}
	vm.setLoading(AreaProfile, true)
	err := vm.subscribe(&vm.profileSub, backend.Users, backend.Eq("userId", uid), func(snap backend.Snapshot, err error) {
		if err != nil {
			vm.handleError(AreaProfile, apperr.Backend("Cannot retrieve user", err))
			return
		}
		if profiles := backend.DecodeAll(snap, decodeProfile); len(profiles) > 0 {
			vm.profile.Set(&profiles[0])
		}
		vm.setLoading(AreaProfile, false)
	})
	if err != nil {
		return vm.handleError(AreaProfile, apperr.Backend("Cannot retrieve user", err))
	}
	return nil
}

func fallback(arg *string, cached *UserProfile, field func(*UserProfile) *string) *string {
	if arg != nil {
		return arg
	}
	if cached != nil {
		return field(cached)
	}
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
