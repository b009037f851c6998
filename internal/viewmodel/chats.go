package viewmodel

import (
	"context"

	"github.com/matheus3301/apurimac/internal/apperr"
	"github.com/matheus3301/apurimac/internal/backend"
	"github.com/matheus3301/apurimac/internal/phase"
)

// AddChat finds the user registered with phoneNumber and creates a chat with
// them. At most one chat exists per pair of numbers, in either orientation.
// Two concurrent calls for the same pair may both create one.
func (vm *ViewModel) AddChat(ctx context.Context, phoneNumber string) (ChatRecord, error) {
	if !allDigits(phoneNumber) {
		return ChatRecord{}, vm.handleError("", apperr.Validation("Numbers must contain only digits"))
	}
	uid, ok := vm.uid()
	if !ok {
		return ChatRecord{}, vm.handleError("", apperr.Backend("", backend.ErrNotSignedIn))
	}
	me, err := vm.ownProfile(ctx, uid)
	if err != nil {
		return ChatRecord{}, vm.handleError("", err)
	}
	myNumber := deref(me.PhoneNumber)
	if myNumber == "" {
		return ChatRecord{}, vm.handleError("", apperr.Validation("Add your phone number to your profile first"))
	}
	if myNumber == phoneNumber {
		return ChatRecord{}, vm.handleError("", apperr.Validation("Cannot start a chat with your own number"))
	}

	pair := backend.Or(
		backend.And(
			backend.Eq("participantA.phoneNumber", myNumber),
			backend.Eq("participantB.phoneNumber", phoneNumber),
		),
		backend.And(
			backend.Eq("participantA.phoneNumber", phoneNumber),
			backend.Eq("participantB.phoneNumber", myNumber),
		),
	)
	existing, err := vm.docs.Query(ctx, backend.Chats, pair)
	if err != nil {
		return ChatRecord{}, vm.handleError("", apperr.Backend("", err))
	}
	if !existing.Empty() {
		return ChatRecord{}, vm.handleError("", apperr.Conflict("Chat already exists"))
	}

	users, err := vm.docs.Query(ctx, backend.Users, backend.Eq("phoneNumber", phoneNumber))
	if err != nil {
		return ChatRecord{}, vm.handleError("", apperr.Backend("", err))
	}
	partners := backend.DecodeAll(users, decodeProfile)
	if len(partners) == 0 {
		return ChatRecord{}, vm.handleError("", apperr.NotFound("Cannot retrieve user with number "+phoneNumber))
	}

	chat := ChatRecord{
		ChatID:       vm.docs.NewID(),
		ParticipantA: me.Summary(),
		ParticipantB: partners[0].Summary(),
	}
	if err := vm.docs.Set(ctx, backend.Chats, chat.ChatID, chat); err != nil {
		return ChatRecord{}, vm.handleError("", apperr.Backend("", err))
	}
	return chat, nil
}

// StartChatListSync mirrors every chat the current user takes part in.
// Calling it again replaces the running mirror.
func (vm *ViewModel) StartChatListSync() error {
	uid, ok := vm.uid()
	if !ok {
		return vm.handleError(AreaChats, apperr.Backend("", backend.ErrNotSignedIn))
	}
	vm.setLoading(AreaChats, true)
	mine := backend.Or(
		backend.Eq("participantA.userId", uid),
		backend.Eq("participantB.userId", uid),
	)
	err := vm.subscribe(&vm.chatSub, backend.Chats, mine, func(snap backend.Snapshot, err error) {
		if err != nil {
			vm.handleError(AreaChats, apperr.Backend("", err))
			return
		}
		vm.chats.Set(backend.DecodeAll(snap, decodeChat))
		vm.setLoading(AreaChats, false)
		vm.refreshStatuses()
		if vm.phase.Current() == phase.Syncing {
			vm.transition(phase.Ready)
		}
	})
	if err != nil {
		return vm.handleError(AreaChats, apperr.Backend("", err))
	}
	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
