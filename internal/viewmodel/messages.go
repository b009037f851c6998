package viewmodel

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/matheus3301/apurimac/internal/apperr"
	"github.com/matheus3301/apurimac/internal/backend"
	"go.uber.org/zap"
)

// StartMessageSync mirrors the messages of chatID, replacing any mirror of
// another chat.
func (vm *ViewModel) StartMessageSync(chatID string) error {
	if chatID == "" {
		return vm.handleError(AreaMessages, apperr.Validation("No chat selected"))
	}

	vm.msgMu.Lock()
	if vm.msgSub != nil {
		vm.msgSub.Stop()
		vm.msgSub = nil
	}
	vm.msgGen++
	gen := vm.msgGen
	vm.msgChat = chatID
	vm.msgBase = nil
	vm.msgPending = nil
	vm.msgMu.Unlock()

	vm.activeChat.Set(chatID)
	vm.messages.Set(nil)
	vm.setLoading(AreaMessages, true)

	sub, err := vm.docs.Subscribe(vm.ctx, backend.Messages(chatID), nil, func(snap backend.Snapshot, err error) {
		vm.msgMu.Lock()
		defer vm.msgMu.Unlock()
		if vm.msgGen != gen {
			return
		}
		if err != nil {
			vm.handleError(AreaMessages, apperr.Backend("", err))
			return
		}
		vm.msgBase = backend.DecodeAll(snap, decodeMessage)
		vm.publishMessagesLocked()
		vm.setLoading(AreaMessages, false)
	})
	if err != nil {
		return vm.handleError(AreaMessages, apperr.Backend("", err))
	}

	vm.msgMu.Lock()
	defer vm.msgMu.Unlock()
	if vm.msgGen != gen {
		// Stopped or replaced while subscribing.
		sub.Stop()
		return nil
	}
	vm.msgSub = sub
	return nil
}

// StopMessageSync detaches the message mirror. No snapshot reaches the
// mirror after it returns.
func (vm *ViewModel) StopMessageSync() {
	vm.msgMu.Lock()
	vm.msgGen++
	sub := vm.msgSub
	vm.msgSub = nil
	vm.msgChat = ""
	vm.msgBase = nil
	vm.msgPending = nil
	vm.msgMu.Unlock()

	if sub != nil {
		sub.Stop()
	}
	vm.activeChat.Set("")
	vm.messages.Set(nil)
	vm.setLoading(AreaMessages, false)
}

// SendMessage writes a message to chatID. While the chat is open the message
// shows up at once as Sending, turns Sent when the write succeeds and is
// removed again if it fails.
func (vm *ViewModel) SendMessage(ctx context.Context, chatID, text string) error {
	if strings.TrimSpace(text) == "" {
		return vm.handleError("", apperr.Validation("Message cannot be empty"))
	}
	if chatID == "" {
		return vm.handleError("", apperr.Validation("No chat selected"))
	}
	uid, ok := vm.uid()
	if !ok {
		return vm.handleError("", apperr.Backend("", backend.ErrNotSignedIn))
	}

	msg := Message{
		SenderID:  uid,
		Text:      text,
		Timestamp: vm.now().UTC().Format(time.RFC3339Nano),
	}
	// The optimistic entry carries the id the message is stored under, so a
	// snapshot that already holds it replaces the entry instead of doubling it.
	id := vm.docs.NewID()
	vm.addPending(chatID, id, msg)

	if err := vm.docs.Set(ctx, backend.Messages(chatID), id, msg); err != nil {
		vm.resolvePending(id, false)
		return vm.handleError("", apperr.Backend("Cannot send message", err))
	}
	vm.resolvePending(id, true)
	vm.logger.Debug("message sent", zap.String("chat_id", chatID), zap.String("message_id", id))
	return nil
}

func (vm *ViewModel) addPending(chatID, id string, msg Message) {
	vm.msgMu.Lock()
	defer vm.msgMu.Unlock()
	if vm.msgChat != chatID {
		return
	}
	msg.ID = id
	msg.Delivery = Sending
	vm.msgPending = append(vm.msgPending, msg)
	vm.publishMessagesLocked()
}

// resolvePending marks the optimistic entry sent, or drops it when the write
// failed. An entry already replaced by a snapshot is gone and left alone.
func (vm *ViewModel) resolvePending(id string, ok bool) {
	vm.msgMu.Lock()
	defer vm.msgMu.Unlock()
	i := slices.IndexFunc(vm.msgPending, func(m Message) bool { return m.ID == id })
	if i < 0 {
		return
	}
	if ok {
		vm.msgPending[i].Delivery = Sent
	} else {
		vm.msgPending = slices.Delete(vm.msgPending, i, i+1)
	}
	vm.publishMessagesLocked()
}

// publishMessagesLocked sets the mirror to the last snapshot followed by the
// optimistic entries the snapshot does not contain yet. Entries that landed
// in the snapshot are dropped. vm.msgMu must be held.
func (vm *ViewModel) publishMessagesLocked() {
	stored := make(map[string]bool, len(vm.msgBase))
	for _, m := range vm.msgBase {
		stored[m.ID] = true
	}
	vm.msgPending = slices.DeleteFunc(vm.msgPending, func(m Message) bool { return stored[m.ID] })

	out := make([]Message, 0, len(vm.msgBase)+len(vm.msgPending))
	out = append(out, vm.msgBase...)
	out = append(out, vm.msgPending...)
	vm.messages.Set(out)
}
