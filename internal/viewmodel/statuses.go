package viewmodel

import (
	"context"
	"io"
	"time"

	"github.com/matheus3301/apurimac/internal/apperr"
	"github.com/matheus3301/apurimac/internal/backend"
)

// StartStatusSync mirrors the status posts of the current user and of
// everyone they share a chat with.
func (vm *ViewModel) StartStatusSync() error {
	if _, ok := vm.uid(); !ok {
		return vm.handleError(AreaStatus, apperr.Backend("", backend.ErrNotSignedIn))
	}
	vm.setLoading(AreaStatus, true)
	err := vm.subscribe(&vm.statusSub, backend.Statuses, nil, func(snap backend.Snapshot, err error) {
		if err != nil {
			vm.handleError(AreaStatus, apperr.Backend("", err))
			return
		}
		posts := backend.DecodeAll(snap, decodeStatus)
		vm.statusMu.Lock()
		vm.allStatus = posts
		vm.statusMu.Unlock()
		vm.refreshStatuses()
		vm.setLoading(AreaStatus, false)
	})
	if err != nil {
		return vm.handleError(AreaStatus, apperr.Backend("", err))
	}
	return nil
}

// UploadStatus uploads r and posts it as a status of the current user.
func (vm *ViewModel) UploadStatus(ctx context.Context, r io.Reader) (StatusPost, error) {
	if _, ok := vm.uid(); !ok {
		return StatusPost{}, vm.handleError(AreaUpload, apperr.Backend("", backend.ErrNotSignedIn))
	}
	addr, err := vm.UploadImage(ctx, r)
	if err != nil {
		return StatusPost{}, err
	}

	var author UserSummary
	if p := vm.profile.Get(); p != nil {
		author = p.Summary()
	} else {
		author.UserID, _ = vm.uid()
	}
	post := StatusPost{
		Author:    author,
		MediaURL:  addr,
		CreatedAt: vm.now().UTC().Format(time.RFC3339Nano),
	}
	if _, err := vm.docs.Add(ctx, backend.Statuses, post); err != nil {
		return StatusPost{}, vm.handleError(AreaUpload, apperr.Backend("Cannot post status", err))
	}
	return post, nil
}

// refreshStatuses recomputes the status mirror from the last status snapshot
// and the current chat list.
func (vm *ViewModel) refreshStatuses() {
	uid, ok := vm.uid()
	if !ok {
		return
	}
	vm.statusMu.Lock()
	posts := vm.allStatus
	vm.statusMu.Unlock()

	contacts := map[string]bool{uid: true}
	for _, c := range vm.chats.Get() {
		contacts[c.ParticipantA.UserID] = true
		contacts[c.ParticipantB.UserID] = true
	}

	var cutoff time.Time
	if vm.opts.StatusRetention > 0 {
		cutoff = vm.now().Add(-vm.opts.StatusRetention)
	}
	visible := make([]StatusPost, 0, len(posts))
	for _, p := range posts {
		if !contacts[p.Author.UserID] {
			continue
		}
		if !cutoff.IsZero() {
			if at, ok := p.created(); ok && at.Before(cutoff) {
				continue
			}
		}
		visible = append(visible, p)
	}
	vm.statuses.Set(partitionStatuses(uid, visible))
}

// partitionStatuses splits posts into the user's own and everybody else's,
// grouped by author in first-seen order.
func partitionStatuses(uid string, posts []StatusPost) StatusView {
	var view StatusView
	index := make(map[string]int)
	for _, p := range posts {
		if p.Author.UserID == uid {
			view.Own = append(view.Own, p)
			continue
		}
		i, ok := index[p.Author.UserID]
		if !ok {
			i = len(view.Others)
			index[p.Author.UserID] = i
			view.Others = append(view.Others, AuthorStatuses{Author: p.Author})
		}
		view.Others[i].Posts = append(view.Others[i].Posts, p)
	}
	return view
}
