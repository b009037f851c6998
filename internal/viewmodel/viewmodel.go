// Package viewmodel orchestrates reads and writes against the backend
// services and mirrors the results into observable state cells.
//
// Renderers read the cells through the accessor methods and learn about
// changes from "state.<cell>" events on the bus.
package viewmodel

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/apurimac/internal/apperr"
	"github.com/matheus3301/apurimac/internal/backend"
	"github.com/matheus3301/apurimac/internal/bus"
	"github.com/matheus3301/apurimac/internal/phase"
	"github.com/matheus3301/apurimac/internal/state"
	"go.uber.org/zap"
)

// Area names a loading flag.
type Area string

const (
	AreaAuth     Area = "auth"
	AreaProfile  Area = "profile"
	AreaChats    Area = "chats"
	AreaMessages Area = "messages"
	AreaStatus   Area = "status"
	AreaUpload   Area = "upload"
)

// Areas lists every loading area.
var Areas = []Area{AreaAuth, AreaProfile, AreaChats, AreaMessages, AreaStatus, AreaUpload}

// DefaultStatusRetention hides status posts older than a day.
const DefaultStatusRetention = 24 * time.Hour

// Options tunes a ViewModel.
type Options struct {
	// StatusRetention hides older status posts from the mirror. Zero keeps
	// every post.
	StatusRetention time.Duration
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// ViewModel is the client core. All methods are safe for concurrent use.
type ViewModel struct {
	auth   backend.Auth
	docs   backend.DocumentStore
	blobs  backend.BlobStore
	bus    *bus.Bus
	logger *zap.Logger
	opts   Options
	phase  *phase.Machine

	ctx    context.Context
	cancel context.CancelFunc

	user         *state.Cell[*backend.Identity]
	profile      *state.Cell[*UserProfile]
	chats        *state.Cell[[]ChatRecord]
	activeChat   *state.Cell[string]
	messages     *state.Cell[[]Message]
	statuses     *state.Cell[StatusView]
	notification *state.Slot[string]
	loading      map[Area]*state.Cell[bool]

	// sessMu guards the session generation and the session subscriptions.
	// Snapshot callbacks hold it for reading so nothing lands in the cells
	// after sign-out.
	sessMu     sync.RWMutex
	sessGen    uint64
	profileSub backend.Subscription
	chatSub    backend.Subscription
	statusSub  backend.Subscription

	statusMu  sync.Mutex
	allStatus []StatusPost

	msgMu      sync.Mutex
	msgGen     uint64
	msgChat    string
	msgSub     backend.Subscription
	msgBase    []Message
	msgPending []Message
}

// New creates a view-model. b may be shared with the backend adapters.
func New(auth backend.Auth, docs backend.DocumentStore, blobs backend.BlobStore, b *bus.Bus, logger *zap.Logger, opts Options) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if b == nil {
		b = bus.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	vm := &ViewModel{
		auth:         auth,
		docs:         docs,
		blobs:        blobs,
		bus:          b,
		logger:       logger,
		opts:         opts,
		phase:        phase.NewMachine(b),
		ctx:          ctx,
		cancel:       cancel,
		user:         state.NewCell[*backend.Identity]("user", nil, b),
		profile:      state.NewCell[*UserProfile]("profile", nil, b),
		chats:        state.NewCell[[]ChatRecord]("chats", nil, b),
		activeChat:   state.NewCell("active_chat", "", b),
		messages:     state.NewCell[[]Message]("messages", nil, b),
		statuses:     state.NewCell("statuses", StatusView{}, b),
		notification: state.NewSlot(state.NewCell[*state.Event[string]]("notification", nil, b)),
		loading:      make(map[Area]*state.Cell[bool], len(Areas)),
	}
	for _, a := range Areas {
		vm.loading[a] = state.NewCell("loading."+string(a), false, b)
	}
	return vm
}

// Bus returns the bus the cells publish on.
func (vm *ViewModel) Bus() *bus.Bus { return vm.bus }

// Phase returns the session phase.
func (vm *ViewModel) Phase() phase.Phase { return vm.phase.Current() }

// CurrentUser returns the signed-in identity, or nil.
func (vm *ViewModel) CurrentUser() *backend.Identity { return vm.user.Get() }

// Profile returns the mirrored profile of the current user, or nil.
func (vm *ViewModel) Profile() *UserProfile { return vm.profile.Get() }

// Chats returns the mirrored chat list.
func (vm *ViewModel) Chats() []ChatRecord { return vm.chats.Get() }

// ActiveChat returns the chat whose messages are mirrored, or "".
func (vm *ViewModel) ActiveChat() string { return vm.activeChat.Get() }

// Messages returns the mirrored messages of the active chat.
func (vm *ViewModel) Messages() []Message { return vm.messages.Get() }

// Statuses returns the status mirror.
func (vm *ViewModel) Statuses() StatusView { return vm.statuses.Get() }

// Loading reports whether a request in area is in flight.
func (vm *ViewModel) Loading(a Area) bool {
	c, ok := vm.loading[a]
	return ok && c.Get()
}

// Notification returns the pending notification, if any, without consuming it.
func (vm *ViewModel) Notification() *state.Event[string] { return vm.notification.Pending() }

// TakeNotification consumes the pending notification.
func (vm *ViewModel) TakeNotification() (string, bool) { return vm.notification.Take() }

// Snapshot is a point-in-time copy of every cell.
type Snapshot struct {
	Phase        phase.Phase
	User         *backend.Identity
	Profile      *UserProfile
	Chats        []ChatRecord
	ActiveChat   string
	Messages     []Message
	Statuses     StatusView
	Loading      map[Area]bool
	Notification string
}

// Snapshot reads every cell. The notification is peeked, not consumed.
func (vm *ViewModel) Snapshot() Snapshot {
	s := Snapshot{
		Phase:      vm.Phase(),
		User:       vm.CurrentUser(),
		Profile:    vm.Profile(),
		Chats:      vm.Chats(),
		ActiveChat: vm.ActiveChat(),
		Messages:   vm.Messages(),
		Statuses:   vm.Statuses(),
		Loading:    make(map[Area]bool, len(Areas)),
	}
	for _, a := range Areas {
		s.Loading[a] = vm.Loading(a)
	}
	if e := vm.Notification(); e != nil && !e.Consumed() {
		s.Notification = e.Peek()
	}
	return s
}

// Close stops every live subscription. The view-model is unusable afterwards.
func (vm *ViewModel) Close() {
	vm.StopMessageSync()
	vm.stopSession()
	vm.cancel()
}

func (vm *ViewModel) setLoading(a Area, on bool) {
	if c, ok := vm.loading[a]; ok {
		c.Set(on)
	}
}

// handleError logs err, posts its display message as the notification and
// clears the loading flag of area. It returns err unchanged.
func (vm *ViewModel) handleError(a Area, err error) error {
	msg := apperr.Message(err)
	vm.logger.Warn("operation failed",
		zap.String("area", string(a)),
		zap.String("kind", apperr.KindOf(err).String()),
		zap.Error(err),
	)
	vm.notification.Post(msg)
	if a != "" {
		vm.setLoading(a, false)
	}
	return err
}

func (vm *ViewModel) notify(msg string) {
	vm.notification.Post(msg)
}

func (vm *ViewModel) uid() (string, bool) {
	id := vm.user.Get()
	if id == nil {
		return "", false
	}
	return id.UserID, true
}

func (vm *ViewModel) transition(to phase.Phase) {
	if err := vm.phase.Transition(to); err != nil {
		vm.logger.Debug("phase transition skipped", zap.Error(err))
	}
}

func (vm *ViewModel) now() time.Time { return vm.opts.Now() }
