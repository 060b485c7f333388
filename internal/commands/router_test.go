package commands

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skssssee/Musict/internal/broadcast"
	"github.com/Skssssee/Musict/internal/calls"
	"github.com/Skssssee/Musict/internal/events"
	"github.com/Skssssee/Musict/internal/models"
	"github.com/Skssssee/Musict/internal/player"
	"github.com/Skssssee/Musict/internal/resolver"
	"github.com/Skssssee/Musict/internal/store"
	"github.com/Skssssee/Musict/internal/streamcache"
)

const ownerID = int64(1000)

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, query string, kind models.MediaKind) (resolver.Resolution, error) {
	return resolver.Resolution{
		Title:    "resolved " + query,
		Duration: 2 * time.Minute,
		Descriptor: models.StreamDescriptor{
			URL: "https://cdn.example/" + query, Kind: kind, IssuedAt: time.Now(),
		},
	}, nil
}

type stubTransport struct{}

func (stubTransport) Play(context.Context, int64, models.StreamDescriptor) error { return nil }
func (stubTransport) Leave(context.Context, int64) error                         { return nil }
func (stubTransport) Pause(context.Context, int64) error                         { return nil }
func (stubTransport) Resume(context.Context, int64) error                        { return nil }

type stubMessenger struct {
	mu   sync.Mutex
	sent []int64
}

func (m *stubMessenger) SendMessage(_ context.Context, chatID int64, _ string) error {
	m.mu.Lock()
	m.sent = append(m.sent, chatID)
	m.mu.Unlock()
	return nil
}

func newTestRouter(t *testing.T) (*Router, *store.Store, *stubMessenger) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.SudoUser{}, &models.KnownChat{}, &models.AuditConfig{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st := store.New(db, ownerID, 0, zerolog.Nop())
	cache := streamcache.New(stubResolver{}, streamcache.Config{TTL: time.Hour}, zerolog.Nop())
	binding := calls.NewBinding(stubTransport{}, time.Second, zerolog.Nop())
	binding.MarkReady()
	bus := events.NewBus()
	manager := player.NewManager(cache, binding, bus, zerolog.Nop())
	messenger := &stubMessenger{}
	bc := broadcast.New(st, messenger, bus, 0, zerolog.Nop())
	return NewRouter(st, manager, bc, zerolog.Nop()), st, messenger
}

func owner(chatID int64) Origin {
	return Origin{ChatID: chatID, Requester: models.Requester{ID: ownerID, Name: "owner"}}
}

func guest(chatID int64) Origin {
	return Origin{ChatID: chatID, Requester: models.Requester{ID: 2, Name: "guest"}}
}

func TestPlayRecordsChatAndReplies(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()

	reply, err := r.Dispatch(ctx, Play{From: guest(100), Query: "a song", Kind: models.MediaAudio})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !strings.HasPrefix(reply, "Now playing:") {
		t.Fatalf("unexpected reply: %s", reply)
	}

	chats, err := st.Chats(ctx)
	if err != nil {
		t.Fatalf("chats: %v", err)
	}
	if len(chats) != 1 || chats[0] != 100 {
		t.Fatalf("chat not recorded: %v", chats)
	}
}

func TestSecondPlayQueues(t *testing.T) {
	r, _, _ := newTestRouter(t)
	ctx := context.Background()

	r.Dispatch(ctx, Play{From: guest(100), Query: "first", Kind: models.MediaAudio})
	reply, err := r.Dispatch(ctx, Play{From: guest(100), Query: "second", Kind: models.MediaAudio})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !strings.HasPrefix(reply, "Queued:") {
		t.Fatalf("unexpected reply: %s", reply)
	}
}

func TestPlaybackControlsRequireSudo(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()

	r.Dispatch(ctx, Play{From: guest(100), Query: "a song", Kind: models.MediaAudio})

	if _, err := r.Dispatch(ctx, Pause{From: guest(100)}); !errors.Is(err, ErrNotSudo) {
		t.Fatalf("expected ErrNotSudo, got %v", err)
	}

	// Granting sudo takes effect without any restart.
	if err := st.AddSudo(ctx, 2); err != nil {
		t.Fatalf("add sudo: %v", err)
	}
	if _, err := r.Dispatch(ctx, Pause{From: guest(100)}); err != nil {
		t.Fatalf("pause as sudo: %v", err)
	}
	if _, err := r.Dispatch(ctx, Resume{From: guest(100)}); err != nil {
		t.Fatalf("resume as sudo: %v", err)
	}
}

func TestAdminCommandsRequireOwner(t *testing.T) {
	r, _, _ := newTestRouter(t)
	ctx := context.Background()

	for _, cmd := range []Command{
		AddSudo{From: guest(100), TargetID: 5},
		RemoveSudo{From: guest(100), TargetID: 5},
		SudoList{From: guest(100)},
		AuditOn{From: guest(100), Destination: -7},
		AuditOff{From: guest(100)},
		Broadcast{From: guest(100), Text: "hi"},
	} {
		if _, err := r.Dispatch(ctx, cmd); !errors.Is(err, ErrNotOwner) {
			t.Fatalf("%T: expected ErrNotOwner, got %v", cmd, err)
		}
	}
}

func TestSudoLifecycleViaCommands(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()

	if _, err := r.Dispatch(ctx, AddSudo{From: owner(1), TargetID: 5}); err != nil {
		t.Fatalf("add: %v", err)
	}
	ok, err := st.IsSudo(ctx, 5)
	if err != nil || !ok {
		t.Fatalf("user 5 should be sudo: ok=%v err=%v", ok, err)
	}

	reply, err := r.Dispatch(ctx, SudoList{From: owner(1)})
	if err != nil || !strings.Contains(reply, "5") {
		t.Fatalf("list mismatch: %q err=%v", reply, err)
	}

	if _, err := r.Dispatch(ctx, RemoveSudo{From: owner(1), TargetID: 5}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ok, _ = st.IsSudo(ctx, 5)
	if ok {
		t.Fatal("user 5 should no longer be sudo")
	}
}

func TestIsSudoCommand(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()

	// Checking someone's status is a privileged command itself.
	if _, err := r.Dispatch(ctx, IsSudo{From: guest(100), TargetID: 5}); !errors.Is(err, ErrNotSudo) {
		t.Fatalf("expected ErrNotSudo, got %v", err)
	}

	reply, err := r.Dispatch(ctx, IsSudo{From: owner(1), TargetID: 5})
	if err != nil {
		t.Fatalf("is_sudo: %v", err)
	}
	if !strings.Contains(reply, "does not have elevated access") {
		t.Fatalf("unexpected reply: %s", reply)
	}

	if err := st.AddSudo(ctx, 5); err != nil {
		t.Fatalf("add sudo: %v", err)
	}
	reply, err = r.Dispatch(ctx, IsSudo{From: owner(1), TargetID: 5})
	if err != nil {
		t.Fatalf("is_sudo: %v", err)
	}
	if !strings.Contains(reply, "has elevated access") || strings.Contains(reply, "does not") {
		t.Fatalf("unexpected reply: %s", reply)
	}

	// The owner always reports as elevated.
	reply, err = r.Dispatch(ctx, IsSudo{From: owner(1), TargetID: ownerID})
	if err != nil || strings.Contains(reply, "does not") {
		t.Fatalf("owner must report elevated: %q err=%v", reply, err)
	}
}

func TestBroadcastReachesRecordedChats(t *testing.T) {
	r, _, messenger := newTestRouter(t)
	ctx := context.Background()

	r.Dispatch(ctx, Play{From: guest(100), Query: "a", Kind: models.MediaAudio})
	r.Dispatch(ctx, Play{From: guest(200), Query: "b", Kind: models.MediaAudio})

	reply, err := r.Dispatch(ctx, Broadcast{From: owner(1), Text: "maintenance"})
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if !strings.Contains(reply, "3 sent") {
		t.Fatalf("unexpected reply: %s", reply)
	}
	// Chats 100, 200 and the owner's own chat 1 were all recorded.
	if len(messenger.sent) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(messenger.sent))
	}
}

func TestAuditToggleViaCommands(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()

	if _, err := r.Dispatch(ctx, AuditOn{From: owner(1), Destination: -700}); err != nil {
		t.Fatalf("audit on: %v", err)
	}
	dest, ok := st.AuditDestination(ctx)
	if !ok || dest != -700 {
		t.Fatalf("destination mismatch: %d ok=%v", dest, ok)
	}

	if _, err := r.Dispatch(ctx, AuditOff{From: owner(1)}); err != nil {
		t.Fatalf("audit off: %v", err)
	}
	if _, ok := st.AuditDestination(ctx); ok {
		t.Fatal("audit should be off")
	}
}

func TestUserMessagesAreDistinct(t *testing.T) {
	msgs := map[string]bool{}
	for _, err := range []error{
		ErrNotOwner,
		ErrNotSudo,
		player.ErrPrecondition,
		&resolver.Error{Kind: resolver.KindNotFound},
		&resolver.Error{Kind: resolver.KindUpstreamBlocked},
		&calls.Error{Kind: calls.KindNotReady},
		&calls.Error{Kind: calls.KindTimeout},
	} {
		msg := UserMessage(err)
		if msg == "" || msgs[msg] {
			t.Fatalf("message for %v not distinct: %q", err, msg)
		}
		msgs[msg] = true
	}
}
