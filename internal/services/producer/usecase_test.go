package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/domain/outbox"
	"github.com/NordCoder/Notewire/internal/domain/settings"
	"github.com/NordCoder/Notewire/internal/repository/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type failingSettings struct{}

func (failingSettings) Get(context.Context, string) (*settings.Settings, error) {
	return nil, errors.New("settings store down")
}

func (failingSettings) Update(context.Context, string, settings.Patch) (*settings.Settings, error) {
	return nil, errors.New("settings store down")
}

type fixture struct {
	uc       *Usecase
	repo     *memory.NotificationRepo
	box      *memory.OutboxRepo
	settings *memory.SettingsRepo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := memory.NewNotificationRepo()
	box := memory.NewOutboxRepo()
	st := memory.NewSettingsRepo()
	uc := New(repo, st, box, memory.Transactor{}, fixedClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}, zap.NewNop())
	return fixture{uc: uc, repo: repo, box: box, settings: st}
}

func followSpec() Spec {
	return Spec{
		RecipientID: "A",
		SenderID:    "B",
		Type:        notification.TypeFollow,
		Title:       "New follower",
		Message:     "B started following you",
		Data:        map[string]any{"follower_id": "B"},
	}
}

func TestCreate_StoresAndQueuesPush(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.Create(context.Background(), followSpec())
	require.NoError(t, err)
	assert.True(t, res.Created)
	require.NotNil(t, res.Notification)
	assert.Equal(t, notification.PriorityNormal, res.Notification.Priority)
	assert.False(t, res.Notification.IsRead)

	st, ok := f.box.Status(res.Notification.ID)
	require.True(t, ok)
	assert.Equal(t, outbox.StatusCreated, st)
	assert.Equal(t, 1, f.repo.Len())
}

func TestCreate_LiteralRetryIsDuplicate(t *testing.T) {
	f := newFixture(t)
	spec := followSpec()
	spec.CreatedAt = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	spec.Nonce = "abc123xyz"

	first, err := f.uc.Create(context.Background(), spec)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := f.uc.Create(context.Background(), spec)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Notification.ID, second.Notification.ID)
	assert.Equal(t, 1, f.repo.Len())
}

func TestCreate_RefollowGetsNewKey(t *testing.T) {
	f := newFixture(t)

	first, err := f.uc.Create(context.Background(), followSpec())
	require.NoError(t, err)
	second, err := f.uc.Create(context.Background(), followSpec())
	require.NoError(t, err)

	assert.True(t, second.Created)
	assert.NotEqual(t, first.Notification.ID, second.Notification.ID)
	assert.Equal(t, 2, f.repo.Len())
}

func TestCreate_SelfNotificationSuppressed(t *testing.T) {
	f := newFixture(t)
	spec := followSpec()
	spec.SenderID = "A"

	res, err := f.uc.Create(context.Background(), spec)
	require.NoError(t, err)
	assert.True(t, res.Suppressed)
	assert.Equal(t, ReasonSelf, res.Reason)
	assert.False(t, res.Created)
	assert.Zero(t, f.repo.Len())
}

func TestCreate_DisabledTypeSuppressed(t *testing.T) {
	f := newFixture(t)
	_, err := f.settings.Update(context.Background(), "A", settings.Patch{notification.TypeFollow: false})
	require.NoError(t, err)

	res, err := f.uc.Create(context.Background(), followSpec())
	require.NoError(t, err)
	assert.True(t, res.Suppressed)
	assert.Equal(t, ReasonDisabled, res.Reason)
	assert.Zero(t, f.repo.Len())

	star := followSpec()
	star.Type = notification.TypeStar
	res, err = f.uc.Create(context.Background(), star)
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestCreate_SettingsFailureFailsOpen(t *testing.T) {
	repo := memory.NewNotificationRepo()
	uc := New(repo, failingSettings{}, memory.NewOutboxRepo(), memory.Transactor{}, nil, zap.NewNop())

	res, err := uc.Create(context.Background(), followSpec())
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]func(*Spec){
		"missing recipient": func(s *Spec) { s.RecipientID = " " },
		"missing type":      func(s *Spec) { s.Type = "" },
		"unknown type":      func(s *Spec) { s.Type = "poke" },
		"unknown priority":  func(s *Spec) { s.Priority = "critical" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := followSpec()
			mutate(&spec)

			_, err := f.uc.Create(context.Background(), spec)
			require.Error(t, err)
			assert.ErrorIs(t, err, notification.ErrValidation)
			var verr *notification.ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
	assert.Zero(t, f.repo.Len())
}

func TestKey_Shape(t *testing.T) {
	at := time.UnixMilli(1735689600000).UTC()

	assert.Equal(t, "follow_B_A_none_1735689600000_abcdefghi",
		Key(Spec{Type: notification.TypeFollow, SenderID: "B", RecipientID: "A", CreatedAt: at, Nonce: "abcdefghi"}))
	assert.Equal(t, "system_system_A_note-7_1735689600000_abcdefghi",
		Key(Spec{Type: notification.TypeSystem, RecipientID: "A", RelatedNoteID: "note-7", RelatedUserID: "u", CreatedAt: at, Nonce: "abcdefghi"}))
	assert.Equal(t, "mention_B_A_u-2_1735689600000_abcdefghi",
		Key(Spec{Type: notification.TypeMention, SenderID: "B", RecipientID: "A", RelatedUserID: "u-2", CreatedAt: at, Nonce: "abcdefghi"}))

	assert.Len(t, randomNonce(), nonceLen)
}

func TestKey_UnderscoreInIDsDoesNotCollide(t *testing.T) {
	at := time.UnixMilli(1735689600000).UTC()
	left := Spec{Type: notification.TypeFollow, SenderID: "a_b", RecipientID: "c", CreatedAt: at, Nonce: "abcdefghi"}
	right := Spec{Type: notification.TypeFollow, SenderID: "a", RecipientID: "b_c", CreatedAt: at, Nonce: "abcdefghi"}

	assert.NotEqual(t, Key(left), Key(right))
	assert.Equal(t, "follow_a%5Fb_c_none_1735689600000_abcdefghi", Key(left))
	assert.NotEqual(t, Key(Spec{SenderID: "x%5F"}), Key(Spec{SenderID: "x_"}))

	f := newFixture(t)
	first, err := f.uc.Create(context.Background(), left)
	require.NoError(t, err)
	second, err := f.uc.Create(context.Background(), right)
	require.NoError(t, err)

	require.True(t, first.Created)
	require.True(t, second.Created)
	assert.NotEqual(t, first.Notification.ID, second.Notification.ID)
	assert.Equal(t, 2, f.repo.Len())
}
