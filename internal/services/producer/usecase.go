package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/domain/outbox"
	"github.com/NordCoder/Notewire/internal/domain/settings"
	"github.com/NordCoder/Notewire/internal/obs"
)

const (
	ReasonSelf     = "self"
	ReasonDisabled = "disabled"

	nonceLen = 9
)

var createdTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notifications_create_total",
	Help: "Create calls by outcome (created, duplicate, suppressed, invalid, error).",
}, []string{"outcome", "type"})

// Spec is what a caller asks to deliver. CreatedAt and Nonce are normally
// left empty; a caller replaying a literal retry passes the values it used
// the first time so the same key is derived.
type Spec struct {
	RecipientID   string                `json:"recipient_id"`
	SenderID      string                `json:"sender_id"`
	Type          notification.Type     `json:"type"`
	Title         string                `json:"title"`
	Message       string                `json:"message"`
	Data          map[string]any        `json:"data"`
	Priority      notification.Priority `json:"priority"`
	RelatedNoteID string                `json:"related_note_id"`
	RelatedUserID string                `json:"related_user_id"`
	CreatedAt     time.Time             `json:"created_at"`
	Nonce         string                `json:"nonce"`
}

type Result struct {
	Created      bool                       `json:"created"`
	Duplicate    bool                       `json:"duplicate"`
	Suppressed   bool                       `json:"suppressed"`
	Reason       string                     `json:"reason,omitempty"`
	Notification *notification.Notification `json:"notification,omitempty"`
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Usecase struct {
	repo     notification.Repo
	settings settings.Repo
	outbox   outbox.Repository
	tx       Transactor
	clk      notification.Clock
	nonce    func() string
	log      *zap.Logger
}

func New(repo notification.Repo, st settings.Repo, box outbox.Repository, tx Transactor, clk notification.Clock, log *zap.Logger) *Usecase {
	if clk == nil {
		clk = notification.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		repo:     repo,
		settings: st,
		outbox:   box,
		tx:       tx,
		clk:      clk,
		nonce:    randomNonce,
		log:      log.With(zap.String("component", "producer.usecase")),
	}
}

// Create stores one notification and queues it for push delivery. Skipped
// deliveries and idempotent replays are reported in Result, not as errors.
func (u *Usecase) Create(ctx context.Context, s Spec) (Result, error) {
	log := obs.WithTrace(ctx, u.log)

	if err := validate(&s); err != nil {
		createdTotal.WithLabelValues("invalid", string(s.Type)).Inc()
		return Result{}, err
	}

	if s.SenderID != "" && s.SenderID == s.RecipientID {
		createdTotal.WithLabelValues("suppressed", string(s.Type)).Inc()
		return Result{Suppressed: true, Reason: ReasonSelf}, nil
	}

	if u.settings != nil {
		st, err := u.settings.Get(ctx, s.RecipientID)
		switch {
		case err != nil:
			log.Warn("settings lookup failed, delivering anyway",
				zap.String("recipient", s.RecipientID), zap.Error(err))
		case !st.Allows(s.Type):
			createdTotal.WithLabelValues("suppressed", string(s.Type)).Inc()
			return Result{Suppressed: true, Reason: ReasonDisabled}, nil
		}
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = u.clk.Now()
	}
	s.CreatedAt = s.CreatedAt.UTC().Truncate(time.Millisecond)
	if s.Nonce == "" {
		s.Nonce = u.nonce()
	}

	n := &notification.Notification{
		ID:            Key(s),
		RecipientID:   s.RecipientID,
		SenderID:      s.SenderID,
		Type:          s.Type,
		Title:         s.Title,
		Message:       s.Message,
		Data:          s.Data,
		Priority:      s.Priority,
		RelatedNoteID: s.RelatedNoteID,
		RelatedUserID: s.RelatedUserID,
		CreatedAt:     s.CreatedAt,
	}

	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.repo.Insert(ctx, n); err != nil {
			return err
		}
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode outbox payload: %w", err)
		}
		return u.outbox.Enqueue(ctx, n.ID, outbox.KindNotificationCreated, payload)
	})
	switch {
	case errors.Is(err, notification.ErrConflict):
		createdTotal.WithLabelValues("duplicate", string(s.Type)).Inc()
		log.Debug("duplicate notification", zap.String("id", n.ID))
		return Result{Duplicate: true, Notification: n}, nil
	case err != nil:
		createdTotal.WithLabelValues("error", string(s.Type)).Inc()
		return Result{}, fmt.Errorf("store notification: %w", err)
	}

	createdTotal.WithLabelValues("created", string(s.Type)).Inc()
	log.Info("notification created",
		zap.String("id", n.ID),
		zap.String("recipient", n.RecipientID),
		zap.String("type", string(n.Type)),
	)
	return Result{Created: true, Notification: n}, nil
}

// keyPart escapes the separator so that parts containing it cannot shift
// into their neighbours.
var keyPart = strings.NewReplacer("%", "%25", "_", "%5F")

// Key derives the idempotency key of s. Two calls collide only when every
// part, including creation time and nonce, is the same.
func Key(s Spec) string {
	sender := s.SenderID
	if sender == "" {
		sender = "system"
	}
	related := "none"
	switch {
	case s.RelatedNoteID != "":
		related = s.RelatedNoteID
	case s.RelatedUserID != "":
		related = s.RelatedUserID
	}
	parts := []string{
		string(s.Type),
		sender,
		s.RecipientID,
		related,
		strconv.FormatInt(s.CreatedAt.UnixMilli(), 10),
		s.Nonce,
	}
	for i, p := range parts {
		parts[i] = keyPart.Replace(p)
	}
	return strings.Join(parts, "_")
}

func validate(s *Spec) error {
	s.RecipientID = strings.TrimSpace(s.RecipientID)
	s.SenderID = strings.TrimSpace(s.SenderID)

	if s.RecipientID == "" {
		return &notification.ValidationError{Field: "recipient_id", Reason: "is required"}
	}
	if s.Type == "" {
		return &notification.ValidationError{Field: "type", Reason: "is required"}
	}
	if !s.Type.Valid() {
		return &notification.ValidationError{Field: "type", Reason: fmt.Sprintf("%q is not supported", s.Type)}
	}
	if s.Priority == "" {
		s.Priority = notification.PriorityNormal
	}
	if !s.Priority.Valid() {
		return &notification.ValidationError{Field: "priority", Reason: fmt.Sprintf("%q is not supported", s.Priority)}
	}
	if s.Nonce != "" && strings.Contains(s.Nonce, "_") {
		return &notification.ValidationError{Field: "nonce", Reason: "must not contain '_'"}
	}
	return nil
}

func randomNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:nonceLen]
}
