package producer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/domain/settings"
)

func TestClient_CreateAndReplay(t *testing.T) {
	srv, f := newTestServer(t)
	cl := NewClient(ClientConfig{BaseURL: srv.URL + "/", Timeout: time.Second})
	ctx := context.Background()

	spec := Spec{
		RecipientID: "A", SenderID: "B", Type: notification.TypeStar,
		Title: "t", Message: "m",
		CreatedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), Nonce: "abcdefghi",
	}
	res, err := cl.Create(ctx, spec)
	require.NoError(t, err)
	assert.True(t, res.Created)

	res, err = cl.Create(ctx, spec)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, f.repo.Len())
}

func TestClient_ValidationError(t *testing.T) {
	srv, _ := newTestServer(t)
	cl := NewClient(ClientConfig{BaseURL: srv.URL})

	_, err := cl.Create(context.Background(), Spec{RecipientID: "A", Type: "poke"})
	require.Error(t, err)
	assert.ErrorIs(t, err, notification.ErrValidation)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
}

func TestClient_Settings(t *testing.T) {
	srv, _ := newTestServer(t)
	cl := NewClient(ClientConfig{BaseURL: srv.URL})
	ctx := context.Background()

	st, err := cl.UpdateSettings(ctx, "user 1", settings.Patch{notification.TypeComment: false})
	require.NoError(t, err)
	assert.False(t, st.Allows(notification.TypeComment))

	st, err = cl.Settings(ctx, "user 1")
	require.NoError(t, err)
	assert.Equal(t, "user 1", st.UserID)
	assert.False(t, st.Allows(notification.TypeComment))
	assert.True(t, st.Allows(notification.TypeStar))
}
