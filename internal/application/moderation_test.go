package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/participa-vecinal/participa/internal/domain/entity"
	"github.com/participa-vecinal/participa/pkg/apperror"
)

func TestFileReportNotifiesAuthorWithoutDedup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.verifiedUser(t, registerInput("30123456", "ana@example.com"))
	bruno := f.verifiedUser(t, registerInput("28999111", "bruno@example.com"))
	pid := f.proposal(t, ana, "Bicisenda")

	r, err := f.moderation.FileReport(ctx, bruno, pid, "<i>contenido</i> ofensivo")
	require.NoError(t, err)
	assert.Equal(t, "contenido ofensivo", r.Motivo)
	_, err = f.moderation.FileReport(ctx, bruno, pid, "")
	require.NoError(t, err)

	n, err := f.moderation.Store.Reports.CountByProposal(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := f.moderation.ListNotifications(ctx, ana, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, n := range list {
		assert.Equal(t, entity.NotificationReport, n.Tipo)
		assert.Equal(t, msgReport, n.Mensaje)
		assert.False(t, n.Leida)
	}

	_, err = f.moderation.FileReport(ctx, bruno, 9999, "")
	assert.ErrorIs(t, err, apperror.ErrProposalNotFound)
}

func TestNotificationsNewestFirstAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.verifiedUser(t, registerInput("30123456", "ana@example.com"))
	bruno := f.verifiedUser(t, registerInput("28999111", "bruno@example.com"))
	pid := f.proposal(t, ana, "Bicisenda")

	_, err := f.voting.Cast(ctx, bruno, pid, 1)
	require.NoError(t, err)
	_, err = f.moderation.FileReport(ctx, bruno, pid, "spam")
	require.NoError(t, err)

	list, err := f.moderation.ListNotifications(ctx, ana, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, entity.NotificationReport, list[0].Tipo, "newest first")
	assert.Equal(t, entity.NotificationVotePositive, list[1].Tipo)

	_, err = f.moderation.MarkRead(ctx, list[0].ID, bruno)
	assert.ErrorIs(t, err, apperror.ErrNotNotificationOwner)
	_, err = f.moderation.MarkRead(ctx, 9999, ana)
	assert.ErrorIs(t, err, apperror.ErrNotificationNotFound)

	for i := 0; i < 2; i++ {
		v, err := f.moderation.MarkRead(ctx, list[0].ID, ana)
		require.NoError(t, err)
		assert.True(t, v.Leida)
	}

	unread, err := f.moderation.ListNotifications(ctx, ana, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, list[1].ID, unread[0].ID)

	none, err := f.moderation.ListNotifications(ctx, bruno, false)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}
