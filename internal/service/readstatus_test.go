package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbor-im/harbor/internal/model"
	"github.com/harbor-im/harbor/internal/repository"
)

func seedPrivateMessage(t *testing.T, repo *fakeMessageRepo, id int64, sender, receiver, content string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &model.Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
		MsgType:    model.MsgTypeText,
	}))
}

func TestMarkReadClearsUnread(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewReadStatusService(repo, nopLogger())
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		seedPrivateMessage(t, repo, i, "bob", "alice", "hey")
	}

	count, err := svc.UnreadCount(ctx, "alice", "bob", model.ConversationPrivate)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, svc.MarkRead(ctx, "alice", "bob", model.ConversationPrivate))

	count, err = svc.UnreadCount(ctx, "alice", "bob", model.ConversationPrivate)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewReadStatusService(repo, nopLogger())
	ctx := context.Background()

	seedPrivateMessage(t, repo, 1, "bob", "alice", "hey")

	require.NoError(t, svc.MarkRead(ctx, "alice", "bob", model.ConversationPrivate))
	require.NoError(t, svc.MarkRead(ctx, "alice", "bob", model.ConversationPrivate))

	count, err := svc.UnreadCount(ctx, "alice", "bob", model.ConversationPrivate)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUnreadExcludesOwnMessages(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewReadStatusService(repo, nopLogger())
	ctx := context.Background()

	seedPrivateMessage(t, repo, 1, "alice", "bob", "out")
	seedPrivateMessage(t, repo, 2, "bob", "alice", "in")

	count, err := svc.UnreadCount(ctx, "alice", "bob", model.ConversationPrivate)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestHiddenMessagesAreNotUnread(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewReadStatusService(repo, nopLogger())
	ctx := context.Background()

	seedPrivateMessage(t, repo, 1, "bob", "alice", "one")
	seedPrivateMessage(t, repo, 2, "bob", "alice", "two")

	require.NoError(t, svc.Hide(ctx, "alice", 1))

	count, err := svc.UnreadCount(ctx, "alice", "bob", model.ConversationPrivate)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The other side's view is untouched.
	history, err := repo.FindPrivate(ctx, "bob", "alice", 0, 50)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestHideUnknownMessage(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewReadStatusService(repo, nopLogger())

	err := svc.Hide(context.Background(), "alice", 404)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGroupUnreadPerReader(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewReadStatusService(repo, nopLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Message{
		ID: 1, SenderID: "alice", GroupID: "g1", Content: "hello group", MsgType: model.MsgTypeText,
	}))

	// Each member tracks read state independently.
	bobCount, err := svc.UnreadCount(ctx, "bob", "g1", model.ConversationGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobCount)

	require.NoError(t, svc.MarkRead(ctx, "bob", "g1", model.ConversationGroup))

	bobCount, err = svc.UnreadCount(ctx, "bob", "g1", model.ConversationGroup)
	require.NoError(t, err)
	assert.Zero(t, bobCount)

	carolCount, err := svc.UnreadCount(ctx, "carol", "g1", model.ConversationGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(1), carolCount)
}

func TestProperty_MarkReadAlwaysClearsConversation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("after markRead the conversation unread count is zero", prop.ForAll(
		func(incoming int, preRead int) bool {
			repo := newFakeMessageRepo()
			svc := NewReadStatusService(repo, nopLogger())
			ctx := context.Background()

			for i := range incoming {
				if err := repo.Create(ctx, &model.Message{
					ID:         int64(i + 1),
					SenderID:   "bob",
					ReceiverID: "alice",
					Content:    fmt.Sprintf("msg %d", i),
					MsgType:    model.MsgTypeText,
				}); err != nil {
					return false
				}
			}
			// Some messages may already carry a read row.
			for i := 0; i < preRead && i < incoming; i++ {
				if err := repo.CreateReadStatus(ctx, &model.MessageReadStatus{
					MessageID: int64(i + 1),
					UserID:    "alice",
				}); err != nil {
					return false
				}
			}

			if err := svc.MarkRead(ctx, "alice", "bob", model.ConversationPrivate); err != nil {
				return false
			}
			count, err := svc.UnreadCount(ctx, "alice", "bob", model.ConversationPrivate)
			return err == nil && count == 0
		},
		gen.IntRange(0, 30),
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
