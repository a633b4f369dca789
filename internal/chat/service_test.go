package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/events"
	"whatsapp-lite/internal/mocks"
	"whatsapp-lite/internal/models"
	"whatsapp-lite/internal/observability"
	"whatsapp-lite/internal/repositories"
	"whatsapp-lite/internal/telemetry"
)

type onlineSet map[int64]bool

func (o onlineSet) Online(userID int64) bool { return o[userID] }

type fixture struct {
	svc       *Service
	messages  *mocks.MessageRepositoryMock
	chats     *mocks.ChatRepositoryMock
	users     *mocks.UserRepositoryMock
	images    *mocks.ImageStoreMock
	publisher *mocks.PublisherMock
	online    onlineSet
}

func newFixture() *fixture {
	f := &fixture{
		messages:  &mocks.MessageRepositoryMock{},
		chats:     &mocks.ChatRepositoryMock{},
		users:     &mocks.UserRepositoryMock{},
		images:    &mocks.ImageStoreMock{},
		publisher: &mocks.PublisherMock{},
		online:    onlineSet{},
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	logger := zap.NewNop()
	f.svc = NewService(
		f.messages,
		f.chats,
		f.users,
		f.images,
		f.online,
		observability.NewEvents(f.publisher, logger),
		telemetry.NewAuditEmitter(f.publisher, "whatsapp-lite", "test", logger),
		logger,
	)
	return f
}

var (
	alice = Actor{ID: 1, Username: "alice"}
	bob   = Actor{ID: 2, Username: "bob"}
)

func strPtr(s string) *string { return &s }

func textMessage(id, from, to int64, text string, status models.MessageStatus) models.Message {
	return models.Message{
		ID:         id,
		SenderID:   from,
		ReceiverID: to,
		Type:       models.MessageTypeText,
		Text:       strPtr(text),
		Status:     status,
		CreatedAt:  time.Date(2024, 5, 1, 12, 0, int(id), 0, time.UTC),
	}
}

func TestSendMessageBroadcastsToRoom(t *testing.T) {
	f := newFixture()
	stored := textMessage(10, 1, 2, "hello", models.StatusSent)

	f.users.On("GetByID", mock.Anything, int64(2)).Return(models.User{ID: 2, Username: "bob"}, nil)
	f.messages.On("CreateWithSummary", mock.Anything, mock.MatchedBy(func(m models.NewMessage) bool {
		return m.SenderID == 1 && m.ReceiverID == 2 && m.Type == models.MessageTypeText && *m.Text == "hello" && m.Image == nil
	})).Return(stored, nil)

	msg, out, err := f.svc.SendMessage(context.Background(), alice, SendInput{To: 2, Type: models.MessageTypeText, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), msg.ID)

	require.Len(t, out.Deliveries, 1)
	d := out.Deliveries[0]
	assert.Equal(t, events.Room("chat_1_2"), d.Target)
	assert.Equal(t, events.MessageReceived, d.Event)
	sent := d.Payload.(models.Message)
	assert.Equal(t, int64(1), sent.SenderID)
	assert.Equal(t, int64(2), sent.ReceiverID)
	assert.Equal(t, models.StatusSent, sent.Status)
	assert.Contains(t, f.publisher.Published(), observability.RoutingMessageSent)
	f.messages.AssertExpectations(t)
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture()
	cases := []SendInput{
		{To: 2, Type: models.MessageTypeText, Text: "   "},
		{To: 2, Type: models.MessageTypeImage},
		{To: 2, Type: "video", Text: "x"},
		{To: 1, Type: models.MessageTypeText, Text: "me"},
		{To: 0, Type: models.MessageTypeText, Text: "x"},
	}
	for _, in := range cases {
		_, _, err := f.svc.SendMessage(context.Background(), alice, in)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "input %+v got %v", in, err)
	}
	f.messages.AssertNotCalled(t, "CreateWithSummary", mock.Anything, mock.Anything)
}

func TestSendMessageUnknownReceiver(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", mock.Anything, int64(9)).Return(nil, repositories.ErrUserNotFound)

	_, _, err := f.svc.SendMessage(context.Background(), alice, SendInput{To: 9, Type: models.MessageTypeText, Text: "hi"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSendImageStoresPayloadFirst(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", mock.Anything, int64(2)).Return(models.User{ID: 2}, nil)
	f.images.On("Store", mock.Anything, int64(1), "aGk=").Return("https://cdn/x.png", nil)
	f.messages.On("CreateWithSummary", mock.Anything, mock.MatchedBy(func(m models.NewMessage) bool {
		return m.Image != nil && *m.Image == "https://cdn/x.png"
	})).Return(models.Message{ID: 3, SenderID: 1, ReceiverID: 2, Type: models.MessageTypeImage}, nil)

	_, out, err := f.svc.SendMessage(context.Background(), alice, SendInput{To: 2, Type: models.MessageTypeImage, Image: "aGk="})
	require.NoError(t, err)
	assert.Len(t, out.Deliveries, 1)
	f.images.AssertExpectations(t)
}

func TestSendMessageStoreFailureIsInfrastructure(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", mock.Anything, int64(2)).Return(models.User{ID: 2}, nil)
	f.messages.On("CreateWithSummary", mock.Anything, mock.Anything).Return(nil, errors.New("deadlock"))

	_, out, err := f.svc.SendMessage(context.Background(), alice, SendInput{To: 2, Type: models.MessageTypeText, Text: "hi"})
	assert.True(t, apperr.Is(err, apperr.KindInfrastructure))
	assert.Empty(t, out.Deliveries)
	assert.Equal(t, "failed to send message", apperr.PublicMessage(err, "x"))
}

func TestTypingOnlyReachesOnlineTarget(t *testing.T) {
	f := newFixture()

	assert.Empty(t, f.svc.Typing(alice, 2, true).Deliveries)

	f.online[2] = true
	out := f.svc.Typing(alice, 2, true)
	require.Len(t, out.Deliveries, 1)
	assert.Equal(t, events.User(2), out.Deliveries[0].Target)
	assert.Equal(t, events.TypingStatusPayload{From: 1, Username: "alice", IsTyping: true}, out.Deliveries[0].Payload)
}

func TestMarkSeenNotifiesSenderWhenOnline(t *testing.T) {
	f := newFixture()
	f.messages.On("MarkSeen", mock.Anything, int64(1), int64(2)).Return(int64(3), nil).Twice()

	count, out, err := f.svc.MarkSeen(context.Background(), bob, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Empty(t, out.Deliveries)

	f.online[1] = true
	_, out, err = f.svc.MarkSeen(context.Background(), bob, 1)
	require.NoError(t, err)
	require.Len(t, out.Deliveries, 1)
	assert.Equal(t, events.MessagesSeen, out.Deliveries[0].Event)
	assert.Equal(t, events.MessagesSeenPayload{By: 2, Username: "bob"}, out.Deliveries[0].Payload)

	_, _, err = f.svc.MarkSeen(context.Background(), bob, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateStatusAdvances(t *testing.T) {
	f := newFixture()
	f.online[1] = true
	f.messages.On("GetMessage", mock.Anything, int64(5)).Return(textMessage(5, 1, 2, "hi", models.StatusSent), nil)
	f.messages.On("AdvanceStatus", mock.Anything, int64(5), int64(2), models.StatusDelivered).Return(true, nil)

	out, err := f.svc.UpdateStatus(context.Background(), bob, 5, models.StatusDelivered)
	require.NoError(t, err)
	require.Len(t, out.Deliveries, 2)
	assert.Equal(t, events.Caller(), out.Deliveries[0].Target)
	assert.Equal(t, events.User(1), out.Deliveries[1].Target)
	assert.Equal(t, events.MessageStatusPayload{MessageID: 5, Status: models.StatusDelivered}, out.Deliveries[0].Payload)
	assert.Contains(t, f.publisher.Published(), telemetry.AuditRoutingKey)
}

func TestUpdateStatusNeverRegresses(t *testing.T) {
	f := newFixture()
	f.messages.On("GetMessage", mock.Anything, int64(5)).Return(textMessage(5, 1, 2, "hi", models.StatusSeen), nil)

	_, err := f.svc.UpdateStatus(context.Background(), bob, 5, models.StatusDelivered)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	out, err := f.svc.UpdateStatus(context.Background(), bob, 5, models.StatusSeen)
	require.NoError(t, err)
	assert.Len(t, out.Deliveries, 1)
	f.messages.AssertNotCalled(t, "AdvanceStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatusRequiresReceiver(t *testing.T) {
	f := newFixture()
	f.messages.On("GetMessage", mock.Anything, int64(5)).Return(textMessage(5, 1, 2, "hi", models.StatusSent), nil)
	f.messages.On("GetMessage", mock.Anything, int64(6)).Return(nil, repositories.ErrMessageNotFound)

	_, err := f.svc.UpdateStatus(context.Background(), alice, 5, models.StatusSeen)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = f.svc.UpdateStatus(context.Background(), bob, 6, models.StatusSeen)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.UpdateStatus(context.Background(), bob, 5, models.StatusSent)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestEditMessage(t *testing.T) {
	f := newFixture()
	original := textMessage(7, 1, 2, "helo", models.StatusSent)
	edited := original
	edited.Text = strPtr("hello")
	edited.IsEdited = true

	f.messages.On("GetMessage", mock.Anything, int64(7)).Return(original, nil).Once()
	f.messages.On("UpdateContent", mock.Anything, int64(7), int64(1), strPtr("hello"), (*string)(nil)).Return(nil)
	f.messages.On("GetMessage", mock.Anything, int64(7)).Return(edited, nil).Once()

	msg, out, err := f.svc.EditMessage(context.Background(), alice, 7, EditInput{Text: strPtr("hello")})
	require.NoError(t, err)
	assert.True(t, msg.IsEdited)
	require.Len(t, out.Deliveries, 1)
	assert.Equal(t, events.MessageUpdated, out.Deliveries[0].Event)
	assert.Equal(t, events.Room("chat_1_2"), out.Deliveries[0].Target)
}

func TestEditMessageHiddenFromOthersAndAfterDelete(t *testing.T) {
	f := newFixture()
	deleted := textMessage(8, 1, 2, models.DeletedMarker, models.StatusSent)
	deleted.IsDeleted = true
	f.messages.On("GetMessage", mock.Anything, int64(7)).Return(textMessage(7, 1, 2, "hi", models.StatusSent), nil)
	f.messages.On("GetMessage", mock.Anything, int64(8)).Return(deleted, nil)

	_, _, err := f.svc.EditMessage(context.Background(), bob, 7, EditInput{Text: strPtr("hacked")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, _, err = f.svc.EditMessage(context.Background(), alice, 8, EditInput{Text: strPtr("again")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, _, err = f.svc.EditMessage(context.Background(), alice, 7, EditInput{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	f.messages.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEditMessageRejectsCrossTypeContent(t *testing.T) {
	f := newFixture()
	image := models.Message{
		ID:         9,
		SenderID:   1,
		ReceiverID: 2,
		Type:       models.MessageTypeImage,
		Image:      strPtr("https://cdn/old.png"),
		Status:     models.StatusSent,
	}
	f.messages.On("GetMessage", mock.Anything, int64(7)).Return(textMessage(7, 1, 2, "hi", models.StatusSent), nil)
	f.messages.On("GetMessage", mock.Anything, int64(9)).Return(image, nil)

	_, _, err := f.svc.EditMessage(context.Background(), alice, 7, EditInput{Image: strPtr("https://cdn/x.png")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, _, err = f.svc.EditMessage(context.Background(), alice, 9, EditInput{Text: strPtr("caption")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	f.images.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
	f.messages.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteMessage(t *testing.T) {
	f := newFixture()
	f.messages.On("GetMessage", mock.Anything, int64(7)).Return(textMessage(7, 1, 2, "hi", models.StatusSent), nil)
	f.messages.On("SoftDelete", mock.Anything, int64(7), int64(1)).Return(nil)

	_, err := f.svc.DeleteMessage(context.Background(), bob, 7)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	out, err := f.svc.DeleteMessage(context.Background(), alice, 7)
	require.NoError(t, err)
	require.Len(t, out.Deliveries, 1)
	assert.Equal(t, events.MessageDeletedPayload{MessageID: 7}, out.Deliveries[0].Payload)
	f.messages.AssertNumberOfCalls(t, "SoftDelete", 1)
	assert.Contains(t, f.publisher.Published(), observability.RoutingMessageDeleted)
}

func TestJoinAndLeaveRoom(t *testing.T) {
	f := newFixture()

	out, err := f.svc.JoinRoom(bob, 1)
	require.NoError(t, err)
	assert.Equal(t, "chat_1_2", out.Join)
	require.Len(t, out.Deliveries, 1)
	assert.Equal(t, events.ChatJoinedPayload{RoomName: "chat_1_2", OtherUserID: 1}, out.Deliveries[0].Payload)

	f.online[1] = true
	out, err = f.svc.JoinRoom(bob, 1)
	require.NoError(t, err)
	require.Len(t, out.Deliveries, 2)
	assert.Equal(t, events.UserJoinedChatPayload{UserID: 2, Username: "bob", RoomName: "chat_1_2"}, out.Deliveries[1].Payload)

	_, err = f.svc.JoinRoom(bob, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	out, err = f.svc.LeaveRoom(alice, 2)
	require.NoError(t, err)
	assert.Equal(t, "chat_1_2", out.Leave)
	assert.Equal(t, events.ChatLeft, out.Deliveries[0].Event)
}

func TestGetMessagesClampsAndSetsCursor(t *testing.T) {
	f := newFixture()
	cursor := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	page := []models.Message{textMessage(1, 1, 2, "a", models.StatusSeen), textMessage(2, 2, 1, "b", models.StatusSent)}
	f.messages.On("ListBetween", mock.Anything, int64(1), int64(2), &cursor, MaxPageSize).Return(page, true, nil)
	f.messages.On("ListBetween", mock.Anything, int64(1), int64(3), (*time.Time)(nil), DefaultPageSize).Return(nil, false, nil)

	got, err := f.svc.GetMessages(context.Background(), alice, 2, &cursor, 500)
	require.NoError(t, err)
	assert.True(t, got.HasMore)
	require.NotNil(t, got.NextCursor)
	assert.Equal(t, page[0].CreatedAt, *got.NextCursor)

	empty, err := f.svc.GetMessages(context.Background(), alice, 3, nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty.Messages)
	assert.Nil(t, empty.NextCursor)
	assert.False(t, empty.HasMore)
}

func TestRecentChatsOverlaysLivePresence(t *testing.T) {
	f := newFixture()
	f.online[2] = true
	f.chats.On("RecentChats", mock.Anything, int64(1)).Return([]models.RecentChatRow{
		{ID: 1, OtherUserID: 2, OtherUsername: "bob", LastMessageText: "hi", LastMessageType: models.MessageTypeText},
		{ID: 2, OtherUserID: 3, OtherUsername: "carol", OtherIsOnline: false, LastMessageText: models.ImagePreview, LastMessageType: models.MessageTypeImage},
	}, nil)

	chats, err := f.svc.RecentChats(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.True(t, chats[0].User.IsOnline)
	assert.False(t, chats[1].User.IsOnline)
	assert.Equal(t, "hi", chats[0].LastMessage.Text)
}

func TestUnreadCount(t *testing.T) {
	f := newFixture()
	f.messages.On("CountUnread", mock.Anything, int64(2)).Return(4, nil)

	count, err := f.svc.UnreadCount(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
