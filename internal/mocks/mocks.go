package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"whatsapp-lite/internal/media"
	"whatsapp-lite/internal/models"
	"whatsapp-lite/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateWithSummary(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, msg)
	var created models.Message
	if val := args.Get(0); val != nil {
		created = val.(models.Message)
	}
	return created, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListBetween(ctx context.Context, userA, userB int64, before *time.Time, limit int) ([]models.Message, bool, error) {
	args := m.Called(ctx, userA, userB, before, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Bool(1), args.Error(2)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID, senderID int64, text, image *string) error {
	args := m.Called(ctx, messageID, senderID, text, image)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID, senderID int64) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) AdvanceStatus(ctx context.Context, messageID, receiverID int64, status models.MessageStatus) (bool, error) {
	args := m.Called(ctx, messageID, receiverID, status)
	return args.Bool(0), args.Error(1)
}

func (m *MessageRepositoryMock) MarkSeen(ctx context.Context, senderID, receiverID int64) (int64, error) {
	args := m.Called(ctx, senderID, receiverID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) CountUnread(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) Upsert(ctx context.Context, summary models.RecentChatSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *ChatRepositoryMock) RecentChats(ctx context.Context, userID int64) ([]models.RecentChatRow, error) {
	args := m.Called(ctx, userID)
	var rows []models.RecentChatRow
	if val := args.Get(0); val != nil {
		rows = val.([]models.RecentChatRow)
	}
	return rows, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, userID int64) (models.User, error) {
	args := m.Called(ctx, userID)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

func (m *UserRepositoryMock) GetByLogin(ctx context.Context, login string) (models.User, error) {
	args := m.Called(ctx, login)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

func (m *UserRepositoryMock) Create(ctx context.Context, nu models.NewUser) (models.User, error) {
	args := m.Called(ctx, nu)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

func (m *UserRepositoryMock) Search(ctx context.Context, term string, excludeID int64, limit, offset int) ([]models.User, int, error) {
	args := m.Called(ctx, term, excludeID, limit, offset)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Int(1), args.Error(2)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) error {
	args := m.Called(ctx, userID, update)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetOnline(ctx context.Context, userID int64, online bool) error {
	args := m.Called(ctx, userID, online)
	return args.Error(0)
}

func (m *UserRepositoryMock) MarkOfflineExcept(ctx context.Context, keep []int64, seenBefore time.Time) (int64, error) {
	args := m.Called(ctx, keep, seenBefore)
	return args.Get(0).(int64), args.Error(1)
}

type ImageStoreMock struct {
	mock.Mock
}

func (m *ImageStoreMock) Store(ctx context.Context, ownerID int64, payload string) (string, error) {
	args := m.Called(ctx, ownerID, payload)
	return args.String(0), args.Error(1)
}

var (
	_ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
	_ repositories.ChatRepository    = (*ChatRepositoryMock)(nil)
	_ repositories.UserRepository    = (*UserRepositoryMock)(nil)
	_ media.ImageStore               = (*ImageStoreMock)(nil)
)
