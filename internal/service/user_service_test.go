package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "findash/internal/errors"
	"findash/internal/logging"
	"findash/internal/model"
)

func newTestUserService(repo *MockUserRepository) UserService {
	return NewUserService(repo, testHasher, logging.Discard())
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockUserRepository)
		expectedDetail string
	}{
		{
			name: "successful registration",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByUsername", mock.Anything, "alice").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name: "email already registered",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(&model.User{ID: 7}, nil)
			},
			expectedDetail: "Email 'alice@example.com' already registered.",
		},
		{
			name: "username already taken",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByUsername", mock.Anything, "alice").Return(&model.User{ID: 7}, nil)
			},
			expectedDetail: "Username 'alice' already taken.",
		},
		{
			name: "unique index wins a race",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByUsername", mock.Anything, "alice").Return(nil, gorm.ErrRecordNotFound).Once()
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(gorm.ErrDuplicatedKey)
				m.On("FindByUsername", mock.Anything, "alice").Return(&model.User{ID: 9}, nil)
			},
			expectedDetail: "Username 'alice' already taken.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)
			service := newTestUserService(mockRepo)

			user, err := service.Register(context.Background(), NewUser{
				Username: "alice",
				Email:    "alice@example.com",
				Password: "password123",
			})

			if tt.expectedDetail != "" {
				var conflict *apperrors.ConflictError
				require.ErrorAs(t, err, &conflict)
				assert.Equal(t, tt.expectedDetail, conflict.Detail())
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "alice", user.Username)
				assert.True(t, user.IsActive)
				assert.False(t, user.IsSuperuser)
				assert.NotEqual(t, "password123", user.PasswordHash)
				assert.True(t, testHasher.Verify("password123", user.PasswordHash))
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_GetByID(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1, Username: "alice"}, nil)
	mockRepo.On("FindByID", mock.Anything, uint(2)).Return(nil, gorm.ErrRecordNotFound)
	service := newTestUserService(mockRepo)

	user, err := service.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = service.GetByID(context.Background(), 2)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserService_Update(t *testing.T) {
	tests := []struct {
		name           string
		update         model.UserUpdate
		setupMock      func(*MockUserRepository)
		expectedDetail string
	}{
		{
			name:   "applies only present fields",
			update: model.UserUpdate{Email: model.Some("new@example.com"), IsActive: model.Some(false)},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Update", mock.Anything, mock.AnythingOfType("*model.User"), map[string]interface{}{
					"email":     "new@example.com",
					"is_active": false,
				}).Return(nil)
			},
		},
		{
			name:   "unchanged username is not rechecked",
			update: model.UserUpdate{Username: model.Some("alice")},
			setupMock: func(m *MockUserRepository) {
				m.On("Update", mock.Anything, mock.AnythingOfType("*model.User"), map[string]interface{}{}).Return(nil)
			},
		},
		{
			name:   "username taken by another user",
			update: model.UserUpdate{Username: model.Some("bob")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "bob").Return(&model.User{ID: 2}, nil)
			},
			expectedDetail: "Username already taken",
		},
		{
			name:   "email taken by another user",
			update: model.UserUpdate{Email: model.Some("bob@example.com")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "bob@example.com").Return(&model.User{ID: 2}, nil)
			},
			expectedDetail: "Email already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)
			service := newTestUserService(mockRepo)
			user := &model.User{ID: 1, Username: "alice", Email: "alice@example.com", IsActive: true}

			updated, err := service.Update(context.Background(), user, tt.update)

			if tt.expectedDetail != "" {
				var conflict *apperrors.ConflictError
				require.ErrorAs(t, err, &conflict)
				assert.Equal(t, tt.expectedDetail, conflict.Detail())
				assert.Nil(t, updated)
			} else {
				require.NoError(t, err)
				assert.Same(t, user, updated)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_ChangePassword(t *testing.T) {
	tests := []struct {
		name          string
		oldPassword   string
		newPassword   string
		expectUpdate  bool
		expectedError error
	}{
		{name: "success", oldPassword: "password123", newPassword: "new-password", expectUpdate: true},
		{name: "wrong old password", oldPassword: "nope", newPassword: "new-password", expectedError: apperrors.ErrIncorrectPassword},
		{name: "same password", oldPassword: "password123", newPassword: "password123", expectedError: apperrors.ErrSamePassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			user := &model.User{ID: 1, Username: "alice", PasswordHash: hashed(t, "password123")}
			if tt.expectUpdate {
				mockRepo.On("Update", mock.Anything, user, mock.MatchedBy(func(f map[string]interface{}) bool {
					h, ok := f["hashed_password"].(string)
					return ok && len(f) == 1 && testHasher.Verify(tt.newPassword, h)
				})).Return(nil)
			}
			service := newTestUserService(mockRepo)

			err := service.ChangePassword(context.Background(), user, tt.oldPassword, tt.newPassword)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_Delete(t *testing.T) {
	alice := &model.User{ID: 1, Username: "alice"}
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByID", mock.Anything, uint(1)).Return(alice, nil)
	mockRepo.On("Delete", mock.Anything, alice).Return(nil)
	mockRepo.On("FindByID", mock.Anything, uint(2)).Return(nil, gorm.ErrRecordNotFound)
	service := newTestUserService(mockRepo)

	deleted, err := service.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Same(t, alice, deleted)

	_, err = service.Delete(context.Background(), 2)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	mockRepo.AssertExpectations(t)
}
