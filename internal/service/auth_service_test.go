package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"management-web/internal/config"
	"management-web/internal/models"
	"management-web/internal/utils"
)

type fakeUsers struct {
	users []*models.User
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.New("sql: no rows in result set")
}

func (f *fakeUsers) FindByUsername(username string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Username == username })
}

func (f *fakeUsers) FindByEmail(email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsers) FindByID(id int) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsers) Create(user *models.User) error {
	user.ID = len(f.users) + 1
	cp := *user
	f.users = append(f.users, &cp)
	return nil
}

func newAuthService(t *testing.T) (*AuthService, *fakeUsers) {
	t.Helper()
	users := &fakeUsers{}
	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpire: time.Hour, JWTRefreshExpire: 2 * time.Hour}
	return NewAuthService(users, cfg), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)

	user, err := svc.Register(models.RegisterRequest{Name: "Lan", Username: "lan", Email: "lan@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	resp, err := svc.Login(models.LoginRequest{Username: "lan", Password: "secret1"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.ValidateToken(resp.RefreshToken)
	assert.Error(t, err, "refresh tokens are not accepted as access tokens")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, users := newAuthService(t)
	_, err := svc.Register(models.RegisterRequest{Name: "Lan", Username: "lan", Email: "lan@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(models.LoginRequest{Username: "lan", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(models.LoginRequest{Username: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	users.users[0].IsActive = false
	_, err = svc.Login(models.LoginRequest{Username: "lan", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newAuthService(t)
	_, err := svc.Register(models.RegisterRequest{Name: "Lan", Username: "lan", Email: "lan@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(models.RegisterRequest{Name: "Lan 2", Username: "lan", Email: "other@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Register(models.RegisterRequest{Name: "Lan 2", Username: "lan2", Email: "lan@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	token, err := utils.GenerateAccessToken(models.User{ID: 1, Username: "a", Role: models.RoleAdmin}, "other", time.Hour)
	require.NoError(t, err)

	svc, _ := newAuthService(t)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
