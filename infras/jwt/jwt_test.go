package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chalet/config"
	"chalet/infras/jwt"
	"chalet/shared/constant"
)

func newConfig(secret string, expireMin int) *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "chalet"
	cfg.JWT.AccessSecret = secret
	cfg.JWT.AccessExpireMin = expireMin

	return cfg
}

func TestJWT_RoundTrip(t *testing.T) {
	service := jwt.New(newConfig("secret", 15))

	token, err := service.GenerateToken("owner-1", constant.RoleUser)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.UserID)
	assert.Equal(t, constant.RoleUser, claims.Role)
	assert.NotEmpty(t, claims.TokenID)
}

func TestJWT_ValidateToken(t *testing.T) {
	expired, err := jwt.New(newConfig("secret", -1)).GenerateToken("owner-1", constant.RoleUser)
	require.NoError(t, err)

	foreign, err := jwt.New(newConfig("other", 15)).GenerateToken("owner-1", constant.RoleUser)
	require.NoError(t, err)

	service := jwt.New(newConfig("secret", 15))

	_, err = service.ValidateToken(expired)
	assert.ErrorIs(t, err, jwt.ErrExpiredToken)

	_, err = service.ValidateToken(foreign)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	_, err = service.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "", wantErr: jwt.ErrMissingToken},
		{header: "Basic abc", wantErr: jwt.ErrBearerFormat},
		{header: "Bearer ", wantErr: jwt.ErrBearerFormat},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := jwt.ExtractTokenFromHeader(tt.header)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, got)
		})
	}
}
