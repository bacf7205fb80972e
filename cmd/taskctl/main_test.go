package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-task-api/internal/config"
	"github.com/redmonkez12/go-task-api/internal/database/databasetest"
	"github.com/redmonkez12/go-task-api/internal/user"
)

func TestReadPassword(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "newline", input: "secret123\n", want: "secret123"},
		{name: "crlf", input: "secret123\r\n", want: "secret123"},
		{name: "no newline", input: "secret123", want: "secret123"},
		{name: "spaces kept", input: "correct horse battery\n", want: "correct horse battery"},
		{name: "empty", input: "\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPassword(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewAuthService_RegistersUser(t *testing.T) {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			TokenFormat:         config.TokenFormatJWT,
			TokenSecret:         []byte("0123456789abcdef0123456789abcdef"),
			Issuer:              "task-api",
			Audience:            "task-api-clients",
			AccessTokenDuration: time.Minute,
			Argon2Time:          1,
			Argon2MemoryKiB:     1024,
			Argon2Threads:       1,
			MaxPasswordLength:   1024,
		},
	}
	db := databasetest.NewSQLite(t)

	service, err := newAuthService(cfg, user.NewRepository(db))
	require.NoError(t, err)

	u, err := service.Register(context.Background(), " Admin@Example.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)

	session, err := service.Login(context.Background(), "admin@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
}
