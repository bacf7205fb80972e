package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodeTarget struct {
	Email string `json:"email"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"email":"a@x.com"}`},
		{name: "trailing whitespace", body: "{\"email\":\"a@x.com\"}\n"},
		{name: "unknown field", body: `{"email":"a@x.com","admin":true}`, wantErr: true},
		{name: "trailing value", body: `{"email":"a@x.com"}{"email":"b@x.com"}`, wantErr: true},
		{name: "trailing garbage", body: `{"email":"a@x.com"} x`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
		{name: "too large", body: `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got decodeTarget

			err := DecodeJSON(httptest.NewRecorder(), req, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", got.Email)
		})
	}
}

func TestRespondErrorWithCode(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithCode(rec, "user already exists", "DUPLICATE_USER", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"user already exists","code":"DUPLICATE_USER"}`, rec.Body.String())
}
