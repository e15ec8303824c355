package auth_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctfer-io/covalic/pkg/auth"
	"github.com/ctfer-io/covalic/pkg/model"
)

func Test_U_Token(t *testing.T) {
	t.Parallel()

	now := time.Now()

	var tests = map[string]struct {
		Token          *model.Token
		SignSecret     string
		ValidateSecret string
		ExpectErr      bool
	}{
		"valid": {
			Token: &model.Token{
				ID:      "tok",
				UserID:  "user",
				Scope:   "covalic.score",
				Created: now,
				Expires: now.Add(time.Hour),
			},
			SignSecret:     "secret",
			ValidateSecret: "secret",
			ExpectErr:      false,
		},
		"expired": {
			Token: &model.Token{
				ID:      "tok",
				UserID:  "user",
				Created: now.Add(-2 * time.Hour),
				Expires: now.Add(-time.Hour),
			},
			SignSecret:     "secret",
			ValidateSecret: "secret",
			ExpectErr:      true,
		},
		"wrong-secret": {
			Token: &model.Token{
				ID:      "tok",
				UserID:  "user",
				Created: now,
				Expires: now.Add(time.Hour),
			},
			SignSecret:     "secret",
			ValidateSecret: "other",
			ExpectErr:      true,
		},
		"no-jti": {
			Token: &model.Token{
				UserID:  "user",
				Created: now,
				Expires: now.Add(time.Hour),
			},
			SignSecret:     "secret",
			ValidateSecret: "secret",
			ExpectErr:      true,
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			raw, err := auth.GenerateToken(tt.SignSecret, tt.Token)
			require.NoError(t, err)

			claims, err := auth.ValidateToken(tt.ValidateSecret, raw)
			if tt.ExpectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.Token.ID, claims.ID)
			assert.Equal(t, tt.Token.UserID, claims.UserID)
			assert.Equal(t, tt.Token.Scope, claims.Scope)
		})
	}
}

func Test_U_FromRequest(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		Headers  map[string]string
		Expected string
	}{
		"none": {
			Headers:  map[string]string{},
			Expected: "",
		},
		"bearer": {
			Headers:  map[string]string{"Authorization": "Bearer abc"},
			Expected: "abc",
		},
		"covalic-token": {
			Headers:  map[string]string{auth.TokenHeader: "def"},
			Expected: "def",
		},
		"basic-ignored": {
			Headers:  map[string]string{"Authorization": "Basic xyz"},
			Expected: "",
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.Headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.Expected, auth.FromRequest(req))
		})
	}
}

func Test_U_Password(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)

	assert.True(t, auth.CheckPassword("hunter22", hash))
	assert.False(t, auth.CheckPassword("hunter23", hash))
	assert.False(t, auth.CheckPassword("hunter22", "not-a-hash"))
}
