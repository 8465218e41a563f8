package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserScore(t *testing.T) {
	user := User{}
	assert.Equal(t, 0, user.Score())

	user.Email = "a@x.com"
	assert.Equal(t, 10, user.Score())

	user.PhoneNumber = "555"
	user.Profile = Profile{
		Bio:        "bio",
		Skills:     []string{"go"},
		Resume:     "https://cdn/resume.pdf",
		Avatar:     "https://cdn/a.png",
		CoverImage: "https://cdn/c.png",
	}
	assert.Equal(t, 100, user.Score())
}

func TestUserJSONHidesSecrets(t *testing.T) {
	expiry := time.Now()
	user := User{
		ID:               "u1",
		Email:            "a@x.com",
		PasswordHash:     "hash",
		RefreshTokenHash: "refresh",
		ResetTokenHash:   "reset",
		ResetTokenExpiry: &expiry,
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "u1", fields["_id"])
	for _, key := range []string{"password", "passwordHash", "refreshToken", "refreshTokenHash", "resetTokenHash", "resetTokenExpiry"} {
		assert.NotContains(t, fields, key)
	}
}

func TestValidApplicationStatus(t *testing.T) {
	assert.True(t, ValidApplicationStatus(StatusInterview))
	assert.False(t, ValidApplicationStatus("Interview"))
	assert.False(t, ValidApplicationStatus(""))
}
