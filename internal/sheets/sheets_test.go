package sheets

import (
	"testing"

	"kiomedine-order-bot/internal/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserRows(t *testing.T) {
	rows := [][]any{
		{"Name", "Username", "Phone", "Chat ID", "Town", "Workplace", "Verifier Name", "Verified"},
		{"Olena K", "@olena", "0501234567", "101", "Lviv", "Clinic 3", "Dr. Bondar"},
		{"Revoked", "", "", 102.0, "", "", "", "FALSE"},
		{"No id"},
		{"Bad id", "", "", "abc"},
	}

	users, err := parseUserRows(rows)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, model.User{
		ChatID:       101,
		Name:         "Olena K",
		Username:     "olena",
		Town:         "Lviv",
		Phone:        "0501234567",
		Workplace:    "Clinic 3",
		VerifierName: "Dr. Bondar",
		Verified:     true,
	}, users[0])
	assert.Equal(t, int64(102), users[1].ChatID)
	assert.False(t, users[1].Verified)
}

func TestParseUserRows_Header(t *testing.T) {
	users, err := parseUserRows(nil)
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = parseUserRows([][]any{{"Name", "Phone"}})
	assert.Error(t, err)
}
