package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowList_IsAuthorized(t *testing.T) {
	al := NewAllowList("admin@x.com, ceo@knwebagency.com", false)
	require.Equal(t, 2, al.Size())

	assert.True(t, al.IsAuthorized(&Principal{Email: "admin@x.com"}))
	assert.True(t, al.IsAuthorized(&Principal{Email: "Admin@X.com"}), "matching is case-insensitive")
	assert.True(t, al.IsAuthorized(&Principal{Email: "ceo@knwebagency.com"}))
	assert.False(t, al.IsAuthorized(&Principal{Email: "intruder@x.com"}))
	assert.False(t, al.IsAuthorized(nil))
}

func TestAllowList_Empty_DeniesByDefault(t *testing.T) {
	al := NewAllowList("", false)
	require.Equal(t, 0, al.Size())
	assert.False(t, al.IsAuthorized(&Principal{Email: "anyone@x.com"}))
}

func TestAllowList_Empty_OptInAllowsAllAuthenticated(t *testing.T) {
	al := NewAllowList(" , ", true)
	require.Equal(t, 0, al.Size())
	assert.True(t, al.IsAuthorized(&Principal{Email: "anyone@x.com"}))
	assert.False(t, al.IsAuthorized(nil), "unauthenticated stays denied even with the opt-in")
}
