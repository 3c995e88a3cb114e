package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/carside/pkg/models"
)

func TestStore_TokenLifecycle(t *testing.T) {
	s := NewStore()

	_, err := s.Token()
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Nil(t, s.User())

	s.SetSession("tok-1", &models.User{ID: "u1", Name: "Dana"})
	token, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, "u1", s.User().ID)

	s.Clear()
	_, err = s.Token()
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestStaticToken(t *testing.T) {
	token, err := StaticToken("fixed").Token()
	require.NoError(t, err)
	assert.Equal(t, "fixed", token)

	_, err = StaticToken("").Token()
	require.ErrorIs(t, err, ErrNotAuthenticated)
}
