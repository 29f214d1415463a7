package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nimbo/internal/domain"
)

func newUserEnv() (UserService, *fakeUserRepo) {
	users := newFakeUserRepo()
	return NewUserService(users, zap.NewNop()), users
}

func TestGetUserNotFound(t *testing.T) {
	svc, _ := newUserEnv()

	_, err := svc.GetUser(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchUsersRequiresQuery(t *testing.T) {
	svc, users := newUserEnv()
	users.add("ada@acme.dev", "Ada Lovelace")
	users.add("grace@acme.dev", "Grace Hopper")

	var verr *ValidationError
	_, err := svc.SearchUsers("   ", 10)
	require.True(t, errors.As(err, &verr))

	found, err := svc.SearchUsers("ada", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ada Lovelace", found[0].DisplayName)
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, users := newUserEnv()
	u := users.add("ada@acme.dev", "Ada")

	var verr *ValidationError

	empty := "   "
	_, err := svc.UpdateProfile(u.ID, domain.UpdateProfileRequest{DisplayName: &empty})
	require.True(t, errors.As(err, &verr), "blank display name accepted")

	badURL := "ftp://cdn.acme.dev/ada.png"
	_, err = svc.UpdateProfile(u.ID, domain.UpdateProfileRequest{AvatarURL: &badURL})
	require.True(t, errors.As(err, &verr), "non-http avatar URL accepted")

	long := strings.Repeat("x", 101)
	_, err = svc.UpdateProfile(u.ID, domain.UpdateProfileRequest{StatusMessage: &long})
	require.True(t, errors.As(err, &verr), "101-char status message accepted")
}

func TestUpdateProfileTrimsAndPersists(t *testing.T) {
	svc, users := newUserEnv()
	u := users.add("ada@acme.dev", "Ada")

	name := "  Ada L.  "
	msg := "deep in the engine"
	updated, err := svc.UpdateProfile(u.ID, domain.UpdateProfileRequest{
		DisplayName:   &name,
		StatusMessage: &msg,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.DisplayName)
	require.NotNil(t, updated.StatusMessage)
	assert.Equal(t, msg, *updated.StatusMessage)

	stored, err := users.GetByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", stored.DisplayName)
}

func TestUpdateStatusValidatesValue(t *testing.T) {
	svc, users := newUserEnv()
	u := users.add("ada@acme.dev", "Ada")

	var verr *ValidationError
	_, err := svc.UpdateStatus(u.ID, domain.UserStatus("invisible"))
	require.True(t, errors.As(err, &verr))

	updated, err := svc.UpdateStatus(u.ID, domain.StatusBusy)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBusy, updated.Status)
}
