package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimbo/internal/domain"
)

func TestCreateInvitationRequiresAdmin(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner@acme.dev", "Owner")
	member := env.users.add("member@acme.dev", "Member")
	ws := env.createWorkspace(owner)
	env.addMember(ws, member, domain.RoleMember)

	_, err := env.invitation.CreateInvitation(member.ID, ws.ID,
		domain.CreateInvitationRequest{Email: "new@acme.dev"})
	assert.ErrorIs(t, err, ErrForbidden)

	inv, err := env.invitation.CreateInvitation(owner.ID, ws.ID,
		domain.CreateInvitationRequest{Email: "New@Acme.dev"})
	require.NoError(t, err)
	assert.Equal(t, "new@acme.dev", inv.InvitedEmail, "email is stored lowercased")
	assert.Equal(t, domain.RoleMember, inv.Role, "role defaults to member")
	assert.NotEmpty(t, inv.Token)
	assert.WithinDuration(t, time.Now().Add(domain.InvitationTTL), inv.ExpiresAt, time.Minute)
}

func TestCreateInvitationRejectsDuplicates(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner@acme.dev", "Owner")
	member := env.users.add("member@acme.dev", "Member")
	ws := env.createWorkspace(owner)
	env.addMember(ws, member, domain.RoleMember)

	// Inviting an existing member is a duplicate.
	_, err := env.invitation.CreateInvitation(owner.ID, ws.ID,
		domain.CreateInvitationRequest{Email: member.Email})
	assert.ErrorIs(t, err, ErrDuplicate)

	// So is a second pending invitation for the same address.
	_, err = env.invitation.CreateInvitation(owner.ID, ws.ID,
		domain.CreateInvitationRequest{Email: "new@acme.dev"})
	require.NoError(t, err)
	_, err = env.invitation.CreateInvitation(owner.ID, ws.ID,
		domain.CreateInvitationRequest{Email: "NEW@acme.dev"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestVerifyInvitationStates(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner@acme.dev", "Owner")
	ws := env.createWorkspace(owner)

	_, err := env.invitation.VerifyInvitation("no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)

	inv, err := env.invitation.CreateInvitation(owner.ID, ws.ID,
		domain.CreateInvitationRequest{Email: "new@acme.dev"})
	require.NoError(t, err)

	got, err := env.invitation.VerifyInvitation(inv.Token)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	// Expired invitations report EXPIRED.
	expired := &domain.WorkspaceInvitation{
		WorkspaceID:  ws.ID,
		InvitedEmail: "late@acme.dev",
		InvitedBy:    owner.ID,
		Role:         domain.RoleMember,
		Token:        "expired-token",
		Status:       domain.InvitationPending,
		ExpiresAt:    time.Now().Add(-time.Hour),
	}
	require.NoError(t, env.invitations.Create(expired))
	_, err = env.invitation.VerifyInvitation("expired-token")
	assert.ErrorIs(t, err, ErrInviteExpired)

	// A processed invitation reports processed even when it has also
	// expired since.
	require.NoError(t, env.invitations.UpdateStatus(expired.ID, domain.InvitationRejected))
	_, err = env.invitation.VerifyInvitation("expired-token")
	assert.ErrorIs(t, err, ErrInviteProcessed)
}

func TestRespondInvitationAcceptAddsMember(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner@acme.dev", "Owner")
	invitee := env.users.add("new@acme.dev", "New Hire")
	ws := env.createWorkspace(owner)

	inv, err := env.invitation.CreateInvitation(owner.ID, ws.ID,
		domain.CreateInvitationRequest{Email: "new@acme.dev", Role: domain.RoleAdmin})
	require.NoError(t, err)

	got, err := env.invitation.RespondInvitation(invitee.ID,
		domain.RespondInvitationRequest{Token: inv.Token, Action: "accept"})
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationAccepted, got.Status)

	role, err := env.workspace.EffectiveRole(invitee.ID, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role, "membership carries the invited role")

	// Single use: a second accept fails.
	_, err = env.invitation.RespondInvitation(invitee.ID,
		domain.RespondInvitationRequest{Token: inv.Token, Action: "accept"})
	assert.ErrorIs(t, err, ErrInviteProcessed)
}

func TestRespondInvitationReject(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner@acme.dev", "Owner")
	invitee := env.users.add("new@acme.dev", "New Hire")
	ws := env.createWorkspace(owner)

	inv, err := env.invitation.CreateInvitation(owner.ID, ws.ID,
		domain.CreateInvitationRequest{Email: "new@acme.dev"})
	require.NoError(t, err)

	got, err := env.invitation.RespondInvitation(invitee.ID,
		domain.RespondInvitationRequest{Token: inv.Token, Action: "reject"})
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationRejected, got.Status)

	_, err = env.workspace.EffectiveRole(invitee.ID, ws.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestRespondInvitationEmailMustMatch(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner@acme.dev", "Owner")
	invitee := env.users.add("new@acme.dev", "New Hire")
	impostor := env.users.add("impostor@acme.dev", "Impostor")
	ws := env.createWorkspace(owner)

	inv, err := env.invitation.CreateInvitation(owner.ID, ws.ID,
		domain.CreateInvitationRequest{Email: "New@Acme.dev"})
	require.NoError(t, err)

	_, err = env.invitation.RespondInvitation(impostor.ID,
		domain.RespondInvitationRequest{Token: inv.Token, Action: "accept"})
	assert.ErrorIs(t, err, ErrForbidden)

	// Case differences in the address do not block the invitee.
	_, err = env.invitation.RespondInvitation(invitee.ID,
		domain.RespondInvitationRequest{Token: inv.Token, Action: "accept"})
	assert.NoError(t, err)
}

func TestRespondInvitationValidatesAction(t *testing.T) {
	env := newTestEnv()
	invitee := env.users.add("new@acme.dev", "New Hire")

	_, err := env.invitation.RespondInvitation(invitee.ID,
		domain.RespondInvitationRequest{Token: "any", Action: "maybe"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRespondInvitationAlreadyMemberConsumesInvite(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner@acme.dev", "Owner")
	member := env.users.add("member@acme.dev", "Member")
	ws := env.createWorkspace(owner)

	inv, err := env.invitation.CreateInvitation(owner.ID, ws.ID,
		domain.CreateInvitationRequest{Email: member.Email})
	// Not yet a member, so the invitation goes out.
	require.NoError(t, err)
	env.addMember(ws, member, domain.RoleMember)

	got, err := env.invitation.RespondInvitation(member.ID,
		domain.RespondInvitationRequest{Token: inv.Token, Action: "accept"})
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationAccepted, got.Status)

	// No second membership row was created.
	members, err := env.workspaces.ListMembers(ws.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRevokeInvitation(t *testing.T) {
	env := newTestEnv()
	owner := env.users.add("owner@acme.dev", "Owner")
	member := env.users.add("member@acme.dev", "Member")
	ws := env.createWorkspace(owner)
	env.addMember(ws, member, domain.RoleMember)

	inv, err := env.invitation.CreateInvitation(owner.ID, ws.ID,
		domain.CreateInvitationRequest{Email: "new@acme.dev"})
	require.NoError(t, err)

	assert.ErrorIs(t, env.invitation.RevokeInvitation(member.ID, inv.ID), ErrForbidden)
	require.NoError(t, env.invitation.RevokeInvitation(owner.ID, inv.ID))

	pending, err := env.invitation.ListPending(owner.ID, ws.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
