package services

import (
	"testing"

	"poker-night-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSeasonSingleton(t *testing.T) {
	env := newTestEnv(t)

	season := env.createSeason(t)
	assert.Equal(t, models.SeasonStatusSetup, season.Status)
	assert.Equal(t, "temporada-uno", season.Slug)
	// one member row per known user
	assert.Len(t, season.Members, 5)
	for _, m := range season.Members {
		assert.Equal(t, models.ApprovalNotSubmitted, m.ApprovalStatus)
		assert.Zero(t, m.CurrentBalanceCents)
	}

	_, err := env.seasons.CreateSeason(env.treasurer.ID, env.treasurer.ID, "Temporada Dos")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))

	// ending the first season frees the slot
	_, err = env.seasons.EndSeason(env.treasurer.ID, season.ID)
	require.NoError(t, err)
	_, err = env.seasons.CreateSeason(env.treasurer.ID, env.treasurer.ID, "Temporada Dos")
	require.NoError(t, err)
}

func TestStartSeasonNeedsTwoApproved(t *testing.T) {
	env := newTestEnv(t)
	season := env.createSeason(t)

	_, err := env.seasons.StartSeason(env.treasurer.ID, season.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPrecondition))

	env.approveMember(t, season.ID, env.m1)
	_, err = env.seasons.StartSeason(env.treasurer.ID, season.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPrecondition))

	env.approveMember(t, season.ID, env.m2)
	started, err := env.seasons.StartSeason(env.treasurer.ID, season.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeasonStatusActive, started.Status)
	assert.NotNil(t, started.StartedAt)
}

func TestStartSeasonRequiresTreasurerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	season := env.createSeason(t)
	env.approveMember(t, season.ID, env.m1)
	env.approveMember(t, season.ID, env.m2)

	_, err := env.seasons.StartSeason(env.m1.ID, season.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuthorization))

	// admin may start in the treasurer's place
	_, err = env.seasons.StartSeason(env.admin.ID, season.ID)
	require.NoError(t, err)
}

func TestUpdateTreasurerLockedAfterSetup(t *testing.T) {
	env := newTestEnv(t)
	season := env.createSeason(t)

	updated, err := env.seasons.UpdateTreasurer(env.treasurer.ID, season.ID, env.m1.ID)
	require.NoError(t, err)
	assert.Equal(t, env.m1.ID, updated.TreasurerUserID)

	// hand it back so the standard treasurer can keep driving
	_, err = env.seasons.UpdateTreasurer(env.m1.ID, season.ID, env.treasurer.ID)
	require.NoError(t, err)

	env.approveMember(t, season.ID, env.m1)
	env.approveMember(t, season.ID, env.m2)
	_, err = env.seasons.StartSeason(env.treasurer.ID, season.ID)
	require.NoError(t, err)

	_, err = env.seasons.UpdateTreasurer(env.treasurer.ID, season.ID, env.m2.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPrecondition))
}

func TestSubmitDepositRequiresPhoto(t *testing.T) {
	env := newTestEnv(t)
	season := env.createSeason(t)

	_, _, err := env.seasons.SubmitDeposit(season.ID, env.m1.ID, "", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	_, member, err := env.seasons.SubmitDeposit(season.ID, env.m1.ID, "https://cdn.example.com/p.jpg", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, member.ApprovalStatus)
}

func TestReviewDepositApproveCreditsOpeningBalance(t *testing.T) {
	env := newTestEnv(t)
	season := env.createSeason(t)

	submission, _, err := env.seasons.SubmitDeposit(season.ID, env.m1.ID, "https://cdn.example.com/p.jpg", nil)
	require.NoError(t, err)

	reviewed, member, err := env.seasons.ReviewDeposit(env.treasurer.ID, submission.ID, "approve", nil)
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusApproved, reviewed.Status)
	assert.Equal(t, models.ApprovalApproved, member.ApprovalStatus)
	assert.Equal(t, int64(50000), member.CurrentBalanceCents)

	// review is terminal
	_, _, err = env.seasons.ReviewDeposit(env.treasurer.ID, submission.ID, "reject", strPtr("nope"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPrecondition))
}

func TestReviewDepositRejectNeedsNote(t *testing.T) {
	env := newTestEnv(t)
	season := env.createSeason(t)

	submission, _, err := env.seasons.SubmitDeposit(season.ID, env.m1.ID, "https://cdn.example.com/p.jpg", nil)
	require.NoError(t, err)

	_, _, err = env.seasons.ReviewDeposit(env.treasurer.ID, submission.ID, "reject", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	reviewed, member, err := env.seasons.ReviewDeposit(env.treasurer.ID, submission.ID, "reject", strPtr("wrong amount"))
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusRejected, reviewed.Status)
	assert.Equal(t, models.ApprovalRejected, member.ApprovalStatus)
	assert.Zero(t, member.CurrentBalanceCents)

	// a rejected member submits again as a fresh row
	_, member, err = env.seasons.SubmitDeposit(season.ID, env.m1.ID, "https://cdn.example.com/p2.jpg", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, member.ApprovalStatus)
}

func TestHostOrderWholesaleReplace(t *testing.T) {
	env := newTestEnv(t)
	season := env.createSeason(t)

	order, err := env.seasons.SaveHostOrder(season.ID, []string{env.m1.ID, env.m2.ID, env.m3.ID})
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, env.m1.ID, order[0].UserID)
	assert.Equal(t, 0, order[0].SortIndex)
	assert.Equal(t, 2, order[2].SortIndex)

	order, err = env.seasons.SaveHostOrder(season.ID, []string{env.m3.ID})
	require.NoError(t, err)
	require.Len(t, order, 1)
	assert.Equal(t, env.m3.ID, order[0].UserID)
}

func strPtr(s string) *string { return &s }
