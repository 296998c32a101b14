package services

import (
	"testing"

	"poker-night-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drives a session to closing with m1 and m2 seated at 50000 each.
func closingSession(t *testing.T, env *testEnv) (*models.Session, *models.SessionParticipant, *models.SessionParticipant) {
	t.Helper()
	session, p1, p2 := inProgressSession(t, env)
	session, err := env.sessions.EndSession(env.treasurer.ID, session.ID)
	require.NoError(t, err)
	return session, p1, p2
}

func TestSubmitEndingStackValidation(t *testing.T) {
	env := newTestEnv(t)
	session, p1, _ := closingSession(t, env)

	_, err := env.settlements.SubmitEndingStack(env.m1.ID, session.ID, p1.ID, -1, "https://cdn.example.com/s.jpg", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	_, err = env.settlements.SubmitEndingStack(env.m1.ID, session.ID, p1.ID, 60000, "  ", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	// zero is a legal ending stack (busted out)
	sub, err := env.settlements.SubmitEndingStack(env.m1.ID, session.ID, p1.ID, 0, "https://cdn.example.com/s.jpg", nil)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPending, sub.Status)
}

func TestSubmitEndingStackOnlyWhileClosing(t *testing.T) {
	env := newTestEnv(t)
	session, p1, _ := inProgressSession(t, env)

	_, err := env.settlements.SubmitEndingStack(env.m1.ID, session.ID, p1.ID, 60000, "https://cdn.example.com/s.jpg", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPrecondition))
}

func TestSubmitOnBehalfOfAnotherPlayer(t *testing.T) {
	env := newTestEnv(t)
	session, p1, _ := closingSession(t, env)

	// the treasurer submits m1's count for them
	sub, err := env.settlements.SubmitEndingStack(env.treasurer.ID, session.ID, p1.ID, 60000, "https://cdn.example.com/s.jpg", nil)
	require.NoError(t, err)
	require.NotNil(t, sub.SubmittedByUserID)
	assert.Equal(t, env.treasurer.ID, *sub.SubmittedByUserID)
	assert.Equal(t, p1.ID, sub.ParticipantID)
}

func TestReviewEndingSubmissionRules(t *testing.T) {
	env := newTestEnv(t)
	session, p1, _ := closingSession(t, env)

	sub, err := env.settlements.SubmitEndingStack(env.m1.ID, session.ID, p1.ID, 60000, "https://cdn.example.com/s.jpg", nil)
	require.NoError(t, err)

	// reject without a note
	_, err = env.settlements.ReviewEndingSubmission(env.treasurer.ID, sub.ID, "reject", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	// members cannot review
	_, err = env.settlements.ReviewEndingSubmission(env.m2.ID, sub.ID, "validate", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuthorization))

	reviewed, err := env.settlements.ReviewEndingSubmission(env.treasurer.ID, sub.ID, "validate", nil)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusValidated, reviewed.Status)

	// review is terminal
	_, err = env.settlements.ReviewEndingSubmission(env.treasurer.ID, sub.ID, "reject", strPtr("changed my mind"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPrecondition))
}

func TestBalanceCheckUsesLatestValidatedSubmission(t *testing.T) {
	env := newTestEnv(t)
	session, p1, p2 := closingSession(t, env)

	// first count validated, then a corrected one validated later
	first, err := env.settlements.SubmitEndingStack(env.m1.ID, session.ID, p1.ID, 60000, "https://cdn.example.com/a.jpg", nil)
	require.NoError(t, err)
	_, err = env.settlements.ReviewEndingSubmission(env.treasurer.ID, first.ID, "validate", nil)
	require.NoError(t, err)

	second, err := env.settlements.SubmitEndingStack(env.m1.ID, session.ID, p1.ID, 62000, "https://cdn.example.com/b.jpg", nil)
	require.NoError(t, err)
	_, err = env.settlements.ReviewEndingSubmission(env.treasurer.ID, second.ID, "validate", nil)
	require.NoError(t, err)

	check, err := env.settlements.BalanceCheck(session.ID)
	require.NoError(t, err)
	require.Len(t, check.Participants, 2)

	byID := map[string]ParticipantBalance{}
	for _, row := range check.Participants {
		byID[row.ParticipantID] = row
	}
	assert.Equal(t, int64(62000), byID[p1.ID].EndingStackCents)
	assert.Equal(t, int64(12000), byID[p1.ID].PnlCents)

	// p2 has no validated submission: ending counts as 0 for display
	assert.False(t, byID[p2.ID].HasValidatedSubmission)
	assert.Zero(t, byID[p2.ID].EndingStackCents)
	assert.Zero(t, byID[p2.ID].PnlCents)

	assert.Equal(t, int64(12000), check.SumPnlCents)
	assert.False(t, check.IsBalanced)
}

func TestFinalizeBlockedWithoutValidatedSubmissions(t *testing.T) {
	env := newTestEnv(t)
	session, p1, _ := closingSession(t, env)

	sub, err := env.settlements.SubmitEndingStack(env.m1.ID, session.ID, p1.ID, 50000, "https://cdn.example.com/s.jpg", nil)
	require.NoError(t, err)
	_, err = env.settlements.ReviewEndingSubmission(env.treasurer.ID, sub.ID, "validate", nil)
	require.NoError(t, err)

	// p2 has nothing validated; an override note does not help
	_, _, _, err = env.sessions.FinalizeSession(env.treasurer.ID, session.ID, "just let it through")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPrecondition))

	var reloaded models.Session
	require.NoError(t, env.db.First(&reloaded, "id = ?", session.ID).Error)
	assert.Equal(t, models.SessionStateClosing, reloaded.State)
}

func TestFinalizeBalancedNeedsNoNote(t *testing.T) {
	env := newTestEnv(t)
	session, p1, p2 := closingSession(t, env)

	submitValidated(t, env, session.ID, p1.ID, 60000)
	submitValidated(t, env, session.ID, p2.ID, 40000)

	finalized, members, note, err := env.sessions.FinalizeSession(env.treasurer.ID, session.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateFinalized, finalized.State)
	assert.Nil(t, note)
	require.NotNil(t, finalized.FinalizedByUserID)
	assert.Equal(t, env.treasurer.ID, *finalized.FinalizedByUserID)

	assert.Equal(t, int64(60000), env.memberBalance(t, session.SeasonID, env.m1.ID))
	assert.Equal(t, int64(40000), env.memberBalance(t, session.SeasonID, env.m2.ID))
	assert.NotEmpty(t, members)
}

// Scenario: rejected count resubmitted, unbalanced sum, override note.
func TestFinalizeWithOverrideNote(t *testing.T) {
	env := newTestEnv(t)
	session, p1, p2 := closingSession(t, env)

	submitValidated(t, env, session.ID, p1.ID, 70000)

	bad, err := env.settlements.SubmitEndingStack(env.m2.ID, session.ID, p2.ID, 30000, "https://cdn.example.com/bad.jpg", nil)
	require.NoError(t, err)
	_, err = env.settlements.ReviewEndingSubmission(env.treasurer.ID, bad.ID, "reject", strPtr("blurry"))
	require.NoError(t, err)

	submitValidated(t, env, session.ID, p2.ID, 35000)

	// 20000 - 15000 = 5000 off: no silent finalize
	_, _, _, err = env.sessions.FinalizeSession(env.treasurer.ID, session.ID, "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPrecondition))

	finalized, _, note, err := env.sessions.FinalizeSession(env.treasurer.ID, session.ID, "counted wrong, accepted")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateFinalized, finalized.State)
	require.NotNil(t, note)
	assert.Equal(t, "counted wrong, accepted", note.Note)
	assert.Equal(t, env.treasurer.ID, note.CreatedByUserID)

	assert.Equal(t, int64(70000), env.memberBalance(t, session.SeasonID, env.m1.ID))
	assert.Equal(t, int64(35000), env.memberBalance(t, session.SeasonID, env.m2.ID))

	persisted, err := env.sessions.GetFinalizeNote(session.ID)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "counted wrong, accepted", persisted.Note)

	// the season is free for a new session once this one is finalized
	_, err = env.sessions.ScheduleSession(env.treasurer.ID, session.SeasonID, env.m1.ID, nil, nil)
	require.NoError(t, err)
}

func submitValidated(t *testing.T, env *testEnv, sessionID, participantID string, cents int64) {
	t.Helper()
	sub, err := env.settlements.SubmitEndingStack(env.treasurer.ID, sessionID, participantID, cents, "https://cdn.example.com/proof.jpg", nil)
	require.NoError(t, err)
	_, err = env.settlements.ReviewEndingSubmission(env.treasurer.ID, sub.ID, "validate", nil)
	require.NoError(t, err)
}
