package services

import (
	"fmt"
	"testing"
	"time"

	"poker-night-ledger/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Season{},
		&models.SeasonMember{},
		&models.SeasonDepositSubmission{},
		&models.SeasonHostOrder{},
		&models.Session{},
		&models.SessionParticipant{},
		&models.SessionInjection{},
		&models.EndingSubmission{},
		&models.SessionFinalizeNote{},
		&models.Notification{},
	))
	return db
}

// testEnv bundles a database, every service, and a standard cast: an admin,
// a treasurer, and three members.
type testEnv struct {
	db *gorm.DB

	seasons     *SeasonService
	sessions    *SessionService
	roster      *RosterService
	injections  *InjectionService
	settlements *SettlementService

	admin      models.User
	treasurer  models.User
	m1, m2, m3 models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		db:          db,
		seasons:     NewSeasonService(db, nil),
		sessions:    NewSessionService(db, nil),
		roster:      NewRosterService(db, nil),
		injections:  NewInjectionService(db, nil),
		settlements: NewSettlementService(db, nil),
	}
	env.admin = env.seedUser(t, "Admin", true)
	env.treasurer = env.seedUser(t, "Tess", false)
	env.m1 = env.seedUser(t, "Mario", false)
	env.m2 = env.seedUser(t, "Mona", false)
	env.m3 = env.seedUser(t, "Milo", false)
	return env
}

func (e *testEnv) seedUser(t *testing.T, name string, isAdmin bool) models.User {
	t.Helper()
	user := models.User{
		ID:          uuid.NewString(),
		Email:       fmt.Sprintf("%s@example.com", uuid.NewString()),
		DisplayName: name,
		IsAdmin:     isAdmin,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

// createSeason makes a setup-state season with the standard treasurer.
func (e *testEnv) createSeason(t *testing.T) *models.Season {
	t.Helper()
	season, err := e.seasons.CreateSeason(e.treasurer.ID, e.treasurer.ID, "Temporada Uno")
	require.NoError(t, err)
	return season
}

// approveMember runs the full deposit flow for a user: submit with proof,
// treasurer approves. Leaves the member approved with the opening balance.
func (e *testEnv) approveMember(t *testing.T, seasonID string, user models.User) {
	t.Helper()
	submission, _, err := e.seasons.SubmitDeposit(seasonID, user.ID, "https://cdn.example.com/proof.jpg", nil)
	require.NoError(t, err)
	_, member, err := e.seasons.ReviewDeposit(e.treasurer.ID, submission.ID, "approve", nil)
	require.NoError(t, err)
	require.Equal(t, models.ApprovalApproved, member.ApprovalStatus)
}

// activeSeason creates a season, approves the given users, and starts it.
func (e *testEnv) activeSeason(t *testing.T, users ...models.User) *models.Season {
	t.Helper()
	season := e.createSeason(t)
	for _, u := range users {
		e.approveMember(t, season.ID, u)
	}
	season, err := e.seasons.StartSeason(e.treasurer.ID, season.ID)
	require.NoError(t, err)
	return season
}

// dealingSession schedules and starts a session so check-in is open.
func (e *testEnv) dealingSession(t *testing.T, seasonID string) *models.Session {
	t.Helper()
	session, err := e.sessions.ScheduleSession(e.treasurer.ID, seasonID, e.treasurer.ID, nil, nil)
	require.NoError(t, err)
	session, err = e.sessions.StartSession(e.treasurer.ID, session.ID)
	require.NoError(t, err)
	return session
}

// checkInConfirmed checks a user in and confirms their starting stack.
func (e *testEnv) checkInConfirmed(t *testing.T, sessionID string, user models.User) *models.SessionParticipant {
	t.Helper()
	p, err := e.roster.CheckIn(sessionID, user.ID)
	require.NoError(t, err)
	p, err = e.roster.ConfirmStart(p.ID)
	require.NoError(t, err)
	return p
}

// sessionInState fabricates a session row directly in the given state, for
// transition-table tests that do not care how it got there.
func (e *testEnv) sessionInState(t *testing.T, seasonID, state string) *models.Session {
	t.Helper()
	session := &models.Session{
		ID:                uuid.NewString(),
		SeasonID:          seasonID,
		State:             state,
		HostUserID:        e.treasurer.ID,
		ScheduledAt:       time.Now(),
		ScheduledByUserID: e.treasurer.ID,
	}
	require.NoError(t, e.db.Create(session).Error)
	return session
}

func (e *testEnv) memberBalance(t *testing.T, seasonID, userID string) int64 {
	t.Helper()
	var member models.SeasonMember
	require.NoError(t, e.db.Where("season_id = ? AND user_id = ?", seasonID, userID).First(&member).Error)
	return member.CurrentBalanceCents
}
