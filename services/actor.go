package services

import (
	"poker-night-ledger/models"

	"gorm.io/gorm"
)

// Actor is the acting principal as resolved by the gateway middleware. The
// core trusts the gateway for identity and only checks roles itself.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// resolveActor loads the user row behind an actor id. Anonymous calls are
// rejected at this boundary.
func resolveActor(db *gorm.DB, userID string) (Actor, *models.User, error) {
	if userID == "" {
		return Actor{}, nil, AuthorizationError("acting user required")
	}
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return Actor{}, nil, AuthorizationError("unknown acting user")
		}
		return Actor{}, nil, err
	}
	return Actor{UserID: user.ID, IsAdmin: user.IsAdmin}, &user, nil
}

// requireTreasurer rejects actors that are neither the season's treasurer nor
// an admin.
func requireTreasurer(season *models.Season, actor Actor) error {
	if actor.IsAdmin || actor.UserID == season.TreasurerUserID {
		return nil
	}
	return AuthorizationError("treasurer or admin role required")
}
