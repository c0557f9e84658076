package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type ProfileDTO struct {
	Username    string `json:"username"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Medals      int    `json:"medals"`
	Badges      string `json:"badges"` // JSON object, rendered client-side
	TimeCreated int64  `json:"timecreated"`
}

// Badge describes one entry of the fixed badge catalog.
type Badge struct {
	Level       string `json:"level"`
	Description string `json:"description"`
}

// badge levels the profile page knows how to color
var badgeCatalog = map[string]Badge{
	"conqueror":  {Level: "Uranium", Description: "Win 100 games"},
	"warlord":    {Level: "Ruby", Description: "Win 50 games"},
	"strategist": {Level: "Diamond", Description: "Win 25 games"},
	"veteran":    {Level: "Gold", Description: "Play 100 games"},
}

type IProfileService interface {
	GetProfile(ctx context.Context, username string) (*ProfileDTO, error)
	BadgeCatalog() map[string]Badge
}

type profileService struct {
	db *sql.DB
}

func NewProfileService(db *sql.DB) IProfileService {
	return &profileService{db: db}
}

func (svc *profileService) GetProfile(ctx context.Context, username string) (*ProfileDTO, error) {
	const q = `SELECT username, wins, losses, medals, coalesce(badges::text, '{}'), time_created
	             FROM players WHERE username = $1`
	dto := &ProfileDTO{}
	err := svc.db.QueryRowContext(ctx, q, username).Scan(
		&dto.Username, &dto.Wins, &dto.Losses, &dto.Medals, &dto.Badges, &dto.TimeCreated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s not found", username)
	}
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (svc *profileService) BadgeCatalog() map[string]Badge { return badgeCatalog }
