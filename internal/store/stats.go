package store

import (
	"database/sql"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
)

// co2PerTonKg mirrors the factor the model server uses for burn-avoidance
// impact (1 ton of straw burned ~ 1.5 tons of CO2).
const co2PerTonKg = 1500

// GetGreenStats aggregates a farmer's listing activity into the
// dashboard's green-score figures.
func (s *Store) GetGreenStats(phone string) (*models.GreenStats, error) {
	stats := &models.GreenStats{Phone: phone}

	err := s.DB.QueryRow(`
		SELECT
			COALESCE(SUM(quantity_tons), 0),
			COALESCE(SUM(CASE WHEN status = 'sold' THEN quantity_tons ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0)
		FROM listings
		WHERE phone = ? AND status != 'cancelled'
	`, phone).Scan(&stats.TonsListed, &stats.TonsSold, &stats.ActiveListings)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	stats.CO2SavedKg = stats.TonsSold * co2PerTonKg
	// 10 points per ton listed plus a sale bonus, matching the score bands
	// the leaderboard displays.
	stats.GreenScore = int(stats.TonsListed*10 + stats.TonsSold*30)

	return stats, nil
}
