package store

import (
	"database/sql"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
)

func (s *Store) CreateListing(l *models.Listing) error {
	query := `
		INSERT INTO listings (ref, phone, waste_type, quantity_tons, expected_price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err := s.DB.Exec(query, l.Ref, l.Phone, l.WasteType, l.QuantityTons, l.ExpectedPrice, l.Status)
	return err
}

func (s *Store) GetListingsByPhone(phone string) ([]models.Listing, error) {
	query := `
		SELECT id, ref, phone, waste_type, quantity_tons, expected_price, COALESCE(status, 'active') as status, created_at
		FROM listings
		WHERE phone = ?
		ORDER BY created_at DESC
	`
	rows, err := s.DB.Query(query, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.ID, &l.Ref, &l.Phone, &l.WasteType, &l.QuantityTons, &l.ExpectedPrice, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// GetActiveListings returns active listings across all farmers, newest
// first, for the buyer dashboard.
func (s *Store) GetActiveListings(limit int) ([]models.Listing, error) {
	query := `
		SELECT id, ref, phone, waste_type, quantity_tons, expected_price, status, created_at
		FROM listings
		WHERE status = 'active'
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.ID, &l.Ref, &l.Phone, &l.WasteType, &l.QuantityTons, &l.ExpectedPrice, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *Store) UpdateListingStatus(ref, phone, status string) error {
	res, err := s.DB.Exec(`UPDATE listings SET status = ? WHERE ref = ? AND phone = ?`, status, ref, phone)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
