package store

import (
	"database/sql"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
)

func (s *Store) GetUserByPhone(phone string) (*models.User, error) {
	query := `SELECT id, phone, name, role, location_pincode, created_at FROM users WHERE phone = ?`
	row := s.DB.QueryRow(query, phone)

	var user models.User
	if err := row.Scan(&user.ID, &user.Phone, &user.Name, &user.Role, &user.LocationPincode, &user.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpsertUser creates a profile on first login and refreshes role/name/
// location on later ones. Empty name/location leave the stored values
// alone so a verify-otp after registration doesn't wipe the profile.
func (s *Store) UpsertUser(user *models.User) error {
	query := `
		INSERT INTO users (phone, name, role, location_pincode)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(phone) DO UPDATE SET
			role = excluded.role,
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE users.name END,
			location_pincode = CASE WHEN excluded.location_pincode != '' THEN excluded.location_pincode ELSE users.location_pincode END
	`
	_, err := s.DB.Exec(query, user.Phone, user.Name, user.Role, user.LocationPincode)
	return err
}
