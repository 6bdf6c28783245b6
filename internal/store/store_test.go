package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestChallengeConsumedExactlyOnce(t *testing.T) {
	db := newTestStore(t)

	c := &models.Challenge{
		ID:        "ch-1",
		Phone:     "9876543210",
		CodeHash:  "$2a$10$fakehash",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, db.CreateChallenge(c))

	got, err := db.ConsumeChallenge("9876543210")
	require.NoError(t, err)
	assert.Equal(t, "ch-1", got.ID)
	assert.True(t, got.Consumed)

	// The same challenge never comes back, no matter how the first
	// verification attempt went.
	_, err = db.ConsumeChallenge("9876543210")
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestChallengeSuperseded(t *testing.T) {
	db := newTestStore(t)

	first := &models.Challenge{
		ID: "ch-1", Phone: "9876543210", CodeHash: "hash-1",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, db.CreateChallenge(first))

	second := &models.Challenge{
		ID: "ch-2", Phone: "9876543210", CodeHash: "hash-2",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, db.CreateChallenge(second))

	got, err := db.ConsumeChallenge("9876543210")
	require.NoError(t, err)
	assert.Equal(t, "ch-2", got.ID, "only the newest challenge is verifiable")

	_, err = db.ConsumeChallenge("9876543210")
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestConsumeChallengeUnknownPhone(t *testing.T) {
	db := newTestStore(t)
	_, err := db.ConsumeChallenge("0000000000")
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestPruneChallenges(t *testing.T) {
	db := newTestStore(t)

	expired := &models.Challenge{
		ID: "old", Phone: "9876543210", CodeHash: "h",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	live := &models.Challenge{
		ID: "new", Phone: "9876543211", CodeHash: "h",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.CreateChallenge(expired))
	require.NoError(t, db.CreateChallenge(live))

	n, err := db.PruneChallenges(time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := db.ConsumeChallenge("9876543211")
	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)
}

func TestUpsertUserPreservesProfileFields(t *testing.T) {
	db := newTestStore(t)

	require.NoError(t, db.UpsertUser(&models.User{
		Phone: "9876543210", Name: "Ramesh", Role: models.RoleFarmer, LocationPincode: "141001",
	}))

	// A later verify-otp upserts with role only.
	require.NoError(t, db.UpsertUser(&models.User{
		Phone: "9876543210", Role: models.RoleFarmer,
	}))

	user, err := db.GetUserByPhone("9876543210")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Ramesh", user.Name, "empty name leaves the stored one alone")
	assert.Equal(t, "141001", user.LocationPincode)

	// Switching the role tab updates the role.
	require.NoError(t, db.UpsertUser(&models.User{
		Phone: "9876543210", Role: models.RoleBuyer,
	}))
	user, err = db.GetUserByPhone("9876543210")
	require.NoError(t, err)
	assert.Equal(t, models.RoleBuyer, user.Role)
}

func TestGetUserByPhoneMissing(t *testing.T) {
	db := newTestStore(t)
	user, err := db.GetUserByPhone("0000000000")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestListingLifecycle(t *testing.T) {
	db := newTestStore(t)

	listing := &models.Listing{
		Ref: "abc123", Phone: "9876543210", WasteType: "rice_straw",
		QuantityTons: 5, ExpectedPrice: 2500, Status: "active",
	}
	require.NoError(t, db.CreateListing(listing))

	mine, err := db.GetListingsByPhone("9876543210")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "rice_straw", mine[0].WasteType)

	active, err := db.GetActiveListings(10)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, db.UpdateListingStatus("abc123", "9876543210", "sold"))

	active, err = db.GetActiveListings(10)
	require.NoError(t, err)
	assert.Empty(t, active, "sold listings leave the buyer view")

	t.Run("wrong owner cannot update", func(t *testing.T) {
		err := db.UpdateListingStatus("abc123", "1111111111", "cancelled")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("unknown ref", func(t *testing.T) {
		err := db.UpdateListingStatus("nope", "9876543210", "sold")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestGreenStats(t *testing.T) {
	db := newTestStore(t)
	phone := "9876543210"

	seed := []models.Listing{
		{Ref: "a", Phone: phone, WasteType: "rice_straw", QuantityTons: 4, Status: "active"},
		{Ref: "b", Phone: phone, WasteType: "rice_straw", QuantityTons: 6, Status: "sold"},
		{Ref: "c", Phone: phone, WasteType: "wheat_straw", QuantityTons: 3, Status: "cancelled"},
		{Ref: "d", Phone: "1111111111", WasteType: "bagasse", QuantityTons: 9, Status: "sold"},
	}
	for i := range seed {
		require.NoError(t, db.CreateListing(&seed[i]))
	}

	stats, err := db.GetGreenStats(phone)
	require.NoError(t, err)

	assert.InDelta(t, 10, stats.TonsListed, 0.001, "cancelled listings don't count")
	assert.InDelta(t, 6, stats.TonsSold, 0.001)
	assert.InDelta(t, 9000, stats.CO2SavedKg, 0.001)
	assert.Equal(t, 280, stats.GreenScore)
	assert.Equal(t, 1, stats.ActiveListings)
}

func TestGreenStatsEmpty(t *testing.T) {
	db := newTestStore(t)
	stats, err := db.GetGreenStats("0000000000")
	require.NoError(t, err)
	assert.Zero(t, stats.TonsListed)
	assert.Zero(t, stats.GreenScore)
}
