package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/KARTIK027-CODE/StubbleX/internal/store"
	"github.com/google/uuid"
)

func main() {
	addUserCmd := flag.NewFlagSet("add-user", flag.ExitOnError)
	phone := addUserCmd.String("phone", "", "Phone number for the new user")
	name := addUserCmd.String("name", "", "Display name")
	role := addUserCmd.String("role", "farmer", "Role: farmer or buyer")
	location := addUserCmd.String("location", "", "Location pincode")

	addListingCmd := flag.NewFlagSet("add-listing", flag.ExitOnError)
	listingPhone := addListingCmd.String("phone", "", "Phone of the owning farmer")
	wasteType := addListingCmd.String("waste-type", "", "Waste type, e.g. rice_straw")
	quantity := addListingCmd.Float64("quantity", 0, "Quantity in tons")
	price := addListingCmd.Float64("price", 0, "Expected price per ton")

	pruneCmd := flag.NewFlagSet("prune-otp", flag.ExitOnError)
	olderThan := pruneCmd.Duration("older-than", time.Hour, "Delete OTP challenges older than this")

	if len(os.Args) < 2 {
		fmt.Println("expected 'add-user', 'add-listing' or 'prune-otp' subcommand")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add-user":
		addUserCmd.Parse(os.Args[2:])
		if *phone == "" {
			fmt.Println("phone is required")
			addUserCmd.PrintDefaults()
			os.Exit(1)
		}
		r := models.ParseRole(*role)
		if !r.Valid() {
			fmt.Println("role must be farmer or buyer")
			os.Exit(1)
		}
		db := openStore()
		defer db.Close()
		if err := createUser(db, *phone, *name, r, *location); err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
		fmt.Printf("User '%s' (%s) saved.\n", *phone, r)
	case "add-listing":
		addListingCmd.Parse(os.Args[2:])
		if *listingPhone == "" || *wasteType == "" || *quantity <= 0 {
			fmt.Println("phone, waste-type and a positive quantity are required")
			addListingCmd.PrintDefaults()
			os.Exit(1)
		}
		db := openStore()
		defer db.Close()
		listing, err := createListing(db, *listingPhone, *wasteType, *quantity, *price)
		if err != nil {
			log.Fatalf("Failed to create listing: %v", err)
		}
		fmt.Printf("Listing %s created for %s.\n", listing.Ref, *listingPhone)
	case "prune-otp":
		pruneCmd.Parse(os.Args[2:])
		db := openStore()
		defer db.Close()
		n, err := pruneChallenges(db, *olderThan)
		if err != nil {
			log.Fatalf("Failed to prune challenges: %v", err)
		}
		fmt.Printf("Pruned %d expired OTP challenges.\n", n)
	default:
		fmt.Println("expected 'add-user', 'add-listing' or 'prune-otp' subcommand")
		os.Exit(1)
	}
}

func openStore() *store.Store {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./stubblex.db"
	}

	db, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	// Ensure tables exist if running cli before server
	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}
	return db
}

func createUser(db *store.Store, phone, name string, role models.Role, location string) error {
	return db.UpsertUser(&models.User{
		Phone:           phone,
		Name:            name,
		Role:            role,
		LocationPincode: location,
	})
}

func createListing(db *store.Store, phone, wasteType string, quantity, price float64) (*models.Listing, error) {
	listing := &models.Listing{
		Ref:           strings.Split(uuid.New().String(), "-")[0],
		Phone:         phone,
		WasteType:     wasteType,
		QuantityTons:  quantity,
		ExpectedPrice: price,
		Status:        "active",
	}
	if err := db.CreateListing(listing); err != nil {
		return nil, err
	}
	return listing, nil
}

func pruneChallenges(db *store.Store, olderThan time.Duration) (int64, error) {
	return db.PruneChallenges(time.Now().Add(-olderThan))
}
