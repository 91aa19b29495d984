// Command seeder loads demo users and medicines into an empty database.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"github.com/noah-isme/backend-apotek/internal/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}
	defer db.Close()

	password := strings.TrimSpace(os.Getenv("SEED_DEFAULT_PASSWORD"))
	if password == "" {
		password = "admin123"
	}

	adminID, err := seedUsers(db, password)
	if err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}
	if err := seedMedicines(db, adminID, time.Now().UTC()); err != nil {
		log.Fatalf("Failed to seed medicines: %v", err)
	}
	log.Println("Seeding completed successfully!")
}

type seedUser struct {
	FullName string    `db:"full_name"`
	Username string    `db:"username"`
	Email    string    `db:"email"`
	Phone    *string   `db:"phone"`
	Role     auth.Role `db:"role"`
	Hash     string    `db:"password_hash"`
}

func seedUsers(db *sqlx.DB, password string) (string, error) {
	users := []seedUser{
		{FullName: "Admin User", Email: "admin@pharmacy.com", Role: auth.RoleAdmin},
		{FullName: "Priya Sharma", Email: "pharmacist@pharmacy.com", Role: auth.RolePharmacist},
		{FullName: "Rahul Verma", Email: "staff@pharmacy.com", Role: auth.RoleStaff},
		{FullName: "Dr. Anil Mehta", Email: "doctor@pharmacy.com", Role: auth.RoleDoctor},
	}

	fmt.Println("Seeding Users...")
	for _, u := range users {
		hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
		if err != nil {
			return "", err
		}
		u.Hash = hash
		u.Username = auth.UsernameFromEmail(u.Email)
		if _, err := db.NamedExec(`
			INSERT INTO users (full_name, username, email, phone, role, password_hash)
			VALUES (:full_name, :username, :email, :phone, :role, :password_hash)
			ON CONFLICT (email) DO NOTHING`, u); err != nil {
			return "", fmt.Errorf("user %s: %w", u.Email, err)
		}
	}

	var adminID string
	if err := db.Get(&adminID, `SELECT id::text FROM users WHERE email = $1`, users[0].Email); err != nil {
		return "", err
	}
	return adminID, nil
}

func seedMedicines(db *sqlx.DB, actor string, now time.Time) error {
	fmt.Println("Seeding Medicines...")
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, m := range sampleMedicines(now) {
		m.CreatedBy = actor
		if _, err := tx.NamedExec(`
			INSERT INTO medicines (
				name, generic_name, brand, category, dosage, strength, manufacturer, batch_number,
				manufacturing_date, expiry_date, stock_current, stock_minimum, stock_maximum,
				purchase_price, selling_price, mrp, description, side_effects, prescription_required,
				created_by, updated_by
			) VALUES (
				:name, :generic_name, :brand, :category, :dosage, :strength, :manufacturer, :batch_number,
				:manufacturing_date, :expiry_date, :stock_current, :stock_minimum, :stock_maximum,
				:purchase_price, :selling_price, :mrp, :description, :side_effects, :prescription_required,
				:created_by, :created_by
			) ON CONFLICT (batch_number) DO NOTHING`, m); err != nil {
			return fmt.Errorf("medicine %s: %w", m.BatchNumber, err)
		}
	}
	return tx.Commit()
}

type seedMedicine struct {
	Name                 string         `db:"name"`
	GenericName          string         `db:"generic_name"`
	Brand                string         `db:"brand"`
	Category             string         `db:"category"`
	Dosage               string         `db:"dosage"`
	Strength             string         `db:"strength"`
	Manufacturer         string         `db:"manufacturer"`
	BatchNumber          string         `db:"batch_number"`
	ManufacturingDate    time.Time      `db:"manufacturing_date"`
	ExpiryDate           time.Time      `db:"expiry_date"`
	StockCurrent         int            `db:"stock_current"`
	StockMinimum         int            `db:"stock_minimum"`
	StockMaximum         int            `db:"stock_maximum"`
	PurchasePrice        float64        `db:"purchase_price"`
	SellingPrice         float64        `db:"selling_price"`
	MRP                  float64        `db:"mrp"`
	Description          string         `db:"description"`
	SideEffects          pq.StringArray `db:"side_effects"`
	PrescriptionRequired bool           `db:"prescription_required"`
	CreatedBy            string         `db:"created_by"`
}
