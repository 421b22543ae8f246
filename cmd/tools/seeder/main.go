package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProducts(db)
	seedCustomers(db)
	seedDiscounts(db)
	seedSettings(db)

	log.Println("Seeding completed successfully!")
}

// Prices are stored in satang.
func seedProducts(db *sql.DB) {
	products := []struct {
		barcode   string
		name      string
		basePrice int64
		byWeight  bool
	}{
		{"8850001000011", "Iced Latte", 5000, false},
		{"8850001000028", "Hot Americano", 4000, false},
		{"8850001000035", "Thai Milk Tea", 4500, false},
		{"8850001000042", "Green Tea Bottle", 2500, false},
		{"8850001000059", "Butter Croissant", 5500, false},
		{"2000000000017", "Pork Belly", 0, true},
		{"2000000000024", "Chicken Breast", 0, true},
	}
	for _, p := range products {
		var id int64
		err := db.QueryRow(`
			INSERT INTO products (barcode, name, base_price, by_weight, active)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (barcode) DO UPDATE SET name = EXCLUDED.name, base_price = EXCLUDED.base_price
			RETURNING id
		`, p.barcode, p.name, p.basePrice, p.byWeight).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to seed product %s: %v", p.name, err)
		}
		if p.name == "Iced Latte" || p.name == "Hot Americano" {
			seedModifiers(db, id)
		}
	}
	log.Printf("Seeded %d products", len(products))
}

func seedModifiers(db *sql.DB, productID int64) {
	modifiers := []struct {
		name  string
		price int64
	}{
		{"Oat Milk", 1000},
		{"Extra Shot", 1500},
		{"Less Sweet", 0},
	}
	for _, m := range modifiers {
		_, err := db.Exec(`
			INSERT INTO product_modifiers (product_id, name, price)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, productID, m.name, m.price)
		if err != nil {
			log.Fatalf("Failed to seed modifier %s: %v", m.name, err)
		}
	}
}

func seedCustomers(db *sql.DB) {
	customers := []struct {
		name   string
		phone  string
		points int64
	}{
		{"Nok Suwan", "0812345678", 120},
		{"Beam Chai", "0898765432", 45},
		{"Ploy Siri", "0861112222", 0},
	}
	for _, c := range customers {
		_, err := db.Exec(`
			INSERT INTO customers (name, phone, loyalty_points)
			VALUES ($1, $2, $3)
			ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name
		`, c.name, c.phone, c.points)
		if err != nil {
			log.Fatalf("Failed to seed customer %s: %v", c.name, err)
		}
	}
	log.Printf("Seeded %d customers", len(customers))
}

func seedDiscounts(db *sql.DB) {
	_, err := db.Exec(`
		INSERT INTO discounts (code, name, kind, value, percent_bps, min_bill, max_amount, product_id, auto_apply, active)
		VALUES
			('SAVE10', 'Save 10 Baht', 'fixed_amount', 1000, 0, 5000, 0, NULL, false, true),
			('TENOFF', '10% Off', 'percentage', 0, 1000, 0, 5000, NULL, false, true),
			(NULL, 'Bill over 500 gets 50 off', 'bill_total', 5000, 0, 50000, 0, NULL, true, true)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		log.Fatalf("Failed to seed discounts: %v", err)
	}
	log.Println("Seeded discounts")
}

func seedSettings(db *sql.DB) {
	_, err := db.Exec(`
		INSERT INTO loyalty_settings (id, point_value, min_points_to_redeem, points_per_baht)
		VALUES (1, 25, 10, 1)
		ON CONFLICT (id) DO UPDATE SET point_value = EXCLUDED.point_value
	`)
	if err != nil {
		log.Fatalf("Failed to seed loyalty settings: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO receipt_templates (id, header_text, footer_text, show_tax_id, show_qr, tax_id, promptpay)
		VALUES (1, '123 Sukhumvit Rd, Bangkok', 'Thank you, see you again!', true, true, '0105558000000', '0812345678')
		ON CONFLICT (id) DO UPDATE SET header_text = EXCLUDED.header_text
	`)
	if err != nil {
		log.Fatalf("Failed to seed receipt template: %v", err)
	}
	log.Println("Seeded settings")
}
