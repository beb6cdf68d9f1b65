package migration

import (
	"clipify-backend/entities"
	"fmt"
	"log"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {

	if err := db.AutoMigrate(&entities.User{}); err != nil {
		log.Fatalf("Error migrating user database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.CreditAccount{}); err != nil {
		log.Fatalf("Error migrating credit account database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.CreditTransaction{}); err != nil {
		log.Fatalf("Error migrating credit transaction database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Generation{}); err != nil {
		log.Fatalf("Error migrating generation database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.PaymentOrder{}); err != nil {
		log.Fatalf("Error migrating payment order database: %v", err)
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}
