package main

import (
	"flag"
	"fmt"
	"os"

	"castflow/internal/config"
	"castflow/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Standalone schema migration entry, for deploy pipelines that migrate
// before rolling the server.
func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
	cfg := config.Load()

	var dsn string
	flag.StringVar(&dsn, "dsn", os.Getenv("DB_DSN"), "Postgres DSN, overrides config when set")
	flag.Parse()

	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Info)})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{}, &models.Creator{}, &models.ClientAccount{},
		&models.Casting{}, &models.Invitation{},
		&models.AutomationRule{}, &models.AutomationAction{}, &models.AutomationLog{},
	); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}
	logrus.Info("Migration complete")
}
