// Command migrate applies or rolls back the SQL schema of the version store.
//
//	SQL_DSN=postgres://... migrate up|down|version
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/database"
	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	dsn := os.Getenv("SQL_DSN")
	if dsn == "" {
		logger.Fatalf("SQL_DSN is required")
	}
	driver := database.DriverFromDSN(dsn)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := database.ConnectSQL(ctx, driver, dsn, 10*time.Second)
	if err != nil {
		logger.Fatalf("connect: %v", err)
	}
	defer db.Close()

	switch cmd {
	case "up":
		err = database.Migrate(db, driver)
	case "down":
		err = database.MigrateDown(db, driver)
	case "version":
		var v uint
		var dirty bool
		if v, dirty, err = database.MigrationVersion(db, driver); err == nil {
			fmt.Printf("version=%d dirty=%v\n", v, dirty)
		}
	default:
		fmt.Fprintf(os.Stderr, "usage: %s up|down|version\n", os.Args[0])
		os.Exit(2)
	}
	if err != nil {
		logger.Fatalf("migrate %s (%s): %v", cmd, driver, err)
	}
	logger.Infof("migrate %s on %s done", cmd, driver)
}
