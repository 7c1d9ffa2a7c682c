package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// Sanity-checks an existing journal database file against the expected
// schema. Usage: go run ./scripts/verify_schema.go [path].
func main() {
	dbPath := "journal.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}
	fmt.Printf("Verifying journal at: %s\n", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"sessions", "orders", "executions"} {
		rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
		if err != nil {
			log.Fatalf("Query failed: %v", err)
		}
		if rows.Next() {
			fmt.Printf("ok: %s table exists\n", table)
		} else {
			fmt.Printf("MISSING: %s table\n", table)
		}
		rows.Close()
	}

	var sqlSchema string
	err = db.QueryRow("SELECT sql FROM sqlite_master WHERE type='table' AND name='executions'").Scan(&sqlSchema)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	if strings.Contains(sqlSchema, "commission") {
		fmt.Println("ok: commission column exists")
	} else {
		fmt.Println("MISSING: commission column")
	}

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err == nil {
		fmt.Printf("journal_mode: %s\n", mode)
	}
}
