package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/af-corp/imagerouter/internal/auth"
	"github.com/af-corp/imagerouter/internal/config"
)

func main() {
	school := flag.String("school", "", "school ID (required)")
	teacher := flag.String("teacher", "", "teacher ID (optional, omit for shared school keys)")
	name := flag.String("name", "", "human-friendly key name (required)")
	env := flag.String("env", "prod", "environment prefix")
	assisted := flag.Bool("assisted", false, "allow AI-backed classification for this key")
	rpm := flag.Int("rpm", 0, "requests per minute (0 = service default)")
	dailyAssisted := flag.Int("daily-assisted", 0, "assisted classifications per school and day (0 = service default)")
	expires := flag.String("expires", "365d", "expiry duration (e.g., 365d, 720h)")
	dbURL := flag.String("db-url", "", "database URL (overrides env)")
	flag.Parse()

	if *school == "" || *name == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nerror: -school and -name are required")
		os.Exit(1)
	}

	rawKey, err := auth.GenerateKey(*env)
	if err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}

	dur, err := auth.ParseDuration(*expires)
	if err != nil {
		log.Fatalf("invalid expires: %v", err)
	}

	dsn := *dbURL
	if dsn == "" {
		dsn = config.DatabaseDSNFromEnv()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	key := auth.NewKey{
		Hash:               auth.HashKey(rawKey),
		Prefix:             auth.KeyPrefix(rawKey),
		SchoolID:           *school,
		TeacherID:          *teacher,
		Name:               *name,
		AllowAssisted:      *assisted,
		RPMLimit:           positive(*rpm),
		DailyAssistedQuota: positive(*dailyAssisted),
		ExpiresAt:          time.Now().Add(dur),
	}
	keyID, err := auth.Insert(ctx, conn, key)
	if err != nil {
		log.Fatalf("failed to insert key: %v", err)
	}

	fmt.Println("=== Image Router API Key Generated ===")
	fmt.Println()
	fmt.Printf("  Key ID:         %s\n", keyID)
	fmt.Printf("  Key Prefix:     %s\n", key.Prefix)
	fmt.Printf("  School:         %s\n", key.SchoolID)
	if key.TeacherID != "" {
		fmt.Printf("  Teacher:        %s\n", key.TeacherID)
	}
	fmt.Printf("  Assisted:       %v\n", key.AllowAssisted)
	fmt.Printf("  Expires:        %s\n", key.ExpiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("  API Key (save this, it will NOT be shown again):")
	fmt.Printf("  %s\n", rawKey)
	fmt.Println()
	fmt.Println("======================================")
}

func positive(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}
