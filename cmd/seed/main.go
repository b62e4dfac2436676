// Seed loads the demo roster: one teacher, fifteen students, and the
// campus classroom anchors. Safe to re-run; all writes are upserts.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"classattend/internal/config"
	"classattend/internal/roster"
	"classattend/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	logger.Info("seed data inserted")
}

func run(cfg config.App, logger *zap.Logger) error {
	ctx := context.Background()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(db.Client, logger); err != nil {
		return err
	}

	repo := roster.NewRepository(db.Client)

	teacherHash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := repo.UpsertTeacher(ctx, roster.Teacher{
		ID:           "T001",
		Name:         "Professor Sharma",
		Email:        "professor@manipal.edu",
		PasswordHash: string(teacherHash),
	}); err != nil {
		return fmt.Errorf("seed teacher: %w", err)
	}

	studentHash, err := bcrypt.GenerateFromPassword([]byte("demo123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	for i := 1; i <= 15; i++ {
		s := roster.Student{
			RegNo:        fmt.Sprintf("2301010%02d", i),
			Name:         fmt.Sprintf("Student%d", i),
			Email:        fmt.Sprintf("student%d@manipal.edu", i),
			Branch:       "CSE",
			Section:      "A1",
			TeacherID:    "T001",
			PasswordHash: string(studentHash),
		}
		if err := repo.UpsertStudent(ctx, s); err != nil {
			return fmt.Errorf("seed student %s: %w", s.RegNo, err)
		}
	}

	rooms := []roster.Classroom{
		{Block: "AB1", Room: "001", Latitude: 26.2389, Longitude: 73.0243},
		{Block: "AB1", Room: "002", Latitude: 26.2395, Longitude: 73.0249},
		{Block: "AB1", Room: "101", Latitude: 26.2392, Longitude: 73.0251},
		{Block: "AB1", Room: "102", Latitude: 26.2400, Longitude: 73.0258},
		{Block: "AB1", Room: "201", Latitude: 26.2408, Longitude: 73.0263},
		{Block: "AB2", Room: "001", Latitude: 26.2415, Longitude: 73.0268},
		{Block: "AB2", Room: "002", Latitude: 26.2420, Longitude: 73.0274},
		{Block: "AB2", Room: "101", Latitude: 26.2427, Longitude: 73.0281},
		{Block: "AB2", Room: "102", Latitude: 26.2433, Longitude: 73.0286},
		{Block: "AB3", Room: "001", Latitude: 26.2440, Longitude: 73.0292},
		{Block: "AB3", Room: "101", Latitude: 26.2446, Longitude: 73.0299},
		{Block: "LHC", Room: "001", Latitude: 26.2453, Longitude: 73.0304},
		{Block: "LHC", Room: "101", Latitude: 26.2460, Longitude: 73.0310},
	}
	for _, room := range rooms {
		if err := repo.UpsertClassroom(ctx, room); err != nil {
			return fmt.Errorf("seed classroom %s/%s: %w", room.Block, room.Room, err)
		}
	}

	return nil
}
