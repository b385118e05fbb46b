package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sayyed-Ali/MediSys/internal/database"
	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/repository"
	"github.com/Sayyed-Ali/MediSys/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// sampleMedicines gives a fresh install something to match invoices against
var sampleMedicines = []model.Medicine{
	{Name: "Paracetamol 500mg Tablets", Brand: "Generic", Category: "Analgesic"},
	{Name: "Amoxicillin 250mg Capsules", Brand: "Generic", Category: "Antibiotic"},
	{Name: "Vitamin C 1000mg Tablets", Brand: "Generic", Category: "Supplement"},
	{Name: "Ibuprofen 400mg Tablets", Brand: "Generic", Category: "Analgesic"},
	{Name: "Cough Syrup 100ml", Brand: "Generic", Category: "Respiratory"},
}

func openDB() (*gorm.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return database.NewConnection(cfg.DSN())
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info().Int("tables", len(database.Models())).Msg("migration complete")
			return nil
		},
	}
}

func seedMedicinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-medicines",
		Short: "Insert a sample medicine master list (skips names that exist)",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			inserted, err := seedMedicines(cmd.Context(), repository.NewMedicineRepository(db))
			if err != nil {
				return err
			}
			log.Info().Int("inserted", inserted).Int("total", len(sampleMedicines)).Msg("seeding done")
			return nil
		},
	}
}

func seedMedicines(ctx context.Context, repo repository.MedicineRepository) (int, error) {
	inserted := 0
	for _, m := range sampleMedicines {
		_, err := repo.FindByNameInsensitive(ctx, m.Name)
		if err == nil {
			log.Debug().Str("name", m.Name).Msg("already exists")
			continue
		}
		if !repository.IsNotFound(err) {
			return inserted, fmt.Errorf("lookup %q: %w", m.Name, err)
		}

		med := m
		if err := repo.Create(ctx, &med); err != nil {
			if repository.IsUniqueViolation(err) {
				continue
			}
			return inserted, fmt.Errorf("insert %q: %w", m.Name, err)
		}
		inserted++
	}
	return inserted, nil
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the first Admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			firstName, _ := cmd.Flags().GetString("first-name")
			lastName, _ := cmd.Flags().GetString("last-name")
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			if len(password) < 6 {
				return errors.New("--password must be at least 6 characters")
			}

			db, err := openDB()
			if err != nil {
				return err
			}

			// the secret only signs tokens, which this command never issues
			users := service.NewUserService(repository.NewUserRepository(db), "")
			user, err := users.CreateUser(cmd.Context(), service.CreateUserRequest{
				FirstName: firstName,
				LastName:  lastName,
				Email:     email,
				Password:  password,
				Role:      model.RoleAdmin,
			})
			if err != nil {
				return err
			}
			log.Info().Str("id", user.ID.String()).Str("email", user.Email).Msg("admin created")
			return nil
		},
	}
	cmd.Flags().String("email", "", "Login email")
	cmd.Flags().String("password", "", "Password (min 6 characters)")
	cmd.Flags().String("first-name", "Admin", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	return cmd
}
