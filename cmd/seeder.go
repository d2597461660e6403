package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/auth"
	authRepo "github.com/socialagro/social-agro-backend/internal/auth/postgres"
	clientRepo "github.com/socialagro/social-agro-backend/internal/client/postgres"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/admin"
	clientDatamodel "github.com/socialagro/social-agro-backend/internal/core/datamodel/client"
	scheduleDatamodel "github.com/socialagro/social-agro-backend/internal/core/datamodel/schedule"
	scheduleRepo "github.com/socialagro/social-agro-backend/internal/schedule/postgres"
)

const (
	defaultSeedAdminEmail    = "admin@socialagro.com"
	defaultSeedAdminPassword = "admin123"
	sampleClientEmail        = "produtor@socialagro.com"
	sampleClientPassword     = "cliente123"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with the default admin account and a sample client for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		ctx := context.Background()

		if clearData {
			for _, table := range []string{"programacoes", "pagamentos", "mp_notificacoes", "clientes", "admins"} {
				if err := gormDB.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		adminEmail, adminPassword := defaultSeedAdminEmail, defaultSeedAdminPassword
		if cfg.Security.HasFixedAdmin() {
			adminEmail, adminPassword = cfg.Security.AdminEmail, cfg.Security.AdminPassword
		}

		admins := authRepo.NewAdminRepository(gormDB)
		_, err = admins.GetByEmail(ctx, adminEmail)
		switch {
		case err == nil:
			fmt.Println("admin already exists:", adminEmail)
		case errors.Is(err, auth.ErrAdminNotFound):
			hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), cfg.Security.BCryptCost)
			if err != nil {
				log.Fatalf("failed to hash admin password: %v", err)
			}
			if err := admins.Create(ctx, &admin.Admin{Name: "Admin", Email: adminEmail, PasswordHash: string(hash)}); err != nil {
				log.Fatalf("failed to insert admin: %v", err)
			}
			fmt.Println("Seeded admin:", adminEmail)
		default:
			log.Fatalf("failed to look up admin: %v", err)
		}

		clients := clientRepo.NewClientRepository(gormDB)
		sample, err := clients.GetByEmail(ctx, sampleClientEmail)
		switch {
		case err == nil:
			fmt.Println("sample client already exists:", sampleClientEmail)
			return
		case !errors.Is(err, internal.ErrClientNotFound):
			log.Fatalf("failed to look up sample client: %v", err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(sampleClientPassword), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash client password: %v", err)
		}
		plan := "Plano Start"
		paymentDate := "10"
		amount := int64(99700)
		sample = &clientDatamodel.Client{
			Name:              "Fazenda Boa Vista",
			Email:             sampleClientEmail,
			PasswordHash:      string(hash),
			Plan:              &plan,
			PaymentDate:       &paymentDate,
			CustomAmountCents: &amount,
		}
		if err := clients.Create(ctx, sample); err != nil {
			log.Fatalf("failed to insert sample client: %v", err)
		}
		fmt.Println("Seeded sample client:", sampleClientEmail)

		schedules := scheduleRepo.NewScheduleRepository(db)
		period := "Semana 1"
		if err := schedules.Create(ctx, &scheduleDatamodel.Schedule{
			ClientID:    sample.ID,
			Period:      &period,
			Description: "Vídeo de apresentação da fazenda para o Instagram",
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			log.Fatalf("failed to insert sample schedule: %v", err)
		}
		fmt.Println("Seeded sample schedule for client", sample.ID)
	},
}
