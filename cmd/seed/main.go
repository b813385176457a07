package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"payledger/internal/config"
	"payledger/internal/db"
	"payledger/internal/logger"
	"payledger/internal/model"
	"payledger/internal/repository"
)

type seedPayment struct {
	category string
	concept  string
	amount   string
}

type seedUser struct {
	code       string
	name       string
	username   string
	password   string
	role       model.Role
	investment string
	payments   []seedPayment
}

// Development fixture data. Client totals are reconciled from the seeded
// payment rows, never taken from a literal.
var seedUsers = []seedUser{
	{
		code:     "ADM001",
		name:     "Administrador Principal",
		username: "admin",
		password: "admin123",
		role:     model.RoleAdmin,
	},
	{
		code:     "COL001",
		name:     "Colaborador Uno",
		username: "colaborador1",
		password: "colab123",
		role:     model.RoleCollaborator,
	},
	{
		code:       "CLI001",
		name:       "Cliente Ejemplo 1",
		username:   "cliente1",
		password:   "cliente123",
		role:       model.RoleClient,
		investment: "8000",
		payments: []seedPayment{
			{category: "Inversión Inicial", concept: "Depósito Bancario", amount: "3000"},
			{category: "Inversión Adicional", concept: "Transferencia", amount: "2000"},
		},
	},
	{
		code:       "CLI002",
		name:       "Cliente Ejemplo 2",
		username:   "cliente2",
		password:   "cliente123",
		role:       model.RoleClient,
		investment: "5000",
		payments: []seedPayment{
			{category: "Inversión Inicial", concept: "Depósito Bancario", amount: "1500"},
		},
	},
}

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true})
	log.Info().Msg("starting seed script")

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := gormDB.AutoMigrate(&model.User{}, &model.Payment{}); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	userRepo := repository.NewUserRepository(gormDB)
	ctx := context.Background()

	for _, su := range seedUsers {
		if taken, err := userRepo.ExistsByUsername(ctx, su.username, uuid.Nil); err != nil {
			log.Fatal().Err(err).Str("username", su.username).Msg("check user")
		} else if taken {
			log.Info().Str("username", su.username).Msg("user exists, skipping")
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Msg("hash password")
		}

		user := &model.User{
			Code:         su.code,
			Name:         su.name,
			Username:     su.username,
			PasswordHash: string(hashed),
			Role:         su.role,
		}
		if su.role == model.RoleClient {
			user.TotalInvestment = decimal.RequireFromString(su.investment)
		}

		err = userRepo.WithTransaction(ctx, func(ctx context.Context, users repository.UserRepository, payments repository.PaymentRepository) error {
			if err := users.Create(ctx, user); err != nil {
				return err
			}

			total := decimal.Zero
			for _, sp := range su.payments {
				amount := decimal.RequireFromString(sp.amount)
				payment := &model.Payment{
					ClientID: user.ID,
					Category: sp.category,
					Concept:  sp.concept,
					Amount:   amount,
				}
				if err := payments.Create(ctx, payment); err != nil {
					return err
				}
				total = total.Add(amount)
			}

			if len(su.payments) > 0 {
				return users.UpdateTotalPaid(ctx, user.ID, total)
			}
			return nil
		})
		if err != nil {
			log.Fatal().Err(err).Str("username", su.username).Msg("seed user")
		}

		log.Info().
			Str("username", su.username).
			Str("role", string(su.role)).
			Int("payments", len(su.payments)).
			Msg("user seeded")
	}

	log.Info().Msg("seed completed")
}
