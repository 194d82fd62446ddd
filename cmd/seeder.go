package cmd

import (
	"context"
	"fmt"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/account"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const (
	seedCompany       = "Demo Company"
	seedManagerEmail  = "manager@demo.test"
	seedEmployeeEmail = "employee@demo.test"
	seedPassword      = "password123"
	seedEmployeeRole  = "Staff"
	seedEmployeeLimit = "0"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Create a demo company with a manager and an employee. Records that already exist are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := initializeDependencies()
		if err != nil {
			return err
		}
		defer deps.Close()

		return seed(cmd.Context(), deps.AccountService, deps.AuthService)
	},
}

func seed(ctx context.Context, accounts *account.Service, authn *auth.Service) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := accounts.RegisterCompany(ctx, account.RegisterCompanyDTO{
		CompanyName:     seedCompany,
		ManagerName:     "Demo Manager",
		ManagerEmail:    seedManagerEmail,
		ManagerPassword: seedPassword,
	})
	var managerTokens auth.AuthTokens
	switch {
	case err == nil:
		fmt.Println("Seeded company:", reg.Company.Name)
		managerTokens = *reg.Tokens
	case apperrors.IsType(err, apperrors.ErrorTypeConflict):
		fmt.Println("company already exists; skipping")
		managerTokens, err = authn.Login(ctx, auth.LoginDTO{Email: seedManagerEmail, Password: seedPassword})
		if err != nil {
			return fmt.Errorf("login as seeded manager: %w", err)
		}
	default:
		return fmt.Errorf("seed company: %w", err)
	}

	manager, err := authn.Authenticate(ctx, managerTokens.AccessToken)
	if err != nil {
		return fmt.Errorf("authenticate seeded manager: %w", err)
	}

	limit := decimal.RequireFromString(seedEmployeeLimit)
	_, err = accounts.RegisterUser(ctx, manager, account.RegisterUserDTO{
		Name:          "Demo Employee",
		Email:         seedEmployeeEmail,
		Password:      seedPassword,
		Role:          seedEmployeeRole,
		ApprovalLimit: &limit,
		UserType:      string(tenant.UserTypeEmployee),
	})
	switch {
	case err == nil:
		fmt.Println("Seeded employee:", seedEmployeeEmail)
	case apperrors.IsType(err, apperrors.ErrorTypeConflict):
		fmt.Println("employee already exists; skipping")
	default:
		return fmt.Errorf("seed employee: %w", err)
	}

	return nil
}
