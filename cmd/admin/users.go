package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"findash/internal/auth"
	"findash/internal/repository"
	"findash/internal/service"
)

var createSuperuserCmd = &cobra.Command{
	Use:   "create-superuser",
	Short: "Create a user with superuser privileges",
	Long: `Create an active superuser. Registration through the API never grants
superuser, so the first administrator is created here.

Examples:
  admin create-superuser --username root --email root@example.com --password 'change-me-now'`,
	Args: cobra.NoArgs,
	RunE: runCreateSuperuser,
}

func init() {
	createSuperuserCmd.Flags().String("username", "", "username (3-50 characters)")
	createSuperuserCmd.Flags().String("email", "", "email address")
	createSuperuserCmd.Flags().String("password", "", "password (at least 8 characters)")
	_ = createSuperuserCmd.MarkFlagRequired("username")
	_ = createSuperuserCmd.MarkFlagRequired("email")
	_ = createSuperuserCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createSuperuserCmd)
}

func runCreateSuperuser(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	if n := len(username); n < 3 || n > 50 {
		return fmt.Errorf("username must be 3-50 characters")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	users := service.NewUserService(repository.NewUserRepository(gormDB), auth.NewPasswordHasher(cfg.BcryptCost), log)
	user, err := users.Register(cmd.Context(), service.NewUser{
		Username:    username,
		Email:       email,
		Password:    password,
		IsSuperuser: true,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created superuser %q (id %d)\n", user.Username, user.ID)
	return nil
}
