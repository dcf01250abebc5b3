package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/multiman/internal/platform/app"
	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/pkg/cryptox"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "multiman",
		Short:        "Multi-tenant resource platform",
		Version:      app.BuildVersion,
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			RunE:  runMigrate,
		},
		newUserCmd(),
	)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run()
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	db, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	version, dirty, err := db.MigrationVersion()
	if err != nil {
		return err
	}
	cmd.Printf("database %s at migration %d (dirty=%t)\n", cfg.DatabaseFile, version, dirty)
	return nil
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users without going through the API",
	}

	var (
		email    string
		name     string
		password string
		role     string
		systems  []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user, typically the first admin",
		Example: "  multiman user create --email admin@example.com --name Admin\n" +
			"  multiman user create --email ann@example.com --name Ann --role user --systems school,library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}

			generated := password == ""
			if generated {
				if password, err = cryptox.RandomSecret(cryptox.GeneratedPasswordBytes); err != nil {
					return err
				}
			}

			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			db, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			hasher, err := app.NewPasswordHasher(cfg)
			if err != nil {
				return err
			}
			users := &service.UserService{Store: db, Hasher: hasher}

			u, err := users.Provision(cmd.Context(), service.NewUser{
				Email:    email,
				Name:     name,
				Password: password,
				Role:     r,
				Systems:  systems,
			})
			if err != nil {
				return err
			}

			cmd.Printf("created %s %s (%s)\n", u.Role, u.Email, u.ID)
			if generated {
				cmd.Printf("password: %s\n", password)
			}
			if len(u.Systems) > 0 {
				cmd.Printf("systems: %s\n", strings.Join(u.Systems, ","))
			}
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "login email (required)")
	create.Flags().StringVar(&name, "name", "", "display name (required)")
	create.Flags().StringVar(&password, "password", "", "password; generated and printed when empty")
	create.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "admin or user")
	create.Flags().StringSliceVar(&systems, "systems", nil, "comma separated entitlements")
	for _, f := range []string{"email", "name"} {
		if err := create.MarkFlagRequired(f); err != nil {
			log.Fatal(err)
		}
	}

	userCmd.AddCommand(create)
	return userCmd
}
