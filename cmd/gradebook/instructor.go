package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	auth "github.com/Hansol916/OSSFinal/internal/auth/middleware"
	"github.com/Hansol916/OSSFinal/internal/db"
	"github.com/Hansol916/OSSFinal/internal/gradebook"
	"github.com/Hansol916/OSSFinal/internal/rbac"
)

var instructorCmd = &cobra.Command{
	Use:   "instructor",
	Short: "Manage instructor accounts",
}

var instructorAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account or reset its password and role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := strings.TrimSpace(args[0])
		role, _ := cmd.Flags().GetString("role")
		password, _ := cmd.Flags().GetString("password")
		if username == "" {
			return errors.New("username is required")
		}
		if !rbac.ValidRole(role) {
			return fmt.Errorf("unknown role %q (want one of %s)", role, strings.Join(rbac.Roles, ", "))
		}
		if len(password) < 8 {
			return errors.New("password must be at least 8 characters")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dbh, err := db.Open(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer dbh.Close()

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		err = gradebook.NewSQLStore(dbh).UpsertInstructor(cmd.Context(), gradebook.Instructor{
			Username:     username,
			PasswordHash: hash,
			Role:         role,
		})
		if err != nil {
			return err
		}
		printf(cmd, "instructor %s saved with role %s\n", username, role)
		return nil
	},
}

func init() {
	instructorAddCmd.Flags().String("role", rbac.RoleInstructor, "Role: instructor, assistant or admin")
	instructorAddCmd.Flags().String("password", "", "Password (min. 8 characters)")
	_ = instructorAddCmd.MarkFlagRequired("password")
}
