package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userResetCmd = &cobra.Command{
	Use:   "reset-password <email>",
	Short: "Replace a user's password with a temporary one",
	Long: `Generates a 12 character temporary password, stores its hash and logs
the plain password at warn level.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserReset,
}

func init() {
	userCmd.AddCommand(userResetCmd)
}

func runUserReset(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.svc.Auth.ResetPassword(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password reset for %s.\n", u.Email)
	return nil
}
