package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fittrack/internal/api"
)

var loginEmail string
var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Sign in to the Workout Planner backend.

On success the issued credential is sealed and stored under the data
directory, and subsequent commands run authenticated until you log out.

Example:
  fittrack login --email a@x.com
  Password: ********`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}

		password := loginPassword
		if password == "" {
			password, err = promptSecret("Password: ")
			if err != nil {
				return err
			}
		}

		if err := a.session.Login(ctx, loginEmail, password); err != nil {
			return renderAuthError("login", err)
		}

		user := a.session.CurrentUser()
		fmt.Printf("Signed in as %s (%s)\n", user.Username, user.Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (prompted if omitted)")
	_ = loginCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(loginCmd)
}

// promptSecret reads one line from stdin. Shell pipelines and CI can
// feed the secret directly; interactive users get a prompt on stderr.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// renderAuthError turns a classified API error into the message the
// user should see. Wrong credentials and unreachable backends read
// differently on purpose.
func renderAuthError(op string, err error) error {
	switch {
	case errors.Is(err, api.ErrInvalidCredentials):
		return fmt.Errorf("%s failed: invalid email or password", op)
	case errors.Is(err, api.ErrTimeout):
		return fmt.Errorf("%s failed: the server took too long to respond, try again", op)
	case errors.Is(err, api.ErrUnreachable):
		return fmt.Errorf("%s failed: cannot reach the server, check your connection", op)
	default:
		return fmt.Errorf("%s failed: %w", op, err)
	}
}
