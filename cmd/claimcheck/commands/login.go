package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store portal credentials, encrypted, for later runs",
	Long: `Login encrypts your portal credentials with a passphrase and stores them
under the data directory, so check/report/serve runs don't need BCEID_*
environment variables.

The passphrase comes from CLAIMCHECK_PASSPHRASE and is needed again to use
the stored credentials. Credentials are read from BCEID_USERNAME and
BCEID_PASSWORD, or prompted for on stdin.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	initLogger()

	f := credentialsFile()
	if f.Passphrase == "" {
		return errors.New("set CLAIMCHECK_PASSPHRASE to encrypt the stored credentials")
	}

	username := viper.GetString("username")
	password := viper.GetString("password")

	reader := bufio.NewReader(cmd.InOrStdin())
	var err error
	if username == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Portal username: ")
		if username, err = readLine(reader); err != nil {
			return err
		}
	}
	if password == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Portal password: ")
		if password, err = readLine(reader); err != nil {
			return err
		}
	}
	if username == "" || password == "" {
		return errors.New("both username and password are required")
	}

	stored := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{Username: username, Password: password}

	if err := f.Store(stored); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Credentials stored in %s\n", f.Path)
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
