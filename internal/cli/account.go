package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lu-zhengda/contactsync/internal/config"
	"github.com/lu-zhengda/contactsync/internal/provider/people"
	"github.com/lu-zhengda/contactsync/internal/store"
	"github.com/spf13/cobra"
)

// Grant statuses reported by "accounts list".
const (
	grantMissing    = "missing"
	grantAuthorized = "authorized"
	grantUnreadable = "unreadable"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect and manage account grants",
	}
	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newAccountsForgetCmd())
	return cmd
}

// grantStatus classifies the stored grant of an account.
func grantStatus(tokens store.TokenStore, accountID string) (string, error) {
	if !tokens.HasGrant(accountID) {
		return grantMissing, nil
	}
	if _, err := tokens.LoadGrant(accountID); err != nil {
		return grantUnreadable, err
	}
	return grantAuthorized, nil
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts from the accounts file with their grant status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			accounts, err := config.LoadAccounts(cfg.Paths.Accounts)
			if err != nil {
				return err
			}
			tokens := newTokenStore(cfg)

			grants := make([]jsonAccountGrant, 0, len(accounts))
			for _, id := range accounts {
				status, err := grantStatus(tokens, id)
				g := jsonAccountGrant{ID: id, Grant: status}
				if err != nil {
					g.Error = err.Error()
				}
				grants = append(grants, g)
			}

			if jsonFlag {
				return printJSON(grants)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tGRANT")
			for _, g := range grants {
				fmt.Fprintf(w, "%s\t%s\n", g.ID, g.Grant)
			}
			return w.Flush()
		},
	}
}

func newAccountsForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <account>",
		Short: "Delete the stored grant of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID := args[0]
			if err := config.ValidateAccountID(accountID); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := newTokenStore(cfg).DeleteGrant(accountID); err != nil {
				return fmt.Errorf("failed to delete grant: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "forget", AccountID: accountID})
			}
			fmt.Printf("Grant removed: %s\n", accountID)
			return nil
		},
	}
}

func newAuthURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url <account>",
		Short: "Print the consent URL for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID := args[0]
			if err := config.ValidateAccountID(accountID); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			oauthCfg, err := people.LoadClientConfig(cfg.Paths.ClientSecret, cfg.Server.RedirectURL)
			if err != nil {
				return err
			}
			if oauthCfg.RedirectURL == "" {
				return errors.New("client secret file has no redirect URI; set server.redirect_url")
			}

			url := people.AuthURL(oauthCfg, accountID)
			if jsonFlag {
				return printJSON(jsonAuthURL{AccountID: accountID, URL: url})
			}
			fmt.Println(url)
			return nil
		},
	}
}
