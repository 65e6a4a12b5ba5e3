package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/framefeed/framefeed/internal/models"
)

// newServersCmd creates the 'servers' command group.
func newServersCmd() *cobra.Command {
	serversCmd := &cobra.Command{
		Use:   "servers",
		Short: "Manage the saved server registry (list, add, remove)",
		Long:  `Commands for managing manually entered photo servers.`,
	}

	serversCmd.AddCommand(newServersListCmd())
	serversCmd.AddCommand(newServersAddCmd())
	serversCmd.AddCommand(newServersRemoveCmd())

	return serversCmd
}

// newServersListCmd creates the 'servers list' command.
func newServersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			servers := a.registry.List()
			if len(servers) == 0 {
				fmt.Println("No saved servers. Add one with 'framefeed servers add'.")
				return nil
			}

			fmt.Printf("%-28s %-24s %-10s %s\n", "NAME", "ADDRESS", "AUTH", "ID")
			for _, s := range servers {
				auth := "guest"
				if s.HasCredentials() {
					auth = s.Username
				}
				fmt.Printf("%-28s %-24s %-10s %s\n", s.Name, s.Address, auth, s.ID)
			}
			return nil
		},
	}
}

// newServersAddCmd creates the 'servers add' command.
func newServersAddCmd() *cobra.Command {
	var name string
	var address string
	var username string
	var askPassword bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a server manually",
		Long: `Add a photo server by address. SMB shares use a host or host:port
address; servers exposing an HTTP directory index use an http(s):// URL.

Example:
  # Guest-accessible SMB server
  framefeed servers add --name OFFICE-NAS --address 192.168.1.50

  # Authenticated share, prompting for the password
  framefeed servers add --name ARCHIVE --address nas.local --username photos --ask-password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			var password string
			if askPassword {
				fmt.Fprint(os.Stderr, "Password: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = string(raw)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			server := models.NewManualServer(name, address, username, password)
			if err := a.registry.Add(server); err != nil {
				return fmt.Errorf("failed to save server: %w", err)
			}

			logger.Info().Str("name", name).Str("address", address).Msg("Server saved")
			fmt.Printf("✓ Server saved\n")
			fmt.Printf("  Name: %s\n", name)
			fmt.Printf("  ID: %s\n", server.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (required)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "Host, host:port, or http(s) URL (required)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (omit for guest access)")
	cmd.Flags().BoolVar(&askPassword, "ask-password", false, "Prompt for a password")

	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("address")

	return cmd
}

// newServersRemoveCmd creates the 'servers remove' command.
func newServersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name-or-id>",
		Short: "Remove a saved server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := resolveServer(a, args[0])
			if err != nil {
				return err
			}
			if err := a.registry.Remove(server.ID); err != nil {
				return fmt.Errorf("failed to remove server: %w", err)
			}
			fmt.Printf("✓ Removed %s\n", server.Name)
			return nil
		},
	}
}

// resolveServer looks a command argument up in the registry, by id first,
// then by display name.
func resolveServer(a *app, ref string) (models.NetworkServer, error) {
	if server, ok := a.registry.Get(ref); ok {
		return server, nil
	}
	if server, ok := a.registry.FindByName(ref); ok {
		return server, nil
	}
	return models.NetworkServer{}, fmt.Errorf("no saved server matches %q (try 'framefeed servers list')", ref)
}
