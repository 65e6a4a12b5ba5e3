package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/framefeed/framefeed/internal/remotefs"
)

// newBrowseCmd creates the 'browse' command.
func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse <server> [path]",
		Short: "List a folder on a photo server",
		Long: `List the contents of a remote folder. With no path, SMB servers
list their shares and HTTP servers list the index root.

Example:
  framefeed browse OFFICE-NAS
  framefeed browse OFFICE-NAS photos/2024`,
		Args: cobra.RangeArgs(1, 2),
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
			remotePath := ""
			if len(args) > 1 {
				remotePath = args[1]
			}

			browser := a.factory.ForServer(server)
			resources, err := browser.Browse(GetContext(), server, remotePath)
			if err != nil {
				var berr *remotefs.BrowseError
				if errors.As(err, &berr) && berr.Kind == remotefs.ErrKindAuth {
					return fmt.Errorf("access denied to %s: check credentials with 'framefeed servers add'", server.Name)
				}
				return err
			}

			if len(resources) == 0 {
				fmt.Println("(empty)")
				return nil
			}

			images := 0
			for _, res := range resources {
				switch {
				case res.IsDirectory:
					fmt.Printf("  %-40s <DIR>\n", res.Name+"/")
				case res.IsImage:
					images++
					fmt.Printf("  %-40s %10d\n", res.Name, res.Size)
				default:
					fmt.Printf("  %-40s %10d  (skipped)\n", res.Name, res.Size)
				}
			}
			fmt.Printf("\n%d entries, %d images\n", len(resources), images)
			return nil
		},
	}

	return cmd
}
