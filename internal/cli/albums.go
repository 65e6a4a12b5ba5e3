package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newAlbumsCmd creates the 'albums' command group.
func newAlbumsCmd() *cobra.Command {
	albumsCmd := &cobra.Command{
		Use:   "albums",
		Short: "Inspect downloaded albums (list, show, delete, library)",
		Long:  `Commands for inspecting the virtual albums built by download batches.`,
	}

	albumsCmd.AddCommand(newAlbumsListCmd())
	albumsCmd.AddCommand(newAlbumsShowCmd())
	albumsCmd.AddCommand(newAlbumsDeleteCmd())
	albumsCmd.AddCommand(newAlbumsLibraryCmd())

	return albumsCmd
}

// newAlbumsListCmd creates the 'albums list' command.
func newAlbumsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List albums, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			albums, err := a.albums.List()
			if err != nil {
				return fmt.Errorf("failed to list albums: %w", err)
			}
			if len(albums) == 0 {
				fmt.Println("No albums yet. Run 'framefeed download start' to create one.")
				return nil
			}

			fmt.Printf("%-28s %-8s %-12s %s\n", "NAME", "PHOTOS", "CREATED", "ID")
			for _, al := range albums {
				fmt.Printf("%-28s %-8d %-12s %s\n",
					al.Name, len(al.PhotoURIs), al.DateCreated.Format("2006-01-02"), al.ID)
			}
			return nil
		},
	}
}

// newAlbumsShowCmd creates the 'albums show' command.
func newAlbumsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <album-id>",
		Short: "Show an album's photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			al, ok, err := a.albums.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no album with id %s", args[0])
			}

			fmt.Printf("Album: %s\n", al.Name)
			fmt.Printf("Created: %s\n", al.DateCreated.Format("2006-01-02 15:04"))
			fmt.Printf("Photos: %d\n\n", len(al.PhotoURIs))
			for _, uri := range al.PhotoURIs {
				fmt.Printf("  %s\n", uri)
			}
			return nil
		},
	}
}

// newAlbumsDeleteCmd creates the 'albums delete' command.
func newAlbumsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <album-id>",
		Short: "Delete an album record (cached photos are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.albums.Delete(args[0]); err != nil {
				return fmt.Errorf("failed to delete album: %w", err)
			}
			fmt.Println("✓ Album deleted")
			return nil
		},
	}
}

// newAlbumsLibraryCmd creates the 'albums library' command.
func newAlbumsLibraryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "library",
		Short: "List every photo in the local library",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.albums.LibraryItems()
			if err != nil {
				return fmt.Errorf("failed to read library: %w", err)
			}
			if len(items) == 0 {
				fmt.Println("Library is empty.")
				return nil
			}

			for _, item := range items {
				fmt.Printf("  %-36s %s\n", item.Name, item.URI)
			}
			fmt.Printf("\n%d photos\n", len(items))
			return nil
		},
	}
}
