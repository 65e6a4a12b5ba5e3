package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/framefeed/framefeed/internal/discovery"
	"github.com/framefeed/framefeed/internal/events"
)

// newDiscoverCmd creates the 'discover' command.
func newDiscoverCmd() *cobra.Command {
	var timeout time.Duration
	var save bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find photo servers on the local network",
		Long: `Browse the local network for file-sharing servers via DNS-SD
and print each one as it is resolved.

Example:
  # Search with the configured service type and timeout
  framefeed discover

  # Search longer and keep the results in the server registry
  framefeed discover --timeout 30s --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if timeout <= 0 {
				timeout = a.cfg.Discovery.Timeout
			}

			engine := discovery.NewEngine(a.cfg.Discovery, discovery.ZeroconfResolver{}, a.bus, logger)

			found := a.bus.Subscribe(events.EventServerFound)
			lost := a.bus.Subscribe(events.EventServerLost)

			ctx, cancel := context.WithTimeout(GetContext(), timeout)
			defer cancel()

			if err := engine.Start(ctx); err != nil {
				return fmt.Errorf("discovery failed to start: %w", err)
			}

			fmt.Printf("Searching for %s services (%s)...\n\n", a.cfg.Discovery.ServiceType, timeout)

			count := 0
		listen:
			for {
				select {
				case <-ctx.Done():
					break listen
				case ev, ok := <-found:
					if !ok {
						break listen
					}
					de := ev.(*events.DiscoveryEvent)
					count++
					fmt.Printf("  %s  %s\n", de.Server.Name, de.Server.Address)
				case ev, ok := <-lost:
					if !ok {
						break listen
					}
					de := ev.(*events.DiscoveryEvent)
					logger.Debugf("server %s left the network", de.ServerID)
				}
			}
			engine.Stop()

			if count == 0 {
				fmt.Println("No servers found.")
				return nil
			}
			fmt.Printf("\n%d server(s) found.\n", count)

			if save {
				for _, server := range engine.Servers() {
					server.IsManual = true
					if err := a.registry.Add(server); err != nil {
						return fmt.Errorf("failed to save server %s: %w", server.Name, err)
					}
				}
				fmt.Println("Saved to server registry.")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to search (default: discovery.timeout from config)")
	cmd.Flags().BoolVar(&save, "save", false, "Keep discovered servers in the registry")

	return cmd
}
