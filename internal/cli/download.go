package cli

import (
	"fmt"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/framefeed/framefeed/internal/events"
	"github.com/framefeed/framefeed/internal/models"
	"github.com/framefeed/framefeed/internal/progress"
)

// newDownloadCmd creates the 'download' command group.
func newDownloadCmd() *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download folder trees of photos (start, continue, cancel, status)",
		Long:  `Commands for running and managing download batches.`,
	}

	downloadCmd.AddCommand(newDownloadStartCmd())
	downloadCmd.AddCommand(newDownloadContinueCmd())
	downloadCmd.AddCommand(newDownloadCancelCmd())
	downloadCmd.AddCommand(newDownloadStatusCmd())

	return downloadCmd
}

// newDownloadStartCmd creates the 'download start' command.
func newDownloadStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <server> <folder>",
		Short: "Download every image under a remote folder",
		Long: `Recursively scan a remote folder, then download every image in it
into the local photo cache and a virtual album named after the folder.
Interrupted batches can be picked up later with 'download continue'.

Example:
  framefeed download start OFFICE-NAS photos/2024`,
		Args: cobra.ExactArgs(2),
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
			remotePath := args[1]
			root := models.NetworkResource{
				Server:      server,
				Path:        remotePath,
				Name:        path.Base(remotePath),
				IsDirectory: true,
			}

			ctx := GetContext()

			// The batch UI subscribes before the workers launch so no
			// lifecycle event is missed.
			stream := a.bus.SubscribeAll()

			spin := progress.NewCLIProgress()
			spin.Start(-1, "Scanning "+remotePath)
			scanDone := make(chan struct{})
			go func() {
				var ticks int64
				for {
					select {
					case <-scanDone:
						return
					case <-time.After(100 * time.Millisecond):
						ticks++
						spin.Update(ticks)
					}
				}
			}()

			album, total, err := a.sched.Start(ctx, root)
			close(scanDone)
			spin.Finish()
			if err != nil {
				return err
			}
			if total == 0 {
				fmt.Println("No images found under that folder.")
				return nil
			}

			fmt.Printf("Downloading %d images into album %q\n\n", total, album.Name)
			return runBatchUI(a, stream, total, ctx.Done())
		},
	}

	return cmd
}

// newDownloadContinueCmd creates the 'download continue' command.
func newDownloadContinueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "continue",
		Short: "Resume an interrupted download batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := GetContext()
			stream := a.bus.SubscribeAll()

			n, err := a.sched.Continue(ctx)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("Nothing to resume.")
				return nil
			}

			fmt.Printf("Resuming %d downloads\n\n", n)
			return runBatchUI(a, stream, n, ctx.Done())
		},
	}
}

// newDownloadCancelCmd creates the 'download cancel' command.
func newDownloadCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the current batch and forget its download state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sched.Cancel(); err != nil {
				return fmt.Errorf("failed to cancel: %w", err)
			}
			fmt.Println("✓ Download state cleared. Photos already downloaded stay in their albums.")
			return nil
		},
	}
}

// newDownloadStatusCmd creates the 'download status' command.
func newDownloadStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted state of the current batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			entries := a.state.Entries()
			if len(entries) == 0 {
				fmt.Println("No download batch on record.")
				return nil
			}

			p := a.state.Progress()
			fmt.Printf("Batch: %d total, %d completed, %d failed, %d remaining\n",
				p.Total, p.Completed, p.Failed, p.Remaining())
			if a.state.Resumable() {
				fmt.Println("Resumable: yes (run 'framefeed download continue')")
			} else {
				fmt.Println("Resumable: no")
			}

			failed := 0
			for _, e := range entries {
				if e.Status == models.StatusFailed {
					if failed == 0 {
						fmt.Println("\nFailed files:")
					}
					failed++
					fmt.Printf("  %s\n", e.Resource.Path)
				}
			}
			return nil
		},
	}
}

// runBatchUI drives per-file mpb bars from the pipeline's event stream until
// the batch completes or the context is cancelled.
func runBatchUI(a *app, stream <-chan events.Event, total int, cancelled <-chan struct{}) error {
	ui := progress.NewDownloadUI(total)

	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		index := 0
		for ev := range stream {
			switch e := ev.(type) {
			case *events.DownloadEvent:
				switch e.Type() {
				case events.EventDownloadStarted:
					index++
					ui.AddFileBar(index, e.ResourceID, e.Name, e.Size)
				case events.EventDownloadRetrying:
					if fb, ok := ui.Bar(e.ResourceID); ok {
						fb.SetRetry(e.Attempt)
					}
				case events.EventDownloadCompleted:
					if fb, ok := ui.Bar(e.ResourceID); ok {
						fb.Complete(nil)
					}
				case events.EventDownloadFailed:
					if fb, ok := ui.Bar(e.ResourceID); ok {
						fb.Complete(e.Error)
					}
				}
			case *events.ProgressEvent:
				if e.Type() == events.EventBatchCompleted {
					return
				}
			}
		}
	}()

	a.sched.Wait()

	select {
	case <-cancelled:
		// Ctrl+C: workers have stopped, state stays resumable.
		ui.Wait()
		fmt.Println("\nInterrupted. Resume with 'framefeed download continue'.")
		return nil
	default:
	}

	<-uiDone
	ui.Wait()

	p := a.state.Progress()
	fmt.Printf("\nDone: %d downloaded, %d failed\n", p.Completed, p.Failed)
	if p.Failed > 0 {
		fmt.Println("See 'framefeed download status' for the failed files.")
	}
	return nil
}
