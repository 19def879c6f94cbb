package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/brilliantaksan/brilliantaksan-web/internal/video"
)

func newVideoCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Upload videos to the video pipeline",
	}

	var (
		interval time.Duration
		attempts int
		noWait   bool
	)
	upload := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a video and wait until it is playable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, size, err := openFile(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			// uploads outlive the per-request timeout
			c, err := g.clientWithTimeout(0)
			if err != nil {
				return err
			}
			id, err := c.UploadVideo(cmd.Context(), f, size)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "uploaded %s as %s\n", filepath.Base(args[0]), id)
			if noWait {
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}

			res, err := c.WaitForVideo(cmd.Context(), id, video.PollOptions{Interval: interval, MaxAttempts: attempts})
			if err != nil {
				return fmt.Errorf("upload %s: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.PlaybackURL)
			return nil
		},
	}
	upload.Flags().DurationVar(&interval, "poll-interval", video.DefaultPollInterval, "status poll interval")
	upload.Flags().IntVar(&attempts, "poll-attempts", video.DefaultPollMaxAttempts, "status polls before giving up")
	upload.Flags().BoolVar(&noWait, "no-wait", false, "print the upload id and return")

	status := &cobra.Command{
		Use:   "status UPLOAD_ID",
		Short: "Show processing status of an upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			st, err := c.UploadStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", st.State, st.PlaybackURL)
			return nil
		},
	}

	cmd.AddCommand(upload, status)
	return cmd
}

func newImageCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Upload images to object storage",
	}
	var contentType string
	upload := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload an image and print its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, size, err := openFile(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ct := contentType
			if ct == "" {
				ct = mime.TypeByExtension(filepath.Ext(args[0]))
			}
			c, err := g.clientWithTimeout(0)
			if err != nil {
				return err
			}
			u, err := c.UploadImage(cmd.Context(), filepath.Base(args[0]), ct, f, size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
	upload.Flags().StringVar(&contentType, "content-type", "", "override the type guessed from the extension")
	cmd.AddCommand(upload)
	return cmd
}

func openFile(name string) (*os.File, int64, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if st.IsDir() {
		f.Close()
		return nil, 0, fmt.Errorf("%s is a directory", name)
	}
	return f, st.Size(), nil
}
