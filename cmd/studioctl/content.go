package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/brilliantaksan/brilliantaksan-web/internal/sitecontent"
)

func newContentCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Pull or push the site content document",
	}
	cmd.AddCommand(newContentPullCmd(g), newContentPushCmd(g))
	return cmd
}

func newContentPullCmd(g *globals) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download the document; the revision goes to stderr",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			doc, err := c.GetContent(cmd.Context())
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, doc.Content, "", "  "); err != nil {
				return fmt.Errorf("format content: %w", err)
			}
			buf.WriteByte('\n')

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return err
				}
			} else if _, err := w.Write(buf.Bytes()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "medium=%s revision=%s\n", doc.Medium, doc.Revision)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newContentPushCmd(g *globals) *cobra.Command {
	var revision string
	cmd := &cobra.Command{
		Use:   "push FILE",
		Short: "Upload a document; with --revision the save fails if someone saved since",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			// same shape check the server runs, so typos fail before the round trip
			if err := sitecontent.CheckShape(raw); err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			rev, err := c.PutContent(cmd.Context(), raw, revision)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved revision=%s\n", rev)
			return nil
		},
	}
	cmd.Flags().StringVar(&revision, "revision", "", "revision from the last pull")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
