package gen

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/luma/ovpnctl/internal/meta"
)

var (
	// Directory the pages are written to, created if needed
	manDir string

	// Man section, 1 for user commands
	manSection string
)

var ManPagesCmd = &cobra.Command{
	Use:   "man",
	Short: "Generate man pages for ovpnctl",
	Long: `Generate man pages for ovpnctl

One page is written per command, e.g. ovpnctl.1, ovpnctl-watch.1 and
ovpnctl-serve.1.

Usage
	ovpnctl gen man --dir /usr/local/share/man/man1
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeManPages(cmd.Root(), manDir, manSection, cmd.OutOrStdout())
	},
}

func init() {
	flags := ManPagesCmd.Flags()

	flags.StringVar(&manDir, "dir", "man", "The directory to write the man pages to")
	flags.StringVar(&manSection, "section", "1", "The man section of the pages")

	// For bash-completion
	if err := flags.SetAnnotation("dir", cobra.BashCompSubdirsInDir, []string{}); err != nil {
		panic(err)
	}
}

// writeManPages writes a page for root and each of its subcommands into dir
// and reports the target on out.
func writeManPages(root *cobra.Command, dir string, section string, out io.Writer) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("Failed to create '%s': %w", dir, err)
	}

	header := &doc.GenManHeader{
		Section: section,
		Manual:  "ovpnctl Manual",
		Source:  fmt.Sprintf("ovpnctl %s", meta.GetInfo().Version),
	}

	// Keeps the pages reproducible
	root.DisableAutoGenTag = true

	if err := doc.GenManTree(root, header, dir); err != nil {
		return fmt.Errorf("Failed to generate man pages: %w", err)
	}

	fmt.Fprintf(out, "Wrote man pages to %s\n", dir)

	return nil
}
