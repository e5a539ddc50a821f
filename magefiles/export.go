//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Export builds the CLI and exports the configured library into $OUTPUT_DIR
// (default "export"), leaving files from earlier runs in place. Credentials
// come from the usual CLI sources (.env, .secrets/, ZOTERO_* variables).
func Export() error {
	mg.Deps(Build)
	out := os.Getenv("OUTPUT_DIR")
	if out == "" {
		out = "export"
	}
	return sh.RunV(filepath.Join(binDir, binName), "export", "--skip-existing", out)
}

// Preview lists the files an export would write without downloading anything.
func Preview() error {
	mg.Deps(Build)
	out := os.Getenv("OUTPUT_DIR")
	if out == "" {
		out = "export"
	}
	return sh.RunV(filepath.Join(binDir, binName), "export", "--dry-run", out)
}
