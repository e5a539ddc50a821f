// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import "github.com/pdiddy/files2md/pkg/types"

// Eligible reports whether an attachment with the given storage mode has
// byte content in the library. Linked files and linked URLs only reference
// content held elsewhere, so there is nothing to download.
func Eligible(mode types.StorageMode) bool {
	switch mode {
	case types.ModeStoredFile, types.ModeStoredSnapshot:
		return true
	default:
		return false
	}
}
