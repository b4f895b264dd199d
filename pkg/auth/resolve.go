// Package auth implements hierarchical auth resolution and application:
// walking a Request's ancestor chain to select the effective Auth, then
// rendering it into a wire request by type.
package auth

import (
	"github.com/blackcoderx/harrier/pkg/collection"
)

// SourceLevel identifies where the effective auth came from, for
// diagnostics.
type SourceLevel string

const (
	SourceRequest    SourceLevel = "request"
	SourceFolder     SourceLevel = "folder"
	SourceCollection SourceLevel = "collection"
	SourceNone       SourceLevel = "none"
)

// Resolution is the result of resolving effective auth for one Request.
type Resolution struct {
	Auth   *collection.Auth
	Source SourceLevel
	// FolderDepth is set when Source == SourceFolder: 1 is the nearest
	// enclosing folder, increasing with distance from the request.
	FolderDepth int
}

// Resolve selects the effective auth for one Request:
//  1. R.Auth set and type != noauth -> R.Auth.
//  2. R.Auth explicitly noauth -> no auth (inheritance blocked).
//  3. Otherwise walk ancestors nearest-to-farthest, then the collection,
//     and take the first non-nil auth; if that auth is noauth, no auth
//     is applied (inheritance blocked there).
//  4. None found -> no auth.
func Resolve(req *collection.Request, ancestors []*collection.Folder, collectionAuth *collection.Auth) Resolution {
	if req.Auth != nil {
		if req.Auth.Type != collection.AuthNoAuth {
			return Resolution{Auth: req.Auth, Source: SourceRequest}
		}
		// Explicit noauth on the request blocks inheritance entirely.
		return Resolution{Source: SourceNone}
	}

	for i := len(ancestors) - 1; i >= 0; i-- {
		f := ancestors[i]
		if f.Auth == nil {
			continue
		}
		if f.Auth.Type == collection.AuthNoAuth {
			// An explicit noauth on an intermediate folder also blocks
			// inheritance from reaching further out.
			return Resolution{Source: SourceNone}
		}
		return Resolution{Auth: f.Auth, Source: SourceFolder, FolderDepth: len(ancestors) - i}
	}

	if collectionAuth != nil && collectionAuth.Type != collection.AuthNoAuth {
		return Resolution{Auth: collectionAuth, Source: SourceCollection}
	}

	return Resolution{Source: SourceNone}
}
