// Package walk lists the entries of a filesystem subtree.
//
// Every entry under a root path is classified by type (symbolic link,
// directory, regular file, other) using link-aware inspection: a symbolic
// link is reported as a link regardless of what it points at, and traversal
// never descends through one. Output is optionally restricted to a subset
// of types and optionally sorted by the collation order of a locale instead
// of traversal order.
//
// The simplest use prints every entry below a directory:
//
//	stats, err := walk.Run(ctx, walk.Options{Root: "/var/log"})
//
// Restricting output and sorting it:
//
//	opts := walk.Options{
//		Root:  "/var/log",
//		Types: walk.NewTypeSet(walk.TypeRegular),
//		Sort:  true,
//	}
//	stats, err := walk.Run(ctx, opts)
//
// Recoverable failures (an unreadable subdirectory, an entry removed
// mid-walk) are reported on the diagnostic stream and skipped; Run returns
// an error only for fatal conditions such as an unreachable root or a
// failed output write.
package walk
