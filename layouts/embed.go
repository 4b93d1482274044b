// Package layouts embeds the layout trees shipped with capsula.
//
// The tree has two top-level directories: targets/<name>/ holds one layout
// per target and include/ holds files shared by all of them.
package layouts

import "embed"

// FS holds targets/ and include/.
//
//go:embed targets include
var FS embed.FS
