package ability

import (
	"embed"
	"io/fs"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// CatalogDir is the namespace directory inside the embedded catalog.
const CatalogDir = "catalog"

// EmbeddedCatalog returns the abilities shipped with the binary.
func EmbeddedCatalog() fs.FS { return catalogFS }
