// Package fixtures embeds the WhizCart mock data the admin dashboard ships
// with, together with the collection declarations that describe it.
package fixtures

import (
	"embed"
	"io/fs"
)

//go:embed data/*.jsonl
var dataFS embed.FS

//go:embed collections.yaml
var CollectionsYAML []byte

// Data returns the fixture files, one <collection>.jsonl per collection.
func Data() fs.FS {
	sub, err := fs.Sub(dataFS, "data")
	if err != nil {
		panic(err)
	}
	return sub
}
