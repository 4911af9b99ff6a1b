package testdata

import (
	"embed"
	"io/fs"

	"github.com/brianvoe/gofakeit/v7"
)

//go:embed queries
var files embed.FS

const QueriesDir = "queries"

// Queries holds getUserByID.sql, getUserByName.sql and listUsers.sql next to
// a README.md that the default filter skips.
func Queries() fs.FS {
	return files
}

// Users returns n fake user rows shaped like the listUsers result. The same
// seed always yields the same rows.
func Users(seed uint64, n int) []map[string]any {
	faker := gofakeit.New(seed)
	rows := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, map[string]any{
			"id":   int32(i),
			"name": faker.FirstName(),
		})
	}
	return rows
}
