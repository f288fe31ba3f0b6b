package mapping

// SupportedDatabases lists all databases a query string can be translated for.
// Callers must use these exact names.
var SupportedDatabases = []string{
	"PostgreSQL",
	"MySQL",
	"SQLite",
	"MongoDB",
	"Redis",
}

// DatabaseFamilies groups databases by the shape of the translated query.
var DatabaseFamilies = map[string]string{
	"PostgreSQL": "RELATIONAL",
	"MySQL":      "RELATIONAL",
	"SQLite":     "RELATIONAL",
	"MongoDB":    "DOCUMENT",
	"Redis":      "KEYVALUE",
}

// IsSupportedDatabase checks if a database type is supported
func IsSupportedDatabase(dbType string) bool {
	for _, db := range SupportedDatabases {
		if db == dbType {
			return true
		}
	}
	return false
}

// IsRelational reports whether dbType is translated to SQL.
func IsRelational(dbType string) bool {
	return DatabaseFamilies[dbType] == "RELATIONAL"
}
