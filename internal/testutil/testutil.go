// Package testutil provides shared test helpers for setting up catalogs and
// journal databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/journal"
)

// TestJournal creates a temporary SQLite journal that is automatically
// cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// CatalogDoc is a small catalog covering the widget and data types the
// tests bind against.
const CatalogDoc = `{
	"version": "1.0",
	"widgets": {
		"Text": {
			"properties": {
				"type": "object",
				"properties": {
					"text": {"type": "string"},
					"count": {"type": "integer"},
					"ratio": {"type": "number"},
					"visible": {"type": "boolean"},
					"style": {"type": "object"},
					"lines": {"type": "array"},
					"placeholder": {"type": "string", "default": "n/a"}
				}
			},
			"events": {
				"type": "object",
				"properties": {
					"name": {"type": "string"}
				},
				"required": ["name"]
			}
		},
		"List": {
			"properties": {
				"type": "object",
				"properties": {
					"items": {"type": "array"},
					"children": {"type": "array"}
				}
			}
		}
	},
	"dataTypes": {
		"Contact": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string"},
				"email": {"type": "string", "format": "email"},
				"age": {"type": "integer"}
			}
		}
	}
}`

// TestCatalog parses CatalogDoc.
func TestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(CatalogDoc))
	if err != nil {
		t.Fatal(err)
	}
	return c
}
