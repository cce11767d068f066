package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bizdesk/internal/core/entity"
	"bizdesk/internal/core/id"
)

type testDocument struct {
	entity.Document
	Status string   `db:"status"`
	Lines  []string `db:"-"`
}

func TestExtractDBColumns_EmbeddedDocument(t *testing.T) {
	cols := ExtractDBColumns[testDocument]()

	assert.Equal(t, []string{
		"id", "deletion_mark", "version",
		"created_at", "updated_at", "created_by", "updated_by",
		"number", "date", "comment", "status",
	}, cols)
	assert.NotContains(t, cols, "-")
}

func TestStructToMap_EmbeddedDocument(t *testing.T) {
	date := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	doc := testDocument{
		Document: entity.Document{
			BaseDocument: entity.BaseDocument{
				BaseEntity: entity.BaseEntity{ID: id.New(), Version: 5},
				CreatedBy:  "maria",
			},
			Number: "0042",
			Date:   date,
		},
		Status: "open",
		Lines:  []string{"ignored"},
	}

	m := StructToMap(&doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "maria", m["created_by"])
	assert.Equal(t, "0042", m["number"])
	assert.Equal(t, date, m["date"])
	assert.Equal(t, "open", m["status"])
	assert.NotContains(t, m, "Lines")
	assert.Len(t, m, 11)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
