package model

import (
	"database/sql/driver"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// IDList stores a list of ids as a postgres text array.
type IDList pq.StringArray

// NewIDList converts uuids to an IDList.
func NewIDList(ids []uuid.UUID) IDList {
	list := make(IDList, len(ids))
	for i, id := range ids {
		list[i] = id.String()
	}
	return list
}

// UUIDs parses the stored ids, skipping malformed values.
func (l IDList) UUIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, raw := range l {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

// Scan implements sql.Scanner.
func (l *IDList) Scan(src any) error {
	return (*pq.StringArray)(l).Scan(src)
}

// GormDBDataType picks the column type per dialect; sqlite has no array type.
func (IDList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
