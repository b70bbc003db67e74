package models

import "github.com/google/uuid"

// assignID fills a nil primary key before insert. Postgres defaults ids via
// gen_random_uuid() as well; SQLite relies on this.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every model in dependency order for AutoMigrate in SQLite mode and tests.
func All() []any {
	return []any{
		&User{},
		&Supplier{},
		&Location{},
		&Vehicle{},
		&Part{},
		&ServiceRecord{},
		&ServiceRecordPart{},
		&Checklist{},
	}
}
