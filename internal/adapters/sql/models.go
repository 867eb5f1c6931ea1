package sql

// sessionRow is the persisted form of a session record.
// Data holds the JSON-encoded domain.Session; LastActivity is duplicated
// as unix nanoseconds so Sweep can filter in the database.
type sessionRow struct {
	SessionID    string `gorm:"primaryKey;size:128"`
	Data         string `gorm:"type:text;not null"`
	LastActivity int64  `gorm:"not null;index"`
}

func (sessionRow) TableName() string { return "chat_sessions" }

// documentIndexRow stores the document index apart from the record.
type documentIndexRow struct {
	SessionID string `gorm:"primaryKey;size:128"`
	Data      string `gorm:"type:longtext;not null"`
}

func (documentIndexRow) TableName() string { return "chat_document_indexes" }
