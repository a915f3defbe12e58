package loginsecurity

import "time"

// IdentifierKind separates per-account counters from per-client counters.
type IdentifierKind string

const (
	KindEmail IdentifierKind = "email"
	KindIP    IdentifierKind = "ip"
)

// LoginAttempt tracks consecutive failed sign-ins for one identifier. IP identifiers are hashes.
type LoginAttempt struct {
	Identifier        string         `gorm:"primaryKey;type:varchar(320)"`
	Kind              IdentifierKind `gorm:"primaryKey;type:varchar(16)"`
	FailedAttempts    int            `gorm:"not null"`
	LastAttemptAt     time.Time      `gorm:"not null;index"`
	BlockUntil        *time.Time
	PasswordResetSent bool `gorm:"not null"`
}

// TableName specifies the table name for the LoginAttempt model.
func (LoginAttempt) TableName() string {
	return "login_attempts"
}

// RateLimit counts requests of one category from one identifier.
type RateLimit struct {
	Key            string    `gorm:"column:limit_key;primaryKey;type:varchar(400)"`
	Category       Category  `gorm:"type:varchar(32);not null;index"`
	Attempts       int       `gorm:"not null"`
	FirstAttemptAt time.Time `gorm:"not null"`
	LastAttemptAt  time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for the RateLimit model.
func (RateLimit) TableName() string {
	return "rate_limits"
}

// Status is the lockout state of an identifier after a check or a recorded failure.
type Status struct {
	Blocked      bool          `json:"blocked"`
	Remaining    time.Duration `json:"-"`
	SuggestReset bool          `json:"suggestPasswordReset"`
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}
