package store

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Visibility values for a resume.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Resume is the stored resume document. Data holds the structured resume
// body (sections, layout, tags) as opaque JSON; the cache hashes it as-is.
type Resume struct {
	bun.BaseModel `bun:"table:resumes,alias:r" json:"-"`

	ID         string          `bun:"id,pk" json:"id"`
	UserID     string          `bun:"user_id,notnull" json:"userId"`
	Title      string          `bun:"title,notnull" json:"title"`
	Slug       string          `bun:"slug,notnull,unique" json:"slug"`
	Data       json.RawMessage `bun:"data" json:"data"`
	Template   string          `bun:"template,notnull" json:"template"`
	Visibility string          `bun:"visibility,notnull,default:'private'" json:"visibility"`
	CreatedAt  time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt  time.Time       `bun:"updated_at,notnull" json:"updatedAt"`
}

// User is an account owner. ExternalID is the identity-provider subject; the
// fixed development identity uses a sentinel value that never collides with
// real subjects.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u" json:"-"`

	ID            string    `bun:"id,pk" json:"id"`
	ExternalID    string    `bun:"external_id,notnull,unique" json:"externalId"`
	Email         string    `bun:"email,notnull" json:"email"`
	Name          string    `bun:"name" json:"name"`
	CreditBalance int64     `bun:"credit_balance,notnull,default:0" json:"creditBalance"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// CreditTransaction is one append-only ledger row. Amount is positive for
// grants and negative for spends.
type CreditTransaction struct {
	bun.BaseModel `bun:"table:credit_transactions,alias:ct" json:"-"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"userId"`
	Type      string    `bun:"type,notnull" json:"type"`
	Amount    int64     `bun:"amount,notnull" json:"amount"`
	Reason    string    `bun:"reason" json:"reason"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// AIInteraction is one logged AI call for auditing.
type AIInteraction struct {
	bun.BaseModel `bun:"table:ai_interactions,alias:ai" json:"-"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"userId"`
	ResumeID  string    `bun:"resume_id" json:"resumeId"`
	Section   string    `bun:"section" json:"section"`
	Prompt    string    `bun:"prompt" json:"prompt"`
	Response  string    `bun:"response" json:"response"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}
