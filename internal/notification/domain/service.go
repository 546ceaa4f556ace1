package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Publisher records a notification for a member and forwards it by email.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

type Service interface {
	Publisher
	List(ctx context.Context, memberID string) ([]Response, error)
	MarkRead(ctx context.Context, memberID string, id string) error
}

type Message struct {
	MemberID snowflake.ID
	Email    string
	Name     string
	Kind     Kind
	Title    string
	Body     string
	Lines    []string
	Payload  map[string]any
}

type Response struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Payload   map[string]any `json:"payload,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

var (
	ErrInvalidMember = errors.New("invalid_member")
	ErrInvalidKind   = errors.New("invalid_kind")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
