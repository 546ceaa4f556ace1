package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/tourdesk/internal/clock"
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/tourdesk/internal/observability/metrics"
	"github.com/smallbiznis/tourdesk/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const listLimit = 50

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    notificationdomain.Repository
	Email   email.Provider
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    notificationdomain.Repository
	email   email.Provider
	metrics *obsmetrics.Metrics
}

func New(p Params) notificationdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("notification.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		email:   p.Email,
		metrics: p.Metrics,
	}
}

// Publish stores the notification, then attempts email delivery. Delivery
// failures are logged and do not fail the caller.
func (s *Service) Publish(ctx context.Context, msg notificationdomain.Message) error {
	if msg.MemberID == 0 {
		return notificationdomain.ErrInvalidMember
	}
	switch msg.Kind {
	case notificationdomain.KindBooking,
		notificationdomain.KindSpaceBooking,
		notificationdomain.KindCancellation,
		notificationdomain.KindMembership:
	default:
		return notificationdomain.ErrInvalidKind
	}

	now := s.clock.Now()
	entity := &notificationdomain.Notification{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		MemberID:  msg.MemberID,
		Kind:      msg.Kind,
		Title:     msg.Title,
		Body:      msg.Body,
		CreatedAt: now.UTC(),
	}
	if msg.Payload != nil {
		entity.Payload = datatypes.JSONMap(msg.Payload)
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return err
	}

	if strings.TrimSpace(msg.Email) == "" {
		s.metrics.RecordNotification(ctx, string(msg.Kind), false)
		return nil
	}
	err := s.email.SendTemplate(ctx, []string{msg.Email}, "notification", map[string]any{
		"subject": msg.Title,
		"title":   msg.Title,
		"name":    msg.Name,
		"body":    msg.Body,
		"lines":   msg.Lines,
	})
	if err != nil {
		s.log.Warn("failed to deliver notification email",
			zap.String("notification_id", entity.ID),
			zap.String("kind", string(msg.Kind)),
			zap.Error(err),
		)
	}
	s.metrics.RecordNotification(ctx, string(msg.Kind), err == nil)
	return nil
}

func (s *Service) List(ctx context.Context, memberID string) ([]notificationdomain.Response, error) {
	id, err := parseID(memberID)
	if err != nil {
		return nil, notificationdomain.ErrInvalidMember
	}

	items, err := s.repo.ListByMember(ctx, s.db, id, listLimit)
	if err != nil {
		return nil, err
	}

	resp := make([]notificationdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) MarkRead(ctx context.Context, memberID string, id string) error {
	member, err := parseID(memberID)
	if err != nil {
		return notificationdomain.ErrInvalidMember
	}
	id = strings.TrimSpace(id)
	if _, err := ulid.ParseStrict(id); err != nil {
		return notificationdomain.ErrInvalidID
	}

	ok, err := s.repo.MarkRead(ctx, s.db, member, id, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return notificationdomain.ErrNotFound
	}
	return nil
}

func toResponse(n *notificationdomain.Notification) notificationdomain.Response {
	return notificationdomain.Response{
		ID:        n.ID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		Payload:   map[string]any(n.Payload),
		Read:      n.ReadAt != nil,
		CreatedAt: n.CreatedAt,
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
