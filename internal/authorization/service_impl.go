package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	roleUser  = "role:user"
	roleAdmin = "role:admin"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// built-in role grants.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, memberID string, role string, object string, action string) error {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return ErrUnauthorized
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, err := memberSubject(memberID)
	if err != nil {
		return err
	}
	roleName, err := roleSubject(role)
	if err != nil {
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("role", roleName),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func memberSubject(memberID string) (string, error) {
	id, err := snowflake.ParseString(memberID)
	if err != nil || id <= 0 {
		return "", ErrInvalidActor
	}
	return fmt.Sprintf("member:%s", id.String()), nil
}

func roleSubject(role string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "USER":
		return roleUser, nil
	case "ADMIN":
		return roleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

// ensureGrouping keeps exactly one role link per member so a role change on
// the member row takes effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Member permissions
		{roleUser, ObjectBooking, ActionBookingCreate},
		{roleUser, ObjectBooking, ActionBookingCancel},
		{roleUser, ObjectPayment, ActionPaymentCheckout},
		{roleUser, ObjectNotification, ActionNotificationRead},

		// Admin permissions
		{roleAdmin, ObjectBooking, ActionBookingCreate},
		{roleAdmin, ObjectBooking, ActionBookingCancel},
		{roleAdmin, ObjectBooking, ActionBookingViewAny},
		{roleAdmin, ObjectPayment, ActionPaymentCheckout},
		{roleAdmin, ObjectPayment, ActionPaymentConfirm},
		{roleAdmin, ObjectNotification, ActionNotificationRead},
		{roleAdmin, ObjectCatalog, ActionCatalogManage},
		{roleAdmin, ObjectSettings, ActionSettingsView},
		{roleAdmin, ObjectSettings, ActionSettingsManage},
		{roleAdmin, ObjectMember, ActionMemberViewAny},
		{roleAdmin, ObjectMember, ActionMemberActivate},
		{roleAdmin, ObjectScheduler, ActionSchedulerRun},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
