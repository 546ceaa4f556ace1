package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/tourdesk/internal/catalog/domain"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	pricingdomain "github.com/smallbiznis/tourdesk/internal/pricing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCatalog struct {
	catalogdomain.Service
	mock.Mock
}

func (m *mockCatalog) GetTour(ctx context.Context, ref string) (*catalogdomain.TourResponse, error) {
	args := m.Called(ref)
	resp, _ := args.Get(0).(*catalogdomain.TourResponse)
	return resp, args.Error(1)
}

func (m *mockCatalog) GetSpace(ctx context.Context, ref string) (*catalogdomain.SpaceResponse, error) {
	args := m.Called(ref)
	resp, _ := args.Get(0).(*catalogdomain.SpaceResponse)
	return resp, args.Error(1)
}

type mockMembership struct {
	membershipdomain.Service
	mock.Mock
}

func (m *mockMembership) Snapshot(ctx context.Context, id string) (membershipdomain.Member, error) {
	args := m.Called(id)
	member, _ := args.Get(0).(membershipdomain.Member)
	return member, args.Error(1)
}

type fixedTiers struct{ table membershipdomain.TierTable }

func (f fixedTiers) Current() membershipdomain.TierTable { return f.table }

func newQuoteService(t *testing.T) (*Service, *mockCatalog, *mockMembership) {
	t.Helper()
	catalog := &mockCatalog{}
	membership := &mockMembership{}
	svc := New(Params{
		Log:        zap.NewNop(),
		Catalog:    catalog,
		Membership: membership,
		Tiers:      fixedTiers{table: defaultTable(t)},
	}).(*Service)
	return svc, catalog, membership
}

func TestQuoteTourForMember(t *testing.T) {
	svc, catalog, membership := newQuoteService(t)
	catalog.On("GetTour", "bariloche").Return(&catalogdomain.TourResponse{Tour: catalogdomain.Tour{
		ID:            snowflake.ID(11),
		Destination:   "Bariloche",
		LogisticsCost: d("80000"),
		ServiceFee:    d("25000"),
		Km:            900,
	}}, nil)
	membership.On("Snapshot", "42").Return(membershipdomain.Enrolled{
		Tier:            membershipdomain.TierPlus,
		UsedThisMonthKm: 2000,
	}, nil)

	quote, err := svc.QuoteTour(context.Background(), pricingdomain.QuoteTourRequest{TourID: "bariloche", MemberID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "11", quote.TourID)
	assert.Equal(t, "Bariloche", quote.Title)
	assert.True(t, quote.Breakdown.FinalTotal.Equal(d("98750")))
	catalog.AssertExpectations(t)
	membership.AssertExpectations(t)
}

func TestQuoteTourLegacyPriceAnonymous(t *testing.T) {
	svc, catalog, membership := newQuoteService(t)
	catalog.On("GetTour", "12").Return(&catalogdomain.TourResponse{Tour: catalogdomain.Tour{
		ID:          snowflake.ID(12),
		Destination: "Mendoza",
		Price:       decimal.NewFromInt(50000),
		Km:          1000,
	}}, nil)
	membership.On("Snapshot", "").Return(membershipdomain.Anonymous{}, nil)

	quote, err := svc.QuoteTour(context.Background(), pricingdomain.QuoteTourRequest{TourID: "12"})
	require.NoError(t, err)
	assert.False(t, quote.Breakdown.DiscountApplied)
	assert.True(t, quote.Breakdown.LogisticsCost.Equal(d("40000")))
	assert.True(t, quote.Breakdown.ServiceFee.Equal(d("10000")))
	assert.True(t, quote.Breakdown.FinalTotal.Equal(d("50000")))
	assert.Equal(t, "not a member or plan has no benefits", quote.Breakdown.Reason)
}

func TestQuoteMapsCatalogErrors(t *testing.T) {
	svc, catalog, _ := newQuoteService(t)
	catalog.On("GetTour", "missing").Return(nil, catalogdomain.ErrNotFound)
	catalog.On("GetSpace", "").Return(nil, catalogdomain.ErrInvalidID)

	_, err := svc.QuoteTour(context.Background(), pricingdomain.QuoteTourRequest{TourID: "missing"})
	assert.ErrorIs(t, err, pricingdomain.ErrNotFound)

	_, err = svc.QuoteSpace(context.Background(), pricingdomain.QuoteSpaceRequest{})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidSpace)
}

func TestQuoteSpaceForMember(t *testing.T) {
	svc, catalog, membership := newQuoteService(t)
	catalog.On("GetSpace", "quincho").Return(&catalogdomain.SpaceResponse{Space: catalogdomain.Space{
		ID:    snowflake.ID(5),
		Name:  "Quincho",
		Price: d("40000"),
	}}, nil)
	membership.On("Snapshot", "42").Return(membershipdomain.Enrolled{
		Tier:                   membershipdomain.TierElite,
		SpaceBookingsThisMonth: 1,
	}, nil)

	quote, err := svc.QuoteSpace(context.Background(), pricingdomain.QuoteSpaceRequest{SpaceID: "quincho", MemberID: "42"})
	require.NoError(t, err)
	assert.True(t, quote.Breakdown.DiscountApplied)
	assert.True(t, quote.Breakdown.FinalPrice.Equal(d("34000")), quote.Breakdown.FinalPrice.String())
	assert.Equal(t, 2, quote.Breakdown.RemainingUses)
	assert.Equal(t, "Premium decoration", quote.Breakdown.DecorationLabel)
}
