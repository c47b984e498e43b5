package token

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/minechat-api/internal/domain"
	"github.com/minechat-api/internal/infrastructure/facebook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockPageTokenStore struct{ mock.Mock }

func (m *mockPageTokenStore) Put(ctx context.Context, t *domain.PageToken) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockPageTokenStore) Get(ctx context.Context, pageID string) (*domain.PageToken, error) {
	args := m.Called(ctx, pageID)
	if t, _ := args.Get(0).(*domain.PageToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPageTokenStore) Update(ctx context.Context, pageID string, updates map[string]interface{}) error {
	return m.Called(ctx, pageID, updates).Error(0)
}
func (m *mockPageTokenStore) Scan(ctx context.Context) ([]domain.PageToken, error) {
	args := m.Called(ctx)
	if ts, _ := args.Get(0).([]domain.PageToken); ts != nil {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserTokenStore struct{ mock.Mock }

func (m *mockUserTokenStore) Put(ctx context.Context, t *domain.UserToken) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockUserTokenStore) Get(ctx context.Context) (*domain.UserToken, error) {
	args := m.Called(ctx)
	if t, _ := args.Get(0).(*domain.UserToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGraph struct{ mock.Mock }

func (m *mockGraph) HasSystemUserToken() bool {
	return m.Called().Bool(0)
}
func (m *mockGraph) GetPageToken(ctx context.Context, pageID, accessToken string) (string, error) {
	args := m.Called(ctx, pageID, accessToken)
	return args.String(0), args.Error(1)
}
func (m *mockGraph) DerivePageToken(ctx context.Context, pageID string) (string, error) {
	args := m.Called(ctx, pageID)
	return args.String(0), args.Error(1)
}
func (m *mockGraph) DebugToken(ctx context.Context, inputToken string) (*facebook.TokenDebug, json.RawMessage, error) {
	args := m.Called(ctx, inputToken)
	dbg, _ := args.Get(0).(*facebook.TokenDebug)
	raw, _ := args.Get(1).(json.RawMessage)
	return dbg, raw, args.Error(2)
}
func (m *mockGraph) ExchangeToken(ctx context.Context, userToken string) (*facebook.ExchangeResult, error) {
	args := m.Called(ctx, userToken)
	if r, _ := args.Get(0).(*facebook.ExchangeResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockGraph) ListPages(ctx context.Context, userToken string) ([]facebook.Page, error) {
	args := m.Called(ctx, userToken)
	if ps, _ := args.Get(0).([]facebook.Page); ps != nil {
		return ps, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockGraph) GetPageInfo(ctx context.Context, pageID, accessToken string) (*facebook.PageInfo, error) {
	args := m.Called(ctx, pageID, accessToken)
	if p, _ := args.Get(0).(*facebook.PageInfo); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAlerts struct{ mock.Mock }

func (m *mockAlerts) PublishAlert(ctx context.Context, subject, message string) error {
	return m.Called(ctx, subject, message).Error(0)
}

func newTestService(pages *mockPageTokenStore, users *mockUserTokenStore, graph *mockGraph, alerts Alerts, now time.Time) *service {
	return &service{pages: pages, users: users, graph: graph, alerts: alerts, now: func() time.Time { return now }}
}

// --- Exchange ---

func TestExchange_MissingToken(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, time.Now())
	_, err := svc.Exchange(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestExchangeAndStorePages_PersistsUserTokenAndPages(t *testing.T) {
	now := time.Now()
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}
	users := &mockUserTokenStore{}

	graph.On("ExchangeToken", mock.Anything, "short").Return(&facebook.ExchangeResult{
		AccessToken: "long", TokenType: "bearer", ExpiresIn: 5184000,
	}, nil)
	graph.On("ListPages", mock.Anything, "long").Return([]facebook.Page{
		{ID: "p1", Name: "Page One", AccessToken: "p1tok", Category: "Retail"},
		{ID: "p2", Name: "Page Two", AccessToken: "p2tok"},
	}, nil)
	users.On("Put", mock.Anything, mock.AnythingOfType("*domain.UserToken")).Run(func(args mock.Arguments) {
		ut := args.Get(1).(*domain.UserToken)
		assert.Equal(t, "long", ut.LongLivedUserToken)
		assert.Equal(t, now.UTC().Add(5184000*time.Second), ut.ExpiresAt)
	}).Return(nil)
	pages.On("Put", mock.Anything, mock.AnythingOfType("*domain.PageToken")).Run(func(args mock.Arguments) {
		rec := args.Get(1).(*domain.PageToken)
		assert.Equal(t, domain.TokenSourceUserLogin, rec.Source)
		assert.True(t, rec.IsValid)
		assert.Nil(t, rec.ExpiresAt) // page tokens from a long-lived user token do not expire
	}).Return(nil).Times(2)

	svc := newTestService(pages, users, graph, nil, now)
	res, err := svc.ExchangeAndStorePages(context.Background(), "short")

	require.NoError(t, err)
	assert.Equal(t, 2, res.PagesCount)
	assert.Equal(t, int64(5184000), res.UserTokenExpiresIn)
	pages.AssertExpectations(t)
	users.AssertExpectations(t)
}

// --- Derive ---

func TestDerive_PersistsIntrospectedToken(t *testing.T) {
	now := time.Now()
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}
	expires := now.Add(48 * time.Hour).Unix()

	graph.On("DerivePageToken", mock.Anything, "p1").Return("ptok", nil)
	graph.On("DebugToken", mock.Anything, "ptok").Return(&facebook.TokenDebug{
		IsValid: true, ExpiresAt: expires,
	}, json.RawMessage(`{}`), nil)
	pages.On("Put", mock.Anything, mock.AnythingOfType("*domain.PageToken")).Run(func(args mock.Arguments) {
		rec := args.Get(1).(*domain.PageToken)
		assert.Equal(t, "p1", rec.PageID)
		assert.Equal(t, "ptok", rec.PageAccessToken)
		assert.Equal(t, domain.TokenSourceSystemUser, rec.Source)
		require.NotNil(t, rec.ExpiresAt)
		assert.Equal(t, time.Unix(expires, 0).UTC(), *rec.ExpiresAt)
	}).Return(nil)

	svc := newTestService(pages, nil, graph, nil, now)
	res, err := svc.Derive(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "p1", res.PageID)
	assert.True(t, res.IsValid)
	assert.Equal(t, expires, res.ExpiresAt)
	pages.AssertExpectations(t)
}

// --- StoreManual ---

func TestStoreManual_ResolvesPageIDFromIntrospection(t *testing.T) {
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}

	graph.On("DebugToken", mock.Anything, "ptok").Return(&facebook.TokenDebug{
		IsValid: true, ProfileID: "p9",
	}, json.RawMessage(`{}`), nil)
	graph.On("GetPageInfo", mock.Anything, "p9", "ptok").Return(&facebook.PageInfo{
		ID: "p9", Name: "My Page", Category: "Food",
	}, nil)
	pages.On("Put", mock.Anything, mock.AnythingOfType("*domain.PageToken")).Run(func(args mock.Arguments) {
		rec := args.Get(1).(*domain.PageToken)
		assert.Equal(t, "p9", rec.PageID)
		assert.Equal(t, domain.TokenSourceManual, rec.Source)
		assert.Equal(t, "My Page", rec.PageName)
		assert.Nil(t, rec.ExpiresAt)
	}).Return(nil)

	svc := newTestService(pages, nil, graph, nil, time.Now())
	res, err := svc.StoreManual(context.Background(), StoreRequest{PageAccessToken: "ptok"})

	require.NoError(t, err)
	assert.Equal(t, "p9", res.PageID)
	pages.AssertExpectations(t)
}

func TestStoreManual_UnresolvablePageID(t *testing.T) {
	graph := &mockGraph{}
	graph.On("DebugToken", mock.Anything, "ptok").Return(&facebook.TokenDebug{IsValid: true}, json.RawMessage(`{}`), nil)

	svc := newTestService(nil, nil, graph, nil, time.Now())
	_, err := svc.StoreManual(context.Background(), StoreRequest{PageAccessToken: "ptok"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestStoreManual_PageInfoFailureIsNotFatal(t *testing.T) {
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}
	graph.On("DebugToken", mock.Anything, "ptok").Return(&facebook.TokenDebug{
		IsValid: true, ProfileID: "p9",
	}, json.RawMessage(`{}`), nil)
	graph.On("GetPageInfo", mock.Anything, "p9", "ptok").Return(nil, errors.New("boom"))
	pages.On("Put", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(pages, nil, graph, nil, time.Now())
	_, err := svc.StoreManual(context.Background(), StoreRequest{PageAccessToken: "ptok"})
	require.NoError(t, err)
}

// --- Rotate ---

func TestRotate_HealthyTokenOnlyRefreshesValidity(t *testing.T) {
	now := time.Now()
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}
	expires := now.Add(30 * 24 * time.Hour).Unix()

	pages.On("Scan", mock.Anything).Return([]domain.PageToken{
		{PageID: "p1", PageAccessToken: "ptok"},
	}, nil)
	graph.On("DebugToken", mock.Anything, "ptok").Return(&facebook.TokenDebug{
		IsValid: true, ExpiresAt: expires,
	}, json.RawMessage(`{}`), nil)
	pages.On("Update", mock.Anything, "p1", mock.MatchedBy(func(u map[string]interface{}) bool {
		_, derived := u["page_access_token"]
		return u["is_valid"] == true && !derived
	})).Return(nil)

	svc := newTestService(pages, nil, graph, nil, now)
	require.NoError(t, svc.Rotate(context.Background()))
	pages.AssertExpectations(t)
	graph.AssertNotCalled(t, "DerivePageToken", mock.Anything, mock.Anything)
}

func TestRotate_ExpiringTokenIsRederived(t *testing.T) {
	now := time.Now()
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}

	pages.On("Scan", mock.Anything).Return([]domain.PageToken{
		{PageID: "p1", PageAccessToken: "old"},
	}, nil)
	graph.On("DebugToken", mock.Anything, "old").Return(&facebook.TokenDebug{
		IsValid: true, ExpiresAt: now.Add(24 * time.Hour).Unix(), // inside the 7-day window
	}, json.RawMessage(`{}`), nil)
	graph.On("HasSystemUserToken").Return(true)
	graph.On("DerivePageToken", mock.Anything, "p1").Return("fresh", nil)
	pages.On("Update", mock.Anything, "p1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["page_access_token"] == "fresh" && u["is_valid"] == true
	})).Return(nil)

	svc := newTestService(pages, nil, graph, nil, now)
	require.NoError(t, svc.Rotate(context.Background()))
	pages.AssertExpectations(t)
}

func TestRotate_RenewalFailurePublishesAlert(t *testing.T) {
	now := time.Now()
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}
	alerts := &mockAlerts{}

	pages.On("Scan", mock.Anything).Return([]domain.PageToken{
		{PageID: "p1", PageAccessToken: "old"},
	}, nil)
	graph.On("DebugToken", mock.Anything, "old").Return(&facebook.TokenDebug{IsValid: false}, json.RawMessage(`{}`), nil)
	graph.On("HasSystemUserToken").Return(true)
	graph.On("DerivePageToken", mock.Anything, "p1").Return("", errors.New("denied"))
	alerts.On("PublishAlert", mock.Anything, "page token renewal failed", mock.Anything).Return(nil)
	pages.On("Update", mock.Anything, "p1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["is_valid"] == false
	})).Return(nil)

	svc := newTestService(pages, nil, graph, alerts, now)
	require.NoError(t, svc.Rotate(context.Background()))
	alerts.AssertExpectations(t)
	pages.AssertExpectations(t)
}

func TestRotate_PerDocumentFailuresDoNotAbortBatch(t *testing.T) {
	now := time.Now()
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}

	pages.On("Scan", mock.Anything).Return([]domain.PageToken{
		{PageID: "p1", PageAccessToken: "t1"},
		{PageID: "p2", PageAccessToken: "t2"},
	}, nil)
	graph.On("DebugToken", mock.Anything, "t1").Return(nil, nil, errors.New("network"))
	graph.On("DebugToken", mock.Anything, "t2").Return(&facebook.TokenDebug{
		IsValid: true, ExpiresAt: now.Add(30 * 24 * time.Hour).Unix(),
	}, json.RawMessage(`{}`), nil)
	pages.On("Update", mock.Anything, "p2", mock.Anything).Return(nil)

	svc := newTestService(pages, nil, graph, nil, now)
	require.NoError(t, svc.Rotate(context.Background()))
	pages.AssertExpectations(t)
}

// --- Refresh ---

func TestRefresh_ReexchangesUserTokenInsideWindow(t *testing.T) {
	now := time.Now()
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}
	users := &mockUserTokenStore{}

	users.On("Get", mock.Anything).Return(&domain.UserToken{
		LongLivedUserToken: "old", ExpiresAt: now.Add(time.Hour), // under the 2h window
	}, nil)
	graph.On("ExchangeToken", mock.Anything, "old").Return(&facebook.ExchangeResult{
		AccessToken: "fresh", ExpiresIn: 5184000,
	}, nil)
	users.On("Put", mock.Anything, mock.MatchedBy(func(ut *domain.UserToken) bool {
		return ut.LongLivedUserToken == "fresh"
	})).Return(nil)
	pages.On("Scan", mock.Anything).Return([]domain.PageToken{}, nil)

	svc := newTestService(pages, users, graph, nil, now)
	require.NoError(t, svc.Refresh(context.Background()))
	users.AssertExpectations(t)
}

func TestRefresh_UserTokenOutsideWindowUntouched(t *testing.T) {
	now := time.Now()
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}
	users := &mockUserTokenStore{}

	users.On("Get", mock.Anything).Return(&domain.UserToken{
		LongLivedUserToken: "old", ExpiresAt: now.Add(48 * time.Hour),
	}, nil)
	pages.On("Scan", mock.Anything).Return([]domain.PageToken{}, nil)

	svc := newTestService(pages, users, graph, nil, now)
	require.NoError(t, svc.Refresh(context.Background()))
	graph.AssertNotCalled(t, "ExchangeToken", mock.Anything, mock.Anything)
}

func TestRefresh_UpdatesValidityOnly(t *testing.T) {
	now := time.Now()
	graph := &mockGraph{}
	pages := &mockPageTokenStore{}
	users := &mockUserTokenStore{}

	users.On("Get", mock.Anything).Return(nil, domain.ErrNotFound)
	pages.On("Scan", mock.Anything).Return([]domain.PageToken{
		{PageID: "p1", PageAccessToken: "ptok"},
	}, nil)
	graph.On("DebugToken", mock.Anything, "ptok").Return(&facebook.TokenDebug{IsValid: false}, json.RawMessage(`{}`), nil)
	pages.On("Update", mock.Anything, "p1", mock.MatchedBy(func(u map[string]interface{}) bool {
		_, hasToken := u["page_access_token"]
		return u["is_valid"] == false && !hasToken
	})).Return(nil)

	svc := newTestService(pages, users, graph, nil, now)
	require.NoError(t, svc.Refresh(context.Background()))
	pages.AssertExpectations(t)
	graph.AssertNotCalled(t, "DerivePageToken", mock.Anything, mock.Anything)
}
