package token

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/minechat-api/internal/domain"
	"github.com/minechat-api/internal/infrastructure/facebook"
)

const (
	// Page tokens inside this window of their expiry are re-derived by the
	// rotation pass.
	pageRenewWindow = 7 * 24 * time.Hour
	// Long-lived user tokens inside this window are re-exchanged by the
	// refresh pass.
	userRenewWindow = 2 * time.Hour
)

// DeriveRequest asks for a page token minted from the system-user credential.
type DeriveRequest struct {
	PageID string `json:"pageId" validate:"required"`
}

// ExchangeRequest trades a short-lived user token for a long-lived one.
type ExchangeRequest struct {
	ShortLivedToken string `json:"shortLivedToken" validate:"required"`
}

// StoreRequest persists an externally obtained page token.
type StoreRequest struct {
	PageAccessToken string `json:"pageAccessToken" validate:"required"`
	PageID          string `json:"pageId"`
	Source          string `json:"source"`
}

// DebugRequest introspects an arbitrary token.
type DebugRequest struct {
	Token string `json:"token" validate:"required"`
}

// PageTokenFromUserRequest mints a page token from a long-lived user token
// without persisting it.
type PageTokenFromUserRequest struct {
	PageID             string `json:"pageId" validate:"required"`
	LongLivedUserToken string `json:"longLivedUserToken" validate:"required"`
}

// ListPagesRequest lists the pages a long-lived user token manages.
type ListPagesRequest struct {
	LongLivedUserToken string `json:"longLivedUserToken" validate:"required"`
}

// StoreResult reports the introspection outcome of a newly persisted token.
type StoreResult struct {
	PageID    string `json:"pageId"`
	IsValid   bool   `json:"isValid"`
	ExpiresAt int64  `json:"expiresAt"` // Unix seconds, 0 for non-expiring
}

// ExchangePagesResult reports a login-flow connect: the long-lived token's
// lifetime and the page tokens persisted from it.
type ExchangePagesResult struct {
	PagesCount         int             `json:"pagesCount"`
	Pages              []facebook.Page `json:"pages"`
	UserTokenExpiresIn int64           `json:"userTokenExpiresIn"`
}

// PageTokenStore persists page token records.
type PageTokenStore interface {
	Put(ctx context.Context, t *domain.PageToken) error
	Get(ctx context.Context, pageID string) (*domain.PageToken, error)
	Update(ctx context.Context, pageID string, updates map[string]interface{}) error
	Scan(ctx context.Context) ([]domain.PageToken, error)
}

// UserTokenStore persists the long-lived user token record.
type UserTokenStore interface {
	Put(ctx context.Context, t *domain.UserToken) error
	Get(ctx context.Context) (*domain.UserToken, error)
}

// Graph is the subset of the Graph API client the token manager uses.
type Graph interface {
	HasSystemUserToken() bool
	GetPageToken(ctx context.Context, pageID, accessToken string) (string, error)
	DerivePageToken(ctx context.Context, pageID string) (string, error)
	DebugToken(ctx context.Context, inputToken string) (*facebook.TokenDebug, json.RawMessage, error)
	ExchangeToken(ctx context.Context, userToken string) (*facebook.ExchangeResult, error)
	ListPages(ctx context.Context, userToken string) ([]facebook.Page, error)
	GetPageInfo(ctx context.Context, pageID, accessToken string) (*facebook.PageInfo, error)
}

// Alerts notifies operators when rotation cannot renew a token. May be nil.
type Alerts interface {
	PublishAlert(ctx context.Context, subject, message string) error
}

// Service drives the page-token lifecycle: exchange, derive, manual store,
// introspection, and the two scheduled validation passes.
type Service interface {
	Exchange(ctx context.Context, shortLivedToken string) (*facebook.ExchangeResult, error)
	ExchangeAndStorePages(ctx context.Context, shortLivedToken string) (*ExchangePagesResult, error)
	Derive(ctx context.Context, pageID string) (*StoreResult, error)
	StoreManual(ctx context.Context, req StoreRequest) (*StoreResult, error)
	Debug(ctx context.Context, token string) (json.RawMessage, error)
	PageTokenFromUser(ctx context.Context, pageID, userToken string) (string, error)
	ListPages(ctx context.Context, userToken string) ([]facebook.Page, error)
	Rotate(ctx context.Context) error
	Refresh(ctx context.Context) error
}

type service struct {
	pages  PageTokenStore
	users  UserTokenStore
	graph  Graph
	alerts Alerts
	now    func() time.Time
}

func NewService(pages PageTokenStore, users UserTokenStore, graph Graph, alerts Alerts) Service {
	return &service{pages: pages, users: users, graph: graph, alerts: alerts, now: time.Now}
}

func (s *service) Exchange(ctx context.Context, shortLivedToken string) (*facebook.ExchangeResult, error) {
	shortLivedToken = strings.TrimSpace(shortLivedToken)
	if shortLivedToken == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Missing shortLivedToken")
	}
	return s.graph.ExchangeToken(ctx, shortLivedToken)
}

// ExchangeAndStorePages runs the user-login connect flow: exchange the
// short-lived token, persist the long-lived one, then persist a page token
// record for every page it manages. Page tokens minted from a long-lived
// user token do not expire, so they are stored with a nil expiry.
func (s *service) ExchangeAndStorePages(ctx context.Context, shortLivedToken string) (*ExchangePagesResult, error) {
	shortLivedToken = strings.TrimSpace(shortLivedToken)
	if shortLivedToken == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Missing shortLivedToken")
	}
	exch, err := s.graph.ExchangeToken(ctx, shortLivedToken)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ut := &domain.UserToken{
		LongLivedUserToken: exch.AccessToken,
		UpdatedAt:          now,
	}
	if exch.ExpiresIn > 0 {
		ut.ExpiresAt = now.Add(time.Duration(exch.ExpiresIn) * time.Second)
	}
	if err := s.users.Put(ctx, ut); err != nil {
		return nil, err
	}

	pages, err := s.graph.ListPages(ctx, exch.AccessToken)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		rec := &domain.PageToken{
			PageID:          p.ID,
			PageAccessToken: p.AccessToken,
			Source:          domain.TokenSourceUserLogin,
			IsValid:         true,
			ExpiresAt:       nil,
			CheckedAt:       now,
			UpdatedAt:       now,
			PageName:        p.Name,
			Category:        p.Category,
		}
		if err := s.pages.Put(ctx, rec); err != nil {
			slog.Error("failed to store page token", "page_id", p.ID, "err", err)
		}
	}
	return &ExchangePagesResult{
		PagesCount:         len(pages),
		Pages:              pages,
		UserTokenExpiresIn: exch.ExpiresIn,
	}, nil
}

// Derive mints a page token from the system-user credential, introspects it
// immediately, and persists both the token and the introspection result.
func (s *service) Derive(ctx context.Context, pageID string) (*StoreResult, error) {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Missing pageId")
	}
	tok, err := s.graph.DerivePageToken(ctx, pageID)
	if err != nil {
		return nil, err
	}
	dbg, _, err := s.graph.DebugToken(ctx, tok)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &domain.PageToken{
		PageID:          pageID,
		PageAccessToken: tok,
		Source:          domain.TokenSourceSystemUser,
		IsValid:         dbg.IsValid,
		ExpiresAt:       expiryTime(dbg.ExpiresAt),
		CheckedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.pages.Put(ctx, rec); err != nil {
		return nil, err
	}
	return &StoreResult{PageID: pageID, IsValid: dbg.IsValid, ExpiresAt: dbg.ExpiresAt}, nil
}

// StoreManual persists an externally obtained page token. The owning pageId
// is resolved from the introspection response when not supplied; display
// metadata is fetched best-effort.
func (s *service) StoreManual(ctx context.Context, req StoreRequest) (*StoreResult, error) {
	tok := strings.TrimSpace(req.PageAccessToken)
	if tok == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Missing pageAccessToken")
	}
	dbg, _, err := s.graph.DebugToken(ctx, tok)
	if err != nil {
		return nil, err
	}
	pageID := strings.TrimSpace(req.PageID)
	if pageID == "" {
		pageID = dbg.ProfileID
	}
	if pageID == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Cannot resolve pageId from token; supply pageId")
	}
	source := req.Source
	if source == "" {
		source = domain.TokenSourceManual
	}

	now := s.now().UTC()
	rec := &domain.PageToken{
		PageID:          pageID,
		PageAccessToken: tok,
		Source:          source,
		IsValid:         dbg.IsValid,
		ExpiresAt:       expiryTime(dbg.ExpiresAt),
		CheckedAt:       now,
		UpdatedAt:       now,
	}
	if info, err := s.graph.GetPageInfo(ctx, pageID, tok); err == nil {
		rec.PageName = info.Name
		rec.Category = info.Category
	} else {
		slog.Warn("could not fetch page metadata", "page_id", pageID, "err", err)
	}
	if err := s.pages.Put(ctx, rec); err != nil {
		return nil, err
	}
	return &StoreResult{PageID: pageID, IsValid: dbg.IsValid, ExpiresAt: dbg.ExpiresAt}, nil
}

func (s *service) Debug(ctx context.Context, token string) (json.RawMessage, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Missing token")
	}
	_, raw, err := s.graph.DebugToken(ctx, token)
	return raw, err
}

func (s *service) PageTokenFromUser(ctx context.Context, pageID, userToken string) (string, error) {
	pageID = strings.TrimSpace(pageID)
	userToken = strings.TrimSpace(userToken)
	if pageID == "" || userToken == "" {
		return "", domain.Errorf(domain.ErrBadRequest, "Missing pageId/longLivedUserToken")
	}
	return s.graph.GetPageToken(ctx, pageID, userToken)
}

func (s *service) ListPages(ctx context.Context, userToken string) ([]facebook.Page, error) {
	userToken = strings.TrimSpace(userToken)
	if userToken == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Missing longLivedUserToken")
	}
	return s.graph.ListPages(ctx, userToken)
}

// Rotate is the legacy scheduled pass: introspect every stored page token
// and re-derive those that are invalid or expiring within seven days.
// Per-document failures are logged and skipped; the batch never aborts.
func (s *service) Rotate(ctx context.Context) error {
	tokens, err := s.pages.Scan(ctx)
	if err != nil {
		return err
	}
	for i := range tokens {
		if err := s.rotateOne(ctx, &tokens[i]); err != nil {
			slog.Error("token rotation failed for page", "page_id", tokens[i].PageID, "err", err)
		}
	}
	return nil
}

func (s *service) rotateOne(ctx context.Context, rec *domain.PageToken) error {
	dbg, _, err := s.graph.DebugToken(ctx, rec.PageAccessToken)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	needsRenew := !dbg.IsValid ||
		(dbg.ExpiresAt > 0 && time.Unix(dbg.ExpiresAt, 0).Sub(now) < pageRenewWindow)
	if !needsRenew {
		return s.pages.Update(ctx, rec.PageID, map[string]interface{}{
			"is_valid":   true,
			"expires_at": expiryTime(dbg.ExpiresAt),
			"checked_at": now,
		})
	}

	if !s.graph.HasSystemUserToken() {
		s.alert(ctx, "page token needs renewal",
			"page "+rec.PageID+" token is invalid or expiring and no system user token is configured")
		return s.pages.Update(ctx, rec.PageID, map[string]interface{}{
			"is_valid":   dbg.IsValid,
			"checked_at": now,
			"updated_at": now,
		})
	}

	newTok, err := s.graph.DerivePageToken(ctx, rec.PageID)
	if err != nil {
		s.alert(ctx, "page token renewal failed",
			"page "+rec.PageID+" could not be re-derived: "+err.Error())
		return s.pages.Update(ctx, rec.PageID, map[string]interface{}{
			"is_valid":   false,
			"checked_at": now,
			"updated_at": now,
		})
	}
	return s.pages.Update(ctx, rec.PageID, map[string]interface{}{
		"page_access_token": newTok,
		"is_valid":          true,
		"expires_at":        expiryTime(dbg.ExpiresAt),
		"checked_at":        now,
		"updated_at":        now,
	})
}

// Refresh is the current scheduled pass: re-exchange the long-lived user
// token when it is inside its renewal window, then introspect every page
// token updating only validity and check time. Page tokens are not
// re-derived here — those minted from a user token do not expire.
func (s *service) Refresh(ctx context.Context) error {
	s.refreshUserToken(ctx)

	tokens, err := s.pages.Scan(ctx)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	for i := range tokens {
		rec := &tokens[i]
		dbg, _, err := s.graph.DebugToken(ctx, rec.PageAccessToken)
		if err != nil {
			slog.Error("token check failed for page", "page_id", rec.PageID, "err", err)
			continue
		}
		err = s.pages.Update(ctx, rec.PageID, map[string]interface{}{
			"is_valid":   dbg.IsValid,
			"checked_at": now,
		})
		if err != nil {
			slog.Error("token check update failed for page", "page_id", rec.PageID, "err", err)
		}
	}
	return nil
}

func (s *service) refreshUserToken(ctx context.Context) {
	ut, err := s.users.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("could not load user token", "err", err)
		}
		return
	}
	now := s.now().UTC()
	if ut.ExpiresAt.IsZero() || ut.ExpiresAt.Sub(now) >= userRenewWindow {
		return
	}
	exch, err := s.graph.ExchangeToken(ctx, ut.LongLivedUserToken)
	if err != nil {
		slog.Error("user token re-exchange failed", "err", err)
		s.alert(ctx, "user token renewal failed", "long-lived user token could not be re-exchanged: "+err.Error())
		return
	}
	fresh := &domain.UserToken{
		LongLivedUserToken: exch.AccessToken,
		UpdatedAt:          now,
	}
	if exch.ExpiresIn > 0 {
		fresh.ExpiresAt = now.Add(time.Duration(exch.ExpiresIn) * time.Second)
	}
	if err := s.users.Put(ctx, fresh); err != nil {
		slog.Error("could not store refreshed user token", "err", err)
	}
}

func (s *service) alert(ctx context.Context, subject, message string) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.PublishAlert(ctx, subject, message); err != nil {
		slog.Warn("could not publish alert", "subject", subject, "err", err)
	}
}

// expiryTime converts a Unix-seconds expiry to *time.Time, nil when the
// token does not expire.
func expiryTime(unixSec int64) *time.Time {
	if unixSec == 0 {
		return nil
	}
	t := time.Unix(unixSec, 0).UTC()
	return &t
}
