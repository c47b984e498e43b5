package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minechat-api/internal/config"
)

// APIError is a non-success Graph API response. The upstream status code and
// raw body are preserved so handlers can relay them verbatim.
type APIError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error: status %d: %s", e.StatusCode, string(e.Body))
}

// TokenDebug is the introspection result for one token.
type TokenDebug struct {
	AppID     string `json:"app_id"`
	Type      string `json:"type"`
	IsValid   bool   `json:"is_valid"`
	ExpiresAt int64  `json:"expires_at"` // Unix seconds, 0 for non-expiring
	ProfileID string `json:"profile_id"` // page id for page tokens
}

// ExchangeResult is the payload of a token-exchange call.
type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// Page is one entry of a /me/accounts listing.
type Page struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	AccessToken string   `json:"access_token"`
	Category    string   `json:"category,omitempty"`
	Perms       []string `json:"perms,omitempty"`
}

// PageInfo is display metadata for a page.
type PageInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ConversationInfo is one entry of a page's conversation listing.
type ConversationInfo struct {
	ID           string `json:"id"`
	UpdatedTime  string `json:"updated_time"`
	Participants struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	} `json:"participants"`
}

// ConversationMessage is one message inside a platform conversation thread.
type ConversationMessage struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
	From        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
}

// Client talks to the Facebook Graph API. All methods return *APIError for
// non-success upstream responses.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	appID           string
	appSecret       string
	systemUserToken string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: 15 * time.Second},
		baseURL:         cfg.FBGraphBaseURL,
		appID:           cfg.FBAppID,
		appSecret:       cfg.FBAppSecret,
		systemUserToken: cfg.FBSystemUserToken,
	}
}

// HasSystemUserToken reports whether a system-user credential is configured,
// which the rotation job needs before it can re-derive page tokens.
func (c *Client) HasSystemUserToken() bool { return c.systemUserToken != "" }

// appAccessToken is the "appid|appsecret" credential accepted by debug_token.
func (c *Client) appAccessToken() string {
	return c.appID + "|" + c.appSecret
}

// GetPageToken fetches a page-scoped token using the given credential
// (system-user token or long-lived user token).
func (c *Client) GetPageToken(ctx context.Context, pageID, accessToken string) (string, error) {
	q := url.Values{}
	q.Set("fields", "access_token")
	q.Set("access_token", accessToken)
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.get(ctx, "/"+pageID, q, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("page %s returned no access token", pageID)
	}
	return out.AccessToken, nil
}

// DerivePageToken fetches a page token via the configured system-user
// credential.
func (c *Client) DerivePageToken(ctx context.Context, pageID string) (string, error) {
	if c.systemUserToken == "" {
		return "", fmt.Errorf("no system user token configured")
	}
	return c.GetPageToken(ctx, pageID, c.systemUserToken)
}

// DebugToken introspects a token's validity and expiry. The raw `data`
// object is returned alongside the parsed fields for passthrough endpoints.
func (c *Client) DebugToken(ctx context.Context, inputToken string) (*TokenDebug, json.RawMessage, error) {
	q := url.Values{}
	q.Set("input_token", inputToken)
	q.Set("access_token", c.appAccessToken())
	var out struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, "/debug_token", q, &out); err != nil {
		return nil, nil, err
	}
	var dbg TokenDebug
	if err := json.Unmarshal(out.Data, &dbg); err != nil {
		return nil, nil, fmt.Errorf("decode debug_token data: %w", err)
	}
	return &dbg, out.Data, nil
}

// ExchangeToken trades a short-lived (or aging long-lived) user token for a
// fresh long-lived one.
func (c *Client) ExchangeToken(ctx context.Context, userToken string) (*ExchangeResult, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", c.appID)
	q.Set("client_secret", c.appSecret)
	q.Set("fb_exchange_token", userToken)
	var out ExchangeResult
	if err := c.get(ctx, "/oauth/access_token", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPages lists the pages (with their tokens) the user token manages.
func (c *Client) ListPages(ctx context.Context, userToken string) ([]Page, error) {
	q := url.Values{}
	q.Set("fields", "id,name,access_token,category,perms")
	q.Set("access_token", userToken)
	var out struct {
		Data []Page `json:"data"`
	}
	if err := c.get(ctx, "/me/accounts", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetPageInfo fetches display metadata for a page.
func (c *Client) GetPageInfo(ctx context.Context, pageID, accessToken string) (*PageInfo, error) {
	q := url.Values{}
	q.Set("fields", "id,name,category")
	q.Set("access_token", accessToken)
	var out PageInfo
	if err := c.get(ctx, "/"+pageID, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage sends one outbound text message on behalf of a page.
// The raw upstream response body is returned for relay to the caller.
func (c *Client) SendMessage(ctx context.Context, pageToken, recipientID, text string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("access_token", pageToken)
	payload := map[string]interface{}{
		"recipient":      map[string]string{"id": recipientID},
		"messaging_type": "UPDATE",
		"message":        map[string]string{"text": text},
	}
	return c.post(ctx, "/me/messages", q, payload)
}

// ListConversations lists a page's conversation threads.
func (c *Client) ListConversations(ctx context.Context, pageID, pageToken string) ([]ConversationInfo, error) {
	q := url.Values{}
	q.Set("fields", "id,participants,updated_time")
	q.Set("access_token", pageToken)
	var out struct {
		Data []ConversationInfo `json:"data"`
	}
	if err := c.get(ctx, "/"+pageID+"/conversations", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListConversationMessages lists the messages of one thread, newest first.
func (c *Client) ListConversationMessages(ctx context.Context, conversationID, pageToken string, limit int) ([]ConversationMessage, error) {
	q := url.Values{}
	q.Set("fields", "id,message,from,created_time")
	q.Set("access_token", pageToken)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var out struct {
		Data []ConversationMessage `json:"data"`
	}
	if err := c.get(ctx, "/"+conversationID+"/messages", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// DeleteMessage deletes one platform message. The platform commonly
// disallows this; callers probe the first message before batching.
func (c *Client) DeleteMessage(ctx context.Context, messageID, pageToken string) error {
	q := url.Values{}
	q.Set("access_token", pageToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/"+messageID+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: body}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, q url.Values, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: body}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}
