package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/minechat-api/internal/domain"
	"github.com/minechat-api/internal/infrastructure/facebook"
	"github.com/minechat-api/internal/pkg/id"
)

const (
	// Backfill fan-out bounds for ConnectAndLoadChats.
	loadWorkers     = 4
	loadCallTimeout = 10 * time.Second
	loadPageSize    = 25
	// Hard deletion enumerates at most this many platform messages.
	deletePageSize = 100
)

// SendRequest pushes one outbound message to a platform recipient.
type SendRequest struct {
	PageID      string `json:"pageId" validate:"required"`
	RecipientID string `json:"recipientId" validate:"required"`
	Text        string `json:"text" validate:"required"`
}

// Deletion modes. Archival is the default; hard deletion additionally
// removes the platform-side messages.
const (
	DeleteTypeArchive = "archive"
	DeleteTypeHard    = "hard"
)

// DeleteRequest removes a conversation. Hard deletion is attempted only
// when the platform grants message deletion; otherwise the conversation
// is archived in place.
type DeleteRequest struct {
	AccountID      string `json:"accountId" validate:"required"`
	ConversationID string `json:"conversationId" validate:"required"`
	PageID         string `json:"pageId"`
	DeleteType     string `json:"deleteType" validate:"omitempty,oneof=archive hard"`
}

// ConnectRequest backfills an account's existing page conversations.
// PageID is optional; when absent the account's connected page is used.
type ConnectRequest struct {
	AccountID string `json:"accountId" validate:"required"`
	PageID    string `json:"pageId"`
}

// ConnectResult summarizes a backfill run. Failures of individual
// conversations reduce the loaded count but never fail the run.
type ConnectResult struct {
	PageID              string `json:"pageId"`
	PageName            string `json:"pageName"`
	ConversationsCount  int    `json:"conversationsCount"`
	ConversationsFailed int    `json:"conversationsFailed,omitempty"`
}

// MessageStore appends relayed messages.
type MessageStore interface {
	Append(ctx context.Context, m *domain.Message) error
}

// ConversationStore maintains per-account conversation aggregates.
type ConversationStore interface {
	Merge(ctx context.Context, accountID, conversationID string, sets map[string]interface{}, adds map[string]int) error
	Archive(ctx context.Context, accountID, conversationID string) error
	Delete(ctx context.Context, accountID, conversationID string) error
}

// AccountStore resolves accounts for webhook routing and page connection.
type AccountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByPageID(ctx context.Context, pageID string) (*domain.Account, error)
}

// PageTokenStore reads stored page credentials.
type PageTokenStore interface {
	Get(ctx context.Context, pageID string) (*domain.PageToken, error)
}

// Graph is the subset of the Graph API client the relay uses.
type Graph interface {
	SendMessage(ctx context.Context, pageToken, recipientID, text string) (json.RawMessage, error)
	GetPageInfo(ctx context.Context, pageID, accessToken string) (*facebook.PageInfo, error)
	ListConversations(ctx context.Context, pageID, pageToken string) ([]facebook.ConversationInfo, error)
	ListConversationMessages(ctx context.Context, conversationID, pageToken string, limit int) ([]facebook.ConversationMessage, error)
	DeleteMessage(ctx context.Context, messageID, pageToken string) error
}

// Archiver stores raw webhook payloads for replay and audit. May be nil.
type Archiver interface {
	StoreWebhookPayload(ctx context.Context, payload []byte) (string, error)
}

// Service relays platform messages in both directions and keeps the local
// message and conversation records in sync.
type Service interface {
	SendMessage(ctx context.Context, req SendRequest) (json.RawMessage, error)
	HandleWebhook(ctx context.Context, payload []byte) error
	DeleteConversation(ctx context.Context, req DeleteRequest) (string, error)
	ConnectAndLoadChats(ctx context.Context, req ConnectRequest) (*ConnectResult, error)
}

type service struct {
	messages      MessageStore
	conversations ConversationStore
	accounts      AccountStore
	tokens        PageTokenStore
	graph         Graph
	archive       Archiver
	now           func() time.Time
}

func NewService(messages MessageStore, conversations ConversationStore, accounts AccountStore, tokens PageTokenStore, graph Graph, archive Archiver) Service {
	return &service{
		messages:      messages,
		conversations: conversations,
		accounts:      accounts,
		tokens:        tokens,
		graph:         graph,
		archive:       archive,
		now:           time.Now,
	}
}

// pageToken loads the stored credential for a page. A missing or
// invalidated token is the caller's configuration problem, not an upstream
// failure, so it maps to a 400-class error.
func (s *service) pageToken(ctx context.Context, pageID string) (string, error) {
	rec, err := s.tokens.Get(ctx, pageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.Errorf(domain.ErrBadRequest, "No page access token stored for page %s", pageID)
		}
		return "", err
	}
	if !rec.IsValid {
		return "", domain.Errorf(domain.ErrBadRequest, "Stored page access token for page %s is invalid", pageID)
	}
	return rec.PageAccessToken, nil
}

func (s *service) SendMessage(ctx context.Context, req SendRequest) (json.RawMessage, error) {
	tok, err := s.pageToken(ctx, req.PageID)
	if err != nil {
		return nil, err
	}
	return s.graph.SendMessage(ctx, tok, req.RecipientID, req.Text)
}

// HandleWebhook ingests one delivery batch. Entries and events are processed
// independently: a failing event is logged and skipped so the batch is still
// acknowledged and the platform does not re-deliver it endlessly.
func (s *service) HandleWebhook(ctx context.Context, payload []byte) error {
	var body facebook.WebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.Errorf(domain.ErrBadRequest, "Invalid webhook payload")
	}
	if body.Object != "page" {
		return domain.Errorf(domain.ErrNotFound, "Unsupported webhook object")
	}

	if s.archive != nil {
		if key, err := s.archive.StoreWebhookPayload(ctx, payload); err != nil {
			slog.Warn("webhook archive failed", "err", err)
		} else {
			slog.Debug("webhook payload archived", "key", key)
		}
	}

	for _, entry := range body.Entry {
		for _, ev := range entry.Messaging {
			if err := s.ingestEvent(ctx, entry.ID, &ev); err != nil {
				slog.Error("webhook event ingest failed", "page_id", entry.ID, "err", err)
			}
		}
	}
	return nil
}

func (s *service) ingestEvent(ctx context.Context, pageID string, ev *facebook.MessagingEvent) error {
	// Delivery and read receipts carry no message; echoes are the page's
	// own outbound messages coming back around.
	if ev.Message == nil || ev.Message.IsEcho {
		return nil
	}
	if pageID == "" {
		pageID = ev.Recipient.ID
	}

	acct, err := s.accounts.GetByPageID(ctx, pageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("webhook for unlinked page", "page_id", pageID)
			return nil
		}
		return err
	}

	conversationID := ev.Message.ThreadID
	if conversationID == "" {
		conversationID = fmt.Sprintf("t_%s_%s", ev.Sender.ID, pageID)
	}

	// The platform does not include a display name in webhook events; the
	// contact keeps this placeholder until a connect backfill resolves it.
	senderName := fmt.Sprintf("Facebook User %s", ev.Sender.ID)

	now := s.now().UTC()
	msg := &domain.Message{
		AccountID:         acct.AccountID,
		MessageID:         id.New(),
		ConversationID:    conversationID,
		Text:              ev.Message.Text,
		IsFromUser:        true,
		Platform:          domain.PlatformFacebook,
		SenderID:          ev.Sender.ID,
		SenderName:        senderName,
		FacebookMessageID: ev.Message.MID,
		PageID:            pageID,
		CreatedAt:         now,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return err
	}

	return s.conversations.Merge(ctx, acct.AccountID, conversationID, map[string]interface{}{
		"contact_name": senderName,
		"last_message": ev.Message.Text,
		"last_update":  now,
		"platform":     domain.PlatformFacebook,
		"page_id":      pageID,
		"sender_id":    ev.Sender.ID,
		"updated_at":   now,
	}, map[string]int{
		"unread_count": 1,
	})
}

// DeleteConversation archives by default. A hard delete enumerates the
// platform-side messages and probes deletion permission on the first one:
// if the platform rejects it, the whole batch is aborted with an advisory
// and the local record stays intact, instead of leaving a half-deleted
// conversation behind. Returns the deletion mode that was applied.
func (s *service) DeleteConversation(ctx context.Context, req DeleteRequest) (string, error) {
	if req.DeleteType != DeleteTypeHard {
		return DeleteTypeArchive, s.conversations.Archive(ctx, req.AccountID, req.ConversationID)
	}
	if strings.TrimSpace(req.PageID) == "" {
		return "", domain.Errorf(domain.ErrBadRequest, "pageId is required for hard deletion")
	}
	tok, err := s.pageToken(ctx, req.PageID)
	if err != nil {
		return "", err
	}

	msgs, err := s.graph.ListConversationMessages(ctx, req.ConversationID, tok, deletePageSize)
	if err != nil {
		return "", err
	}
	if len(msgs) > 0 {
		if err := s.graph.DeleteMessage(ctx, msgs[0].ID, tok); err != nil {
			var apiErr *facebook.APIError
			if errors.As(err, &apiErr) {
				return "", domain.Errorf(domain.ErrForbidden,
					"The platform does not permit deleting messages in this conversation; archive it instead")
			}
			return "", err
		}
		var failed int
		for _, m := range msgs[1:] {
			if err := s.graph.DeleteMessage(ctx, m.ID, tok); err != nil {
				slog.Warn("platform message deletion failed", "message_id", m.ID, "err", err)
				failed++
			}
		}
		if failed > 0 {
			slog.Warn("hard delete left platform messages behind",
				"conversation_id", req.ConversationID, "failed", failed)
		}
	}
	return DeleteTypeHard, s.conversations.Delete(ctx, req.AccountID, req.ConversationID)
}

// ConnectAndLoadChats backfills a freshly connected page: list its
// conversations, then pull recent messages for each with a bounded worker
// pool. Each upstream call runs under its own timeout and each
// conversation's failure is isolated from the rest of the run.
func (s *service) ConnectAndLoadChats(ctx context.Context, req ConnectRequest) (*ConnectResult, error) {
	if strings.TrimSpace(req.PageID) == "" {
		acct, err := s.accounts.Get(ctx, req.AccountID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.Errorf(domain.ErrNotFound, "No account for this id")
			}
			return nil, err
		}
		if acct.FacebookPageID == "" {
			return nil, domain.Errorf(domain.ErrBadRequest, "No connected page for this account")
		}
		req.PageID = acct.FacebookPageID
	}
	tok, err := s.pageToken(ctx, req.PageID)
	if err != nil {
		return nil, err
	}
	res := ConnectResult{PageID: req.PageID}
	if info, err := s.graph.GetPageInfo(ctx, req.PageID, tok); err == nil {
		res.PageName = info.Name
	} else {
		slog.Warn("could not fetch page metadata", "page_id", req.PageID, "err", err)
	}

	convs, err := s.graph.ListConversations(ctx, req.PageID, tok)
	if err != nil {
		return nil, err
	}
	res.ConversationsCount = len(convs)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, loadWorkers)
	)
	for i := range convs {
		conv := &convs[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := s.loadConversation(ctx, req.AccountID, req.PageID, tok, conv); err != nil {
				slog.Error("conversation backfill failed", "conversation_id", conv.ID, "err", err)
				mu.Lock()
				res.ConversationsFailed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return &res, nil
}

func (s *service) loadConversation(ctx context.Context, accountID, pageID, pageToken string, conv *facebook.ConversationInfo) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, loadCallTimeout)
	defer cancel()

	msgs, err := s.graph.ListConversationMessages(callCtx, conv.ID, pageToken, loadPageSize)
	if err != nil {
		return 0, err
	}

	contactName, contactID := contact(conv, pageID)
	var lastText string
	var lastAt time.Time
	loaded := 0
	for i := range msgs {
		pm := &msgs[i]
		createdAt := s.now().UTC()
		if t, err := time.Parse(time.RFC3339, pm.CreatedTime); err == nil {
			createdAt = t.UTC()
		}
		msg := &domain.Message{
			AccountID:         accountID,
			MessageID:         id.New(),
			ConversationID:    conv.ID,
			Text:              pm.Message,
			IsFromUser:        pm.From.ID != pageID,
			Platform:          domain.PlatformFacebook,
			SenderID:          pm.From.ID,
			SenderName:        pm.From.Name,
			FacebookMessageID: pm.ID,
			PageID:            pageID,
			CreatedAt:         createdAt,
		}
		if err := s.messages.Append(ctx, msg); err != nil {
			return loaded, err
		}
		loaded++
		if createdAt.After(lastAt) {
			lastAt = createdAt
			lastText = pm.Message
		}
	}

	sets := map[string]interface{}{
		"contact_name": contactName,
		"platform":     domain.PlatformFacebook,
		"page_id":      pageID,
		"sender_id":    contactID,
		"updated_at":   s.now().UTC(),
	}
	if lastText != "" {
		sets["last_message"] = lastText
		sets["last_update"] = lastAt
	}
	if err := s.conversations.Merge(ctx, accountID, conv.ID, sets, nil); err != nil {
		return loaded, err
	}
	return loaded, nil
}

// contact picks the non-page participant of a platform conversation.
func contact(conv *facebook.ConversationInfo, pageID string) (name, participantID string) {
	for _, p := range conv.Participants.Data {
		if p.ID != pageID {
			return p.Name, p.ID
		}
	}
	return "", ""
}
