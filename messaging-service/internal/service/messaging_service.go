package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campusmarket/marketplace/messaging-service/internal/audit"
	"github.com/campusmarket/marketplace/messaging-service/internal/cache"
	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/messaging-service/internal/notification"
	"github.com/campusmarket/marketplace/messaging-service/internal/repository"
	"github.com/campusmarket/marketplace/pkg/log"
)

// unknownSender is shown for senders without a profile.
const unknownSender = "Unknown User"

// messagingServiceImpl implements MessagingService interface.
type messagingServiceImpl struct {
	convs      repository.ConversationRepository
	msgs       repository.MessageRepository
	users      repository.UserRepository
	resolver   ConversationResolver
	convCache  cache.ConversationCache
	cacheTTL   time.Duration
	dispatcher notification.Dispatcher

	invalidated invalidations
}

// invalidations counts conversation cache invalidations, striped over a fixed
// set of counters. A cache fill that overlaps an invalidation is discarded.
type invalidations [64]atomic.Uint64

func (v *invalidations) slot(conversationID string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return &v[h.Sum32()%uint32(len(v))]
}

// NewMessagingService creates a new messaging service.
func NewMessagingService(
	convs repository.ConversationRepository,
	msgs repository.MessageRepository,
	users repository.UserRepository,
	resolver ConversationResolver,
	convCache cache.ConversationCache,
	cacheTTL time.Duration,
	dispatcher notification.Dispatcher,
) MessagingService {
	if convCache == nil {
		convCache = cache.NoopCache{}
	}
	if dispatcher == nil {
		dispatcher = notification.NoopDispatcher{}
	}
	return &messagingServiceImpl{
		convs:      convs,
		msgs:       msgs,
		users:      users,
		resolver:   resolver,
		convCache:  convCache,
		cacheTTL:   cacheTTL,
		dispatcher: dispatcher,
	}
}

// SendMessage posts a message into an existing conversation.
func (s *messagingServiceImpl) SendMessage(ctx context.Context, conversationID, senderID string, req *domain.SendMessageRequest) (*domain.MessageResponse, error) {
	conv, err := s.authorize(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}
	return s.send(ctx, conv, senderID, req.Content)
}

// SendMessageToListing resolves (or starts) the buyer's conversation about a
// listing and posts into it. Content is checked before anything is created.
func (s *messagingServiceImpl) SendMessageToListing(ctx context.Context, buyerID string, req *domain.SendToListingRequest) (*domain.MessageResponse, error) {
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}

	conv, _, err := s.resolver.GetOrCreate(ctx, req.ListingID, buyerID)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, conv, buyerID, req.Content)
}

func (s *messagingServiceImpl) send(ctx context.Context, conv *domain.Conversation, senderID, content string) (*domain.MessageResponse, error) {
	l := log.Ctx(ctx)

	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.msgs.Append(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("send message: %w", err)
	}
	conv.UpdatedAt = msg.CreatedAt

	s.invalidated.slot(conv.ID).Add(1)
	if err := s.convCache.DeleteConversation(ctx, conv.ID); err != nil {
		l.Warn().Err(err).Str(log.FieldConversationID, conv.ID).Msg("cache delete error")
	}

	audit.LogTarget(ctx, audit.ActionSendMessage, senderID, conv.ID, "message sent")

	if err := s.dispatcher.Dispatch(ctx, domain.NewMessageSentEvent(conv, msg)); err != nil {
		l.Warn().Err(err).
			Str(log.FieldConversationID, conv.ID).
			Str(log.FieldMessageID, msg.ID).
			Msg("failed to dispatch message notification")
	}

	names := s.participantNames(ctx, conv)
	resp := msg.ToResponse(names.of(senderID))
	return &resp, nil
}

// GetMessages returns the full history of a conversation, oldest first.
func (s *messagingServiceImpl) GetMessages(ctx context.Context, conversationID, userID string) ([]domain.MessageResponse, error) {
	conv, err := s.authorize(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.msgs.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	names := s.participantNames(ctx, conv)
	out := make([]domain.MessageResponse, len(msgs))
	for i := range msgs {
		out[i] = msgs[i].ToResponse(names.of(msgs[i].SenderID))
	}
	return out, nil
}

// GetConversation returns a conversation with its messages and the caller's unread count.
func (s *messagingServiceImpl) GetConversation(ctx context.Context, conversationID, userID string) (*domain.ConversationDetailResponse, error) {
	conv, err := s.authorize(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, conv, userID)
}

// GetConversationForListing returns the caller's conversation about a listing,
// creating it when it does not exist yet.
func (s *messagingServiceImpl) GetConversationForListing(ctx context.Context, listingID, userID string) (*domain.ConversationDetailResponse, error) {
	conv, _, err := s.resolver.GetOrCreate(ctx, listingID, userID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, conv, userID)
}

func (s *messagingServiceImpl) detail(ctx context.Context, conv *domain.Conversation, userID string) (*domain.ConversationDetailResponse, error) {
	var (
		msgs   []domain.Message
		unread int64
		names  participantNames
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		msgs, err = s.msgs.ListByConversation(gctx, conv.ID)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = s.msgs.CountUnread(gctx, conv.ID, userID)
		return err
	})
	g.Go(func() error {
		names = s.participantNames(gctx, conv)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &domain.ConversationDetailResponse{
		ConversationResponse: names.decorate(conv.ToResponse()),
		Messages:             make([]domain.MessageResponse, len(msgs)),
	}
	resp.UnreadCount = unread
	for i := range msgs {
		resp.Messages[i] = msgs[i].ToResponse(names.of(msgs[i].SenderID))
	}
	if n := len(resp.Messages); n > 0 {
		last := resp.Messages[n-1]
		resp.LastMessage = &last
		// A cached conversation can lag behind the newest message.
		if last.CreatedAt.After(resp.UpdatedAt) {
			resp.UpdatedAt = last.CreatedAt
		}
	}
	return resp, nil
}

// GetUserConversations lists the caller's conversations, most recently active
// first, each with its last message and the caller's unread count.
func (s *messagingServiceImpl) GetUserConversations(ctx context.Context, userID string) ([]domain.ConversationResponse, error) {
	convs, err := s.convs.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []domain.ConversationResponse{}, nil
	}

	ids := make([]string, len(convs))
	userSet := make(map[string]struct{}, len(convs)+1)
	for i := range convs {
		ids[i] = convs[i].ID
		userSet[convs[i].BuyerID] = struct{}{}
		userSet[convs[i].SellerID] = struct{}{}
	}
	userIDs := make([]string, 0, len(userSet))
	for id := range userSet {
		userIDs = append(userIDs, id)
	}

	var (
		latest   map[string]domain.Message
		unread   map[string]int64
		profiles map[string]*domain.UserProfile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		latest, err = s.msgs.LatestByConversations(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = s.msgs.CountUnreadByConversations(gctx, ids, userID)
		return err
	})
	g.Go(func() error {
		profiles = s.loadProfiles(gctx, userIDs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.ConversationResponse, len(convs))
	for i := range convs {
		conv := &convs[i]
		names := participantNames{buyer: profiles[conv.BuyerID], seller: profiles[conv.SellerID], conv: conv}
		resp := names.decorate(conv.ToResponse())
		resp.UnreadCount = unread[conv.ID]
		if msg, ok := latest[conv.ID]; ok {
			last := msg.ToResponse(names.of(msg.SenderID))
			resp.LastMessage = &last
		}
		out[i] = resp
	}
	return out, nil
}

// GetUnreadCount counts messages in a conversation the caller has not read.
func (s *messagingServiceImpl) GetUnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	conv, err := s.authorize(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	return s.msgs.CountUnread(ctx, conv.ID, userID)
}

// GetTotalUnreadCount counts unread messages across all of the caller's conversations.
func (s *messagingServiceImpl) GetTotalUnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.msgs.CountUnreadForUser(ctx, userID)
}

// MarkMessagesAsRead marks every message from the other participant as read.
func (s *messagingServiceImpl) MarkMessagesAsRead(ctx context.Context, conversationID, userID string) (int64, error) {
	conv, err := s.authorize(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}

	changed, err := s.msgs.MarkConversationRead(ctx, conv.ID, userID)
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		audit.LogWithDetail(ctx, audit.ActionReadConversation, userID, conv.ID, strconv.FormatInt(changed, 10), "conversation marked read")
	}
	return changed, nil
}

// MarkMessageAsRead marks one message as read. Marking your own message or an
// already-read message succeeds without changing anything.
func (s *messagingServiceImpl) MarkMessageAsRead(ctx context.Context, messageID, userID string) error {
	msg, err := s.msgs.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	if _, err := s.authorize(ctx, msg.ConversationID, userID); err != nil {
		return err
	}

	changed, err := s.msgs.MarkRead(ctx, msg.ID, userID)
	if err != nil {
		return err
	}
	if changed > 0 {
		audit.LogTarget(ctx, audit.ActionReadMessage, userID, msg.ID, "message marked read")
	}
	return nil
}

// authorize loads a conversation and checks that userID takes part in it.
func (s *messagingServiceImpl) authorize(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		l := log.Ctx(ctx)
		l.Warn().Str(log.FieldConversationID, conversationID).Str(log.FieldUserID, userID).Msg("non-participant access denied")
		return nil, ErrNotParticipant
	}
	return conv, nil
}

func (s *messagingServiceImpl) loadConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	l := log.Ctx(ctx)

	cached, err := s.convCache.GetConversation(ctx, conversationID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Msg("cache get error")
	}

	epoch := s.invalidated.slot(conversationID).Load()
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	// Store in cache (async to avoid blocking response)
	snapshot := *conv
	go s.fillConversation(&snapshot, epoch)

	return conv, nil
}

// fillConversation caches a row read at the given invalidation epoch. A send
// invalidates before deleting, so a fill landing after that delete sees the
// new epoch and removes its own entry.
func (s *messagingServiceImpl) fillConversation(conv *domain.Conversation, epoch uint64) {
	counter := s.invalidated.slot(conv.ID)
	if counter.Load() != epoch {
		return
	}

	cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	l := log.L()
	if err := s.convCache.SetConversation(cacheCtx, conv, s.cacheTTL); err != nil {
		l.Warn().Err(err).Msg("cache set error")
		return
	}
	if counter.Load() != epoch {
		if err := s.convCache.DeleteConversation(cacheCtx, conv.ID); err != nil {
			l.Warn().Err(err).Str(log.FieldConversationID, conv.ID).Msg("cache delete error")
		}
	}
}

func (s *messagingServiceImpl) participantNames(ctx context.Context, conv *domain.Conversation) participantNames {
	profiles := s.loadProfiles(ctx, []string{conv.BuyerID, conv.SellerID})
	return participantNames{buyer: profiles[conv.BuyerID], seller: profiles[conv.SellerID], conv: conv}
}

// loadProfiles never fails; missing profiles fall back to placeholder names.
func (s *messagingServiceImpl) loadProfiles(ctx context.Context, ids []string) map[string]*domain.UserProfile {
	if s.users == nil {
		return map[string]*domain.UserProfile{}
	}
	profiles, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to load participant profiles")
		return map[string]*domain.UserProfile{}
	}
	return profiles
}

type participantNames struct {
	conv   *domain.Conversation
	buyer  *domain.UserProfile
	seller *domain.UserProfile
}

func (p participantNames) of(userID string) string {
	switch userID {
	case p.conv.BuyerID:
		return p.buyer.DisplayName(unknownSender)
	case p.conv.SellerID:
		return p.seller.DisplayName(unknownSender)
	default:
		return unknownSender
	}
}

func (p participantNames) decorate(resp domain.ConversationResponse) domain.ConversationResponse {
	if p.buyer != nil {
		resp.Buyer = p.buyer.ToSummary()
	}
	if p.seller != nil {
		resp.Seller = p.seller.ToSummary()
	}
	return resp
}

func validateContent(content string) error {
	if err := domain.ValidateContent(content); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidContent, err)
	}
	return nil
}
