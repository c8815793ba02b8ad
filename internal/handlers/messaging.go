package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bloomdoula/bloom-be/internal/messaging"
	"github.com/bloomdoula/bloom-be/internal/models"
	"github.com/bloomdoula/bloom-be/internal/realtime"
	"github.com/bloomdoula/bloom-be/internal/store"
)

type MessagingHandler struct {
	DB   *gorm.DB
	Hub  *realtime.Hub
	RDB  *redis.Client
	Auth *messaging.Authorizer
}

func NewMessagingHandler(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client) *MessagingHandler {
	return &MessagingHandler{
		DB:   db,
		Hub:  hub,
		RDB:  rdb,
		Auth: messaging.NewAuthorizer(store.NewConversationStore(db)),
	}
}

// MessageResponse is the wire shape of one message.
type MessageResponse struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	SenderUserID   *string         `json:"sender_user_id,omitempty"`
	SenderClientID *string         `json:"sender_client_id,omitempty"`
	Type           string          `json:"type"`
	Text           string          `json:"text"`
	Attachments    json.RawMessage `json:"attachments,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toMessageResponse(m models.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		Type:           m.Type,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
	if m.SenderUserID != nil {
		s := m.SenderUserID.String()
		resp.SenderUserID = &s
	}
	if m.SenderClientID != nil {
		s := m.SenderClientID.String()
		resp.SenderClientID = &s
	}
	if len(m.Attachments) > 0 {
		resp.Attachments = json.RawMessage(m.Attachments)
	}
	return resp
}

// ConversationOut is one row of a conversation listing.
type ConversationOut struct {
	ID            string           `json:"id"`
	Type          string           `json:"conversation_type"`
	ClientID      *string          `json:"client_id,omitempty"`
	Status        string           `json:"status"`
	Title         string           `json:"title"`
	LastMessageAt time.Time        `json:"last_message_at"`
	UnreadCount   int              `json:"unread_count"`
	LastMessage   *MessageResponse `json:"last_message,omitempty"`
}

type StartConversationRequest struct {
	ClientID    *string  `json:"client_id"`
	StaffIDs    []string `json:"staff_ids"`
	TeamOnly    bool     `json:"team_only"`
	AboutClient bool     `json:"about_client"` // client discussed without being present
	Title       string   `json:"title"`
}

// StartConversation opens a new thread. Staff-initiated only; the type is
// derived from the request flags.
func (h *MessagingHandler) StartConversation(c *fiber.Ctx) error {
	caller := callerFromCtx(c)

	var req StartConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request",
		})
	}

	var clientUUID *uuid.UUID
	if req.ClientID != nil {
		parsed, err := uuid.Parse(*req.ClientID)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Invalid client ID",
			})
		}
		clientUUID = &parsed
	}

	staffIDs := make([]uuid.UUID, 0, len(req.StaffIDs))
	for _, raw := range req.StaffIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Invalid staff ID",
			})
		}
		staffIDs = append(staffIDs, id)
	}

	// Resolve who the thread is opened with for the start check.
	targetKind := messaging.TargetUser
	var targetID uuid.UUID
	if clientUUID != nil && !req.TeamOnly {
		targetKind = messaging.TargetClient
		targetID = *clientUUID
	} else if len(staffIDs) > 0 {
		targetID = staffIDs[0]
	}

	if !h.Auth.CanStartConversationWith(caller, targetID, targetKind) {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}
	staff := caller.(messaging.StaffCaller)

	convType := messaging.ClassifyConversation(clientUUID != nil, req.TeamOnly, req.AboutClient)
	switch convType {
	case messaging.TypeClientDirect, messaging.TypeTeamAboutClient:
		if clientUUID == nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "client_id is required for this conversation",
			})
		}
		var client models.Client
		if err := h.DB.First(&client, "id = ?", *clientUUID).Error; err != nil {
			return c.Status(404).JSON(fiber.Map{
				"success": false,
				"message": "Client not found",
			})
		}
	default:
		clientUUID = nil
	}

	creatorID := staff.ID
	conv := models.Conversation{
		Type:          convType,
		ClientID:      clientUUID,
		Status:        messaging.StatusActive,
		Title:         req.Title,
		CreatedByID:   &creatorID,
		LastMessageAt: time.Now(),
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}

		seen := map[uuid.UUID]bool{staff.ID: true}
		participants := []models.ConversationParticipant{
			{ConversationID: conv.ID, UserID: &creatorID},
		}
		for _, id := range staffIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			userID := id
			participants = append(participants, models.ConversationParticipant{
				ConversationID: conv.ID,
				UserID:         &userID,
			})
		}
		if conv.Type.VisibleToClients() && clientUUID != nil {
			participants = append(participants, models.ConversationParticipant{
				ConversationID: conv.ID,
				ClientID:       clientUUID,
			})
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		log.Println("Error creating conversation:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create conversation",
		})
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    conv,
	})
}

// ListConversations returns the page of threads the caller may see.
func (h *MessagingHandler) ListConversations(c *fiber.Ctx) error {
	caller := callerFromCtx(c)

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	status := messaging.ConversationStatus(c.Query("status"))

	res, err := h.Auth.AccessibleConversations(c.Context(), caller, messaging.ListOptions{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Println("Error fetching conversations:", err)
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to fetch conversations"})
	}

	out := make([]ConversationOut, 0, len(res.Conversations))
	for _, conv := range res.Conversations {
		row := ConversationOut{
			ID:            conv.ID.String(),
			Type:          string(conv.Type),
			Status:        string(conv.Status),
			Title:         conv.Title,
			LastMessageAt: conv.LastMessageAt,
		}
		if conv.ClientID != nil {
			s := conv.ClientID.String()
			row.ClientID = &s
		}

		// unread_count from the caller's participant row, when one exists
		var participant models.ConversationParticipant
		if err := h.participantQuery(caller, conv.ID).First(&participant).Error; err == nil {
			row.UnreadCount = participant.UnreadCount
		}

		// last_message preview
		var last models.Message
		if err := h.DB.
			Where("conversation_id = ?", conv.ID).
			Order("created_at DESC").
			Limit(1).
			First(&last).Error; err == nil {
			resp := toMessageResponse(last)
			row.LastMessage = &resp
		}

		out = append(out, row)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
		"total":   res.Total,
	})
}

// GetMessages returns a conversation's messages and marks it read for the
// caller.
func (h *MessagingHandler) GetMessages(c *fiber.Ctx) error {
	caller := callerFromCtx(c)

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	if !h.Auth.CanViewConversation(c.Context(), caller, convUUID) {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	var msgs []models.Message
	if err := h.DB.
		Where("conversation_id = ?", convUUID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		log.Println("Error fetching messages:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch messages",
		})
	}

	h.markRead(caller, convUUID)

	responses := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		responses = append(responses, toMessageResponse(msg))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    responses,
	})
}

type SendMessageRequest struct {
	Text        string          `json:"text"`
	Attachments json.RawMessage `json:"attachments"`
}

// SendMessage posts to a conversation. Closed and archived threads reject
// everyone; the authorizer owns that gate.
func (h *MessagingHandler) SendMessage(c *fiber.Ctx) error {
	caller := callerFromCtx(c)

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Text is required",
		})
	}

	if !h.Auth.CanSendMessage(c.Context(), caller, convUUID) {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	msg := models.Message{
		ConversationID: convUUID,
		Type:           "text",
		Text:           req.Text,
	}
	if len(req.Attachments) > 0 {
		msg.Attachments = datatypes.JSON(req.Attachments)
	}
	switch sender := caller.(type) {
	case messaging.StaffCaller:
		id := sender.ID
		msg.SenderUserID = &id
	case messaging.ClientCaller:
		id := sender.ClientID
		msg.SenderClientID = &id
	}

	if err := h.DB.Create(&msg).Error; err != nil {
		log.Println("Error creating message:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to send message",
		})
	}

	// Atomic counter bump for every participant except the sender; plain
	// read-modify-write would lose updates under concurrent sends.
	unread := h.DB.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", convUUID)
	switch sender := caller.(type) {
	case messaging.StaffCaller:
		unread = unread.Where("user_id IS NULL OR user_id <> ?", sender.ID)
	case messaging.ClientCaller:
		unread = unread.Where("client_id IS NULL OR client_id <> ?", sender.ClientID)
	}
	if err := unread.UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error; err != nil {
		log.Println("Error bumping unread counters:", err)
	}

	_ = h.DB.Model(&models.Conversation{}).
		Where("id = ?", convUUID).
		Update("last_message_at", msg.CreatedAt).Error

	msgResp := toMessageResponse(msg)
	h.notifyParticipants(c.Context(), caller, convUUID, msgResp)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    msgResp,
	})
}

// DeleteMessage removes one message: authors their own, admins anyone's.
func (h *MessagingHandler) DeleteMessage(c *fiber.Ctx) error {
	caller := callerFromCtx(c)

	msgUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid message ID",
		})
	}

	var msg models.Message
	if err := h.DB.First(&msg, "id = ?", msgUUID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Message not found",
		})
	}

	if !h.Auth.CanDeleteMessage(caller, msg.AuthzView()) {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	if err := h.DB.Delete(&msg).Error; err != nil {
		log.Println("Error deleting message:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete message",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// MarkAsRead clears the caller's unread state on the conversation.
func (h *MessagingHandler) MarkAsRead(c *fiber.Ctx) error {
	caller := callerFromCtx(c)

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	if !h.Auth.CanViewConversation(c.Context(), caller, convUUID) {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	if err := h.markRead(caller, convUUID); err != nil {
		log.Println("Error marking conversation as read:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to mark as read",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// GetUnreadTotal sums the caller's unread counters across conversations.
func (h *MessagingHandler) GetUnreadTotal(c *fiber.Ctx) error {
	caller := callerFromCtx(c)

	q := h.DB.Model(&models.ConversationParticipant{})
	switch actor := caller.(type) {
	case messaging.StaffCaller:
		q = q.Where("user_id = ?", actor.ID)
	case messaging.ClientCaller:
		q = q.Where("client_id = ?", actor.ClientID)
	default:
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var total int64
	if err := q.Select("COALESCE(SUM(unread_count), 0)").Scan(&total).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "message": "Failed to count unread messages"})
	}

	return c.JSON(fiber.Map{"success": true, "data": total})
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus closes, archives, or reopens a conversation. The route is
// additionally gated on the update capability.
func (h *MessagingHandler) UpdateStatus(c *fiber.Ctx) error {
	caller := callerFromCtx(c)

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid conversation ID",
		})
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request",
		})
	}

	status := messaging.ConversationStatus(req.Status)
	switch status {
	case messaging.StatusActive, messaging.StatusClosed, messaging.StatusArchived:
	default:
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid status",
		})
	}

	if !h.Auth.CanViewConversation(c.Context(), caller, convUUID) {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	if err := h.DB.Model(&models.Conversation{}).
		Where("id = ?", convUUID).
		Update("status", status).Error; err != nil {
		log.Println("Error updating conversation status:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update status",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// participantQuery scopes participant rows to the caller's identity column.
func (h *MessagingHandler) participantQuery(caller messaging.Caller, convID uuid.UUID) *gorm.DB {
	q := h.DB.Model(&models.ConversationParticipant{}).Where("conversation_id = ?", convID)
	switch actor := caller.(type) {
	case messaging.StaffCaller:
		return q.Where("user_id = ?", actor.ID)
	case messaging.ClientCaller:
		return q.Where("client_id = ?", actor.ClientID)
	default:
		return q.Where("1 = 0")
	}
}

func (h *MessagingHandler) markRead(caller messaging.Caller, convID uuid.UUID) error {
	return h.participantQuery(caller, convID).
		Updates(map[string]interface{}{
			"unread_count": 0,
			"last_read_at": time.Now(),
		}).Error
}

// notifyParticipants fans a new message out over the hub and Redis to every
// participant except the sender.
func (h *MessagingHandler) notifyParticipants(ctx context.Context, sender messaging.Caller, convID uuid.UUID, msg MessageResponse) {
	var participants []models.ConversationParticipant
	if err := h.DB.Where("conversation_id = ?", convID).Find(&participants).Error; err != nil {
		log.Println("Error loading participants for broadcast:", err)
		return
	}

	payload := fiber.Map{
		"type":    "new_message",
		"message": msg,
	}

	var recipients []realtime.ActorKey
	var channels []string
	for _, p := range participants {
		switch {
		case p.UserID != nil:
			if s, ok := sender.(messaging.StaffCaller); ok && s.ID == *p.UserID {
				continue
			}
			recipients = append(recipients, realtime.StaffKey(*p.UserID))
			channels = append(channels, "notifications:user:"+p.UserID.String())
		case p.ClientID != nil:
			if s, ok := sender.(messaging.ClientCaller); ok && s.ClientID == *p.ClientID {
				continue
			}
			recipients = append(recipients, realtime.ClientKey(*p.ClientID))
			channels = append(channels, "notifications:client:"+p.ClientID.String())
		}
	}

	h.Hub.SendToActors(recipients, payload)

	notif, err := json.Marshal(fiber.Map{
		"type":            "chat_message",
		"conversation_id": convID.String(),
		"message_id":      msg.ID,
		"text":            msg.Text,
	})
	if err != nil {
		return
	}
	for _, ch := range channels {
		h.RDB.Publish(ctx, ch, notif)
	}
}
