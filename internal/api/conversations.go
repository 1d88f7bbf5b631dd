package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/finchat/finchat/internal/conversation"
)

type createConversationRequest struct {
	Title string `json:"title"`
}

type renameConversationRequest struct {
	Title string `json:"title"`
}

func handleListConversations(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Conversations == nil {
		writeConversationsNotConfigured(w, r)
		return
	}
	items, err := deps.Conversations.ListConversations(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CONVERSATION_STORE_ERROR", "failed to list conversations", true, map[string]any{"details": err.Error()})
		return
	}
	if items == nil {
		items = []conversation.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": items})
}

func handleCreateConversation(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Conversations == nil {
		writeConversationsNotConfigured(w, r)
		return
	}
	var req createConversationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid create conversation request body", false, map[string]any{"details": err.Error()})
		return
	}
	created, err := deps.Conversations.CreateConversation(r.Context(), req.Title)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CONVERSATION_STORE_ERROR", "failed to create conversation", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func handleRenameConversation(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Conversations == nil {
		writeConversationsNotConfigured(w, r)
		return
	}
	id, ok := conversationIDFromPath(w, r)
	if !ok {
		return
	}
	var req renameConversationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid rename conversation request body", false, map[string]any{"details": err.Error()})
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TITLE_REQUIRED", "title is required", false, nil)
		return
	}
	if err := deps.Conversations.RenameConversation(r.Context(), id, title); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CONVERSATION_STORE_ERROR", "failed to rename conversation", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "renamed", "id": id, "title": title})
}

func handleDeleteConversation(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Conversations == nil {
		writeConversationsNotConfigured(w, r)
		return
	}
	id, ok := conversationIDFromPath(w, r)
	if !ok {
		return
	}
	if err := deps.Conversations.SoftDeleteConversation(r.Context(), id); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CONVERSATION_STORE_ERROR", "failed to delete conversation", true, map[string]any{"details": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleListMessages(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Conversations == nil {
		writeConversationsNotConfigured(w, r)
		return
	}
	id, ok := conversationIDFromPath(w, r)
	if !ok {
		return
	}
	messages, err := deps.Conversations.ListMessages(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CONVERSATION_STORE_ERROR", "failed to list messages", true, map[string]any{"details": err.Error()})
		return
	}
	if messages == nil {
		messages = []conversation.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id,
		"messages":        messages,
	})
}

func conversationIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CONVERSATION_ID", "conversation id must be a positive integer", false, map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}

func writeConversationsNotConfigured(w http.ResponseWriter, r *http.Request) {
	writeError(r.Context(), w, http.StatusNotImplemented, "CONVERSATIONS_NOT_CONFIGURED", "conversation store is not configured", false, nil)
}
