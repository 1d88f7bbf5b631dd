package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/finchat/finchat/internal/conversation"
	"github.com/finchat/finchat/internal/pipeline"
	"github.com/finchat/finchat/internal/schema"
)

type askRequest struct {
	Question       string `json:"question"`
	AccountType    string `json:"account_type"`
	ConversationID *int64 `json:"conversation_id"`
}

type askResponse struct {
	GeneratedQuery string          `json:"generated_query"`
	Columns        []string        `json:"columns"`
	Rows           json.RawMessage `json:"rows"`
	ChartSpec      any             `json:"chart_spec"`
	NarrativeText  string          `json:"narrative_text"`
	ConversationID int64           `json:"conversation_id"`
}

var stageErrorCodes = map[string]string{
	pipeline.StageQuery:     "QUERY_SYNTHESIS_FAILED",
	pipeline.StageWarehouse: "WAREHOUSE_QUERY_FAILED",
	pipeline.StageNarrative: "NARRATIVE_SYNTHESIS_FAILED",
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return
	}
	if deps.Conversations == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CONVERSATIONS_NOT_CONFIGURED", "conversation store is not configured", false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	question := strings.TrimSpace(request.Question)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	accountType, err := schema.ParseAccountType(request.AccountType)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ACCOUNT_TYPE", err.Error(), false, nil)
		return
	}
	if request.ConversationID != nil && *request.ConversationID <= 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CONVERSATION_ID", "conversation_id must be positive", false, nil)
		return
	}

	result, err := deps.Pipeline.Run(r.Context(), question, accountType)
	if err != nil {
		writePipelineError(r.Context(), w, err)
		return
	}

	conversationID, err := persistTurn(r.Context(), deps.Conversations, request.ConversationID, question, result)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "persist conversation turn failed", "error", err)
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "PERSISTENCE_FAILED", "failed to store conversation turn", true, map[string]any{"details": err.Error()})
		return
	}

	columns := result.Rows.Columns
	if columns == nil {
		columns = []string{}
	}
	var chartSpec any = map[string]any{}
	if result.Chart != nil {
		chartSpec = result.Chart
	}
	writeJSON(w, http.StatusOK, askResponse{
		GeneratedQuery: result.GeneratedQuery,
		Columns:        columns,
		Rows:           json.RawMessage(result.Rows.PromptText()),
		ChartSpec:      chartSpec,
		NarrativeText:  result.Narrative,
		ConversationID: conversationID,
	})
}

// persistTurn stores the question and the answer in order, opening a new
// conversation when none is given.
func persistTurn(ctx context.Context, store conversation.Store, conversationID *int64, question string, result pipeline.Result) (int64, error) {
	var id int64
	if conversationID != nil {
		id = *conversationID
	} else {
		created, err := store.CreateConversation(ctx, conversation.DefaultTitle(question))
		if err != nil {
			return 0, err
		}
		id = created.ID
	}
	if _, err := store.AddMessage(ctx, conversation.NewMessage{
		ConversationID: id,
		Sender:         conversation.SenderUser,
		Content:        question,
	}); err != nil {
		return 0, err
	}
	if _, err := store.AddMessage(ctx, conversation.NewMessage{
		ConversationID: id,
		Sender:         conversation.SenderAI,
		Content:        result.Narrative,
		Chart:          result.Chart,
	}); err != nil {
		return 0, err
	}
	return id, nil
}

func writePipelineError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schema.ErrUnsupportedAccountType):
		writeError(ctx, w, http.StatusNotImplemented, "ACCOUNT_TYPE_NOT_IMPLEMENTED", "account type is not implemented yet", false, map[string]any{"details": err.Error()})
		return
	case errors.Is(err, schema.ErrInvalidAccountType):
		writeError(ctx, w, http.StatusBadRequest, "INVALID_ACCOUNT_TYPE", err.Error(), false, nil)
		return
	}

	extra := map[string]any{"details": err.Error()}
	code := "PIPELINE_FAILED"
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		extra["stage"] = stageErr.Stage
		if stageCode, ok := stageErrorCodes[stageErr.Stage]; ok {
			code = stageCode
		}
	}
	retryable := errors.Is(err, context.DeadlineExceeded)
	writeError(ctx, w, http.StatusInternalServerError, code, "failed to answer question", retryable, extra)
}
