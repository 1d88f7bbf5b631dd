package finchatctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	BaseURL     string
	APIKey      string
	AccountType string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Stdout      io.Writer
	Stderr      io.Writer
}

type request struct {
	method string
	path   string
	body   any
}

var errUsage = errors.New("usage")

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("finchatctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "FinChat API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	accountType := fs.String("account-type", firstNonEmpty(defaults.AccountType, "conta-corrente"), "account type used by ask")
	conversationID := fs.Int64("conversation", 0, "conversation id to append to (ask)")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 2*time.Minute), "HTTP timeout (e.g. 90s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	req, err := buildRequest(command, fs.Args()[1:], *accountType, *conversationID)
	if err != nil {
		if !errors.Is(err, errUsage) {
			_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		}
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + req.path
	code, responseBody, err := doRequest(ctx, client, req, endpoint, *apiKey)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if command == "ask" {
		if text, ok := narrativeText(responseBody); ok {
			_, _ = fmt.Fprintln(stdout, text)
			return 0
		}
	}
	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func buildRequest(command string, args []string, accountType string, conversationID int64) (request, error) {
	switch command {
	case "health":
		return request{method: http.MethodGet, path: "/v1/health"}, nil
	case "ready":
		return request{method: http.MethodGet, path: "/v1/ready"}, nil
	case "account-types":
		return request{method: http.MethodGet, path: "/v1/account-types"}, nil
	case "conversations":
		return request{method: http.MethodGet, path: "/v1/conversations"}, nil
	case "new":
		return request{method: http.MethodPost, path: "/v1/conversations", body: map[string]any{"title": strings.Join(args, " ")}}, nil
	case "ask":
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return request{}, fmt.Errorf("ask requires a question")
		}
		body := map[string]any{"question": question, "account_type": accountType}
		if conversationID > 0 {
			body["conversation_id"] = conversationID
		}
		return request{method: http.MethodPost, path: "/v1/ask", body: body}, nil
	case "messages":
		id, err := conversationArg(command, args)
		if err != nil {
			return request{}, err
		}
		return request{method: http.MethodGet, path: fmt.Sprintf("/v1/conversations/%d/messages", id)}, nil
	case "rename":
		id, err := conversationArg(command, args)
		if err != nil {
			return request{}, err
		}
		title := strings.TrimSpace(strings.Join(args[1:], " "))
		if title == "" {
			return request{}, fmt.Errorf("rename requires a title")
		}
		return request{method: http.MethodPatch, path: fmt.Sprintf("/v1/conversations/%d", id), body: map[string]any{"title": title}}, nil
	case "delete":
		id, err := conversationArg(command, args)
		if err != nil {
			return request{}, err
		}
		return request{method: http.MethodDelete, path: fmt.Sprintf("/v1/conversations/%d", id)}, nil
	case "help":
		return request{}, errUsage
	default:
		return request{}, fmt.Errorf("unknown command %q", command)
	}
}

func conversationArg(command string, args []string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%s requires a conversation id", command)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid conversation id %q", args[0])
	}
	return id, nil
}

func doRequest(ctx context.Context, client *http.Client, in request, url, apiKey string) (int, []byte, error) {
	var body io.Reader
	if in.body != nil {
		raw, err := json.Marshal(in.body)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, in.method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

// narrativeText renders an ask answer the way a chat reader sees it.
func narrativeText(raw []byte) (string, bool) {
	var answer struct {
		GeneratedQuery string `json:"generated_query"`
		NarrativeText  string `json:"narrative_text"`
		ConversationID int64  `json:"conversation_id"`
	}
	if err := json.Unmarshal(raw, &answer); err != nil || answer.NarrativeText == "" {
		return "", false
	}
	return fmt.Sprintf("%s\n\n-- conversa %d\n-- %s", answer.NarrativeText, answer.ConversationID, answer.GeneratedQuery), true
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: finchatctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                 GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                  GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  account-types          GET /v1/account-types")
	_, _ = fmt.Fprintln(w, "  ask <question>         POST /v1/ask")
	_, _ = fmt.Fprintln(w, "  conversations          GET /v1/conversations")
	_, _ = fmt.Fprintln(w, "  new [title]            POST /v1/conversations")
	_, _ = fmt.Fprintln(w, "  messages <id>          GET /v1/conversations/{id}/messages")
	_, _ = fmt.Fprintln(w, "  rename <id> <title>    PATCH /v1/conversations/{id}")
	_, _ = fmt.Fprintln(w, "  delete <id>            DELETE /v1/conversations/{id}")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
