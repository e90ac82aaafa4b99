// Package handler adapts API Gateway proxy events to the call engine and
// the vault API. Voice webhook routes always answer 200 with a markup
// document; JSON routes map usecase error codes to HTTP statuses.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"contact-vault/internal/domain"
	"contact-vault/internal/twiml"
	"contact-vault/internal/usecase"
)

// voiceErrorDocument is the static fallback when markup serialization
// itself fails; the caller is never left without a response.
const voiceErrorDocument = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<Response><Say>A system error occurred. Goodbye.</Say><Hangup/></Response>`

// voiceEvents maps webhook paths to the call engine event they carry.
var voiceEvents = map[string]usecase.EventKind{
	usecase.PathAnswer:        usecase.EventAnswer,
	usecase.PathMenu:          usecase.EventMenu,
	usecase.PathPhone:         usecase.EventPhone,
	usecase.PathPin:           usecase.EventPin,
	usecase.PathSearch:        usecase.EventSearch,
	usecase.PathSelect:        usecase.EventSelect,
	usecase.PathVoicemailDone: usecase.EventVoicemailDone,
}

type CallEngine interface {
	Handle(ctx context.Context, ev usecase.Event) []twiml.Verb
}

type VaultAPI interface {
	Sync(ctx context.Context, pin string, contacts []domain.Contact) (int, error)
	Latest(ctx context.Context, pin string) ([]domain.Contact, error)
	RecordingMedia(ctx context.Context, pin, voicemailID string) (usecase.MediaResult, error)
}

type syncRequest struct {
	Pin      string           `json:"pin"`
	Contacts []domain.Contact `json:"contacts"`
}

type syncResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

type latestResponse struct {
	OK       bool             `json:"ok"`
	Contacts []domain.Contact `json:"contacts"`
	Count    int              `json:"count"`
}

type healthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

type errorResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type Handler struct {
	calls CallEngine
	vault VaultAPI
}

func NewHandler(calls CallEngine, vault VaultAPI) (*Handler, error) {
	if calls == nil {
		return nil, errors.New("handler: call engine must not be nil")
	}
	if vault == nil {
		return nil, errors.New("handler: vault api must not be nil")
	}
	return &Handler{calls: calls, vault: vault}, nil
}

// Handle routes one API Gateway proxy event. The returned error is always
// nil; failures surface as response documents so API Gateway never emits
// its own error page mid-call.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req)
	log := slog.With("correlationId", corrID, "method", req.HTTPMethod, "path", req.Path)

	if kind, ok := voiceEvents[req.Path]; ok {
		return h.voice(ctx, req, kind, corrID, log), nil
	}

	switch {
	case req.Path == "/health" && req.HTTPMethod == http.MethodGet:
		return jsonResponse(http.StatusOK, healthResponse{OK: true, Service: "contact-vault"}, corrID), nil
	case req.Path == "/sync" && req.HTTPMethod == http.MethodPost:
		return h.sync(ctx, req, corrID, log), nil
	case req.Path == "/latest" && req.HTTPMethod == http.MethodGet:
		return h.latest(ctx, req, corrID, log), nil
	default:
		if id, ok := strings.CutPrefix(req.Path, "/voicemails/"); ok && req.HTTPMethod == http.MethodGet {
			return h.voicemailMedia(ctx, req, id, corrID, log), nil
		}
	}

	return jsonResponse(http.StatusNotFound, errorResponse{
		Error: string(usecase.ErrorNotFound), Reason: "unknown_route",
	}, corrID), nil
}

func (h *Handler) voice(ctx context.Context, req events.APIGatewayProxyRequest, kind usecase.EventKind, corrID string, log *slog.Logger) events.APIGatewayProxyResponse {
	form, err := parseForm(req)
	if err != nil {
		log.Warn("malformed webhook form", "err", err)
	}
	ev := usecase.Event{
		Kind:              kind,
		CallID:            form.Get("CallSid"),
		Digits:            form.Get("Digits"),
		Speech:            form.Get("SpeechResult"),
		From:              form.Get("From"),
		To:                form.Get("To"),
		RecordingURL:      form.Get("RecordingUrl"),
		RecordingDuration: form.Get("RecordingDuration"),
	}

	body, err := twiml.Render(h.calls.Handle(ctx, ev)...)
	if err != nil {
		log.Error("render voice document", "callId", ev.CallID, "err", err)
		body = voiceErrorDocument
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":     "text/xml; charset=utf-8",
			"X-Correlation-Id": corrID,
		},
		Body: body,
	}
}

func (h *Handler) sync(ctx context.Context, req events.APIGatewayProxyRequest, corrID string, log *slog.Logger) events.APIGatewayProxyResponse {
	raw, err := requestBody(req)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, errorResponse{
			Error: string(usecase.ErrorInvalidInput), Reason: "malformed_body",
		}, corrID)
	}
	var in syncRequest
	if err := json.Unmarshal(raw, &in); err != nil {
		return jsonResponse(http.StatusBadRequest, errorResponse{
			Error: string(usecase.ErrorInvalidInput), Reason: "malformed_body",
		}, corrID)
	}

	count, err := h.vault.Sync(ctx, pinFrom(req, in.Pin), in.Contacts)
	if err != nil {
		return errorToResponse(err, corrID, log)
	}
	return jsonResponse(http.StatusOK, syncResponse{OK: true, Count: count}, corrID)
}

func (h *Handler) latest(ctx context.Context, req events.APIGatewayProxyRequest, corrID string, log *slog.Logger) events.APIGatewayProxyResponse {
	contacts, err := h.vault.Latest(ctx, pinFrom(req, ""))
	if err != nil {
		return errorToResponse(err, corrID, log)
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return jsonResponse(http.StatusOK, latestResponse{OK: true, Contacts: contacts, Count: len(contacts)}, corrID)
}

func (h *Handler) voicemailMedia(ctx context.Context, req events.APIGatewayProxyRequest, id, corrID string, log *slog.Logger) events.APIGatewayProxyResponse {
	media, err := h.vault.RecordingMedia(ctx, pinFrom(req, ""), id)
	if err != nil {
		return errorToResponse(err, corrID, log)
	}
	if media.RedirectURL != "" {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusFound,
			Headers: map[string]string{
				"Location":         media.RedirectURL,
				"X-Correlation-Id": corrID,
			},
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":     media.ContentType,
			"X-Correlation-Id": corrID,
		},
		Body:            base64.StdEncoding.EncodeToString(media.Body),
		IsBase64Encoded: true,
	}
}

// parseForm decodes the carrier's form-encoded webhook body, transparently
// handling API Gateway base64 wrapping.
func parseForm(req events.APIGatewayProxyRequest) (url.Values, error) {
	raw, err := requestBody(req)
	if err != nil {
		return url.Values{}, err
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return url.Values{}, fmt.Errorf("handler: parse form body: %w", err)
	}
	return form, nil
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	raw, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, fmt.Errorf("handler: decode base64 body: %w", err)
	}
	return raw, nil
}

// pinFrom resolves the caller-supplied PIN: header first, then request
// body, then query string.
func pinFrom(req events.APIGatewayProxyRequest, bodyPin string) string {
	if v := headerValue(req.Headers, "x-pin"); v != "" {
		return v
	}
	if bodyPin != "" {
		return bodyPin
	}
	return req.QueryStringParameters["pin"]
}

func correlationID(req events.APIGatewayProxyRequest) string {
	if v := headerValue(req.Headers, "x-correlation-id"); v != "" {
		return v
	}
	return uuid.NewString()
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func errorToResponse(err error, corrID string, log *slog.Logger) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		log.Error("unexpected error", "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{
			Error: string(usecase.ErrorInternal),
		}, corrID)
	}

	status := http.StatusInternalServerError
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		status = http.StatusBadRequest
	case usecase.ErrorInvalidPIN:
		status = http.StatusUnauthorized
	case usecase.ErrorNotFound:
		status = http.StatusNotFound
	case usecase.ErrorUpstream:
		status = http.StatusBadGateway
	case usecase.ErrorStorage, usecase.ErrorInternal:
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		log.Error("request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	} else {
		log.Warn("request rejected", "code", ucErr.Code, "reason", ucErr.Reason)
	}

	return jsonResponse(status, errorResponse{
		Error:  string(ucErr.Code),
		Reason: ucErr.Reason,
	}, corrID)
}

func jsonResponse(status int, payload any, corrID string) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal response body", "err", err)
		body = []byte(`{"ok":false,"error":"INTERNAL_ERROR"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": corrID,
		},
		Body: string(body),
	}
}
