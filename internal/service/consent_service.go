package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go-cookieconsent/internal/data"
	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/metrics"
	"go-cookieconsent/internal/privacy"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// FieldError describes one invalid field of a request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a request body.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConsentSubmission is a validated consent POST body.
type ConsentSubmission struct {
	ConsentID string
	Event     data.ConsentEvent
}

// RequestMeta carries the transport details of a consent submission.
type RequestMeta struct {
	Headers    privacy.HeaderGetter
	RemoteAddr string
	UserID     *string
}

type fieldDecoder struct {
	raw    map[string]json.RawMessage
	prefix string
	errs   *[]FieldError
}

func (d fieldDecoder) fail(name, msg string) {
	*d.errs = append(*d.errs, FieldError{Field: d.prefix + name, Message: msg})
}

// value returns the raw field, treating JSON null as absent.
func (d fieldDecoder) value(name string) (json.RawMessage, bool) {
	v, ok := d.raw[name]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

func (d fieldDecoder) requiredString(name string, nonEmpty bool) string {
	v, ok := d.value(name)
	if !ok {
		d.fail(name, "is required")
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		d.fail(name, "must be a string")
		return ""
	}
	if nonEmpty && strings.TrimSpace(s) == "" {
		d.fail(name, "must not be empty")
	}
	return s
}

func (d fieldDecoder) stringList(name string, required bool) []string {
	v, ok := d.value(name)
	if !ok {
		if required {
			d.fail(name, "is required")
		}
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(v, &list); err != nil {
		d.fail(name, "must be an array of strings")
		return []string{}
	}
	return list
}

// ParseConsentSubmission validates a consent POST body. All problems are
// reported together; nothing is accepted partially.
func ParseConsentSubmission(body []byte) (*ConsentSubmission, error) {
	var errs []FieldError
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "body", Message: "must be a JSON object"}}}
	}

	top := fieldDecoder{raw: raw, errs: &errs}
	sub := &ConsentSubmission{ConsentID: top.requiredString("consentId", true)}

	eventRaw, ok := top.value("event")
	if !ok {
		top.fail("event", "is required")
		return nil, &ValidationError{Fields: errs}
	}
	var eventFields map[string]json.RawMessage
	if err := json.Unmarshal(eventRaw, &eventFields); err != nil {
		top.fail("event", "must be an object")
		return nil, &ValidationError{Fields: errs}
	}

	ev := fieldDecoder{raw: eventFields, prefix: "event.", errs: &errs}
	sub.Event.AcceptedCategories = ev.stringList("acceptedCategories", true)
	sub.Event.AcceptType = ev.requiredString("acceptType", false)
	if _, ok := ev.value("action"); ok {
		before := len(errs)
		sub.Event.Action = data.Action(ev.requiredString("action", false))
		if len(errs) == before && !sub.Event.Action.Valid() {
			ev.fail("action", "must be one of granted, modified, withdrawn, renewed")
		}
	} else {
		ev.fail("action", "is required")
	}
	sub.Event.RejectedCategories = ev.stringList("rejectedCategories", false)

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return sub, nil
}

// ConsentServicer defines the interface for recording consent.
type ConsentServicer interface {
	Record(ctx context.Context, sub *ConsentSubmission, meta RequestMeta) (*data.ConsentRecord, error)
}

// ConsentService records consent decisions. Raw IP addresses never reach the store.
type ConsentService struct {
	repo      ConsentRecordRepository
	ipHashKey string
	metrics   *metrics.Metrics
	log       logger.Logger
	tracer    trace.Tracer
}

// NewConsentService creates a new ConsentService. metrics may be nil.
func NewConsentService(repo ConsentRecordRepository, ipHashKey string, m *metrics.Metrics, log logger.Logger) *ConsentService {
	return &ConsentService{
		repo:      repo,
		ipHashKey: ipHashKey,
		metrics:   m,
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}
}

// Record appends the submitted event to its consent history.
func (s *ConsentService) Record(ctx context.Context, sub *ConsentSubmission, meta RequestMeta) (_ *data.ConsentRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "ConsentService.Record", trace.WithAttributes(
		attribute.String("consent.action", string(sub.Event.Action)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	event := sub.Event
	event.UserAgent = privacy.UserAgent(meta.Headers)
	event.IPAddress, err = privacy.HashIP(privacy.ClientIP(meta.Headers, meta.RemoteAddr), s.ipHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash client ip: %w", err)
	}

	rec, err := s.repo.AddConsentEvent(ctx, sub.ConsentID, event, meta.UserID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementConsentFailures("store")
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementConsentEvents(string(event.Action))
	}
	s.log.With(map[string]interface{}{
		"consent_id": sub.ConsentID,
		"action":     string(event.Action),
		"events":     rec.EventsCount(),
	}).Debug("Consent event recorded")
	return rec, nil
}
