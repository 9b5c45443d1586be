// Package translate turns a free-text search request into filter predicates
// with the help of a language model.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jonathan/prospector/internal/apperr"
	"github.com/jonathan/prospector/internal/filters"
	"github.com/jonathan/prospector/internal/llm"
	"github.com/jonathan/prospector/internal/schemas"
	"github.com/jonathan/prospector/internal/types"
)

// SystemPrompt restricts the model to the filter vocabulary.
const SystemPrompt = "You are an assistant that converts user search queries into JSON filter objects. " +
	"Allowed fields: industry, country, size, founded, keyword. Output only valid JSON."

// ErrTranslation marks a model reply that could not be used as filters.
var ErrTranslation = errors.New("query translation failed")

// Translator converts free text to predicates.
type Translator struct {
	client      llm.Client
	validator   *schemas.Validator
	temperature float64
	logger      *zap.SugaredLogger
}

// New creates a translator over an LLM client.
func New(client llm.Client, logger *zap.SugaredLogger) *Translator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Translator{
		client:      client,
		validator:   schemas.Filters,
		temperature: 0.5,
		logger:      logger,
	}
}

// Translate asks the model for a filter object and normalizes it. keyword
// becomes the free-text query; other keys outside the vocabulary are dropped.
// A reply that is not a JSON object fails with an error marked both
// ErrTranslation and apperr.ErrValidation. Pagination in the result is the
// default and must be overridden by the caller.
func (t *Translator) Translate(ctx context.Context, freeText string) (types.Predicates, error) {
	reply, err := t.client.Complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.System(SystemPrompt), llm.User(freeText)},
		Tier:        llm.TierLite,
		Temperature: &t.temperature,
		JSON:        true,
	})
	if err != nil {
		return types.Predicates{}, apperr.Transient(err, "completion service failed")
	}

	doc := []byte(llm.CleanJSONBlock(reply))
	fields, err := decodeObject(doc)
	if err == nil {
		err = t.validator.Validate(doc)
	}
	if err != nil {
		t.logger.Warnw("unusable translation", "query", freeText, "reply", truncate(reply, 200), "error", err)
		return types.Predicates{}, errors.Mark(apperr.Validation(err, "model reply is not a filter object"), ErrTranslation)
	}

	raw := filters.Raw{
		Industry: scalar(fields["industry"]),
		Country:  scalar(fields["country"]),
		Size:     scalar(fields["size"]),
		Founded:  scalar(fields["founded"]),
		Query:    scalar(fields["keyword"]),
	}
	t.logger.Debugw("translated query", "query", freeText, "filters", raw)
	return filters.Normalize(raw), nil
}

// decodeObject parses doc as exactly one JSON value. Prose before or after
// the value is an error.
func decodeObject(doc []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "reply is not JSON")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("reply has text after the JSON value")
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("reply is not a JSON object")
	}
	return fields, nil
}

// IsTranslationError reports whether err came from an unusable model reply.
func IsTranslationError(err error) bool {
	return errors.Is(err, ErrTranslation)
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
