package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/manolodalbo/nurse-cadet/internal/logging"
	"github.com/manolodalbo/nurse-cadet/internal/record"
	"github.com/manolodalbo/nurse-cadet/internal/services/llm"
)

// Completer sends one vision request and returns the model's JSON text.
type Completer interface {
	CompleteVisionJSON(ctx context.Context, req llm.VisionRequest) (string, error)
}

// Extractor converts card images into records.
type Extractor struct {
	client   Completer
	scale    float64
	quality  int
	validate bool
	schema   *jsonschema.Schema
	logger   *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithScale sets the linear downscale factor (0 < scale <= 1).
func WithScale(scale float64) Option {
	return func(e *Extractor) {
		if scale > 0 && scale <= 1 {
			e.scale = scale
		}
	}
}

// WithJPEGQuality sets the re-encode quality (1-100).
func WithJPEGQuality(quality int) Option {
	return func(e *Extractor) {
		if quality >= 1 && quality <= 100 {
			e.quality = quality
		}
	}
}

// WithValidation toggles validating responses against the record schema.
func WithValidation(enabled bool) Option {
	return func(e *Extractor) {
		e.validate = enabled
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logging.NewComponentLogger(logger, "extract")
	}
}

// New builds an extractor. It fails only if the record schema does not compile.
func New(client Completer, opts ...Option) (*Extractor, error) {
	e := &Extractor{
		client:   client,
		scale:    0.5,
		quality:  85,
		validate: true,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validate {
		schema, err := compileSchema()
		if err != nil {
			return nil, err
		}
		e.schema = schema
	}
	return e, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	url := record.Schema.ValidationURL()
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(record.Schema.ValidationSchema())); err != nil {
		return nil, fmt.Errorf("add record schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return schema, nil
}

// Extract makes exactly one service request for itemPath (none if the image
// cannot be read) and returns the decoded record. The record's File field is
// left for the caller. Errors wrap ErrEmptyResponse, ErrMalformedOutput or
// ErrService.
func (e *Extractor) Extract(ctx context.Context, itemPath string) (record.Record, error) {
	imageURL, err := PrepareImage(itemPath, e.scale, e.quality)
	if err != nil {
		return record.Record{}, classify(ErrService, err)
	}

	content, err := e.client.CompleteVisionJSON(ctx, llm.VisionRequest{
		SystemPrompt: record.SystemPrompt,
		Prompt:       record.Prompt,
		ImageURL:     imageURL,
		Schema: &llm.JSONSchemaFormat{
			Name:   record.Schema.Name,
			Strict: true,
			Schema: record.Schema.ResponseSchema(),
		},
	})
	if err != nil {
		var empty *llm.EmptyContentError
		if errors.As(err, &empty) {
			return record.Record{}, classify(ErrEmptyResponse, err)
		}
		return record.Record{}, classify(ErrService, err)
	}
	return e.Parse(content)
}

// Parse decodes, canonicalises and validates model content.
func (e *Extractor) Parse(content string) (record.Record, error) {
	var doc map[string]any
	if err := llm.DecodeLLMJSON(content, &doc); err != nil {
		return record.Record{}, classify(ErrMalformedOutput, err)
	}
	if doc == nil {
		return record.Record{}, classify(ErrMalformedOutput, errors.New("response is not a JSON object"))
	}
	record.Canonicalize(doc)
	if e.schema != nil {
		if err := e.schema.Validate(doc); err != nil {
			e.logger.Debug("response failed schema validation",
				logging.String(logging.FieldEventType, "schema_violation"),
				logging.Error(err),
			)
			return record.Record{}, classify(ErrMalformedOutput, err)
		}
	}
	rec, err := record.FromDocument(doc)
	if err != nil {
		return record.Record{}, classify(ErrMalformedOutput, err)
	}
	return rec, nil
}
