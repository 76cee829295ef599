// Package docstore loads and writes the keyed collections of stored entries
// that retrieval ranks against. Every backend loads a whole collection or
// fails; there are no partial loads.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services"
)

// Store is the read side of a document collection.
type Store interface {
	// Load returns every stored entry keyed by id. Failures are
	// StoreUnavailable or StoreCorrupt.
	Load(ctx context.Context) (map[string]models.StoredEntry, error)
}

// Writer is the indexing side of a document collection.
type Writer interface {
	// Keys returns the ids already stored. A collection that does not exist
	// yet has no keys.
	Keys(ctx context.Context) (map[string]struct{}, error)

	// Put writes entries, replacing any with the same id.
	Put(ctx context.Context, entries map[string]models.StoredEntry) error
}

// ReadWriter is a store that can also be indexed into.
type ReadWriter interface {
	Store
	Writer
}

const entrySchemaJSON = `{
	"type": "object",
	"required": ["doc", "embedding"],
	"properties": {
		"doc": {
			"type": "object",
			"required": ["content"],
			"properties": {
				"content": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"text": {"type": "string"},
							"media": {
								"type": "object",
								"required": ["url"],
								"properties": {
									"url": {"type": "string"},
									"contentType": {"type": "string"}
								}
							}
						}
					}
				},
				"metadata": {"type": ["object", "null"]}
			}
		},
		"embedding": {
			"type": "object",
			"required": ["embedding"],
			"properties": {
				"embedding": {"type": "array", "items": {"type": "number"}},
				"metadata": {"type": ["object", "null"]}
			}
		}
	}
}`

var (
	entrySchema      = mustSchema(entrySchemaJSON)
	collectionSchema = mustSchema(fmt.Sprintf(`{"type": "object", "additionalProperties": %s}`, entrySchemaJSON))
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("docstore: invalid schema: %v", err))
	}
	return schema
}

func validate(schema *gojsonschema.Schema, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return services.NewStoreCorruptError("store data is not valid JSON", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		derr := services.NewStoreCorruptError(fmt.Sprintf("store data failed validation: %s", errs[0].String()), nil)
		derr.WithDetail("violations", len(errs))
		return derr
	}
	return nil
}

// DecodeCollection decodes a persisted collection: a JSON object mapping id
// to {doc, embedding: {embedding}}.
func DecodeCollection(raw []byte) (map[string]models.StoredEntry, error) {
	if err := validate(collectionSchema, raw); err != nil {
		return nil, err
	}

	entries := make(map[string]models.StoredEntry)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, services.NewStoreCorruptError("failed to decode store", err)
	}
	return entries, nil
}

// DecodeEntry decodes one persisted {doc, embedding} record.
func DecodeEntry(id string, raw []byte) (models.StoredEntry, error) {
	var entry models.StoredEntry
	if err := validate(entrySchema, raw); err != nil {
		return entry, withID(err, id)
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, services.NewStoreCorruptError("failed to decode stored entry", err).WithDetail("id", id)
	}
	return entry, nil
}

func withID(err error, id string) error {
	var de *services.DomainError
	if errors.As(err, &de) {
		de.WithDetail("id", id)
	}
	return err
}

// EncodeEntry is the inverse of DecodeEntry.
func EncodeEntry(entry models.StoredEntry) ([]byte, error) {
	return json.Marshal(entry)
}

func cloneEntries(in map[string]models.StoredEntry) map[string]models.StoredEntry {
	out := make(map[string]models.StoredEntry, len(in))
	for id, entry := range in {
		out[id] = entry
	}
	return out
}
