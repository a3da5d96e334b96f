// Package contentstack exposes the CMS management operations the assistant may
// use. The set is closed: content can be inspected, created and updated, but
// never deleted, published or unpublished.
package contentstack

import (
	"context"
	"encoding/json"

	"github.com/harunnryd/polaris/internal/cms"
	toolcore "github.com/harunnryd/polaris/internal/tool"
)

const (
	NameGetAllContentTypes = "get_all_content_types"
	NameGetContentType     = "get_content_type"
	NameGetAllEntries      = "get_all_entries"
	NameGetEntry           = "get_entry"
	NameCreateEntry        = "create_entry"
	NameUpdateEntry        = "update_entry"
)

// maxEntriesLimit is the largest page size the management API accepts.
const maxEntriesLimit = 100

// ContentAPI is the subset of the CMS client the tools call.
type ContentAPI interface {
	ContentTypes(ctx context.Context) (json.RawMessage, error)
	ContentType(ctx context.Context, contentTypeUID string) (json.RawMessage, error)
	Entries(ctx context.Context, contentTypeUID string, q cms.EntriesQuery) (json.RawMessage, error)
	Entry(ctx context.Context, contentTypeUID, entryUID, locale string) (json.RawMessage, error)
	CreateEntry(ctx context.Context, contentTypeUID string, entry json.RawMessage, locale string) (json.RawMessage, error)
	UpdateEntry(ctx context.Context, contentTypeUID, entryUID string, entry json.RawMessage, locale string) (json.RawMessage, error)
}

// NewRegistry builds the registry holding exactly the six CMS tools.
func NewRegistry(api ContentAPI) *toolcore.Registry {
	return toolcore.NewRegistry(
		&GetAllContentTypesTool{API: api},
		&GetContentTypeTool{API: api},
		&GetAllEntriesTool{API: api},
		&GetEntryTool{API: api},
		&CreateEntryTool{API: api},
		&UpdateEntryTool{API: api},
	)
}

var (
	contentTypeUIDProperty = map[string]interface{}{
		"type":        "string",
		"description": "UID of the content type, for example blog_post",
	}
	entryUIDProperty = map[string]interface{}{
		"type":        "string",
		"description": "UID of the entry",
	}
	localeProperty = map[string]interface{}{
		"type":        "string",
		"description": "Optional locale code, for example en-us",
	}
	entryProperty = map[string]interface{}{
		"type":        "object",
		"description": "Entry field values keyed by field UID, matching the content type schema",
	}
)

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func readMetadata(capability string) toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "contentstack",
		Capabilities: []string{"cms.read", capability},
		Risk:         toolcore.RiskLow,
	}
}

func writeMetadata(capability string) toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "contentstack",
		Capabilities: []string{"cms.write", capability},
		Risk:         toolcore.RiskMedium,
	}
}

// GetAllContentTypesTool lists every content type in the stack.
type GetAllContentTypesTool struct {
	API ContentAPI
}

func (t *GetAllContentTypesTool) Name() string { return NameGetAllContentTypes }

func (t *GetAllContentTypesTool) Description() string {
	return "List all content types in the stack with their UIDs, titles and schemas."
}

func (t *GetAllContentTypesTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{})
}

func (t *GetAllContentTypesTool) ToolMetadata() toolcore.ToolMetadata {
	return readMetadata("cms.content_type.list")
}

func (t *GetAllContentTypesTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return t.API.ContentTypes(ctx)
}

type getContentTypeArgs struct {
	ContentTypeUID string `json:"content_type_uid"`
}

// GetContentTypeTool fetches one content type schema.
type GetContentTypeTool struct {
	API ContentAPI
}

func (t *GetContentTypeTool) Name() string { return NameGetContentType }

func (t *GetContentTypeTool) Description() string {
	return "Get a single content type and its field schema. Use it before creating or updating entries."
}

func (t *GetContentTypeTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"content_type_uid": contentTypeUIDProperty,
	}, "content_type_uid")
}

func (t *GetContentTypeTool) ToolMetadata() toolcore.ToolMetadata {
	return readMetadata("cms.content_type.get")
}

func (t *GetContentTypeTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	args, err := toolcore.DecodeArgs[getContentTypeArgs](t.Name(), input)
	if err != nil {
		return nil, err
	}
	uid, err := toolcore.RequireString("content_type_uid", args.ContentTypeUID)
	if err != nil {
		return nil, err
	}
	return t.API.ContentType(ctx, uid)
}

type getAllEntriesArgs struct {
	ContentTypeUID string `json:"content_type_uid"`
	Locale         string `json:"locale"`
	Limit          int    `json:"limit"`
}

// GetAllEntriesTool lists entries of a content type.
type GetAllEntriesTool struct {
	API ContentAPI
}

func (t *GetAllEntriesTool) Name() string { return NameGetAllEntries }

func (t *GetAllEntriesTool) Description() string {
	return "List entries of a content type, optionally filtered by locale and limited in count."
}

func (t *GetAllEntriesTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"content_type_uid": contentTypeUIDProperty,
		"locale":           localeProperty,
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Optional maximum number of entries to return (1-100)",
		},
	}, "content_type_uid")
}

func (t *GetAllEntriesTool) ToolMetadata() toolcore.ToolMetadata {
	return readMetadata("cms.entry.list")
}

func (t *GetAllEntriesTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	args, err := toolcore.DecodeArgs[getAllEntriesArgs](t.Name(), input)
	if err != nil {
		return nil, err
	}
	uid, err := toolcore.RequireString("content_type_uid", args.ContentTypeUID)
	if err != nil {
		return nil, err
	}

	limit := args.Limit
	if limit < 0 {
		limit = 0
	}
	if limit > maxEntriesLimit {
		limit = maxEntriesLimit
	}
	return t.API.Entries(ctx, uid, cms.EntriesQuery{Locale: args.Locale, Limit: limit})
}

type getEntryArgs struct {
	ContentTypeUID string `json:"content_type_uid"`
	EntryUID       string `json:"entry_uid"`
	Locale         string `json:"locale"`
}

// GetEntryTool fetches one entry.
type GetEntryTool struct {
	API ContentAPI
}

func (t *GetEntryTool) Name() string { return NameGetEntry }

func (t *GetEntryTool) Description() string {
	return "Get a single entry of a content type by its UID."
}

func (t *GetEntryTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"content_type_uid": contentTypeUIDProperty,
		"entry_uid":        entryUIDProperty,
		"locale":           localeProperty,
	}, "content_type_uid", "entry_uid")
}

func (t *GetEntryTool) ToolMetadata() toolcore.ToolMetadata {
	return readMetadata("cms.entry.get")
}

func (t *GetEntryTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	args, err := toolcore.DecodeArgs[getEntryArgs](t.Name(), input)
	if err != nil {
		return nil, err
	}
	uid, err := toolcore.RequireString("content_type_uid", args.ContentTypeUID)
	if err != nil {
		return nil, err
	}
	entryUID, err := toolcore.RequireString("entry_uid", args.EntryUID)
	if err != nil {
		return nil, err
	}
	return t.API.Entry(ctx, uid, entryUID, args.Locale)
}

type createEntryArgs struct {
	ContentTypeUID string          `json:"content_type_uid"`
	Entry          json.RawMessage `json:"entry"`
	Locale         string          `json:"locale"`
}

// CreateEntryTool creates a draft entry. It does not publish it.
type CreateEntryTool struct {
	API ContentAPI
}

func (t *CreateEntryTool) Name() string { return NameCreateEntry }

func (t *CreateEntryTool) Description() string {
	return "Create a new entry in a content type. The entry object must follow the content type schema."
}

func (t *CreateEntryTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"content_type_uid": contentTypeUIDProperty,
		"entry":            entryProperty,
		"locale":           localeProperty,
	}, "content_type_uid", "entry")
}

func (t *CreateEntryTool) ToolMetadata() toolcore.ToolMetadata {
	return writeMetadata("cms.entry.create")
}

func (t *CreateEntryTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	args, err := toolcore.DecodeArgs[createEntryArgs](t.Name(), input)
	if err != nil {
		return nil, err
	}
	uid, err := toolcore.RequireString("content_type_uid", args.ContentTypeUID)
	if err != nil {
		return nil, err
	}
	entry, err := toolcore.RequireObject("entry", args.Entry)
	if err != nil {
		return nil, err
	}
	return t.API.CreateEntry(ctx, uid, entry, args.Locale)
}

type updateEntryArgs struct {
	ContentTypeUID string          `json:"content_type_uid"`
	EntryUID       string          `json:"entry_uid"`
	Entry          json.RawMessage `json:"entry"`
	Locale         string          `json:"locale"`
}

// UpdateEntryTool replaces field values of an existing entry.
type UpdateEntryTool struct {
	API ContentAPI
}

func (t *UpdateEntryTool) Name() string { return NameUpdateEntry }

func (t *UpdateEntryTool) Description() string {
	return "Update an existing entry. Only the fields present in the entry object are changed."
}

func (t *UpdateEntryTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"content_type_uid": contentTypeUIDProperty,
		"entry_uid":        entryUIDProperty,
		"entry":            entryProperty,
		"locale":           localeProperty,
	}, "content_type_uid", "entry_uid", "entry")
}

func (t *UpdateEntryTool) ToolMetadata() toolcore.ToolMetadata {
	return writeMetadata("cms.entry.update")
}

func (t *UpdateEntryTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	args, err := toolcore.DecodeArgs[updateEntryArgs](t.Name(), input)
	if err != nil {
		return nil, err
	}
	uid, err := toolcore.RequireString("content_type_uid", args.ContentTypeUID)
	if err != nil {
		return nil, err
	}
	entryUID, err := toolcore.RequireString("entry_uid", args.EntryUID)
	if err != nil {
		return nil, err
	}
	entry, err := toolcore.RequireObject("entry", args.Entry)
	if err != nil {
		return nil, err
	}
	return t.API.UpdateEntry(ctx, uid, entryUID, entry, args.Locale)
}
