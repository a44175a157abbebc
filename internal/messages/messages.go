// Package messages decodes and validates the trigger messages a host page
// sends to its engine.
package messages

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/pagetrans/internal/geometry"
)

//go:embed trigger_message.schema.json
var triggerSchemaJSON string

type Type string

const (
	BeginSelectionTranslate Type = "begin_selection_translate"
	BeginPageTranslate      Type = "begin_page_translate"
	Ping                    Type = "ping"
	Restore                 Type = "restore"
	PointerEnter            Type = "pointer_enter"
	PointerLeave            Type = "pointer_leave"
	PointerDown             Type = "pointer_down"
	PanelRetranslate        Type = "panel_retranslate"
	PanelManual             Type = "panel_manual"
	PanelCopy               Type = "panel_copy"
	PanelClose              Type = "panel_close"
)

// Trigger is one validated inbound message.
type Trigger struct {
	Type          Type               `json:"type"`
	Text          string             `json:"text,omitempty"`
	TargetLang    string             `json:"target_lang,omitempty"`
	Anchor        *geometry.Point    `json:"anchor,omitempty"`
	Viewport      *geometry.Viewport `json:"viewport,omitempty"`
	NodeID        *int               `json:"node_id,omitempty"`
	RelatedNodeID *int               `json:"related_node_id,omitempty"`
	Rect          *geometry.Rect     `json:"rect,omitempty"`
	TipSize       *geometry.Size     `json:"tip_size,omitempty"`
	InsidePanel   bool               `json:"inside_panel,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// Decode parses and validates one trigger message.
func Decode(payload []byte) (*Trigger, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode message JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("message validation failed: %w", err)
	}

	var trigger Trigger
	if err := json.Unmarshal(bytes.TrimSpace(payload), &trigger); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	if trigger.Type == BeginSelectionTranslate && strings.TrimSpace(trigger.Text) == "" {
		return nil, fmt.Errorf("text must not be blank")
	}
	return &trigger, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("trigger_message.schema.json", strings.NewReader(triggerSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("trigger_message.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("message is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("message contains trailing content")
	}
	return value, nil
}
