package messages

import "testing"

func TestDecodeValidMessages(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"type":"begin_selection_translate","text":"Hello","anchor":{"x":780,"y":40},"viewport":{"width":800,"height":600}}`))
	if err != nil {
		t.Fatalf("decode selection: %v", err)
	}
	if msg.Type != BeginSelectionTranslate || msg.Anchor == nil || msg.Anchor.X != 780 || msg.Viewport.Width != 800 {
		t.Fatalf("unexpected message %+v", msg)
	}

	for _, raw := range []string{
		`{"type":"ping"}`,
		`{"type":"begin_page_translate","target_lang":"zh-CN"}`,
		`{"type":"restore"}`,
		`{"type":"pointer_enter","node_id":12,"rect":{"left":1,"top":2,"width":3,"height":4}}`,
		`{"type":"pointer_leave","node_id":12,"related_node_id":3}`,
		`{"type":"pointer_down","inside_panel":false}`,
		`{"type":"panel_retranslate","target_lang":"fr"}`,
	} {
		if _, err := Decode([]byte(raw)); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
}

func TestDecodeRejectsInvalidMessages(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":           ``,
		"trailing":        `{"type":"ping"} {}`,
		"unknown type":    `{"type":"explode"}`,
		"missing anchor":  `{"type":"begin_selection_translate","text":"Hello"}`,
		"blank text":      `{"type":"begin_selection_translate","text":"   ","anchor":{"x":1,"y":1}}`,
		"extra field":     `{"type":"ping","force":true}`,
		"negative node":   `{"type":"pointer_enter","node_id":-1}`,
		"bad target lang": `{"type":"panel_retranslate","target_lang":"not a language"}`,
		"missing inside":  `{"type":"pointer_down"}`,
	}
	for name, raw := range cases {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Fatalf("%s: expected decode to fail", name)
		}
	}
}
