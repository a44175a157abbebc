package selector

import (
	"testing"

	"golang.org/x/net/html"

	"horse.fit/pagetrans/internal/dom"
)

type processedSet map[*html.Node]bool

func (p processedSet) Has(n *html.Node) bool {
	return p[n]
}

func parseBody(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return dom.Body(doc)
}

func texts(units []TextUnit) []string {
	out := make([]string, 0, len(units))
	for _, unit := range units {
		out = append(out, unit.Text)
	}
	return out
}

func TestSelectFiltersIneligibleText(t *testing.T) {
	t.Parallel()

	body := parseBody(t, `<body>
		<p>ab</p>
		<p>  Hello world  </p>
		<script>Hello world</script>
		<code>Hello world</code>
		<pre>Hello world</pre>
		<p>你好世界你好</p>
		<p>1234 5678</p>
		<div data-translated="true"><span>Already done here</span></div>
		<div class="translate-panel"><p>Panel content text</p></div>
		<p>Second <b>bold part</b> tail</p>
	</body>`)

	units := New(Options{}, nil).Select(body).Collect()
	got := texts(units)
	want := []string{"Hello world", "Second", "bold part", "tail"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unit %d: expected %q, got %q", i, want[i], got[i])
		}
		if units[i].Index != i {
			t.Fatalf("unit %d carries index %d", i, units[i].Index)
		}
	}
	if units[2].Parent.Data != "b" {
		t.Fatalf("expected parent <b>, got <%s>", units[2].Parent.Data)
	}
}

func TestSelectLengthBand(t *testing.T) {
	t.Parallel()

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	body := parseBody(t, `<body><p>abcd</p><p>`+string(long)+`</p><p>`+string(long[:499])+`</p></body>`)

	units := New(Options{}, nil).Select(body).Collect()
	if len(units) != 2 {
		t.Fatalf("expected 4 and 499 rune texts only, got %d units", len(units))
	}
	if units[0].Text != "abcd" || len(units[1].Text) != 499 {
		t.Fatalf("unexpected units: %q / %d", units[0].Text, len(units[1].Text))
	}
}

func TestSelectSkipsProcessedParents(t *testing.T) {
	t.Parallel()

	body := parseBody(t, `<body><p id="a">First paragraph</p><p id="b">Second paragraph</p></body>`)
	first := dom.FindFirst(body, "#a")

	units := New(Options{}, processedSet{first: true}).Select(body).Collect()
	if len(units) != 1 || units[0].Text != "Second paragraph" {
		t.Fatalf("expected only the unprocessed paragraph, got %v", texts(units))
	}
}

func TestCursorIsNotRestartable(t *testing.T) {
	t.Parallel()

	body := parseBody(t, `<body><p>One sentence</p><p>Two sentence</p><p>Three sentence</p></body>`)
	cursor := New(Options{}, nil).Select(body)

	first, ok := cursor.Next()
	if !ok || first.Text != "One sentence" {
		t.Fatalf("unexpected first unit: %+v", first)
	}
	rest := cursor.Collect()
	if len(rest) != 2 || rest[0].Index != 1 {
		t.Fatalf("expected remaining two units, got %v", texts(rest))
	}
	if _, ok := cursor.Next(); ok {
		t.Fatalf("expected exhausted cursor")
	}
	if len(cursor.Collect()) != 0 {
		t.Fatalf("expected exhausted cursor to collect nothing")
	}
}

func TestSelectHasNoSideEffects(t *testing.T) {
	t.Parallel()

	doc, err := dom.ParseString(`<body><p class="x">Stable text</p></body>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	before, _ := dom.Render(doc)
	_ = New(Options{}, nil).Select(doc).Collect()
	after, _ := dom.Render(doc)
	if before != after {
		t.Fatalf("select mutated the tree")
	}
}
