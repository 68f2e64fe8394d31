package artifacts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/human-compiler/internal/profile"
)

func TestExtractHTML(t *testing.T) {
	doc := `<!DOCTYPE html>
<html><head><title>Ignored</title><style>p { color: red; }</style></head>
<body>
  <h1>Quarterly   Review</h1>
  <p>We ship <b>small</b> changes.</p>
  <script>alert("nope")</script>
  <ul><li>One</li><li>Two</li></ul>
</body></html>`

	got, err := ExtractHTML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ExtractHTML: %v", err)
	}
	want := "Quarterly Review\nWe ship small changes.\nOne\nTwo"
	if got != want {
		t.Errorf("ExtractHTML =\n%q\nwant\n%q", got, want)
	}
}

func TestExtractText_Dispatch(t *testing.T) {
	dir := t.TempDir()

	md := filepath.Join(dir, "notes.md")
	os.WriteFile(md, []byte("# Notes\n\nplain"), 0o644)
	got, err := ExtractText(md)
	if err != nil {
		t.Fatalf("ExtractText(md): %v", err)
	}
	if got != "# Notes\n\nplain" {
		t.Errorf("markdown should pass through, got %q", got)
	}

	page := filepath.Join(dir, "page.HTML")
	os.WriteFile(page, []byte("<p>hello <i>there</i></p>"), 0o644)
	got, err = ExtractText(page)
	if err != nil {
		t.Fatalf("ExtractText(html): %v", err)
	}
	if got != "hello there" {
		t.Errorf("html = %q", got)
	}
}

func TestExtractText_Missing(t *testing.T) {
	_, err := ExtractText(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, profile.ErrStorage) {
		t.Errorf("err = %v, want ErrStorage", err)
	}
}

func TestExtractText_BadPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	os.WriteFile(path, []byte("this is plain text pretending to be a pdf document"), 0o644)

	if _, err := ExtractText(path); !errors.Is(err, profile.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}
