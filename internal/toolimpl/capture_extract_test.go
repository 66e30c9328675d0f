package toolimpl

import (
	"strings"
	"testing"
)

func TestExtractCaptureTextStripsScriptsAndStyles(t *testing.T) {
	html := `<html><head><style>body{color:red}</style><script>alert(1)</script></head>
	<body><h1>Title</h1><p>First paragraph.</p><p>Second paragraph.</p></body></html>`

	text, err := ExtractCaptureText(html)
	if err != nil {
		t.Fatalf("ExtractCaptureText: %v", err)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "color:red") {
		t.Errorf("expected script/style content stripped, got %q", text)
	}
	if !strings.Contains(text, "First paragraph.") || !strings.Contains(text, "Second paragraph.") {
		t.Errorf("expected paragraph text preserved, got %q", text)
	}
}

func TestExtractCaptureTextKeepsImageAltText(t *testing.T) {
	html := `<html><body><img src="x.png" alt="a scenic mountain view"></body></html>`
	text, err := ExtractCaptureText(html)
	if err != nil {
		t.Fatalf("ExtractCaptureText: %v", err)
	}
	if !strings.Contains(text, "a scenic mountain view") {
		t.Errorf("expected alt text preserved, got %q", text)
	}
}
