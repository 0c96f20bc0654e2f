package content

import (
	"bytes"
	"compress/zlib"
	"strings"
	"testing"
)

// rawStreamPDF builds a minimal PDF-shaped document with one uncompressed
// content stream.
func rawStreamPDF(stream string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n1 0 obj\n<< /Length 99 >>\nstream\n")
	b.WriteString(stream)
	b.WriteString("\nendstream\nendobj\n%%EOF")
	return b.Bytes()
}

func flateStreamPDF(t *testing.T, stream string) []byte {
	t.Helper()
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write([]byte(stream)); err != nil {
		t.Fatal(err)
	}
	zw.Close()

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n1 0 obj\n<< /Filter /FlateDecode >>\nstream\n")
	b.Write(compressed.Bytes())
	b.WriteString("\nendstream\nendobj\n%%EOF")
	return b.Bytes()
}

func TestPDFTextSimpleTj(t *testing.T) {
	data := rawStreamPDF("BT /F1 12 Tf (Hello) Tj (world) Tj ET")
	got := pdfText(data, 0)
	if got != "Hello world" {
		t.Errorf("pdfText = %q, want %q", got, "Hello world")
	}
}

func TestPDFTextTJArray(t *testing.T) {
	data := rawStreamPDF("BT [(Quantum) -250 (gravity)] TJ ET")
	got := pdfText(data, 0)
	if got != "Quantum gravity" {
		t.Errorf("pdfText = %q, want %q", got, "Quantum gravity")
	}
}

func TestPDFTextEscapedParens(t *testing.T) {
	data := rawStreamPDF(`BT (AdS\(5\)) Tj ET`)
	got := pdfText(data, 0)
	if got != "AdS(5)" {
		t.Errorf("pdfText = %q, want %q", got, "AdS(5)")
	}
}

func TestPDFTextFlateStream(t *testing.T) {
	data := flateStreamPDF(t, "BT (compressed text here) Tj ET")
	got := pdfText(data, 0)
	if got != "compressed text here" {
		t.Errorf("pdfText = %q, want %q", got, "compressed text here")
	}
}

func TestPDFTextTruncates(t *testing.T) {
	data := rawStreamPDF("BT (" + strings.Repeat("a", 100) + ") Tj ET")
	got := pdfText(data, 10)
	if len([]rune(got)) != 10 {
		t.Errorf("len = %d, want 10", len([]rune(got)))
	}
}

func TestPDFTextGarbageYieldsEmpty(t *testing.T) {
	got := pdfText([]byte("%PDF-1.4 no streams at all"), 0)
	if got != "" {
		t.Errorf("pdfText = %q, want empty", got)
	}
}
