package security

import (
	"strings"
	"testing"
)

// TestSanitize_RemovesScriptTags はscriptタグの除去を検証する。
func TestSanitize_RemovesScriptTags(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p>来週の活動について</p><script>alert('xss')</script>`
	got := s.Sanitize(input)

	if strings.Contains(got, "<script") {
		t.Errorf("script tag must be removed, got %q", got)
	}
	if !strings.Contains(got, "<p>来週の活動について</p>") {
		t.Errorf("allowed content must survive, got %q", got)
	}
}

// TestSanitize_RemovesEventAttributes はon*イベント属性の除去を検証する。
func TestSanitize_RemovesEventAttributes(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p onclick="alert('xss')">クリック</p>`
	got := s.Sanitize(input)

	if strings.Contains(got, "onclick") {
		t.Errorf("event attribute must be removed, got %q", got)
	}
}

// TestSanitize_AllowsBasicFormatting は許可タグの通過を検証する。
func TestSanitize_AllowsBasicFormatting(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p>持ち物:</p><ul><li><strong>軍手</strong></li><li><em>飲み物</em></li></ul>`
	got := s.Sanitize(input)

	for _, tag := range []string{"<p>", "<ul>", "<li>", "<strong>", "<em>"} {
		if !strings.Contains(got, tag) {
			t.Errorf("expected %s to survive, got %q", tag, got)
		}
	}
}

// TestSanitize_LinkAttributes はaタグへの安全属性の付与を検証する。
func TestSanitize_LinkAttributes(t *testing.T) {
	s := NewContentSanitizer()

	input := `<a href="https://example.com/form">申込フォーム</a>`
	got := s.Sanitize(input)

	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("expected target=_blank, got %q", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("expected rel noopener noreferrer, got %q", got)
	}
}

// TestSanitize_RejectsJavascriptScheme はjavascriptスキームのリンク除去を検証する。
func TestSanitize_RejectsJavascriptScheme(t *testing.T) {
	s := NewContentSanitizer()

	input := `<a href="javascript:alert('xss')">リンク</a>`
	got := s.Sanitize(input)

	if strings.Contains(got, "javascript:") {
		t.Errorf("javascript scheme must be removed, got %q", got)
	}
}

// TestSanitize_EmptyInput は空入力の扱いを検証する。
func TestSanitize_EmptyInput(t *testing.T) {
	s := NewContentSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

// TestSanitize_Idempotent はサニタイズの冪等性を検証する。
func TestSanitize_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p>テスト<script>bad()</script></p><ul><li>項目</li></ul>`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)

	if once != twice {
		t.Errorf("sanitize must be idempotent: %q != %q", once, twice)
	}
}
