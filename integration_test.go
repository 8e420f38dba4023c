package pagetl_test

import (
	"context"
	"strings"
	"testing"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/document"
	"github.com/ZaguanLabs/pagetl/messaging"
	"github.com/ZaguanLabs/pagetl/provider"
	"github.com/ZaguanLabs/pagetl/service"
)

// Integration tests using all real components

func translatePage(t *testing.T, svc pagetl.Service, src, target string, docOpts ...document.Option) (*document.Page, *pagetl.RunResult, string) {
	t.Helper()
	page, err := document.Parse(strings.NewReader(src), docOpts...)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	result, err := pagetl.NewOrchestrator(svc, pagetl.StaticTarget(page),
		pagetl.WithTargetLanguage(target)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	out, err := page.HTML()
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	return page, result, out
}

func TestIntegration_BasicTranslation(t *testing.T) {
	svc := service.New(provider.NewMockDetector("en", 0.9), provider.NewMockTranslator())

	_, result, out := translatePage(t, svc, `<div><p>Hello</p></div>`, "es_ES")

	if !strings.Contains(out, "<p>Hola</p>") {
		t.Errorf("Expected 'Hola' in result, got: %s", out)
	}
	if result.Replace.Applied != 1 || result.Status != pagetl.StatusCompleted {
		t.Errorf("result = %+v", result)
	}
}

func TestIntegration_NoTranslationMemory(t *testing.T) {
	tr := provider.NewMockTranslator()
	svc := service.New(provider.NewMockDetector("en", 0.9), tr)

	translatePage(t, svc, `<p>Hello</p><p>Hello</p>`, "es")
	translatePage(t, svc, `<p>Hello</p>`, "es")

	// Identical text is translated every time it occurs
	if tr.TranslateCalls != 3 {
		t.Errorf("TranslateCalls = %d, want 3", tr.TranslateCalls)
	}
	// while the translator handle is shared
	if tr.InstanceCount() != 1 {
		t.Errorf("InstanceCount = %d, want 1", tr.InstanceCount())
	}
}

func TestIntegration_IgnoredTags(t *testing.T) {
	svc := service.New(provider.NewMockDetector("en", 0.9), provider.NewMockTranslator())

	src := `<div>
		<p>Hello</p>
		<script>console.log("Hello");</script>
		<style>.hello { color: red; }</style>
		<pre>Hello</pre>
	</div>`

	_, result, out := translatePage(t, svc, src, "es")

	if result.Units != 1 {
		t.Errorf("Expected 1 translatable unit, got %d", result.Units)
	}
	if !strings.Contains(out, `console.log("Hello")`) {
		t.Error("Script content should not be translated")
	}
	if !strings.Contains(out, "<pre>Hello</pre>") {
		t.Error("Preformatted content should not be translated")
	}
}

func TestIntegration_DataNoTranslate(t *testing.T) {
	svc := service.New(provider.NewMockDetector("en", 0.9), provider.NewMockTranslator())

	src := `<div>
		<p data-no-translate>Hello</p>
		<p class="notranslate">Hello</p>
		<p>World</p>
	</div>`

	_, result, out := translatePage(t, svc, src, "es")

	if result.Units != 1 {
		t.Errorf("Expected 1 translatable unit, got %d", result.Units)
	}
	if strings.Count(out, ">Hello<") != 2 {
		t.Error("excluded content should not be translated")
	}
	if !strings.Contains(out, "Mundo") {
		t.Error("World should be translated to Mundo")
	}
}

func TestIntegration_RTLLanguage(t *testing.T) {
	tr := provider.NewMockTranslator()
	tr.Translations["Hello"] = "مرحبا"
	svc := service.New(provider.NewMockDetector("en", 0.9), tr)

	_, _, out := translatePage(t, svc, `<html><body><p>Hello</p></body></html>`, "ar_SA")

	if !strings.Contains(out, `dir="rtl"`) {
		t.Errorf("Expected dir=\"rtl\" for Arabic, got: %s", out)
	}
	if !strings.Contains(out, `lang="ar-SA"`) {
		t.Errorf("Expected lang=\"ar-SA\", got: %s", out)
	}
	if !strings.Contains(out, "مرحبا") {
		t.Error("Expected Arabic translation")
	}
}

func TestIntegration_NodeMode(t *testing.T) {
	svc := service.New(provider.NewMockDetector("en", 0.9), provider.NewMockTranslator())

	_, result, out := translatePage(t, svc, "<p>\n  Hello <b>World</b></p>", "es",
		document.WithMode(document.ModeNode))

	if result.Units != 2 {
		t.Errorf("Units = %d, want 2", result.Units)
	}
	if !strings.Contains(out, "<p>\n  Hola <b>Mundo</b></p>") {
		t.Errorf("whitespace and markup should survive, got: %s", out)
	}
}

func TestIntegration_InlineCode(t *testing.T) {
	tr := provider.NewMockTranslator()
	tr.Translations["Call <1:run()> now"] = "Llama <1:run()> ya"
	svc := service.New(provider.NewMockDetector("en", 0.9), tr)

	_, _, out := translatePage(t, svc, `<p>Call <code class="fn">run()</code> now</p>`, "es")

	if !strings.Contains(out, `<p>Llama <code class="fn">run()</code> ya</p>`) {
		t.Errorf("code span should be restored verbatim, got: %s", out)
	}
}

func TestIntegration_RemoteSurface(t *testing.T) {
	page, err := document.Parse(strings.NewReader(`<p>Hello World</p><p>Welcome to our site.</p>`))
	if err != nil {
		t.Fatal(err)
	}
	svc := service.New(provider.NewMockDetector("en", 0.9), provider.NewMockTranslator())
	surface := messaging.NewRemoteSurface(messaging.Loopback(page))

	result, err := pagetl.NewOrchestrator(svc, pagetl.StaticTarget(surface),
		pagetl.WithTargetLanguage("es"), pagetl.WithStreaming(true)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Replace.Applied != 2 {
		t.Errorf("Applied = %d, want 2", result.Replace.Applied)
	}

	out, _ := page.HTML()
	if !strings.Contains(out, "<p>Hola Mundo</p>") || !strings.Contains(out, "<p>Bienvenido a nuestro sitio.</p>") {
		t.Errorf("got: %s", out)
	}
}
