// Package pagetl translates the readable content of an HTML page in place.
//
// Pagetl extracts translation units from a document, shields inline code
// spans from the translation step, detects the source language, translates
// each unit through a pluggable capability and writes the result back to the
// exact node it came from, reporting progress as it goes.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/pagetl"
//	    "github.com/ZaguanLabs/pagetl/document"
//	    "github.com/ZaguanLabs/pagetl/provider"
//	    "github.com/ZaguanLabs/pagetl/service"
//	)
//
//	func main() {
//	    svc := service.New(
//	        provider.NewLinguaDetector(),
//	        provider.NewOpenAITranslator(provider.OpenAIConfig{
//	            APIKey: os.Getenv("OPENAI_API_KEY"),
//	        }),
//	    )
//	    defer svc.DestroyAll()
//
//	    page, err := document.Parse(strings.NewReader("<p>Hello World</p>"))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    o := pagetl.NewOrchestrator(svc, pagetl.StaticTarget(page),
//	        pagetl.WithTargetLanguage("ko"),
//	    )
//	    result, err := o.Run(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(result.Status) // completed
//	}
package pagetl
