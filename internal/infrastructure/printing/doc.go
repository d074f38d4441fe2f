// Package printing turns document template data into stored PDF artifacts.
//
// The pipeline has three steps:
//   - TemplateEngine renders the embedded HTML template of a document type
//   - PDFRenderer (ChromedpRenderer in production) prints the HTML to PDF
//   - an ArtifactStore persists the PDF and returns its URL
//
// DocumentRenderer chains the three and implements the document
// application's Renderer port:
//
//	engine, _ := NewTemplateEngine(WithCurrencySymbol("$"))
//	pdf, _ := NewChromedpRenderer(&ChromedpConfig{RemoteURL: cfg.ChromeRemoteURL})
//	renderer := NewDocumentRenderer(engine, pdf, store, "documents", logger)
//	artifact, err := renderer.Render(ctx, req)
package printing
