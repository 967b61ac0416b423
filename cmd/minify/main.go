package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// mediaTypes maps asset extensions to the minifier that handles them.
var mediaTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
}

func main() {
	var (
		outDir = flag.String("out", "dist", "Output directory")
		dirs   = flag.String("dirs", "templates,static", "Comma-separated source directories")
	)
	flag.Parse()

	m := newMinifier()
	var total, saved int
	for _, dir := range strings.Split(*dirs, ",") {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			before, after, err := processFile(m, path, filepath.Join(*outDir, path))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			total += before
			saved += before - after
			return nil
		})
		if err != nil {
			log.Fatalf("Failed to minify %s: %v", dir, err)
		}
	}
	fmt.Printf("Minified assets into %s: %d bytes saved of %d\n", *outDir, saved, total)
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	// Go template actions must survive minification untouched.
	m.Add("text/html", &html.Minifier{KeepDocumentTags: true, KeepEndTags: true, TemplateDelims: [2]string{"{{", "}}"}})
	m.AddFunc("application/javascript", js.Minify)
	return m
}

// processFile minifies src into dst, or copies it verbatim when the
// extension has no minifier (images, fonts, palette data).
func processFile(m *minify.M, src, dst string) (int, int, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, 0, err
	}
	out := data
	if mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(src))]; ok {
		if out, err = m.Bytes(mediaType, data); err != nil {
			return 0, 0, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, 0, err
	}
	if err := os.WriteFile(dst, out, 0644); err != nil {
		return 0, 0, err
	}
	return len(data), len(out), nil
}
