package analysis

import (
	"path"
	"strings"
)

var languageByExtension = map[string]string{
	".go":    "Go",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".mjs":   "JavaScript",
	".py":    "Python",
	".java":  "Java",
	".rb":    "Ruby",
	".rs":    "Rust",
	".c":     "C",
	".h":     "C",
	".cc":    "C++",
	".cpp":   "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".php":   "PHP",
	".kt":    "Kotlin",
	".swift": "Swift",
	".sh":    "Shell",
	".bash":  "Shell",
	".yaml":  "YAML",
	".yml":   "YAML",
	".json":  "JSON",
	".md":    "Markdown",
	".sql":   "SQL",
}

var skippedDirs = []string{
	"vendor/",
	"node_modules/",
	"dist/",
	"build/",
	"third_party/",
	".git/",
}

var skippedFiles = map[string]bool{
	"go.sum":            true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"Gemfile.lock":      true,
	"Cargo.lock":        true,
	"composer.lock":     true,
}

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".jar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".wasm": true, ".class": true, ".o": true, ".a": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp3": true, ".mp4": true,
}

// DetectLanguage maps a filename onto a language name by extension. The
// empty string means unknown; unknown files still get the generic checks.
func DetectLanguage(filename string) string {
	return languageByExtension[strings.ToLower(path.Ext(filename))]
}

// Analyzable reports whether a path is worth analyzing at all. Vendored
// trees, lockfiles, minified bundles, and binary formats are skipped.
func Analyzable(filename string) bool {
	for _, dir := range skippedDirs {
		if strings.HasPrefix(filename, dir) || strings.Contains(filename, "/"+dir) {
			return false
		}
	}
	base := path.Base(filename)
	if skippedFiles[base] {
		return false
	}
	if strings.HasSuffix(base, ".min.js") || strings.HasSuffix(base, ".min.css") {
		return false
	}
	return !binaryExtensions[strings.ToLower(path.Ext(filename))]
}

// IsTestFile reports whether a path follows one of the known test-file
// naming conventions.
func IsTestFile(filename string) bool {
	base := path.Base(filename)
	switch {
	case strings.HasSuffix(base, "_test.go"),
		strings.HasSuffix(base, ".test.ts"), strings.HasSuffix(base, ".spec.ts"),
		strings.HasSuffix(base, ".test.tsx"), strings.HasSuffix(base, ".spec.tsx"),
		strings.HasSuffix(base, ".test.js"), strings.HasSuffix(base, ".spec.js"),
		strings.HasSuffix(base, "_test.py"), strings.HasPrefix(base, "test_"),
		strings.HasSuffix(base, "_spec.rb"), strings.HasSuffix(base, "_test.rb"),
		strings.HasSuffix(base, "Test.java"):
		return true
	}
	return false
}

// testCompanions lists the test paths that would cover a source file,
// all in the source file's own directory.
func testCompanions(filename string) []string {
	dir := path.Dir(filename)
	base := path.Base(filename)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	join := func(name string) string {
		if dir == "." {
			return name
		}
		return dir + "/" + name
	}

	switch ext {
	case ".go":
		return []string{join(stem + "_test.go")}
	case ".ts", ".tsx", ".js", ".jsx":
		return []string{
			join(stem + ".test" + ext),
			join(stem + ".spec" + ext),
		}
	case ".py":
		return []string{
			join("test_" + base),
			join(stem + "_test.py"),
		}
	case ".rb":
		return []string{
			join(stem + "_spec.rb"),
			join(stem + "_test.rb"),
		}
	case ".java":
		return []string{join(stem + "Test.java")}
	}
	return nil
}
