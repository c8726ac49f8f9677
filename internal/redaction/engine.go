package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Engine scrubs secrets out of repository content before it leaves the
// process, in particular before file content is embedded in AI prompts.
// Each distinct secret maps to a stable placeholder so repeated
// occurrences stay correlated in the scrubbed output.
type Engine struct {
	patterns []*regexp.Regexp
}

// NewEngine builds an engine with the default secret patterns.
func NewEngine() *Engine {
	return &Engine{patterns: defaultPatterns()}
}

// Redact replaces every detected secret with its placeholder.
func (e *Engine) Redact(input string) string {
	placeholders := make(map[string]string)
	for _, pattern := range e.patterns {
		for _, match := range pattern.FindAllString(input, -1) {
			if _, seen := placeholders[match]; seen {
				continue
			}
			placeholders[match] = placeholder(match)
		}
	}

	result := input
	for secret, repl := range placeholders {
		result = strings.ReplaceAll(result, secret, repl)
	}
	return result
}

// RedactBytes is Redact for raw file content.
func (e *Engine) RedactBytes(input []byte) []byte {
	return []byte(e.Redact(string(input)))
}

// Contains reports whether content already holds redaction placeholders.
func (e *Engine) Contains(content string) bool {
	return strings.Contains(content, "<REDACTED:")
}

// placeholder derives a stable marker from the secret itself, so the
// same secret always redacts to the same token.
func placeholder(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("<REDACTED:%s>", hex.EncodeToString(sum[:])[:8])
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// OpenAI-style API keys
		`sk-[a-zA-Z0-9\-]{20,}`,
		// GitHub tokens (classic and fine-grained)
		`gh[posr]_[a-zA-Z0-9]{20,}`,
		`github_pat_[a-zA-Z0-9_]{22,}`,
		// GitLab personal and project access tokens
		`glpat-[a-zA-Z0-9\-_]{20,}`,
		// Bitbucket app passwords in basic-auth URLs
		`https://[^/\s:]+:[^@\s]{16,}@bitbucket\.org`,
		// Azure DevOps PATs are unprefixed base64; catch them in headers
		`Basic\s+[a-zA-Z0-9+/=]{40,}`,
		// AWS access key IDs and secret keys
		`AKIA[0-9A-Z]{16}`,
		`aws.{0,20}?['\"][0-9a-zA-Z/+]{40}['\"]`,
		// Google API keys
		`AIza[0-9A-Za-z\-_]{35}`,
		// Slack tokens
		`xox[baprs]-[a-zA-Z0-9\-]{10,}`,
		// JWTs
		`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
		// PEM private key blocks
		`-----BEGIN\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----[\s\S]*?-----END\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----`,
		// Bearer credentials
		`Bearer\s+[a-zA-Z0-9_\-\.]+`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(pattern))
	}
	return compiled
}
