package httpx

import (
	"fmt"
	"regexp"
)

// MaxLoggedBodyLength caps how much of a response body makes it into logs.
const MaxLoggedBodyLength = 200

// TruncateForLogging trims a response body for log output so that source
// code and other payload data never land in log aggregators wholesale.
func TruncateForLogging(body string) string {
	if len(body) <= MaxLoggedBodyLength {
		return body
	}
	return body[:MaxLoggedBodyLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(body))
}

var secretParamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(private_token)=[^&"\s]+`),
	regexp.MustCompile(`(access_token)=[^&"\s]+`),
	regexp.MustCompile(`(api_key)=[^&"\s]+`),
	regexp.MustCompile(`(token)=[^&"\s]+`),
	regexp.MustCompile(`(key)=[^&"\s]+`),
}

// RedactURLSecrets masks credential-bearing query parameters in URLs that
// surface in error messages or logs.
func RedactURLSecrets(text string) string {
	if text == "" {
		return text
	}
	for _, re := range secretParamPatterns {
		text = re.ReplaceAllString(text, "$1=[REDACTED]")
	}
	return text
}
