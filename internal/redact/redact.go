package redact

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sonnylabs/sonnylabs-go/scan"
)

var sensitivePatterns = []*regexp.Regexp{
	// AWS
	regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

	// GitHub
	regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),

	// SonnyLabs and generic API keys
	regexp.MustCompile(`(?i)sonnylabs_api_token\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),
	regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|secretkey|secret-key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`),

	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{20,}`),
	regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@`),
	regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`),
	regexp.MustCompile(`[rs]k_live_[0-9a-zA-Z]{24}`),
	regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),
}

const redactedPlaceholder = "[REDACTED]"

// Redact replaces credentials and secrets in free text.
func Redact(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, redactedPlaceholder)
	}
	return result
}

// RedactPII masks every PII finding reported by the classification service
// with its label, e.g. "[EMAIL]". Longer findings are replaced first so that
// overlapping matches do not leave fragments behind.
func RedactPII(input string, findings []scan.PIIFinding) string {
	if len(findings) == 0 || input == "" {
		return input
	}
	sorted := make([]scan.PIIFinding, 0, len(findings))
	for _, f := range findings {
		if strings.TrimSpace(f.Text) != "" {
			sorted = append(sorted, f)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Text) > len(sorted[j].Text)
	})

	result := input
	for _, f := range sorted {
		label := strings.ToUpper(strings.TrimSpace(f.Label))
		if label == "" {
			label = "PII"
		}
		result = strings.ReplaceAll(result, f.Text, "["+label+"]")
	}
	return result
}

// MaskToken keeps the first four characters of a token for diagnostics.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return redactedPlaceholder
	}
	return token[:4] + "…" + redactedPlaceholder
}

func RedactArgs(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = Redact(arg)
	}
	return result
}
