package mcp

import (
	"regexp"
	"strings"
)

// SignalKind groups local poisoning heuristics. Signals never change a
// verdict; they explain why a description may have scored high.
type SignalKind string

const (
	SignalHiddenInstructions SignalKind = "hidden_instructions"
	SignalCredentialHarvest  SignalKind = "credential_harvest"
	SignalExfiltration       SignalKind = "exfiltration_intent"
	SignalStealth            SignalKind = "stealth_instruction"
)

type Signal struct {
	Kind    SignalKind `json:"kind"`
	Detail  string     `json:"detail"`
	Snippet string     `json:"snippet,omitempty"`
}

type signalRule struct {
	kind   SignalKind
	re     *regexp.Regexp
	detail string
}

var signalRules = []signalRule{
	{SignalHiddenInstructions, regexp.MustCompile(`<(important|system|instruction)>`), "hidden markup tag"},
	{SignalHiddenInstructions, regexp.MustCompile(`ignore\s+(all\s+)?(previous|prior)\s+instructions`), "ignore previous instructions"},
	{SignalHiddenInstructions, regexp.MustCompile(`before\s+using\s+this\s+tool.*read`), "pre-condition to read files"},
	{SignalCredentialHarvest, regexp.MustCompile(`~/?\.(ssh|aws|gnupg|kube)|id_rsa|id_ed25519`), "sensitive key material"},
	{SignalCredentialHarvest, regexp.MustCompile(`mcp\.json|\.env\b|/etc/(shadow|passwd)`), "sensitive config file"},
	{SignalExfiltration, regexp.MustCompile(`pass\s+(its?|the|this)?\s*(content|contents|data)?\s*as\b`), "pass data as a parameter"},
	{SignalExfiltration, regexp.MustCompile(`send\s+all\s+(emails|messages|requests|data)\s+to\b`), "redirect data"},
	{SignalStealth, regexp.MustCompile(`(do\s+not|don'?t)\s+(mention|tell|inform|reveal)`), "hide behavior from the user"},
}

// DetectSignals runs the local heuristics over a tool description.
func DetectSignals(text string) []Signal {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var out []Signal
	for _, rule := range signalRules {
		if loc := rule.re.FindStringIndex(lower); loc != nil {
			out = append(out, Signal{Kind: rule.kind, Detail: rule.detail, Snippet: snippet(text, loc[0], 80)})
		}
	}
	return out
}

// snippet cuts a window around idx; lower-casing keeps byte offsets for the
// ASCII patterns above.
func snippet(text string, idx, maxLen int) string {
	start := max(idx-20, 0)
	end := min(idx+maxLen, len(text))
	if start >= end {
		return ""
	}
	s := strings.ToValidUTF8(text[start:end], "")
	if start > 0 {
		s = "..." + s
	}
	if end < len(text) {
		s += "..."
	}
	return s
}
