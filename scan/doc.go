// Package scan turns prompt-injection scores produced by a remote classifier
// into verdicts that application code can branch on.
//
// Architecture:
//
//	Scorer (interface)        performs the remote classification call
//	  └── client.Client       SonnyLabs HTTP API adapter
//
//	Scanner                   applies thresholds and aggregates results:
//	  ScanText                  one text       → Verdict
//	  ScanMessages              conversation   → Verdict
//	  ScanRAGChunks             retrieval set  → RAGScanResult
//	  ScanToolCall              tool proposal  → ToolCallScanResult
//
//	Configure / Default       process-wide default Scanner used by the
//	                            package-level Scan* functions.
//
// Every content-path failure (transport error, non-success response, missing
// or malformed score) is absorbed into a fail-secure Verdict with IsSafe=false
// and Score=1.0. Only usage errors (no scorer configured, invalid scan type,
// invalid policy) are returned as errors.
package scan
