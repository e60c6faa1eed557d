package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonnylabs/sonnylabs-go/scan"
)

func newRAGCmd(opts *options) *cobra.Command {
	var (
		query     string
		maxChunks int
		skipQuery bool
		meta      map[string]string
	)
	cmd := &cobra.Command{
		Use:   "rag --query QUERY [chunks.json|-]",
		Short: "Scan retrieved RAG chunks before they reach the prompt",
		Long: `Scan a JSON array of retrieved chunks. Each chunk is either a string or an
object; objects are read from their "text", "content" or "page_content" field.

Chunks past --max-chunks are flagged without being scanned.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, firstArg(args))
			if err != nil {
				return fmt.Errorf("failed to read chunks: %w", err)
			}
			chunks, err := scan.ParseChunks(data)
			if err != nil {
				return err
			}

			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			p := sess.policy
			if cmd.Flags().Changed("max-chunks") {
				p.MaxChunksToScan = maxChunks
			}
			if skipQuery {
				p.SkipQueryScan = true
			}

			r, err := sess.scanner.ScanRAGChunks(cmd.Context(), scan.RAGRequest{
				Query:  query,
				Chunks: chunks,
				Policy: p,
				Meta:   toMeta(meta),
			})
			if err != nil {
				return err
			}

			for i, v := range r.VerdictPerChunk {
				sess.record("rag_chunk", chunks[i].Text(), v, "")
			}
			if r.QueryVerdict != nil {
				sess.record("rag_query", query, *r.QueryVerdict, "")
			}

			if err := sess.emit(r, ragSummary(r)); err != nil {
				return err
			}
			return sess.judge(!r.IsSafe, r.String())
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "The user query the chunks were retrieved for")
	cmd.Flags().IntVar(&maxChunks, "max-chunks", 0, "Scan at most this many chunks (default: policy max_chunks_to_scan)")
	cmd.Flags().BoolVar(&skipQuery, "skip-query", false, "Do not scan the query")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "Metadata attached to every verdict (key=value)")
	return cmd
}

func ragSummary(r scan.RAGScanResult) string {
	var b strings.Builder
	b.WriteString(r.String())
	if r.QueryVerdict != nil {
		fmt.Fprintf(&b, "\n  query: %s", r.QueryVerdict.String())
	}
	for _, c := range r.FlaggedChunks {
		fmt.Fprintf(&b, "\n  chunk %d: %s (score: %.2f)", c.Index, c.Reason, c.Score)
	}
	return b.String()
}
