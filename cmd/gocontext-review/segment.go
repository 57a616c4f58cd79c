package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/gocontext-review/internal/chunker"
	"github.com/dshills/gocontext-review/internal/config"
	"github.com/dshills/gocontext-review/pkg/types"
)

var segmentFlags struct {
	maxSize int
	overlap int
	policy  string
}

var segmentCmd = &cobra.Command{
	Use:   "segment [file]",
	Short: "Split a file (or stdin) into segments and print them as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSegment,
}

func init() {
	f := segmentCmd.Flags()
	f.IntVar(&segmentFlags.maxSize, "max-size", 0, "maximum segment length in characters (default 1000)")
	f.IntVar(&segmentFlags.overlap, "overlap", 0, "characters shared by consecutive segments (default 200)")
	f.StringVar(&segmentFlags.policy, "policy", "", "separator policy: text, go or python")
}

// segmentView is the printed form of a segment
type segmentView struct {
	Index     int    `json:"index"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Length    int    `json:"length"`
	Overlap   int    `json:"overlap"`
	Oversized bool   `json:"oversized,omitempty"`
	Content   string `json:"content"`
}

func runSegment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, func(cfg *config.Config) {
		f := cmd.Flags()
		if f.Changed("max-size") {
			cfg.MaxSize = segmentFlags.maxSize
		}
		if f.Changed("overlap") {
			cfg.Overlap = segmentFlags.overlap
		}
		if f.Changed("policy") {
			cfg.Policy = segmentFlags.policy
		}
		if len(args) > 0 && !f.Changed("policy") {
			// Pick the policy from the file name
			cfg.LanguageAware = true
		}
	})
	if err != nil {
		return err
	}

	if cfg.Policy != "" {
		if _, ok := chunker.PolicyByName(cfg.Policy); !ok {
			return &exitError{code: exitConfig, err: fmt.Errorf("unknown separator policy %q", cfg.Policy)}
		}
	}

	doc, err := readDocument(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	c, err := chunker.New(cfg.ChunkerOptions())
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}

	segments := c.Split(doc)
	views := make([]segmentView, 0, len(segments))
	for _, seg := range segments {
		views = append(views, segmentView{
			Index:     seg.Index,
			Start:     seg.Start,
			End:       seg.End,
			Length:    seg.Length(),
			Overlap:   seg.Overlap,
			Oversized: seg.Oversized,
			Content:   seg.Content,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

// readDocument reads the named file, or stdin when no file is given
func readDocument(stdin io.Reader, args []string) (types.Document, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return types.Document{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		return types.Document{Identifier: "stdin", Content: string(data)}, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return types.Document{}, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return types.Document{Identifier: args[0], Content: string(data)}, nil
}
