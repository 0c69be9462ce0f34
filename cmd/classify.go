package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SergeOin/titan/internal/classifier"
	"github.com/SergeOin/titan/internal/config"
)

var classifyPublished string

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify one post text and print the verdict",
	Long: `Runs the classifier over the given text (or stdin when no argument
is supplied) and prints the verdict as JSON. Useful for tuning keyword
tables and thresholds without running a cycle.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyPublished, "published", "",
		"publish date (RFC 3339, defaults to now)")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		raw, readErr := io.ReadAll(cmd.InOrStdin())
		if readErr != nil {
			return fmt.Errorf("read stdin: %w", readErr)
		}
		text = strings.TrimSpace(string(raw))
	}

	now := time.Now()
	published := now
	if classifyPublished != "" {
		published, err = time.Parse(time.RFC3339, classifyPublished)
		if err != nil {
			return fmt.Errorf("parse --published: %w", err)
		}
	}

	verdict := classifier.New(cfg.Classifier).Classify(text, &published, now)

	out, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
