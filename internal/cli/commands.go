package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/spf13/cobra"
)

var (
	searchK     int
	askCategory string
	embedFull   bool
	jsonOutput  bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Print the category of a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := advisor.Classify(strings.Join(args, " "))
		cmd.Printf("%s (%s)\n", category, category.Info().Name)
		return nil
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed [text]",
	Short: "Print the embedding of a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vector, mode, err := advisor.Embed(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}

		cmd.Printf("mode: %s\ndimension: %d\n", mode, len(vector))
		shown := vector
		if !embedFull && len(shown) > 8 {
			shown = shown[:8]
		}
		cmd.Printf("vector: %v", shown)
		if len(shown) < len(vector) {
			cmd.Print(" ...")
		}
		cmd.Println()
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Show the nearest seed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchK < 1 {
			return fmt.Errorf("%w: -k must be positive", entity.ErrInvalidParameter)
		}

		results, err := advisor.Search(cmd.Context(), strings.Join(args, " "), searchK)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd, results)
		}

		if len(results) == 0 {
			cmd.Println("No documents indexed.")
			return nil
		}
		for _, r := range results {
			cmd.Printf("  [%d] %.4f %s/%s\n      %s\n", r.Rank, r.Score, r.Category, r.Topic, r.Text)
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question through the full pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := entity.Query{Question: strings.Join(args, " ")}
		if askCategory != "" {
			category, err := entity.ParseCategory(askCategory)
			if err != nil {
				return err
			}
			q.Category = category
		}

		res := advisor.Ask(cmd.Context(), q)
		if jsonOutput {
			return printJSON(cmd, res)
		}

		cmd.Println(res.Response)
		cmd.Println()
		cmd.Printf("category: %s  backend: %s  degraded: %t  sources: %d\n",
			res.Category, res.BackendUsed, res.Degraded, res.RetrievedCount)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 3, "number of documents")
	askCmd.Flags().StringVarP(&askCategory, "category", "c", "", "fix the category instead of classifying")
	embedCmd.Flags().BoolVar(&embedFull, "full", false, "print every component")

	for _, c := range []*cobra.Command{searchCmd, askCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	}

	rootCmd.AddCommand(classifyCmd, embedCmd, searchCmd, askCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
