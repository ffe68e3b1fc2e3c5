package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"menucritic/internal/config"
	"menucritic/internal/critique"
	"menucritic/internal/gateway"
	"menucritic/internal/input"
	"menucritic/internal/logging"
	"menucritic/internal/pipeline"
)

// CLI flags
var (
	textFlag    string
	fileFlag    string
	imageFlag   string
	modeFlag    string
	goalFlag    string
	contextFlag string
)

var rootCmd = &cobra.Command{
	Use:   "menu-critic",
	Short: "One-shot AI critique of a restaurant menu",
	Long: `Menu Critic analyzes a restaurant menu (pasted text, a text file, or a
photo) and prints a structured critique as JSON: scores, top changes, revenue
levers, rewrite examples, A/B test ideas, and red flags.

Examples:
  menu-critic --text "Burger $9, Fries $3"
  menu-critic --file menu.txt --mode roast
  menu-critic --image menu.jpg --goal "Increase average order value"
  menu-critic --file menu.txt --context "Neighborhood pizzeria, dine-in"`,
	Version: fmt.Sprintf("%s (built %s)", commitHash, buildTime),
	Run:     runMain,
}

func init() {
	rootCmd.Flags().StringVar(&textFlag, "text", "", "Menu text to analyze")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Path to a text file containing the menu")
	rootCmd.Flags().StringVarP(&imageFlag, "image", "i", "", "Path to a menu photo (JPEG or PNG)")
	rootCmd.Flags().StringVarP(&modeFlag, "mode", "m", "fix", "Critique mode: fix or roast")
	rootCmd.Flags().StringVar(&goalFlag, "goal", "", "Primary business goal to optimize for")
	rootCmd.Flags().StringVar(&contextFlag, "context", "", "Restaurant context (cuisine, location, service style)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	mode, err := critique.ParseMode(modeFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid mode")
	}

	req, err := buildRequest(mode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid input")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	invoker, err := gateway.NewInvoker(ctx, cfg.APIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	result, state := pipeline.New(cfg, invoker).Analyze(ctx, req)
	if state != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed (%s): %s\n", state.Category, state.Message)
		if state.Hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", state.Hint)
		}
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to serialize critique")
	}
	fmt.Println(string(out))
}

// buildRequest resolves the text/file/image flags into an AnalysisRequest.
// Exactly one input source must be provided.
func buildRequest(mode critique.Mode) (*input.AnalysisRequest, error) {
	sources := 0
	for _, s := range []string{textFlag, fileFlag, imageFlag} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("provide exactly one of --text, --file, or --image")
	}

	req := &input.AnalysisRequest{
		SessionID: uuid.NewString(),
		Mode:      mode,
		Goal:      goalFlag,
		Context:   contextFlag,
	}

	switch {
	case textFlag != "":
		req.Kind = input.KindText
		req.Text = textFlag

	case fileFlag != "":
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return nil, fmt.Errorf("could not read menu file: %w", err)
		}
		req.Kind = input.KindText
		req.Text = string(data)

	case imageFlag != "":
		data, err := os.ReadFile(imageFlag)
		if err != nil {
			return nil, fmt.Errorf("could not read menu image: %w", err)
		}
		req.Kind = input.KindImage
		req.Image = data
	}

	return req, nil
}
