package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-engine/internal/appraise"
	"github.com/sells-group/appraisal-engine/internal/consensus"
	"github.com/sells-group/appraisal-engine/internal/model"
	"github.com/sells-group/appraisal-engine/pkg/anthropic"
)

var (
	appraiseAskingPrice float64
	appraiseMultiRun    bool
	appraiseParallel    bool
	appraiseOutput      string
)

var appraiseCmd = &cobra.Command{
	Use:   "appraise <image> [image...]",
	Short: "Analyze item photographs and produce a consensus appraisal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		images, err := loadImages(args)
		if err != nil {
			return err
		}

		orch, err := buildOrchestrator()
		if err != nil {
			return err
		}

		outcome, err := orch.Run(cmd.Context(), images, appraiseAskingPrice, consensus.Options{
			Config:        &cfg.Consensus,
			ForceMultiRun: appraiseMultiRun,
			Parallel:      appraiseParallel,
			Progress: func(ev consensus.ProgressEvent) {
				fmt.Fprintf(os.Stderr, "[%3.0f%%] %s\n", ev.Progress*100, ev.Message)
			},
		})
		if err != nil {
			return eris.Wrap(err, "appraise")
		}

		return writeOutcome(outcome)
	},
}

func init() {
	appraiseCmd.Flags().Float64Var(&appraiseAskingPrice, "asking-price", 0, "seller's asking price in USD, if known")
	appraiseCmd.Flags().BoolVar(&appraiseMultiRun, "multi-run", false, "force a multi-run consensus even when no trigger fires")
	appraiseCmd.Flags().BoolVar(&appraiseParallel, "parallel", false, "run additional analyses concurrently")
	appraiseCmd.Flags().StringVarP(&appraiseOutput, "output", "o", "", "write the outcome JSON to a file instead of stdout")
	rootCmd.AddCommand(appraiseCmd)
}

func buildOrchestrator() (*consensus.Orchestrator, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic.key is not configured (set APPRAISAL_ANTHROPIC_KEY)")
	}
	client := anthropic.NewClient(cfg.Anthropic.Key)
	analyzer := appraise.New(client, cfg.Anthropic)

	var synth *consensus.Synthesizer
	if cfg.Consensus.UseReasoningModel {
		synth = consensus.NewSynthesizer(client, cfg.Consensus, cfg.Anthropic)
	}
	return consensus.NewOrchestrator(analyzer, synth), nil
}

func writeOutcome(outcome model.ConsensusOutcome) error {
	payload, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal outcome")
	}

	if appraiseOutput != "" {
		if err := os.WriteFile(appraiseOutput, payload, 0o644); err != nil {
			return eris.Wrap(err, "write outcome")
		}
		zap.L().Info("appraise: outcome written", zap.String("path", appraiseOutput))
	} else {
		fmt.Println(string(payload))
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", outcome.FinalResult.RenderDescription())
	return nil
}

// mediaTypes maps file extensions to the media types the vision API accepts.
var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func loadImages(paths []string) ([]model.Image, error) {
	var images []model.Image
	for _, path := range paths {
		mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil, eris.Errorf("unsupported image type: %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "read image")
		}
		images = append(images, model.Image{MediaType: mediaType, Data: data})
	}
	return images, nil
}
