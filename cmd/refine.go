package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-engine/internal/consensus"
	"github.com/sells-group/appraisal-engine/internal/model"
	"github.com/sells-group/appraisal-engine/internal/session"
)

var refineCmd = &cobra.Command{
	Use:   "refine <outcome.json> <image> [image...]",
	Short: "Interactively gather evidence for a saved appraisal and re-analyze",
	Long:  "Loads a saved consensus outcome, asks for the evidence most likely to reduce uncertainty, and re-runs the consensus analysis once enough has been collected.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome, err := loadOutcome(args[0])
		if err != nil {
			return err
		}
		images, err := loadImages(args[1:])
		if err != nil {
			return err
		}

		sess := session.New(args[0], outcome.FinalResult, cfg.Needs)
		printLastAssistant(sess)

		if sess.Status() == model.SessionComplete {
			return nil
		}

		scanner := bufio.NewScanner(os.Stdin)
		for sess.Status() == model.SessionGatheringInfo {
			pending := sess.PendingNeeds()
			if len(pending) == 0 {
				break
			}
			need := pending[0]

			fmt.Print("> ")
			if !scanner.Scan() {
				sess.Abandon()
				return scanner.Err()
			}
			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			if input == "quit" || input == "exit" {
				sess.Abandon()
				fmt.Println("Session closed. Your original appraisal is unchanged.")
				return nil
			}

			sess.AddResponse(need.ID, responseTypeFor(need.Type), input)
			printLastAssistant(sess)
		}

		if sess.Status() != model.SessionProcessing {
			return nil
		}

		orch, err := buildOrchestrator()
		if err != nil {
			return err
		}
		updated, err := orch.Run(cmd.Context(), images, 0, consensus.Options{
			Config:        &cfg.Consensus,
			ForceMultiRun: true,
		})
		if err != nil {
			// The session stays in processing; the user can run refine again.
			zap.L().Warn("refine: reanalysis failed, session left in processing", zap.Error(err))
			fmt.Println("I hit a problem re-running the analysis. Your responses are saved; please try again shortly.")
			return nil
		}

		sess.UpdateWithReanalysis(updated.FinalResult)
		printLastAssistant(sess)
		return writeOutcome(updated)
	},
}

func init() {
	rootCmd.AddCommand(refineCmd)
}

func loadOutcome(path string) (*model.ConsensusOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read outcome")
	}
	var outcome model.ConsensusOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil, eris.Wrap(err, "parse outcome")
	}
	if outcome.FinalResult.Name == "" {
		return nil, eris.Errorf("%s does not contain an appraisal outcome", path)
	}
	return &outcome, nil
}

func printLastAssistant(sess *session.Session) {
	history := sess.History()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleAssistant {
			fmt.Printf("\n%s\n\n", history[i].Content)
			return
		}
	}
}

func responseTypeFor(t model.NeedType) model.ResponseType {
	switch t {
	case model.NeedPhotoMarks, model.NeedPhotoUnderside, model.NeedPhotoBack,
		model.NeedPhotoCondition, model.NeedPhotoScale:
		return model.ResponsePhoto
	case model.NeedMeasurement:
		return model.ResponseMeasurement
	case model.NeedDocument:
		return model.ResponseDocument
	default:
		return model.ResponseText
	}
}
