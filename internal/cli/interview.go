package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"careercoach/internal/catalog"
	"careercoach/internal/common"
	"careercoach/internal/errors"
	"careercoach/internal/interview"
	"careercoach/internal/types"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// answerTerminator ends a multi-line answer
const answerTerminator = "."

var (
	interviewConfig common.CommandConfig
	interviewDomain string
	interviewLevel  string
)

var interviewCmd = &cobra.Command{
	Use:   "interview [resume-file]",
	Short: "Practice a mock interview in the terminal",
	Long: `Run a text-mode mock interview. Questions are generated from the résumé and
the chosen domain, every answer is critiqued and scored, and a report of the
whole session is written when the interview ends.

Answers may span several lines; finish each with a line containing only ".".`,
	Args:    cobra.ExactArgs(1),
	PreRunE: outputPreRun(&interviewConfig),
	RunE:    runInterview,
}

func init() {
	addOutputFlags(interviewCmd, &interviewConfig)
	interviewCmd.Flags().StringVarP(&interviewDomain, "domain", "d", "", "Interview domain, e.g. \"Software Engineering\"")
	interviewCmd.Flags().StringVarP(&interviewLevel, "level", "l", "", "Experience level: entry, mid or senior (default from config)")
	_ = interviewCmd.MarkFlagRequired("domain")

	_ = interviewCmd.RegisterFlagCompletionFunc("domain", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		cat, err := catalog.Load(cfg.Interview.CatalogFile, cfg.Interview.StrictDomains)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return cat.Names(), cobra.ShellCompDirectiveNoFileComp
	})
}

// fileResume serves the résumé read from the command line
type fileResume struct {
	ref *types.ResumeRef
}

func (f fileResume) GetResumeReference(context.Context, string) (*types.ResumeRef, error) {
	return f.ref, nil
}

func runInterview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	ref, err := common.NewFileProcessor(logger, cfg.App.MaxFileSize).ReadDocument(args[0])
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.Interview.CatalogFile, cfg.Interview.StrictDomains)
	if err != nil {
		return err
	}

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer aiService.Close()

	ctrl := interview.NewController(uuid.NewString(), "local", aiService.Provider, fileResume{ref: ref}, interview.Options{
		Domains:      cat,
		Logger:       logger,
		DefaultLevel: types.ExperienceLevel(cfg.Interview.DefaultLevel),
		DefaultMode:  interview.ModeText,
	})
	defer ctrl.Close()

	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Preparing a %s interview...\n", interviewDomain)
	if err := ctrl.Configure(ctx, interview.Settings{
		Domain:          interviewDomain,
		Mode:            interview.ModeText,
		ExperienceLevel: types.ExperienceLevel(interviewLevel),
	}); err != nil {
		return err
	}

	if err := runInterviewLoop(ctx, ctrl, cmd.InOrStdin(), out); err != nil {
		return err
	}

	snap := ctrl.Snapshot()
	logger.Info("Interview finished", "session_id", snap.ID, "questions_answered", len(snap.History))
	if len(snap.History) == 0 {
		return nil
	}
	return common.NewOutputHandler(logger).WithStdout(cmd.OutOrStdout()).HandleOutput(snap, interviewConfig)
}

// runInterviewLoop asks questions until the user stops or input ends
func runInterviewLoop(ctx context.Context, ctrl *interview.Controller, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		snap := ctrl.Snapshot()
		fmt.Fprintf(out, "\nQuestion %d: %s\n", len(snap.History)+1, snap.CurrentQuestion)
		fmt.Fprintf(out, "(finish your answer with a line containing only %q)\n", answerTerminator)

		answer, more := readAnswer(scanner)
		if answer == "" && !more {
			return scanner.Err()
		}
		if err := ctrl.SetDraft(answer); err != nil {
			return err
		}

		if err := ctrl.Submit(ctx); err != nil {
			switch {
			case errors.HasCode(err, errors.ErrCodeEmptyAnswer):
				fmt.Fprintln(out, "The answer is empty, please try again.")
				continue
			case errors.HasCode(err, errors.ErrCodeCritique) && more:
				fmt.Fprintf(out, "Could not get feedback (%v). Your answer was kept, submit it again.\n", err)
				continue
			default:
				return err
			}
		}

		printFeedback(out, ctrl.Snapshot().LastFeedback)
		if !more {
			return nil
		}

		fmt.Fprint(out, "Next question? [Y/n] ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if reply := strings.ToLower(strings.TrimSpace(scanner.Text())); reply == "n" || reply == "no" || reply == "q" {
			return nil
		}
		if err := ctrl.Next(ctx); err != nil {
			return err
		}
	}
}

// readAnswer collects lines up to the terminator. more is false when input ended.
func readAnswer(scanner *bufio.Scanner) (answer string, more bool) {
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == answerTerminator {
			return strings.TrimSpace(strings.Join(lines, "\n")), true
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), false
}

func printFeedback(out io.Writer, fb *types.Feedback) {
	if fb == nil {
		return
	}
	fmt.Fprintf(out, "\nScore: %d/100\n", fb.Score)
	if fb.ClarityNote != "" {
		fmt.Fprintf(out, "Clarity: %s\n", fb.ClarityNote)
	}
	if fb.ContentNote != "" {
		fmt.Fprintf(out, "Content: %s\n", fb.ContentNote)
	}
	if fb.ImprovementTips != "" {
		fmt.Fprintf(out, "Tips: %s\n", fb.ImprovementTips)
	}
}
