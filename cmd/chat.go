package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/logger"
	"github.com/spigell/resume-ranker/internal/pipeline"
)

const (
	chatProfiles = "/profiles"
	chatProfile  = "/profile"
	chatUse      = "/use"
	chatApply    = "/apply"
	chatContext  = "/context"
	chatQuit     = "/quit"
)

const chatHelp = "commands: /profiles, /profile NAME, /use (edit the latest draft), /apply (analyze the latest or edited draft), /context, /quit"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Write a job description with the assistant and extract its requirements",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("output", "o", "", "write the applied job description to this file")
}

func chat(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	service, err := newService(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating the analysis service", zap.Error(err))
	}

	orchestrator := pipeline.New(service, config.Scoring, logger)
	if err := orchestrator.SelectModels(config.AI.models()); err != nil {
		logger.Fatal("selecting models", zap.Error(err))
	}

	session := conversation.New(service, config.profiles(), logger)
	fmt.Println(conversation.Greeting)
	fmt.Println(chatHelp)

	input := promptui.Prompt{Label: "You"}
	for {
		line, err := input.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		err = handleChat(ctx, session, orchestrator, strings.TrimSpace(line))
		switch {
		case errors.Is(err, errExit):
			output, _ := cmd.Flags().GetString("output")
			if output != "" && session.Closed() {
				if err := os.WriteFile(output, []byte(session.Staged()+"\n"), 0o644); err != nil {
					logger.Fatal("writing the job description", zap.Error(err))
				}
				logger.Info("job description saved", zap.String("filename", output))
			}
			return
		case err != nil:
			logger.Warn("chat command failed", zap.Error(err))
		}
	}
}

func handleChat(ctx context.Context, session *conversation.Session, orchestrator *pipeline.Orchestrator, line string) error {
	command, arg, _ := strings.Cut(line, " ")

	switch command {
	case "":
		return nil
	case chatQuit:
		return errExit
	case chatProfiles:
		for _, p := range session.Profiles() {
			fmt.Printf("- %s\n", p.Name)
		}
		return nil
	case chatProfile:
		seed, err := session.SelectProfile(arg)
		if err != nil {
			return err
		}
		return send(ctx, session, seed)
	case chatContext:
		c := session.Context()
		fmt.Printf("step: %s\njob title: %s\ncompany: %s\ndepartment: %s\nexperience: %s\n", c.Step, c.JobTitle, c.Company, c.Department, c.Experience)
		return nil
	case chatUse:
		draft, ok := session.LatestDraft()
		if !ok {
			return conversation.ErrEmptyDraft
		}
		edited, err := editText("job_description_*.txt", draft)
		if err != nil {
			return err
		}
		if err := session.Use(edited); err != nil {
			return err
		}
		fmt.Println("draft staged, run /apply to analyze it")
		return nil
	case chatApply:
		draft := session.Staged()
		if draft == "" {
			draft, _ = session.LatestDraft()
		}

		if _, err := session.Apply(ctx, draft, orchestrator); err != nil {
			return err
		}

		sections, err := orchestrator.RequirementsText()
		if err != nil {
			return err
		}
		fmt.Println(renderSections(sections))
		return errExit
	default:
		return send(ctx, session, line)
	}
}

func send(ctx context.Context, session *conversation.Session, text string) error {
	msg, err := session.Send(ctx, text)
	if err != nil {
		fmt.Println(conversation.Apology)
		return err
	}

	fmt.Println(msg.Content)
	if msg.JobDescription != "" {
		fmt.Printf("\n%s\n\n(job description draft ready, /use to edit or /apply to analyze)\n", msg.JobDescription)
	}
	return nil
}
