// Package chatcmder provides the chat command for interactive tutoring
// sessions against a running paideia server.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paideialabs/paideia/pkg/cliui"
	"github.com/paideialabs/paideia/pkg/logger"
)

var (
	userPrompt  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	tutorPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type chatCommander struct {
	apiTarget string
	userID    string
	taskID    string
	subtaskID string
	stepID    string
	personaID string
	debug     bool

	logger *zap.Logger
}

// chatRequest mirrors the server's /chat request body.
type chatRequest struct {
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id"`
	SubtaskID string `json:"subtask_id"`
	StepID    string `json:"step_id"`
	Message   string `json:"message"`
	PersonaID string `json:"persona_id,omitempty"`
}

// chatResponse mirrors the server's /chat response body.
type chatResponse struct {
	Reply     string `json:"reply"`
	PersonaID string `json:"persona_id"`
	Degraded  bool   `json:"degraded,omitempty"`
}

const chatLongDesc string = `Start an interactive tutoring session against a running paideia server.

Each message is routed to a tutor persona, answered with full memory
context, and recorded in the step's conversation buffer. Replies are
rendered as markdown.

The session is pinned to one curriculum step (user, task, subtask, step).
Re-running with the same coordinates resumes that step's conversation.

Examples:
  paideia chat --user alice --task algebra --subtask quadratics --step 3
  paideia chat --persona feynman
  paideia chat --api http://localhost:9090`

const chatShortDesc string = "Interactive tutoring session"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.apiTarget, "api", "a", "http://localhost:8080", "Paideia API server URL")
	cmd.Flags().StringVar(&cmder.userID, "user", "local", "Learner identifier")
	cmd.Flags().StringVarP(&cmder.taskID, "task", "t", "scratch", "Task identifier")
	cmd.Flags().StringVar(&cmder.subtaskID, "subtask", "main", "Subtask identifier")
	cmd.Flags().StringVarP(&cmder.stepID, "step", "s", "1", "Curriculum step identifier")
	cmd.Flags().StringVarP(&cmder.personaID, "persona", "p", "", "Preferred tutor persona (empty routes automatically)")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	fmt.Println()
	fmt.Printf("  %s %s\n",
		cliui.KeyStyle.Render("Step:"),
		cliui.NameStyle.Render(fmt.Sprintf("%s/%s/%s/%s", c.userID, c.taskID, c.subtaskID, c.stepID)),
	)
	if c.personaID != "" {
		fmt.Printf("  %s %s\n",
			cliui.KeyStyle.Render("Persona:"),
			cliui.NameStyle.Render(c.personaID),
		)
	}
	fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		resp, err := c.send(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Print(tutorPrompt.Render(resp.PersonaID + "> "))
		fmt.Println()

		rendered, err := cliui.RenderMarkdown(resp.Reply)
		if err != nil {
			// Fall back to the raw reply when the terminal renderer fails.
			rendered = resp.Reply + "\n"
		}
		fmt.Print(rendered)

		if resp.Degraded {
			fmt.Printf("  %s\n", cliui.DimStyle.Render("(long-term memory was unavailable for this reply)"))
		}

		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// send posts one message to the server and returns the tutor's reply.
func (c *chatCommander) send(message string) (*chatResponse, error) {
	reqBody := chatRequest{
		UserID:    c.userID,
		TaskID:    c.taskID,
		SubtaskID: c.subtaskID,
		StepID:    c.stepID,
		Message:   message,
		PersonaID: c.personaID,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending chat request",
		zap.String("api_target", c.apiTarget),
		zap.String("user_id", c.userID),
		zap.String("step_id", c.stepID),
	)

	url := c.apiTarget + "/chat"
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		// Completions can be slow
		Timeout: 5 * time.Minute,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request to server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return &out, nil
}
