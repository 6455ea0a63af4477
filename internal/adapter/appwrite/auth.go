package appwrite

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mmcdole/awsync/internal/domain"
	"golang.org/x/term"
)

// AuthFlow implements domain.AuthFlow with an email/password prompt
type AuthFlow struct {
	logger       *slog.Logger
	in           *bufio.Reader
	out          io.Writer
	readPassword func() ([]byte, error)
}

// NewAuthFlow creates a login flow reading from the terminal
func NewAuthFlow(logger *slog.Logger) *AuthFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthFlow{
		logger: logger,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		readPassword: func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		},
	}
}

// Run prompts for credentials and creates an email session on endpoint
func (f *AuthFlow) Run(ctx context.Context, endpoint, projectID string) (*domain.AuthResult, error) {
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "Appwrite Login")
	fmt.Fprintln(f.out, "━━━━━━━━━━━━━━")

	fmt.Fprint(f.out, "Email: ")
	email, err := f.in.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read email: %w", err)
	}
	email = strings.TrimSpace(email)

	fmt.Fprint(f.out, "Password: ")
	passwordBytes, err := f.readPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(f.out)

	fmt.Fprintln(f.out, "Signing in...")

	client, err := NewClient(endpoint, projectID, Credentials{}, f.logger)
	if err != nil {
		return nil, err
	}
	result, err := client.CreateEmailSession(ctx, email, string(passwordBytes))
	if err != nil {
		f.logger.Error("appwrite login failed", "error", err)
		return nil, err
	}

	fmt.Fprintln(f.out, "Signed in.")
	return result, nil
}

// PromptForEndpoint asks for the API endpoint and project ID
func PromptForEndpoint() (endpoint, project string, err error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Appwrite endpoint (e.g., https://cloud.appwrite.io/v1): ")
	endpoint, err = reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("failed to read input: %w", err)
	}
	fmt.Print("Project ID: ")
	project, err = reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("failed to read input: %w", err)
	}
	return NormalizeEndpoint(endpoint), strings.TrimSpace(project), nil
}
