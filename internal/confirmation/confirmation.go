package confirmation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"tenant-backup/internal/errors"
)

// Phrase is the literal string an operator must type before a real restore
// executes
const Phrase = "RESTORE"

// Request describes the restore awaiting confirmation
type Request struct {
	QueueID      int64
	TenantName   string
	TotalRecords int
	// Acknowledged is set by an explicit flag; without it the real
	// execution is blocked before any server call.
	Acknowledged bool
}

// Check is the non-interactive gate: both the typed phrase and the explicit
// acknowledgment must be present, independent of server-side authorization
func Check(phrase string, acknowledged bool) error {
	if phrase != Phrase {
		return errors.NewAppError(errors.ErrorTypeInterruption,
			fmt.Sprintf("confirmation phrase mismatch: type %s exactly to proceed", Phrase), nil)
	}
	if !acknowledged {
		return errors.NewAppError(errors.ErrorTypeInterruption,
			"restore requires the explicit acknowledgment flag", nil)
	}
	return nil
}

// Service prompts the operator through the two-step restore confirmation
type Service interface {
	ConfirmRestore(req Request) (bool, error)
}

type service struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewService creates a confirmation service over stdin and stdout
func NewService() Service {
	return NewServiceWithIO(os.Stdin, os.Stdout)
}

// NewServiceWithIO creates a confirmation service with explicit streams
func NewServiceWithIO(reader io.Reader, writer io.Writer) Service {
	return &service{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// ConfirmRestore displays what is about to happen and requires the literal
// confirmation phrase plus an acknowledgment. Either refusal or an interrupt
// blocks the restore; nothing is sent to the server until both pass.
func (s *service) ConfirmRestore(req Request) (bool, error) {
	s.displaySummary(req)

	interruptChan := make(chan os.Signal, 1)
	signal.Notify(interruptChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interruptChan)

	phrase, err := s.promptWithInterrupt(interruptChan,
		fmt.Sprintf("Type %s to confirm: ", Phrase))
	if err != nil {
		return false, err
	}
	if phrase != Phrase {
		fmt.Fprintln(s.writer, color.YellowString("Confirmation phrase did not match, restore cancelled"))
		return false, nil
	}

	if !req.Acknowledged {
		answer, err := s.promptWithInterrupt(interruptChan,
			"I understand this writes the snapshot into the tenant [y/N]: ")
		if err != nil {
			return false, err
		}
		if answer := strings.ToLower(answer); answer != "y" && answer != "yes" {
			fmt.Fprintln(s.writer, color.YellowString("Acknowledgment declined, restore cancelled"))
			return false, nil
		}
	}

	return true, nil
}

func (s *service) displaySummary(req Request) {
	fmt.Fprintln(s.writer, color.RedString("You are about to execute a real restore"))
	fmt.Fprintln(s.writer, strings.Repeat("=", 50))
	fmt.Fprintf(s.writer, "Queue entry:   %d\n", req.QueueID)
	fmt.Fprintf(s.writer, "Tenant:        %s\n", req.TenantName)
	fmt.Fprintf(s.writer, "Records:       %d\n", req.TotalRecords)
	fmt.Fprintln(s.writer)
}

func (s *service) promptWithInterrupt(interruptChan chan os.Signal, prompt string) (string, error) {
	fmt.Fprint(s.writer, prompt)

	inputChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	go func() {
		input, err := s.reader.ReadString('\n')
		if err != nil {
			errorChan <- err
			return
		}
		inputChan <- strings.TrimSpace(input)
	}()

	select {
	case <-interruptChan:
		fmt.Fprintln(s.writer)
		fmt.Fprintln(s.writer, color.YellowString("Operation cancelled by user"))
		return "", errors.NewAppError(errors.ErrorTypeInterruption, "confirmation interrupted", nil)
	case err := <-errorChan:
		return "", errors.WrapError(err, "failed to read confirmation input")
	case input := <-inputChan:
		return input, nil
	}
}
