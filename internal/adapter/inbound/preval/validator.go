package preval

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// shellMetacharacters are the characters that signal the caller meant to
// hand the gate an entire shell-interpreted string rather than a single
// executable name (spec §4.1, §4.7: "never passing a single joined string
// to any shell" — pre-validation enforces the same discipline on input).
const shellMetacharacters = "|&;$`\\\"'<>(){}*?[]~#"

// controlChars are rejected anywhere they appear in command or an
// argument: an embedded CR/LF can only be an attempt to smuggle a second
// command past a naive newline-joined log or shell (spec §4.8: "any
// element containing CR/LF ⇒ SHELL_STRING_REJECTED").
const controlChars = "\r\n"

var structValidator = validator.New()

// Validate runs structural validation (required correlation IDs, argument
// shape) followed by the shell-string and control-character checks. It
// returns the first failure found, typed as *RejectionError.
func Validate(req Request) error {
	if err := structValidator.Struct(req); err != nil {
		return &RejectionError{ErrType: ErrValidationError, Detail: describeValidationError(err)}
	}

	if strings.TrimSpace(req.SessionID) == "" {
		return &RejectionError{ErrType: ErrValidationError, Detail: "session_id is blank"}
	}
	if strings.TrimSpace(req.TurnID) == "" {
		return &RejectionError{ErrType: ErrValidationError, Detail: "turn_id is blank"}
	}
	if strings.TrimSpace(req.AgentID) == "" {
		return &RejectionError{ErrType: ErrValidationError, Detail: "agent_id is blank"}
	}

	if err := checkShellString(req.Command); err != nil {
		return err
	}
	if strings.ContainsAny(req.Command, " \t") {
		return &RejectionError{ErrType: ErrShellStringRejected, Detail: "command contains embedded whitespace"}
	}

	for i, arg := range req.Args {
		if err := checkControlChars(arg); err != nil {
			return &RejectionError{ErrType: ErrShellStringRejected, Detail: fmt.Sprintf("args[%d]: %s", i, err)}
		}
	}

	return nil
}

func checkShellString(command string) error {
	if strings.ContainsAny(command, shellMetacharacters) {
		return &RejectionError{ErrType: ErrShellStringRejected, Detail: "command contains shell metacharacters"}
	}
	if err := checkControlChars(command); err != nil {
		return &RejectionError{ErrType: ErrShellStringRejected, Detail: fmt.Sprintf("command: %s", err)}
	}
	return nil
}

func checkControlChars(s string) error {
	if strings.ContainsAny(s, controlChars) {
		return fmt.Errorf("contains CR/LF")
	}
	return nil
}

func describeValidationError(err error) string {
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("field %q failed %q", fe.Field(), fe.Tag())
	}
	return err.Error()
}
