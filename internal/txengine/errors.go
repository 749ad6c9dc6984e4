package txengine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrUserRejected is returned by a Signer when the user declines.
	ErrUserRejected = errors.New("signing request rejected by user")

	// ErrRetriesExhausted is returned once the retry budget is spent.
	ErrRetriesExhausted = errors.New("retry budget exhausted")

	// ErrNoInstructions rejects an empty payload.
	ErrNoInstructions = errors.New("transaction has no instructions")

	// ErrMissingBlockhash rejects a transaction built without a blockhash.
	ErrMissingBlockhash = errors.New("transaction has no recent blockhash")

	// ErrMissingSignature rejects an unsigned transaction at submit time.
	ErrMissingSignature = errors.New("transaction has no signatures")
)

// ErrorTag is the failure taxonomy. Every terminal failure carries exactly
// one tag; the tag decides retryability and how the caller surfaces it.
type ErrorTag int

const (
	TagUnknown ErrorTag = iota
	TagUserRejected
	TagNetworkTransient
	TagBlockhashExpired
	TagProgramError
	TagConfirmationExpired
	TagCancelled
)

func (t ErrorTag) String() string {
	switch t {
	case TagUserRejected:
		return "user_rejected"
	case TagNetworkTransient:
		return "network_transient"
	case TagBlockhashExpired:
		return "blockhash_expired"
	case TagProgramError:
		return "program_error"
	case TagConfirmationExpired:
		return "confirmation_expired"
	case TagCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure with this tag may be re-attempted.
// BlockhashExpired and ConfirmationExpired additionally require a
// search-history status check before resubmitting (see RetryController).
func (t ErrorTag) Retryable() bool {
	switch t {
	case TagNetworkTransient, TagBlockhashExpired, TagConfirmationExpired:
		return true
	default:
		return false
	}
}

// UserFacing reports whether the failure should surface as an error to the
// user. Rejection and cancellation are deliberate choices, not faults.
func (t ErrorTag) UserFacing() bool {
	return t != TagUserRejected && t != TagCancelled
}

// ClassifiedError wraps a failure with its taxonomy tag and, for program
// errors, the decoded custom error when a mapping is known.
type ClassifiedError struct {
	Tag         ErrorTag
	Err         error
	ProgramCode *uint64
	Decoded     string
}

func (e *ClassifiedError) Error() string {
	if e.Decoded != "" {
		return fmt.Sprintf("%s: %s", e.Tag, e.Decoded)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Tag, e.Err)
	}
	return e.Tag.String()
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// ErrorDecoder maps a program's custom error code to a human-readable name.
// internal/fomolt provides the fomolt3d table.
type ErrorDecoder interface {
	Decode(code uint64) (string, bool)
}

// Classify assigns a taxonomy tag to err. decoder may be nil.
func Classify(err error, decoder ErrorDecoder) *ClassifiedError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserRejected):
		return &ClassifiedError{Tag: TagUserRejected, Err: err}
	case errors.Is(err, context.Canceled):
		return &ClassifiedError{Tag: TagCancelled, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &ClassifiedError{Tag: TagNetworkTransient, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ClassifiedError{Tag: TagNetworkTransient, Err: err}
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return classifyRPC(rpcErr, decoder)
	}

	return classifyMessage(err, decoder)
}

func classifyRPC(rpcErr *jsonrpc.RPCError, decoder ErrorDecoder) *ClassifiedError {
	// 429 surfaces as a plain HTTP error elsewhere; -32005 is "node is
	// behind", both worth waiting out.
	if rpcErr.Code == 429 || rpcErr.Code == -32005 {
		return &ClassifiedError{Tag: TagNetworkTransient, Err: rpcErr}
	}

	msg := strings.ToLower(rpcErr.Message)
	if strings.Contains(msg, "blockhash not found") {
		return &ClassifiedError{Tag: TagBlockhashExpired, Err: rpcErr}
	}
	if strings.Contains(msg, "transaction simulation failed") || strings.Contains(msg, "custom program error") {
		ce := &ClassifiedError{Tag: TagProgramError, Err: rpcErr}
		if code, ok := customCodeFromData(rpcErr.Data); ok {
			ce.decode(code, decoder)
		}
		return ce
	}
	return classifyMessage(rpcErr, decoder)
}

func classifyMessage(err error, decoder ErrorDecoder) *ClassifiedError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "blockhash not found"),
		strings.Contains(msg, "blockhash expired"):
		return &ClassifiedError{Tag: TagBlockhashExpired, Err: err}
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no active rpc"),
		strings.Contains(msg, "eof"):
		return &ClassifiedError{Tag: TagNetworkTransient, Err: err}
	case strings.Contains(msg, "custom program error"),
		strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "instructionerror"),
		strings.Contains(msg, "invalid instruction"):
		ce := &ClassifiedError{Tag: TagProgramError, Err: err}
		if code, ok := parseCustomErrorValue(err.Error()); ok {
			ce.decode(code, decoder)
		}
		return ce
	default:
		return &ClassifiedError{Tag: TagUnknown, Err: err}
	}
}

// ClassifyProgramError builds a classified error from the raw error value a
// simulation result or signature status carries.
func ClassifyProgramError(errValue interface{}, logs []string, decoder ErrorDecoder) *ClassifiedError {
	ce := &ClassifiedError{
		Tag: TagProgramError,
		Err: fmt.Errorf("program error: %v", errValue),
	}
	if code, ok := CustomErrorCode(errValue); ok {
		ce.decode(code, decoder)
	} else if code, ok := customCodeFromLogs(logs); ok {
		ce.decode(code, decoder)
	}
	return ce
}

func (e *ClassifiedError) decode(code uint64, decoder ErrorDecoder) {
	e.ProgramCode = &code
	if decoder != nil {
		if name, ok := decoder.Decode(code); ok {
			e.Decoded = name
			return
		}
	}
	e.Decoded = fmt.Sprintf("custom program error %d", code)
}

// CustomErrorCode extracts the custom code from the JSON error shape
// {"InstructionError":[idx,{"Custom":code}]} that statuses and simulation
// results carry.
func CustomErrorCode(errValue interface{}) (uint64, bool) {
	m, ok := errValue.(map[string]interface{})
	if !ok {
		return 0, false
	}
	instErr, ok := m["InstructionError"].([]interface{})
	if !ok || len(instErr) < 2 {
		return 0, false
	}
	detail, ok := instErr[1].(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := detail["Custom"].(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case int:
		return uint64(v), true
	default:
		return 0, false
	}
}

// customCodeFromLogs scans program logs for the runtime's
// "custom program error: 0x..." line.
func customCodeFromLogs(logs []string) (uint64, bool) {
	for _, line := range logs {
		if code, ok := parseCustomErrorValue(line); ok {
			return code, true
		}
	}
	return 0, false
}

func parseCustomErrorValue(s string) (uint64, bool) {
	idx := strings.Index(strings.ToLower(s), "custom program error: ")
	if idx < 0 {
		return 0, false
	}
	fields := strings.Fields(s[idx+len("custom program error: "):])
	if len(fields) == 0 {
		return 0, false
	}
	rest := strings.TrimSuffix(fields[0], ".")
	var code uint64
	if strings.HasPrefix(rest, "0x") {
		if _, err := fmt.Sscanf(rest, "0x%x", &code); err != nil {
			return 0, false
		}
		return code, true
	}
	if _, err := fmt.Sscanf(rest, "%d", &code); err != nil {
		return 0, false
	}
	return code, true
}

func customCodeFromData(data interface{}) (uint64, bool) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return 0, false
	}
	if errVal, ok := m["err"]; ok {
		if code, found := CustomErrorCode(errVal); found {
			return code, true
		}
	}
	if logs, ok := m["logs"].([]interface{}); ok {
		lines := make([]string, 0, len(logs))
		for _, l := range logs {
			if s, ok := l.(string); ok {
				lines = append(lines, s)
			}
		}
		return customCodeFromLogs(lines)
	}
	return 0, false
}
