// Package errors provides the error taxonomy shared by the release tooling.
// It extends Go's standard error handling with string error codes, a context map
// naming the offending path or resource, and code-aware matching through errors.Is.
package errors

// ErrorCode represents a specific error condition in the release tooling.
// Error codes are string-based for debuggability and stable log output.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates an expected local or remote path is missing.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates a resource already exists and cannot be created again,
	// such as a remote release directory.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates the descriptor or configuration does not match
	// what the tool expects (wrong directory, wrong project, unreleased version).
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeParseFailed indicates a descriptor or response could not be parsed.
	CodeParseFailed ErrorCode = "PARSE_FAILED"

	// Infrastructure errors.

	// CodeTransferFailed indicates a file-transfer protocol failure other than
	// "not found" during a stat, delete, mkdir or upload step.
	CodeTransferFailed ErrorCode = "TRANSFER_FAILED"

	// CodeNetwork indicates an issue-tracker request failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// Execution errors.

	// CodeAborted indicates the operator declined a confirmation prompt.
	CodeAborted ErrorCode = "ABORTED"

	// CodeExecutionFailed indicates a general execution failure, such as a git commit.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// System errors.

	// CodeInternal indicates an internal error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
