package models

import "fmt"

// KeyKind identifies which client attribute produced a dedup key.
type KeyKind string

const (
	KeyKindEmail KeyKind = "email"
	KeyKindPhone KeyKind = "phone"
)

// MatchMode selects which keys the grouper matches on.
type MatchMode string

const (
	MatchModeEmail MatchMode = "email"
	MatchModePhone MatchMode = "phone"
	MatchModeBoth  MatchMode = "both"
)

// ParseMatchMode validates a raw mode string, defaulting empty to "both".
func ParseMatchMode(raw string) (MatchMode, error) {
	switch MatchMode(raw) {
	case MatchModeEmail, MatchModePhone, MatchModeBoth:
		return MatchMode(raw), nil
	case "":
		return MatchModeBoth, nil
	default:
		return "", fmt.Errorf("invalid match mode %q", raw)
	}
}

// MergeStrategy is the tie-break rule selecting which group member survives.
type MergeStrategy string

const (
	StrategyKeepOldest MergeStrategy = "keep-oldest"
	StrategyKeepNewest MergeStrategy = "keep-newest"
)

// ParseMergeStrategy validates a raw strategy string, defaulting empty to
// keep-oldest.
func ParseMergeStrategy(raw string) (MergeStrategy, error) {
	switch MergeStrategy(raw) {
	case StrategyKeepOldest, StrategyKeepNewest:
		return MergeStrategy(raw), nil
	case "":
		return StrategyKeepOldest, nil
	default:
		return "", fmt.Errorf("invalid merge strategy %q", raw)
	}
}

// DedupKey is the canonical derived value two clients must share to be
// considered duplicates. Never persisted.
type DedupKey struct {
	Kind  KeyKind `json:"kind"`
	Value string  `json:"value"`
}

// MergeGroup is a set of client ids sharing one dedup key. Size >= 2 by
// construction.
type MergeGroup struct {
	Key       DedupKey `json:"key"`
	MemberIDs []string `json:"member_ids"`
	Size      int      `json:"size"`
}

// MergeSuggestion is a read-only consolidation plan for one group.
type MergeSuggestion struct {
	Key        DedupKey      `json:"key"`
	Primary    Client        `json:"primary"`
	Duplicates []Client      `json:"duplicates"`
	Strategy   MergeStrategy `json:"strategy"`
}

// MergeInstruction tells the executor which records to consolidate.
type MergeInstruction struct {
	PrimaryID    string   `json:"primary_id" validate:"required,uuid"`
	DuplicateIDs []string `json:"duplicate_ids" validate:"required,min=1,dive,uuid"`
}

// ErrorKind tags merge failures so callers can tell fatal store problems
// from per-record ones.
type ErrorKind string

const (
	ErrorKindStoreUnavailable   ErrorKind = "StoreUnavailable"
	ErrorKindPrimaryNotFound    ErrorKind = "PrimaryNotFound"
	ErrorKindDuplicateNotFound  ErrorKind = "DuplicateNotFound"
	ErrorKindRelinkFailed       ErrorKind = "RelinkFailed"
	ErrorKindTransactionAborted ErrorKind = "TransactionAborted"
)

// MergeError is a tagged merge failure.
type MergeError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

func (e *MergeError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// NewMergeError builds a tagged merge error with a formatted detail message.
func NewMergeError(kind ErrorKind, format string, args ...any) *MergeError {
	return &MergeError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsStoreUnavailable reports whether err is a fatal store connectivity error.
func IsStoreUnavailable(err error) bool {
	me, ok := err.(*MergeError)
	return ok && me.Kind == ErrorKindStoreUnavailable
}

// DuplicateFailure records why one duplicate could not be consolidated. The
// duplicate's transaction was rolled back; sibling duplicates are unaffected.
type DuplicateFailure struct {
	DuplicateID string    `json:"duplicate_id"`
	Kind        ErrorKind `json:"kind"`
	Detail      string    `json:"detail,omitempty"`
}

// MergeResult reports exactly what happened for one instruction.
type MergeResult struct {
	PrimaryID   string             `json:"primary_id"`
	MergedCount int                `json:"merged_count"`
	MergedIDs   []string           `json:"merged_ids,omitempty"`
	SkippedIDs  []string           `json:"skipped_ids,omitempty"`
	Failures    []DuplicateFailure `json:"failures,omitempty"`
	DryRun      bool               `json:"dry_run,omitempty"`
	Error       *MergeError        `json:"error,omitempty"`
}

// BatchSummary aggregates a discover-and-merge run.
type BatchSummary struct {
	Groups      int           `json:"groups"`
	TotalMerged int           `json:"total_merged"`
	DryRun      bool          `json:"dry_run"`
	Results     []MergeResult `json:"results"`
}
