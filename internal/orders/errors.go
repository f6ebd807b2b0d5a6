package orders

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSession = errors.New("order for this session already exists")
	ErrNotFound         = errors.New("order not found")
	ErrMissingSession   = errors.New("event carries no checkout session")
)

type Stage string

const (
	StageDecode         Stage = "decode"
	StageFetchLineItems Stage = "fetch_line_items"
	StageInsert         Stage = "insert"
)

// UpstreamError is a processor or store failure during finalization.
type UpstreamError struct {
	Stage     Stage
	SessionID string
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("finalize %s (%s): %v", e.SessionID, e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
