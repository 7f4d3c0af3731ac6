// Package moderation decides when a submitted video becomes public or rejected.
//
// A video needs two distinct moderators agreeing before it leaves the pending
// state. The ledger keeps at most one recorded voter per vote kind; a moderator
// voting against their own earlier vote retracts it first.
package moderation

import (
	"errors"
	"fmt"

	"github.com/vidshare/vidshare-go/internal/model"
)

var (
	ErrDuplicateVote     = errors.New("moderator already cast this vote")
	ErrAlreadyFinalized  = errors.New("video moderation is already finalized")
	ErrInvalidAction     = errors.New("invalid moderator action")
	ErrInconsistentState = errors.New("inconsistent moderation state")
)

// Status is the public moderation status of a video.
type Status int

const (
	StatusPending Status = iota
	StatusVerified
	StatusRefused
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusVerified:
		return "verified"
	case StatusRefused:
		return "refused"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further action may change the status.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRefused
}

// Kind is the kind of vote a moderator casts.
type Kind int

const (
	Approve Kind = iota + 1
	Refuse
)

func (k Kind) String() string {
	switch k {
	case Approve:
		return "approve"
	case Refuse:
		return "refuse"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps the API action name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "approve":
		return Approve, nil
	case "refuse":
		return Refuse, nil
	}
	return 0, fmt.Errorf("%w: unknown action %q", ErrInvalidAction, s)
}

func (k Kind) opposite() Kind {
	if k == Approve {
		return Refuse
	}
	return Approve
}

func (k Kind) outcome() Status {
	if k == Approve {
		return StatusVerified
	}
	return StatusRefused
}

// Action is one moderator click.
type Action struct {
	Kind        Kind
	ModeratorID string
}

// Ledger records the first voter of each kind. Empty means no vote recorded.
type Ledger struct {
	Approver string
	Refuser  string
}

func (l *Ledger) slot(k Kind) *string {
	if k == Approve {
		return &l.Approver
	}
	return &l.Refuser
}

// State is a video's moderation snapshot.
type State struct {
	Status Status
	Ledger Ledger
}

// Apply returns the state that follows a, or an error and the unchanged state.
func Apply(s State, a Action) (State, error) {
	if a.ModeratorID == "" {
		return s, fmt.Errorf("%w: missing moderator id", ErrInvalidAction)
	}
	if a.Kind != Approve && a.Kind != Refuse {
		return s, fmt.Errorf("%w: %s", ErrInvalidAction, a.Kind)
	}
	if s.Status.Terminal() {
		return s, ErrAlreadyFinalized
	}

	next := s
	own := next.Ledger.slot(a.Kind)
	other := next.Ledger.slot(a.Kind.opposite())

	if *own == a.ModeratorID {
		return s, ErrDuplicateVote
	}

	// Reversing an earlier vote of the opposite kind.
	if *other == a.ModeratorID {
		*other = ""
	}

	if *own == "" {
		*own = a.ModeratorID
	}

	switch {
	case *other == "" && *own != a.ModeratorID:
		next.Status = a.Kind.outcome()
	case *other != "" && *own != a.ModeratorID && *other != a.ModeratorID:
		next.Status = a.Kind.outcome()
	}

	return next, nil
}

// Decode builds a State from the stored columns.
func Decode(f model.ModerationFields) (State, error) {
	var s State
	switch {
	case f.IsVerified && f.IsRefused:
		return State{}, fmt.Errorf("%w: both verified and refused", ErrInconsistentState)
	case f.IsVerified:
		s.Status = StatusVerified
	case f.IsRefused:
		s.Status = StatusRefused
	}

	var err error
	if s.Ledger.Approver, err = voter(f.VerifiedOnce, f.VerifiedOnceBy, "approval"); err != nil {
		return State{}, err
	}
	if s.Ledger.Refuser, err = voter(f.RefusedOnce, f.RefusedOnceBy, "refusal"); err != nil {
		return State{}, err
	}
	return s, nil
}

func voter(flag bool, id *string, what string) (string, error) {
	hasID := id != nil && *id != ""
	switch {
	case flag && !hasID:
		return "", fmt.Errorf("%w: %s recorded without a moderator", ErrInconsistentState, what)
	case !flag && hasID:
		return "", fmt.Errorf("%w: %s moderator set without the flag", ErrInconsistentState, what)
	case flag:
		return *id, nil
	}
	return "", nil
}

// Encode turns a State back into the stored columns.
func Encode(s State) model.ModerationFields {
	f := model.ModerationFields{
		IsVerified: s.Status == StatusVerified,
		IsRefused:  s.Status == StatusRefused,
	}
	if s.Ledger.Approver != "" {
		id := s.Ledger.Approver
		f.VerifiedOnce = true
		f.VerifiedOnceBy = &id
	}
	if s.Ledger.Refuser != "" {
		id := s.Ledger.Refuser
		f.RefusedOnce = true
		f.RefusedOnceBy = &id
	}
	return f
}

// StatusOf returns the status stored in f without validating the ledger.
func StatusOf(f model.ModerationFields) Status {
	switch {
	case f.IsVerified && !f.IsRefused:
		return StatusVerified
	case f.IsRefused && !f.IsVerified:
		return StatusRefused
	}
	return StatusPending
}
