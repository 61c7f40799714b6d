package apperrors

import (
	"errors"
	"fmt"

	"github.com/palemoky/imposter/internal/protocol"
)

// Kind 错误类别，决定调用方是否可以重试
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindStateConflict
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Retryable 只有基础设施错误可以重试，其余错误对同一输入是永久的
func (k Kind) Retryable() bool {
	return k == KindInfrastructure
}

// GameError 游戏错误（房间、投票、存储共享）
type GameError struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

func newError(kind Kind, code int) *GameError {
	return &GameError{Kind: kind, Code: code, Message: protocol.ErrorMessages[code]}
}

// 预定义错误
var (
	ErrTemplateNotFound = newError(KindNotFound, protocol.ErrCodeTemplateNotFound)
	ErrRoomNotFound     = newError(KindNotFound, protocol.ErrCodeRoomNotFound)
	ErrPlayerNotFound   = newError(KindNotFound, protocol.ErrCodePlayerNotFound)
	ErrVoteNotFound     = newError(KindNotFound, protocol.ErrCodeVoteNotFound)

	ErrInvalidTemplate = newError(KindValidation, protocol.ErrCodeInvalidTemplate)
	ErrInvalidRoster   = newError(KindValidation, protocol.ErrCodeInvalidRoster)
	ErrAlreadyJoined   = newError(KindValidation, protocol.ErrCodeAlreadyJoined)
	ErrRoomFull        = newError(KindValidation, protocol.ErrCodeRoomFull)
	ErrImposterTarget  = newError(KindValidation, protocol.ErrCodeImposterTarget)
	ErrInvalidTarget   = newError(KindValidation, protocol.ErrCodeInvalidTarget)
	ErrDuplicateVote   = newError(KindValidation, protocol.ErrCodeDuplicateVote)
	ErrInvalidVoter    = newError(KindValidation, protocol.ErrCodeInvalidVoter)
	ErrInvalidNominee  = newError(KindValidation, protocol.ErrCodeInvalidNominee)
	ErrInvalidPlayer   = newError(KindValidation, protocol.ErrCodeInvalidPlayer)

	ErrAlreadyStarted = newError(KindStateConflict, protocol.ErrCodeAlreadyStarted)
	ErrGameNotStarted = newError(KindStateConflict, protocol.ErrCodeGameNotStarted)
	ErrGameEnded      = newError(KindStateConflict, protocol.ErrCodeGameEnded)
	ErrVoteInProgress = newError(KindStateConflict, protocol.ErrCodeVoteInProgress)
	ErrVoteClosed     = newError(KindStateConflict, protocol.ErrCodeVoteClosed)

	ErrInfrastructure  = newError(KindInfrastructure, protocol.ErrCodeInfrastructure)
	ErrVersionConflict = newError(KindInfrastructure, protocol.ErrCodeConflict)
)

// Detail 为预定义错误附加说明，errors.Is 仍然匹配原错误
func Detail(err *GameError, format string, args ...any) error {
	return fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
}

// Infra 将存储或推送失败包装为基础设施错误
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrInfrastructure, op, err)
}

// RoomError 携带房间上下文的错误
type RoomError struct {
	RoomID string
	Err    error
}

func (e *RoomError) Error() string {
	return fmt.Sprintf("房间 %s: %v", e.RoomID, e.Err)
}

func (e *RoomError) Unwrap() error {
	return e.Err
}

// WithRoom 为错误附加房间 ID
func WithRoom(err error, roomID string) error {
	if err == nil {
		return nil
	}
	var roomErr *RoomError
	if errors.As(err, &roomErr) {
		return err
	}
	return &RoomError{RoomID: roomID, Err: err}
}

// RoomIDOf 返回错误携带的房间 ID
func RoomIDOf(err error) string {
	var roomErr *RoomError
	if errors.As(err, &roomErr) {
		return roomErr.RoomID
	}
	return ""
}

// KindOf 返回错误类别，未知错误视为基础设施错误
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Kind
	}
	return KindInfrastructure
}
