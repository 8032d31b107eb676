package domain

import (
	"errors"
	"fmt"
)

// Code é o identificador estável de cada tipo de falha de um comando.
type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeInvalidSelection Code = "INVALID_SELECTION"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeMatchFinished    Code = "MATCH_FINISHED"
	CodeMatchNotFinished Code = "MATCH_NOT_FINISHED"
	CodeAlreadyResolved  Code = "ALREADY_RESOLVED"
	CodeAlreadyProcessed Code = "ALREADY_PROCESSED"
	CodeOverflow         Code = "OVERFLOW"
	CodeRetry            Code = "RETRY"

	// CodeInternal cobre falhas de infraestrutura (banco, rede); não faz parte do conjunto de domínio.
	CodeInternal Code = "INTERNAL"
)

// Error é a falha tipada devolvida pelos handlers.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Is compara apenas o código, para que errors.Is(err, ErrNotFound) funcione com mensagens diferentes.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidArgument  = &Error{Code: CodeInvalidArgument}
	ErrInvalidSelection = &Error{Code: CodeInvalidSelection}
	ErrUnauthorized     = &Error{Code: CodeUnauthorized}
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrAlreadyExists    = &Error{Code: CodeAlreadyExists}
	ErrMatchFinished    = &Error{Code: CodeMatchFinished}
	ErrMatchNotFinished = &Error{Code: CodeMatchNotFinished}
	ErrAlreadyResolved  = &Error{Code: CodeAlreadyResolved}
	ErrAlreadyProcessed = &Error{Code: CodeAlreadyProcessed}
	ErrOverflow         = &Error{Code: CodeOverflow}
	ErrRetry            = &Error{Code: CodeRetry}
)

// Errorf cria um *Error com mensagem formatada.
func Errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extrai o código de domínio de err; erros desconhecidos viram CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
