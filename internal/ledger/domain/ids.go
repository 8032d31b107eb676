package domain

import (
	"encoding/base64"
	"unicode/utf8"
)

const (
	MaxMatchIDLen  = 32
	MaxTeamNameLen = 64
	MaxIdentityLen = 64
)

// Identity é a identidade opaca e estável do chamador, fornecida pelo host.
// Guardada como string para ser comparável e usável como chave de map; pode conter qualquer byte.
type Identity string

// String devolve a identidade em base64 url-safe, para logs e chaves textuais.
func (id Identity) String() string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// ParseIdentity faz o caminho inverso de Identity.String.
func ParseIdentity(s string) (Identity, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", Errorf(CodeInvalidArgument, "identity is not base64url: %v", err)
	}
	return Identity(b), nil
}

// ValidateIdentity exige 1..64 bytes.
func ValidateIdentity(id Identity) error {
	if len(id) == 0 || len(id) > MaxIdentityLen {
		return Errorf(CodeInvalidArgument, "identity must have 1..%d bytes, got %d", MaxIdentityLen, len(id))
	}
	return nil
}

// ValidateMatchID exige 1..32 caracteres em [A-Za-z0-9_-].
func ValidateMatchID(id string) error {
	if len(id) == 0 || len(id) > MaxMatchIDLen {
		return Errorf(CodeInvalidArgument, "match_id must have 1..%d chars, got %d", MaxMatchIDLen, len(id))
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return Errorf(CodeInvalidArgument, "match_id has invalid char %q at %d", c, i)
		}
	}
	return nil
}

// ValidateTeamName exige UTF-8 válido com 1..64 caracteres.
func ValidateTeamName(field, name string) error {
	if !utf8.ValidString(name) {
		return Errorf(CodeInvalidArgument, "%s is not valid utf-8", field)
	}
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxTeamNameLen {
		return Errorf(CodeInvalidArgument, "%s must have 1..%d chars, got %d", field, MaxTeamNameLen, n)
	}
	return nil
}

// MatchKey é a chave do registro de partida: os bytes UTF-8 do match_id.
func MatchKey(matchID string) []byte {
	return []byte(matchID)
}

// BetKey é a chave do registro de aposta no layout v1: len(owner) ∥ owner ∥ match_id.
//
// O layout de origem é a concatenação simples owner ∥ match_id, que não é injetiva
// quando as identidades têm tamanho variável ("ab"+"c" e "a"+"bc" colidem). O v1
// difere dele de propósito: o byte de tamanho na frente do owner separa os dois
// campos. Identidades validadas cabem nesse byte (ver ValidateIdentity). Qualquer
// mudança aqui é um novo layout e exige migrar as chaves já gravadas.
func BetKey(owner Identity, matchID string) []byte {
	k := make([]byte, 0, 1+len(owner)+len(matchID))
	k = append(k, byte(len(owner)))
	k = append(k, owner...)
	k = append(k, matchID...)
	return k
}
