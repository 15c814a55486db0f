package ports

import "github.com/Kizaaaa/certichain/core"

// Tokenizer converts between sessions and signed bearer tokens
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}
