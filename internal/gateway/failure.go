package gateway

import (
	"errors"
	"fmt"
	"strings"

	"lexgate/internal/provider"
	"lexgate/internal/types"
)

const retryHint = "Search failed, please try again in a moment."

// loginMarkers flag a failure message as credential related.
var loginMarkers = []string{"login", "log in", "sign in", "signin", "sign-in", "credential", "password", "authenticat"}

// Failure is the caller-facing form of an error. Message never carries the
// wrapped cause, so selector and DOM errors stay in the logs.
type Failure struct {
	Kind    types.ErrorKind `json:"-"`
	Message string          `json:"error"`
	Source  string          `json:"source"`
	Hint    string          `json:"hint"`
}

// Describe turns err from HandleSearch into a Failure for source.
func Describe(err error, source types.Source) Failure {
	f := Failure{Kind: types.KindOf(err), Source: string(source), Message: "search failed"}
	var te *types.Error
	if errors.As(err, &te) && te.Message != "" {
		f.Message = te.Message
	}
	if f.Kind == types.KindTimeout && f.Message == "search failed" {
		f.Message = "search timed out"
	}

	switch {
	case f.Kind == types.KindInvalidRequest:
		f.Hint = "Provide query, source and credentials (username and secret), then try again."
	case f.Kind == types.KindUnsupportedSource:
		f.Hint = "Supported sources: " + joinSources(types.AllSources) + "."
	case f.Kind == types.KindAuthenticationFailed || mentionsLogin(f.Message):
		f.Hint = fmt.Sprintf("Check your %s credentials and try again.", provider.DisplayName(source))
	default:
		f.Hint = retryHint
	}
	return f
}

func mentionsLogin(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range loginMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func joinSources(sources []types.Source) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
