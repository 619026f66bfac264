package repositories

import "context"

// MusicAnalyzer abstracts the remote text-completion model used for
// characteristics analysis
type MusicAnalyzer interface {
	// Ping performs a minimal call confirming reachability and credentials
	Ping(ctx context.Context) error
	// AnalyzeJSON sends a system+user message pair and asks for a JSON object reply
	AnalyzeJSON(ctx context.Context, system, user string) (string, error)
}
