package logging

import "context"

type contextKey string

const (
	documentIDKey contextKey = "cento.document_id"
	decisionKey   contextKey = "cento.decision"
)

// WithDocumentID attaches a document identifier to the context so that every
// log entry emitted during that document's generation carries it.
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, documentIDKey, documentID)
}

// GetDocumentID retrieves the document identifier from the context.
func GetDocumentID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(documentIDKey).(string)
	return id, ok
}

// WithDecision attaches the current decision counter to the context.
func WithDecision(ctx context.Context, decision int) context.Context {
	return context.WithValue(ctx, decisionKey, decision)
}

// GetDecision retrieves the decision counter from the context.
func GetDecision(ctx context.Context) (int, bool) {
	d, ok := ctx.Value(decisionKey).(int)
	return d, ok
}
