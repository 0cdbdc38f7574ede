package decision

import "context"

// Adapter is the pluggable natural-language decision service. The state
// machine is the only caller; tests use a scripted implementation.
type Adapter interface {
	// ScreenTurn classifies one conversational turn into an action plus slot updates.
	ScreenTurn(ctx context.Context, req *ScreenRequest) (*Decision, error)
	// VoicemailFollowup decides whether the accumulated voicemail is complete,
	// and if not, what single question to ask next.
	VoicemailFollowup(ctx context.Context, req *FollowupRequest) (*Followup, error)
	// SummarizeVoicemail condenses the full transcript into a concise message.
	SummarizeVoicemail(ctx context.Context, transcript string) (string, error)
	// ClassifyCallerType assigns one of the closed caller types.
	ClassifyCallerType(ctx context.Context, transcript, purpose string) (CallerType, error)
	// ExtractName pulls a first name out of an utterance, if one was given.
	ExtractName(ctx context.Context, transcript string) (string, error)
	// InterpretLookup turns raw web-search text about a number into a verdict.
	InterpretLookup(ctx context.Context, number, searchText string) (*LookupVerdict, error)
}
