package memory

// charsPerToken is the rough character-to-token ratio used for budget
// checks. The engine only needs an estimate; exact tokenization is the
// completion provider's concern.
const charsPerToken = 4

// EstimateTokens approximates the token count of a string.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + charsPerToken - 1) / charsPerToken
}

// EstimateTurnTokens approximates the token count of a turn sequence,
// including a small per-turn overhead for role framing.
func EstimateTurnTokens(turns []ConversationTurn) int {
	total := 0
	for _, t := range turns {
		total += EstimateTokens(t.Content) + 4
	}
	return total
}
