package narrative

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// templateLines is the canned prose bank. Entries read like the short
// channel updates a CEO posts after a milestone, generic enough to fit any
// phase transition.
var templateLines = []string{
	"Huge milestone for the team today. Everything we planned for this stretch is locked in, and the next one starts now.",
	"We cleared the bar we set for ourselves. Fresh board, fresh targets, same pace.",
	"That was the gate, and we walked straight through it. On to the next phase with momentum on our side.",
	"Proud of everyone who pushed this over the line. The roadmap just got a page shorter.",
	"Another chapter closed ahead of my own expectations. New tasks are on the board, let's keep the streak alive.",
	"The numbers say we're ready, and I agree. Next phase begins today.",
	"We shipped what we promised and the foundation is holding. Time to build the next layer.",
	"Today the plan met reality and the plan won. Everyone take a breath, then look at the new board.",
	"Milestone reached with the whole team pulling in one direction. The next stretch is already scoped.",
	"This is what execution looks like. New phase, new backlog, same crew.",
}

// TemplateGenerator serves prose from a fixed bank with no network calls.
// The line is picked by hashing the prompt, so identical prompts always
// yield identical text and replayed runs stay byte-for-byte reproducible.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (g *TemplateGenerator) Generate(_ context.Context, prompt string) (string, error) {
	sum := sha256.Sum256([]byte(prompt))
	idx := binary.BigEndian.Uint64(sum[:8]) % uint64(len(templateLines))
	return templateLines[idx], nil
}
