package company

import (
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

// appendRecord chains a new communication record, collects it for the
// current tick event, and streams it to the record logger.
func (c *Company) appendRecord(from, to string, kind commlog.Kind, text, threadID string) commlog.Record {
	r := c.chain.Append(commlog.Record{
		From:     from,
		To:       to,
		Kind:     kind,
		Text:     text,
		SimHours: c.simHours,
		TSMillis: c.now().UnixMilli(),
		ThreadID: threadID,
	})
	c.stepRecords = append(c.stepRecords, r)
	if c.cfg.RecordLogger != nil {
		if err := c.cfg.RecordLogger.WriteRecord(c.cfg.ProjectID, r); err != nil {
			c.logger.Printf("[%s] record log: %v", c.cfg.ProjectID, err)
		}
	}
	return r
}

// VerifyChain recomputes the full hash chain. Like StepHours it must not
// race with a running loop.
func (c *Company) VerifyChain() error { return c.chain.Verify() }

// RecordCount reports the communication log length. Loop-confined like
// VerifyChain.
func (c *Company) RecordCount() int { return c.chain.Len() }
