package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmissionAgrees(t *testing.T) {
	winner := 7
	base := &ResultSubmission{Score1: 2, Score2: 1, ClaimedWinnerID: &winner}

	same := &ResultSubmission{Score1: 2, Score2: 1, ClaimedWinnerID: &winner}
	assert.True(t, base.Agrees(same))

	otherScore := &ResultSubmission{Score1: 2, Score2: 0, ClaimedWinnerID: &winner}
	assert.False(t, base.Agrees(otherScore))

	otherWinner := 9
	conflicting := &ResultSubmission{Score1: 2, Score2: 1, ClaimedWinnerID: &otherWinner}
	assert.False(t, base.Agrees(conflicting))

	drawClaim := &ResultSubmission{Score1: 1, Score2: 1}
	assert.False(t, base.Agrees(drawClaim))
	assert.True(t, drawClaim.Agrees(&ResultSubmission{Score1: 1, Score2: 1}))
}

func TestDisputeStatusTerminal(t *testing.T) {
	assert.False(t, DisputeStatusOpen.Terminal())
	assert.False(t, DisputeStatusUnderReview.Terminal())
	assert.True(t, DisputeStatusResolved.Terminal())
	assert.True(t, DisputeStatusDismissed.Terminal())
}
