package transcripts

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/attribution-monitor/internal/deepgram"
	"github.com/ignite/attribution-monitor/internal/domain"
)

func resultWithUtterances(utts ...deepgram.Utterance) *deepgram.Result {
	r := &deepgram.Result{}
	r.Results.Utterances = utts
	return r
}

func resultWithWords(t *testing.T, transcript string, words []deepgram.Word) *deepgram.Result {
	t.Helper()
	wordsJSON, err := json.Marshal(words)
	require.NoError(t, err)
	raw := fmt.Sprintf(`{"results":{"channels":[{"alternatives":[{"transcript":%q,"words":%s}]}]}}`,
		transcript, wordsJSON)

	r := &deepgram.Result{}
	require.NoError(t, json.Unmarshal([]byte(raw), r))
	return r
}

func TestNormalizePrefersUtterances(t *testing.T) {
	res := resultWithUtterances(
		deepgram.Utterance{Start: 0, End: 4.2, Transcript: "stop scrolling"},
		deepgram.Utterance{Start: 4.2, End: 9.8, Transcript: "here is the offer"},
	)

	segments := normalizeSegments(res, 30)
	require.Len(t, segments, 2)
	assert.Equal(t, "stop scrolling", segments[0].Text)
	assert.Equal(t, 4.2, segments[1].Start)
}

func TestNormalizeGroupsWordsIntoWindows(t *testing.T) {
	res := resultWithWords(t, "", []deepgram.Word{
		{Word: "stop", Start: 0, End: 0.5},
		{Word: "scrolling", Start: 0.5, End: 1.2},
		{Word: "now", Start: 9.5, End: 9.9},
		{Word: "listen", Start: 10.5, End: 11.0},
		{Word: "up", Start: 11.0, End: 11.3},
	})

	segments := normalizeSegments(res, 30)
	require.Len(t, segments, 2)
	assert.Equal(t, "stop scrolling now", segments[0].Text)
	assert.Equal(t, 0.0, segments[0].Start)
	assert.Equal(t, "listen up", segments[1].Text)
	assert.Equal(t, 10.5, segments[1].Start)
	assert.Equal(t, 11.3, segments[1].End)
}

func TestNormalizeFallsBackToSingleBlock(t *testing.T) {
	res := resultWithWords(t, "the whole thing as one block", nil)

	segments := normalizeSegments(res, 42)
	require.Len(t, segments, 1)
	assert.Equal(t, "the whole thing as one block", segments[0].Text)
	assert.Equal(t, 0.0, segments[0].Start)
	assert.Equal(t, 42.0, segments[0].End)
}

func TestNormalizeEmptyResult(t *testing.T) {
	assert.Nil(t, normalizeSegments(&deepgram.Result{}, 30))
}

func TestJoinSegments(t *testing.T) {
	text := joinSegments([]domain.TranscriptSegment{
		{Text: "stop scrolling"},
		{Text: "here is the offer"},
	})
	assert.Equal(t, "stop scrolling here is the offer", text)
}
