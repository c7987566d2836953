package transcripts

import (
	"strings"

	"github.com/ignite/attribution-monitor/internal/deepgram"
	"github.com/ignite/attribution-monitor/internal/domain"
)

// segmentWindowSecs is the target window when grouping word-level timestamps.
const segmentWindowSecs = 10.0

// normalizeSegments converts a transcription result into timed segments.
// Utterance-level segments are preferred; word-level timestamps fall back to
// fixed-duration windows; with neither, the whole transcript becomes one
// unsegmented block.
func normalizeSegments(res *deepgram.Result, durationSecs float64) []domain.TranscriptSegment {
	if utts := res.Results.Utterances; len(utts) > 0 {
		segments := make([]domain.TranscriptSegment, 0, len(utts))
		for _, u := range utts {
			if strings.TrimSpace(u.Transcript) == "" {
				continue
			}
			segments = append(segments, domain.TranscriptSegment{
				Start: u.Start,
				End:   u.End,
				Text:  u.Transcript,
			})
		}
		if len(segments) > 0 {
			return segments
		}
	}

	if words := res.Words(); len(words) > 0 {
		return groupWords(words)
	}

	text := strings.TrimSpace(res.Transcript())
	if text == "" {
		return nil
	}
	return []domain.TranscriptSegment{{Start: 0, End: durationSecs, Text: text}}
}

// groupWords buckets word timestamps into ~10s windows. A window closes when
// the next word would start past the window boundary.
func groupWords(words []deepgram.Word) []domain.TranscriptSegment {
	var segments []domain.TranscriptSegment
	var cur domain.TranscriptSegment
	var parts []string
	windowEnd := words[0].Start + segmentWindowSecs
	cur.Start = words[0].Start

	flush := func(end float64) {
		if len(parts) == 0 {
			return
		}
		cur.End = end
		cur.Text = strings.Join(parts, " ")
		segments = append(segments, cur)
		parts = parts[:0]
	}

	for _, w := range words {
		if w.Start >= windowEnd {
			flush(w.Start)
			cur = domain.TranscriptSegment{Start: w.Start}
			windowEnd = w.Start + segmentWindowSecs
		}
		parts = append(parts, w.Word)
		cur.End = w.End
	}
	flush(cur.End)
	return segments
}

// joinSegments rebuilds the full transcript text from segments.
func joinSegments(segments []domain.TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
