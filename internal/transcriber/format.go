package transcriber

import (
	"fmt"
	"sort"
	"strings"
)

// Format renders a transcription as speaker-tagged lines:
//
//	1: 你好！
//	2: 你好，我们今天干点什么呢？
//
// Speaker ids are 1-based in the output; sentences from every transcript
// are concatenated and ordered by utterance start time.
func Format(tr *Transcription) string {
	if tr == nil {
		return ""
	}

	var sentences []Sentence
	for _, t := range tr.Transcripts {
		sentences = append(sentences, t.Sentences...)
	}

	sort.SliceStable(sentences, func(i, j int) bool {
		return sentences[i].BeginTime < sentences[j].BeginTime
	})

	var lines []string
	for _, s := range sentences {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d: %s", s.SpeakerID+1, text))
	}

	return strings.Join(lines, "\n")
}
